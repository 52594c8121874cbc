package health

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestHealthHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ok := pingFunc(func(context.Context) error { return nil })
	down := pingFunc(func(context.Context) error { return errors.New("connection refused") })

	tests := []struct {
		name   string
		deps   map[string]Pinger
		status int
		body   string
	}{
		{
			name:   "все зависимости доступны",
			deps:   map[string]Pinger{"postgres": ok, "redis": ok},
			status: http.StatusOK,
			body:   `{"status":"OK","data":{"status":"ok","checks":{"postgres":"ok","redis":"ok"}}}`,
		},
		{
			name:   "база недоступна",
			deps:   map[string]Pinger{"postgres": down, "redis": ok},
			status: http.StatusServiceUnavailable,
			body:   `{"status":"Error","error":"service unavailable","data":{"checks":{"postgres":"unavailable","redis":"ok"}}}`,
		},
		{
			name:   "без зависимостей",
			status: http.StatusOK,
			body:   `{"status":"OK","data":{"status":"ok","checks":{}}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			New(logger, tt.deps).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

			assert.Equal(t, tt.status, rr.Code)
			assert.JSONEq(t, tt.body, rr.Body.String())
		})
	}
}
