package update

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/bizledger/internal/models"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) Update(ctx context.Context, id int64, upd models.SubscriptionUpdate) (*models.Subscription, error) {
	args := m.Called(ctx, id, upd)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Subscription), args.Error(1)
}

func serve(h http.Handler, id, body string) *httptest.ResponseRecorder {
	router := chi.NewRouter()
	router.Put("/subscriptions/{id}", h.ServeHTTP)
	req := httptest.NewRequest(http.MethodPut, "/subscriptions/"+id, bytes.NewBufferString(body))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func TestUpdateHandler_PartialUpdate(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := new(MockService)
	end := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	svc.On("Update", mock.Anything, int64(9), mock.MatchedBy(func(upd models.SubscriptionUpdate) bool {
		return upd.Plan != nil && *upd.Plan == "premium" &&
			upd.EndDate != nil && upd.EndDate.Equal(end) &&
			upd.StartDate == nil && upd.IsActive == nil
	})).Return(&models.Subscription{ID: 9, Plan: "premium", EndDate: end}, nil)

	rr := serve(New(logger, svc), "9", `{"plan":"premium","end_date":"2024-06-01"}`)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"plan":"premium"`)
	svc.AssertExpectations(t)
}

func TestUpdateHandler_Rejects(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	tests := []struct {
		name string
		id   string
		body string
		want int
	}{
		{name: "id не число", id: "x", body: `{}`, want: http.StatusUnprocessableEntity},
		{name: "неизвестный тариф", id: "1", body: `{"plan":"gold"}`, want: http.StatusUnprocessableEntity},
		{name: "некорректная дата", id: "1", body: `{"start_date":"yesterday"}`, want: http.StatusUnprocessableEntity},
		{name: "некорректный JSON", id: "1", body: `[`, want: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockService)
			rr := serve(New(logger, svc), tt.id, tt.body)
			assert.Equal(t, tt.want, rr.Code)
			svc.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}
