package response

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-playground/validator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/bizledger/internal/lib/apperrors"
)

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		kind apperrors.Kind
		want int
	}{
		{apperrors.KindInvalidCredentials, http.StatusUnauthorized},
		{apperrors.KindMissingToken, http.StatusUnauthorized},
		{apperrors.KindInvalidToken, http.StatusUnauthorized},
		{apperrors.KindExpiredToken, http.StatusUnauthorized},
		{apperrors.KindSubscriptionRequired, http.StatusForbidden},
		{apperrors.KindSubscriptionExpired, http.StatusForbidden},
		{apperrors.KindNoActiveSubscription, http.StatusForbidden},
		{apperrors.KindPlanMismatch, http.StatusForbidden},
		{apperrors.KindUserNotFound, http.StatusNotFound},
		{apperrors.KindSubscriptionNotFound, http.StatusNotFound},
		{apperrors.KindUserExists, http.StatusConflict},
		{apperrors.KindValidation, http.StatusUnprocessableEntity},
		{apperrors.KindMalformedRequest, http.StatusBadRequest},
		{apperrors.KindDataAccessFailure, http.StatusInternalServerError},
		{apperrors.KindInternal, http.StatusInternalServerError},
		{apperrors.Kind("SOMETHING_NEW"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			assert.Equal(t, tt.want, StatusFor(tt.kind))
		})
	}
}

func TestFail(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantBody   ErrorResponse
	}{
		{
			name:       "subscription expired keeps details",
			err:        apperrors.New(apperrors.KindSubscriptionExpired, apperrors.MsgSubscriptionExpired).WithDetails(map[string]any{"days_remaining": 0}),
			wantStatus: http.StatusForbidden,
			wantBody: ErrorResponse{
				Status: StatusError, Error: apperrors.MsgSubscriptionExpired, Kind: apperrors.KindSubscriptionExpired,
				Details: map[string]any{"days_remaining": float64(0)},
			},
		},
		{
			name:       "storage error hides cause",
			err:        apperrors.DataAccess(errors.New("pq: password authentication failed for user admin")),
			wantStatus: http.StatusInternalServerError,
			wantBody:   ErrorResponse{Status: StatusError, Error: apperrors.MsgDataAccessFailure, Kind: apperrors.KindDataAccessFailure},
		},
		{
			name:       "plain error becomes internal",
			err:        errors.New("nil pointer somewhere"),
			wantStatus: http.StatusInternalServerError,
			wantBody:   ErrorResponse{Status: StatusError, Error: apperrors.MsgInternal, Kind: apperrors.KindInternal},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			rec := httptest.NewRecorder()

			Fail(rec, req, newNoopLogger(), tt.err)

			assert.Equal(t, tt.wantStatus, rec.Code)
			var got ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
			assert.Equal(t, tt.wantBody, got)
			assert.NotContains(t, rec.Body.String(), "password authentication")
		})
	}
}

func TestInvalid(t *testing.T) {
	type form struct {
		Email  string `validate:"required,email"`
		Months int    `validate:"min=1,max=12"`
		Plan   string `validate:"oneof=standard premium"`
	}
	err := validator.New().Struct(form{Email: "nope", Months: 13, Plan: "gold"})
	require.Error(t, err)

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	rec := httptest.NewRecorder()
	Invalid(rec, req, newNoopLogger(), err)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "field Email must be a valid email")
	assert.Contains(t, rec.Body.String(), "field Months must be at most 12")
	assert.Contains(t, rec.Body.String(), "field Plan must be one of: standard premium")
	assert.Contains(t, rec.Body.String(), `"kind":"VALIDATION_ERROR"`)
}

func TestBadRequest(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	rec := httptest.NewRecorder()
	BadRequest(rec, req, newNoopLogger(), errors.New("unexpected EOF"))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"status":"Error","error":"invalid request body","kind":"MALFORMED_REQUEST"}`, rec.Body.String())
	assert.NotContains(t, rec.Body.String(), "unexpected EOF")
}

func TestBadRequest_LogsAtInfo(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	rec := httptest.NewRecorder()
	BadRequest(rec, req, logger, errors.New("invalid character 'x'"))

	assert.Contains(t, buf.String(), "level=INFO")
	assert.NotContains(t, buf.String(), "level=ERROR")
	assert.Contains(t, buf.String(), "kind=MALFORMED_REQUEST")
}
