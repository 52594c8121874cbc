package renew

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/bizledger/internal/http/middlewarectx"
	"github.com/magabrotheeeer/bizledger/internal/lib/apperrors"
	"github.com/magabrotheeeer/bizledger/internal/models"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) Renew(ctx context.Context, userID, plan string, months int) (*models.Subscription, error) {
	args := m.Called(ctx, userID, plan, months)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Subscription), args.Error(1)
}

func TestRenewHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	principal := &models.Principal{ID: "u1", Username: "alice"}
	sub := &models.Subscription{
		ID:        7,
		UserID:    "u1",
		Plan:      models.PlanPremium,
		StartDate: time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC),
		IsActive:  true,
	}

	tests := []struct {
		name           string
		body           string
		principal      *models.Principal
		setupMock      func(*MockService)
		expectedStatus int
		expectedKind   string
	}{
		{
			name:      "продление на месяц",
			body:      `{"plan":"premium","months":1}`,
			principal: principal,
			setupMock: func(m *MockService) {
				m.On("Renew", mock.Anything, "u1", "premium", 1).Return(sub, nil)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:      "тариф по умолчанию",
			body:      `{"months":3}`,
			principal: principal,
			setupMock: func(m *MockService) {
				m.On("Renew", mock.Anything, "u1", "", 3).Return(sub, nil)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "больше двенадцати месяцев",
			body:           `{"months":13}`,
			principal:      principal,
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedKind:   "VALIDATION_ERROR",
		},
		{
			name:           "пробный тариф нельзя купить",
			body:           `{"plan":"trial","months":1}`,
			principal:      principal,
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedKind:   "VALIDATION_ERROR",
		},
		{
			name:           "без пользователя в контексте",
			body:           `{"months":1}`,
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusUnauthorized,
			expectedKind:   "MISSING_TOKEN",
		},
		{
			name:      "ошибка хранилища",
			body:      `{"months":1}`,
			principal: principal,
			setupMock: func(m *MockService) {
				m.On("Renew", mock.Anything, "u1", "", 1).Return(nil, apperrors.DataAccess(assert.AnError))
			},
			expectedStatus: http.StatusInternalServerError,
			expectedKind:   "DATA_ACCESS_FAILURE",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockService)
			tt.setupMock(svc)

			req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/renew-subscription", bytes.NewBufferString(tt.body))
			if tt.principal != nil {
				req = req.WithContext(middlewarectx.WithPrincipal(req.Context(), tt.principal))
			}
			rr := httptest.NewRecorder()
			New(logger, svc).ServeHTTP(rr, req)

			assert.Equal(t, tt.expectedStatus, rr.Code)
			if tt.expectedKind != "" {
				assert.Contains(t, rr.Body.String(), `"kind":"`+tt.expectedKind+`"`)
			} else {
				assert.Contains(t, rr.Body.String(), `"end_date":"2024-02-29T00:00:00Z"`)
			}
			svc.AssertExpectations(t)
		})
	}
}
