package remove

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/bizledger/internal/lib/apperrors"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) Remove(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func TestRemoveHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	tests := []struct {
		name           string
		id             string
		setupMock      func(*MockService)
		expectedStatus int
	}{
		{
			name:           "подписка снята",
			id:             "4",
			setupMock:      func(m *MockService) { m.On("Remove", mock.Anything, int64(4)).Return(nil) },
			expectedStatus: http.StatusOK,
		},
		{
			name: "подписка не найдена",
			id:   "4",
			setupMock: func(m *MockService) {
				m.On("Remove", mock.Anything, int64(4)).
					Return(apperrors.New(apperrors.KindSubscriptionNotFound, apperrors.MsgSubscriptionNotFound))
			},
			expectedStatus: http.StatusNotFound,
		},
		{
			name:           "id не число",
			id:             "four",
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusUnprocessableEntity,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockService)
			tt.setupMock(svc)

			router := chi.NewRouter()
			router.Delete("/subscriptions/{id}", New(logger, svc).ServeHTTP)
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, httptest.NewRequest(http.MethodDelete, "/subscriptions/"+tt.id, nil))

			assert.Equal(t, tt.expectedStatus, rr.Code)
			svc.AssertExpectations(t)
		})
	}
}
