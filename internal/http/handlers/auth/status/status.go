// Package status реализует HTTP-обработчики статуса доступа пользователя.
package status

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/bizledger/internal/http/middlewarectx"
	"github.com/magabrotheeeer/bizledger/internal/http/response"
	"github.com/magabrotheeeer/bizledger/internal/lib/apperrors"
	authsvc "github.com/magabrotheeeer/bizledger/internal/services/auth"
)

// Service возвращает свежий статус доступа пользователя.
type Service interface {
	Status(ctx context.Context, userID string) (*authsvc.StatusResult, error)
}

// SubscriptionHandler отдаёт статус доступа, посчитанный при аутентификации запроса.
type SubscriptionHandler struct {
	log *slog.Logger
}

// NewSubscription создает новый экземпляр SubscriptionHandler.
func NewSubscription(log *slog.Logger) *SubscriptionHandler {
	return &SubscriptionHandler{log: log}
}

// ServeHTTP godoc
// @Summary Статус подписки
// @Description Возвращает статус доступа. Работает и при истёкшей подписке.
// @Tags Auth
// @Security BearerAuth
// @Produce  json
// @Success 200 {object} response.Response{data=map[string]any} "Статус доступа"
// @Failure 401 {object} response.ErrorResponse "Нет токена или он недействителен"
// @Router /auth/subscription [get]
func (h *SubscriptionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.subscription"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	p, ok := middlewarectx.PrincipalFrom(r.Context())
	if !ok {
		response.Fail(w, r, log, apperrors.MissingToken())
		return
	}
	render.JSON(w, r, response.OKWithData(map[string]any{
		"subscription": p.Entitlement,
	}))
}

// UserStatusHandler отдаёт статус доступа вместе с записью текущей подписки.
type UserStatusHandler struct {
	log     *slog.Logger
	service Service
}

// NewUserStatus создает новый экземпляр UserStatusHandler.
func NewUserStatus(log *slog.Logger, service Service) *UserStatusHandler {
	return &UserStatusHandler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Статус пользователя
// @Description Возвращает статус доступа и текущую запись подписки.
// @Tags Auth
// @Security BearerAuth
// @Produce  json
// @Success 200 {object} response.Response{data=map[string]any} "Статус пользователя"
// @Failure 401 {object} response.ErrorResponse "Нет токена или он недействителен"
// @Failure 404 {object} response.ErrorResponse "Пользователь удалён"
// @Router /auth/user-status [get]
func (h *UserStatusHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.userstatus"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	p, ok := middlewarectx.PrincipalFrom(r.Context())
	if !ok {
		response.Fail(w, r, log, apperrors.MissingToken())
		return
	}
	res, err := h.service.Status(r.Context(), p.ID)
	if err != nil {
		response.Fail(w, r, log, err)
		return
	}

	render.JSON(w, r, response.OKWithData(map[string]any{
		"user_id":              p.ID,
		"subscription":         res.Entitlement,
		"current_subscription": res.Current,
	}))
}
