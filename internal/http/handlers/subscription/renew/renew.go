// Package renew реализует HTTP-обработчик продления подписки с текущего дня.
// Доступен и при истёкшей подписке: это основной путь её восстановления.
package renew

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/bizledger/internal/http/middlewarectx"
	"github.com/magabrotheeeer/bizledger/internal/http/response"
	"github.com/magabrotheeeer/bizledger/internal/lib/apperrors"
	"github.com/magabrotheeeer/bizledger/internal/models"
)

// Handler обрабатывает запросы продления.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// Service продлевает подписку.
type Service interface {
	Renew(ctx context.Context, userID, plan string, months int) (*models.Subscription, error)
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service, validate: validator.New()}
}

// ServeHTTP godoc
// @Summary Продление подписки
// @Description Начинает новое окно подписки с сегодняшнего дня на 1..12 месяцев.
// @Tags Subscription
// @Security BearerAuth
// @Accept  json
// @Produce  json
// @Param request body models.RenewRequest true "Тариф и количество месяцев"
// @Success 200 {object} response.Response{data=map[string]any} "Подписка продлена"
// @Failure 401 {object} response.ErrorResponse "Нет токена или он недействителен"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Router /auth/renew-subscription [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscription.renew"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	p, ok := middlewarectx.PrincipalFrom(r.Context())
	if !ok {
		response.Fail(w, r, log, apperrors.MissingToken())
		return
	}

	var req models.RenewRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, r, log, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		response.Invalid(w, r, log, err)
		return
	}

	sub, err := h.service.Renew(r.Context(), p.ID, req.Plan, req.Months)
	if err != nil {
		response.Fail(w, r, log, err)
		return
	}

	render.JSON(w, r, response.OKWithData(map[string]any{
		"message":      "subscription renewed",
		"subscription": sub,
	}))
}
