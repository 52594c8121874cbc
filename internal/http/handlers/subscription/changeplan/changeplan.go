// Package changeplan реализует HTTP-обработчик смены тарифа текущей подписки.
package changeplan

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

// Handler обрабатывает запросы смены тарифа.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// Service меняет тариф.
type Service interface {
	ChangePlan(ctx context.Context, userID, plan string) (*models.Subscription, string, error)
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service, validate: validator.New()}
}

// ServeHTTP godoc
// @Summary Смена тарифа
// @Description Меняет тариф текущей подписки, даты не меняются.
// @Tags Subscription
// @Security BearerAuth
// @Accept  json
// @Produce  json
// @Param request body models.ChangePlanRequest true "Новый тариф"
// @Success 200 {object} response.Response{data=map[string]any} "Тариф изменён"
// @Failure 403 {object} response.ErrorResponse "Подписка истекла"
// @Failure 404 {object} response.ErrorResponse "Нет текущей подписки"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Router /auth/change-subscription-plan [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscription.changeplan"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	p, ok := middlewarectx.PrincipalFrom(r.Context())
	if !ok {
		response.Fail(w, r, log, apperrors.MissingToken())
		return
	}

	var req models.ChangePlanRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, r, log, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		response.Invalid(w, r, log, err)
		return
	}

	sub, previous, err := h.service.ChangePlan(r.Context(), p.ID, req.Plan)
	if err != nil {
		response.Fail(w, r, log, err)
		return
	}

	render.JSON(w, r, response.OKWithData(map[string]any{
		"message":       "subscription plan changed",
		"previous_plan": previous,
		"subscription":  sub,
	}))
}
