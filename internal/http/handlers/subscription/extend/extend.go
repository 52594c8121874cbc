// Package extend реализует HTTP-обработчик переноса даты окончания текущей подписки.
package extend

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

// Handler обрабатывает запросы продления от даты окончания.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// Service продлевает текущую подписку.
type Service interface {
	Extend(ctx context.Context, userID string, months int) (*models.Subscription, error)
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service, validate: validator.New()}
}

// ServeHTTP godoc
// @Summary Продление от даты окончания
// @Description Сдвигает дату окончания текущей подписки на 1..12 месяцев.
// @Tags Subscription
// @Security BearerAuth
// @Accept  json
// @Produce  json
// @Param request body models.ExtendRequest true "Количество месяцев"
// @Success 200 {object} response.Response{data=map[string]any} "Подписка продлена"
// @Failure 404 {object} response.ErrorResponse "Нет текущей подписки"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Router /auth/extend-subscription [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscription.extend"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	p, ok := middlewarectx.PrincipalFrom(r.Context())
	if !ok {
		response.Fail(w, r, log, apperrors.MissingToken())
		return
	}

	var req models.ExtendRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, r, log, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		response.Invalid(w, r, log, err)
		return
	}

	sub, err := h.service.Extend(r.Context(), p.ID, req.Months)
	if err != nil {
		response.Fail(w, r, log, err)
		return
	}

	render.JSON(w, r, response.OKWithData(map[string]any{
		"message":      "subscription extended",
		"subscription": sub,
	}))
}
