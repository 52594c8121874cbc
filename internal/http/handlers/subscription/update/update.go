// Package update реализует HTTP-обработчик изменения подписки администратором.
// Меняются только переданные поля.
package update

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/bizledger/internal/http/response"
	"github.com/magabrotheeeer/bizledger/internal/lib/apperrors"
	"github.com/magabrotheeeer/bizledger/internal/models"
	subsvc "github.com/magabrotheeeer/bizledger/internal/services/subscription"
)

// Handler обрабатывает запросы изменения подписки.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// Service описывает интерфейс бизнес-логики изменения подписки.
type Service interface {
	Update(ctx context.Context, id int64, upd models.SubscriptionUpdate) (*models.Subscription, error)
}

// New создает новый Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service, validate: validator.New()}
}

// ServeHTTP godoc
// @Summary Изменение подписки
// @Tags Subscription
// @Security BearerAuth
// @Accept  json
// @Produce  json
// @Param id path int true "ID подписки"
// @Param request body models.DummySubscriptionUpdate true "Изменяемые поля"
// @Success 200 {object} response.Response{data=map[string]any} "Подписка изменена"
// @Failure 404 {object} response.ErrorResponse "Подписка не найдена"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Router /subscriptions/{id} [put]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscription.update"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.Fail(w, r, log, apperrors.Validation("id must be an integer"))
		return
	}

	var req models.DummySubscriptionUpdate
	if err = render.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, r, log, err)
		return
	}
	if err = h.validate.Struct(req); err != nil {
		response.Invalid(w, r, log, err)
		return
	}

	upd := models.SubscriptionUpdate{Plan: req.Plan, IsActive: req.IsActive}
	if req.StartDate != nil {
		start, err := subsvc.ParseDate(*req.StartDate)
		if err != nil {
			response.Fail(w, r, log, err)
			return
		}
		upd.StartDate = &start
	}
	if req.EndDate != nil {
		end, err := subsvc.ParseDate(*req.EndDate)
		if err != nil {
			response.Fail(w, r, log, err)
			return
		}
		upd.EndDate = &end
	}

	sub, err := h.service.Update(r.Context(), id, upd)
	if err != nil {
		response.Fail(w, r, log, err)
		return
	}

	render.JSON(w, r, response.OKWithData(map[string]any{
		"subscription": sub,
	}))
}
