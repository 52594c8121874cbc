// Package remove реализует HTTP-обработчик снятия подписки администратором.
// Запись не удаляется, а перестаёт быть текущей.
package remove

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/bizledger/internal/http/response"
	"github.com/magabrotheeeer/bizledger/internal/lib/apperrors"
)

// Handler обрабатывает запросы снятия подписки.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс бизнес-логики снятия подписки.
type Service interface {
	Remove(ctx context.Context, id int64) error
}

// New создает новый Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Снятие подписки
// @Tags Subscription
// @Security BearerAuth
// @Produce  json
// @Param id path int true "ID подписки"
// @Success 200 {object} response.Response "Подписка снята"
// @Failure 404 {object} response.ErrorResponse "Подписка не найдена"
// @Router /subscriptions/{id} [delete]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscription.remove"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.Fail(w, r, log, apperrors.Validation("id must be an integer"))
		return
	}

	if err = h.service.Remove(r.Context(), id); err != nil {
		response.Fail(w, r, log, err)
		return
	}

	log.Info("subscription deactivated", slog.Int64("id", id))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"message": "subscription deactivated",
		"id":      id,
	}))
}
