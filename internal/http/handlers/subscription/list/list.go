// Package list реализует HTTP-обработчик списка подписок.
//
// С параметром user_id возвращается история подписок пользователя,
// без него все подписки с пагинацией limit/offset.
package list

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/google/uuid"

	"github.com/magabrotheeeer/bizledger/internal/http/response"
	"github.com/magabrotheeeer/bizledger/internal/lib/apperrors"
	"github.com/magabrotheeeer/bizledger/internal/models"
)

const (
	defaultLimit = 20
	maxLimit     = 100
)

// Handler обрабатывает запросы списка подписок.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс бизнес-логики списка подписок.
type Service interface {
	ListAll(ctx context.Context, limit, offset int) ([]models.Subscription, error)
	ListForUser(ctx context.Context, userID string) ([]models.Subscription, error)
}

// New создает новый Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Список подписок
// @Tags Subscription
// @Security BearerAuth
// @Produce  json
// @Param user_id query string false "ID пользователя"
// @Param limit query int false "Размер страницы (по умолчанию 20, не больше 100)"
// @Param offset query int false "Смещение"
// @Success 200 {object} response.Response{data=map[string]any} "Подписки"
// @Failure 422 {object} response.ErrorResponse "Некорректные параметры"
// @Router /subscriptions [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscription.list"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	q := r.URL.Query()
	var (
		subs []models.Subscription
		err  error
	)
	if userID := q.Get("user_id"); userID != "" {
		if _, err = uuid.Parse(userID); err != nil {
			response.Fail(w, r, log, apperrors.Validation("user_id must be a uuid"))
			return
		}
		subs, err = h.service.ListForUser(r.Context(), userID)
	} else {
		limit, offset, perr := pagination(q.Get("limit"), q.Get("offset"))
		if perr != nil {
			response.Fail(w, r, log, perr)
			return
		}
		subs, err = h.service.ListAll(r.Context(), limit, offset)
	}
	if err != nil {
		response.Fail(w, r, log, err)
		return
	}

	if subs == nil {
		subs = []models.Subscription{}
	}
	render.JSON(w, r, response.OKWithData(map[string]any{
		"subscriptions": subs,
		"count":         len(subs),
	}))
}

func pagination(rawLimit, rawOffset string) (int, int, error) {
	limit, offset := defaultLimit, 0
	var err error
	if rawLimit != "" {
		if limit, err = strconv.Atoi(rawLimit); err != nil || limit < 1 {
			return 0, 0, apperrors.Validation("limit must be a positive integer")
		}
		limit = min(limit, maxLimit)
	}
	if rawOffset != "" {
		if offset, err = strconv.Atoi(rawOffset); err != nil || offset < 0 {
			return 0, 0, apperrors.Validation("offset must be a non-negative integer")
		}
	}
	return limit, offset, nil
}
