// Package create реализует HTTP-обработчик создания подписки администратором.
//
// Прежняя текущая подписка пользователя перестаёт быть текущей.
package create

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/bizledger/internal/http/response"
	"github.com/magabrotheeeer/bizledger/internal/models"
	subsvc "github.com/magabrotheeeer/bizledger/internal/services/subscription"
)

// Handler обрабатывает запросы на создание подписки.
type Handler struct {
	log      *slog.Logger        // Логгер для записи информации и ошибок
	service  Service             // Сервис бизнес-логики подписок
	validate *validator.Validate // Валидатор входных данных
}

// Service описывает интерфейс бизнес-логики создания подписки.
type Service interface {
	Create(ctx context.Context, userID, plan string, start, end time.Time) (*models.Subscription, error)
}

// New создает новый Handler с переданным логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Создание подписки
// @Description Создаёт подписку пользователю. Требуется тариф premium.
// @Tags Subscription
// @Security BearerAuth
// @Accept  json
// @Produce  json
// @Param request body models.DummySubscription true "Данные подписки"
// @Success 201 {object} response.Response{data=map[string]any} "Подписка создана"
// @Failure 403 {object} response.ErrorResponse "Нужен тариф premium"
// @Failure 404 {object} response.ErrorResponse "Пользователь не найден"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Router /subscriptions [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscription.create"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req models.DummySubscription
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, r, log, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		response.Invalid(w, r, log, err)
		return
	}

	start, err := subsvc.ParseDate(req.StartDate)
	if err != nil {
		response.Fail(w, r, log, err)
		return
	}
	end, err := subsvc.ParseDate(req.EndDate)
	if err != nil {
		response.Fail(w, r, log, err)
		return
	}

	sub, err := h.service.Create(r.Context(), req.UserID, req.Plan, start, end)
	if err != nil {
		response.Fail(w, r, log, err)
		return
	}

	log.Info("subscription created", slog.Int64("id", sub.ID))
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, response.OKWithData(map[string]any{
		"subscription": sub,
	}))
}
