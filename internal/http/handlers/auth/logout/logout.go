// Package logout реализует HTTP-обработчик выхода: токен запроса отзывается.
package logout

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/bizledger/internal/http/middlewarectx"
	"github.com/magabrotheeeer/bizledger/internal/http/response"
	"github.com/magabrotheeeer/bizledger/internal/lib/apperrors"
	"github.com/magabrotheeeer/bizledger/internal/models"
)

// Handler обрабатывает запросы выхода.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service отзывает токен пользователя.
type Service interface {
	Logout(ctx context.Context, p *models.Principal) error
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Выход
// @Description Отзывает текущий токен до окончания срока его действия.
// @Tags Auth
// @Security BearerAuth
// @Produce  json
// @Success 200 {object} response.Response "Выход выполнен"
// @Failure 401 {object} response.ErrorResponse "Нет токена или он недействителен"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /auth/logout [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.logout"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	p, ok := middlewarectx.PrincipalFrom(r.Context())
	if !ok {
		response.Fail(w, r, log, apperrors.MissingToken())
		return
	}
	if err := h.service.Logout(r.Context(), p); err != nil {
		response.Fail(w, r, log, err)
		return
	}

	log.Info("user logged out", slog.String("user_id", p.ID))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"message": "logged out",
	}))
}
