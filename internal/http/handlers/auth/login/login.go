// Package login реализует HTTP-обработчик входа по имени или почте и паролю.
//
// При успехе возвращается токен, данные пользователя без хеша пароля и текущий
// статус доступа. Неизвестный пользователь и неверный пароль неразличимы для клиента.
package login

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/bizledger/internal/http/response"
	"github.com/magabrotheeeer/bizledger/internal/models"
	authsvc "github.com/magabrotheeeer/bizledger/internal/services/auth"
)

// Handler обрабатывает HTTP-запросы для авторизации.
type Handler struct {
	log      *slog.Logger        // Логгер для записи операций и ошибок
	service  Service             // Шлюз аутентификации, локальный или удалённый
	validate *validator.Validate // Валидатор для проверки входных данных
}

// Service описывает интерфейс бизнес-логики аутентификации.
type Service interface {
	Login(ctx context.Context, login, password string) (*authsvc.LoginResult, error)
}

// Response тело успешного входа. Отдаётся без общей обёртки status/data:
// клиенты читают token и user с верхнего уровня.
type Response struct {
	Message      string                   `json:"message"`
	Token        string                   `json:"token"`
	TokenType    string                   `json:"token_type"`
	User         models.PublicUser        `json:"user"`
	Subscription models.EntitlementStatus `json:"subscription"`
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Вход пользователя
// @Description Проверяет имя пользователя (или почту) и пароль, пересчитывает доступ и выдаёт токен.
// @Tags Auth
// @Accept  json
// @Produce  json
// @Param request body models.LoginRequest true "Учетные данные пользователя"
// @Success 200 {object} Response "Успешный вход"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 401 {object} response.ErrorResponse "Неверные учетные данные"
// @Failure 403 {object} response.ErrorResponse "Нет действующей подписки"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 429 {object} response.ErrorResponse "Слишком много попыток"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /auth/login [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.login"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req models.LoginRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, r, log, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		response.Invalid(w, r, log, err)
		return
	}

	res, err := h.service.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		response.Fail(w, r, log, err)
		return
	}

	log.Info("login success", slog.String("user_id", res.User.ID))
	render.JSON(w, r, Response{
		Message:      "login successful",
		Token:        res.Token,
		TokenType:    res.TokenType,
		User:         res.User,
		Subscription: res.Entitlement,
	})
}
