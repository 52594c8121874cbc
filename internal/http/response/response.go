// Package response содержит вспомогательные типы и функции для формирования
// унифицированных JSON‑ответов HTTP‑обработчиков. Пакет упрощает возврат
// успешных ответов, ошибок и сообщений валидации в едином формате.
//
// Соответствие видов ошибок HTTP-статусам задаётся только здесь, в StatusFor.
package response

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/bizledger/internal/lib/apperrors"
	"github.com/magabrotheeeer/bizledger/internal/lib/sl"
)

// Response описывает стандартную структуру JSON‑ответа сервера.
// Поле Status: статус запроса ("OK" или "Error").
// Поле Error: текст ошибки (опционально, при неуспехе).
// Поле Data: данные ответа (опционально, при успехе).
type Response struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
	Data   any    `json:"data,omitempty"`
}

// ErrorResponse тело ответа с ошибкой.
// Kind содержит машиночитаемый вид ошибки, Details дополнительные поля,
// например days_remaining и end_date для истёкшей подписки.
type ErrorResponse struct {
	Status  string         `json:"status" example:"Error"`
	Error   string         `json:"error" example:"invalid request body"`
	Kind    apperrors.Kind `json:"kind,omitempty" example:"VALIDATION_ERROR"`
	Details map[string]any `json:"details,omitempty"`
}

const (
	// StatusOK значение статуса для успешного ответа.
	StatusOK = "OK"
	// StatusError значение статуса для ответа с ошибкой.
	StatusError = "Error"
)

// OKWithData возвращает успешный Response с переданными данными.
func OKWithData(data any) Response {
	return Response{
		Status: StatusOK,
		Data:   data,
	}
}

// Error возвращает ErrorResponse с переданным сообщением.
func Error(msg string) ErrorResponse {
	return ErrorResponse{
		Status: StatusError,
		Error:  msg,
	}
}

// FromError строит тело ответа по ошибке приложения.
// Для ошибок вне таксономии клиент получает только общее сообщение.
func FromError(err error) ErrorResponse {
	appErr := apperrors.From(err)
	return ErrorResponse{
		Status:  StatusError,
		Error:   appErr.Message,
		Kind:    appErr.Kind,
		Details: appErr.Details,
	}
}

// StatusFor возвращает HTTP-статус для вида ошибки.
func StatusFor(kind apperrors.Kind) int {
	switch kind {
	case apperrors.KindInvalidCredentials,
		apperrors.KindMissingToken,
		apperrors.KindInvalidToken,
		apperrors.KindExpiredToken:
		return http.StatusUnauthorized
	case apperrors.KindSubscriptionRequired,
		apperrors.KindSubscriptionExpired,
		apperrors.KindNoActiveSubscription,
		apperrors.KindPlanMismatch:
		return http.StatusForbidden
	case apperrors.KindUserNotFound,
		apperrors.KindSubscriptionNotFound:
		return http.StatusNotFound
	case apperrors.KindUserExists:
		return http.StatusConflict
	case apperrors.KindMalformedRequest:
		return http.StatusBadRequest
	case apperrors.KindValidation:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// Fail пишет ответ с ошибкой. Ошибки хранилища и внутренние ошибки
// логируются целиком, клиенту уходит только стабильное сообщение.
func Fail(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error) {
	body := FromError(err)
	status := StatusFor(body.Kind)
	if status >= http.StatusInternalServerError {
		log.Error("request failed", sl.Kind(err), sl.Err(err))
	} else {
		log.Info("request rejected", sl.Kind(err), sl.Err(err))
	}
	render.Status(r, status)
	render.JSON(w, r, body)
}

// BadRequest пишет ответ для тела запроса, которое не удалось разобрать.
func BadRequest(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error) {
	Fail(w, r, log, apperrors.MalformedRequest(err))
}

// Invalid пишет ответ по ошибке валидатора.
func Invalid(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error) {
	log.Info("validation failed", sl.Err(err))
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		Fail(w, r, log, apperrors.Validation("invalid request"))
		return
	}
	render.Status(r, StatusFor(apperrors.KindValidation))
	render.JSON(w, r, ValidationError(verrs))
}

// ValidationError формирует ErrorResponse на основе ошибок валидации.
// Каждое нарушение формируется в человеко‑читаемый текст, объединённый через запятую.
func ValidationError(errs validator.ValidationErrors) ErrorResponse {
	var errsMsgs []string
	for _, err := range errs {
		switch err.ActualTag() {
		case "required":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s is a required field", err.Field()))
		case "email":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s must be a valid email", err.Field()))
		case "uuid":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s can contain only uuid", err.Field()))
		case "min":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s must be at least %s", err.Field(), err.Param()))
		case "max":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s must be at most %s", err.Field(), err.Param()))
		case "oneof":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s must be one of: %s", err.Field(), err.Param()))
		default:
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s is not a valid", err.Field()))
		}
	}
	return ErrorResponse{
		Status: StatusError,
		Error:  strings.Join(errsMsgs, ", "),
		Kind:   apperrors.KindValidation,
	}
}
