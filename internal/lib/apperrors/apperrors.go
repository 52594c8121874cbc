// Package apperrors описывает закрытый набор видов ошибок сервиса.
//
// Сервисы возвращают *Error с видом (Kind) и стабильным сообщением для клиента;
// исходная ошибка сохраняется в Err только для логов и наружу не отдаётся.
// Вызывающий код ветвится по виду через KindOf/IsKind, а не по тексту.
package apperrors

import (
	"errors"
	"fmt"
)

// Kind машиночитаемый вид ошибки.
type Kind string

// Виды ошибок.
const (
	KindInvalidCredentials   Kind = "INVALID_CREDENTIALS"
	KindMissingToken         Kind = "MISSING_TOKEN"
	KindInvalidToken         Kind = "INVALID_TOKEN"
	KindExpiredToken         Kind = "TOKEN_EXPIRED"
	KindUserNotFound         Kind = "USER_NOT_FOUND"
	KindUserExists           Kind = "USER_EXISTS"
	KindSubscriptionRequired Kind = "SUBSCRIPTION_REQUIRED"
	KindSubscriptionExpired  Kind = "SUBSCRIPTION_EXPIRED"
	KindNoActiveSubscription Kind = "NO_ACTIVE_SUBSCRIPTION"
	KindSubscriptionNotFound Kind = "SUBSCRIPTION_NOT_FOUND"
	KindPlanMismatch         Kind = "PLAN_MISMATCH"
	KindDataAccessFailure    Kind = "DATA_ACCESS_FAILURE"
	KindValidation           Kind = "VALIDATION_ERROR"
	KindMalformedRequest     Kind = "MALFORMED_REQUEST"
	KindInternal             Kind = "INTERNAL_ERROR"
)

// Стабильные сообщения для клиента.
const (
	MsgInvalidCredentials   = "invalid username or password"
	MsgMissingToken         = "authorization token is required"
	MsgInvalidToken         = "invalid token"
	MsgExpiredToken         = "token has expired"
	MsgUserNotFound         = "user not found"
	MsgUserExists           = "username or email already registered"
	MsgSubscriptionRequired = "account is not active, renew or create a subscription"
	MsgSubscriptionExpired  = "subscription has expired"
	MsgNoActiveSubscription = "an active subscription is required"
	MsgSubscriptionNotFound = "subscription not found"
	MsgPlanMismatch         = "this resource requires the %s plan"
	MsgDataAccessFailure    = "data access failure"
	MsgMalformedRequest     = "invalid request body"
	MsgInternal             = "internal error"
)

// Error ошибка приложения.
type Error struct {
	Kind    Kind
	Message string
	Details map[string]any
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New создаёт ошибку заданного вида.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap оборачивает внутреннюю ошибку.
func Wrap(err error, kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// WithDetails добавляет данные для клиента, например дату окончания подписки.
func (e *Error) WithDetails(details map[string]any) *Error {
	e.Details = details
	return e
}

// KindOf возвращает вид ошибки. Для ошибок вне таксономии возвращает KindInternal.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// IsKind проверяет, что в цепочке есть ошибка указанного вида.
func IsKind(err error, kind Kind) bool {
	var appErr *Error
	return errors.As(err, &appErr) && appErr.Kind == kind
}

// From достаёт *Error из цепочки. Ошибки вне таксономии превращаются
// во внутреннюю ошибку со скрытой причиной.
func From(err error) *Error {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return Wrap(err, KindInternal, MsgInternal)
}

// Конструкторы для частых случаев.

func InvalidCredentials() *Error { return New(KindInvalidCredentials, MsgInvalidCredentials) }

func MissingToken() *Error { return New(KindMissingToken, MsgMissingToken) }

func InvalidToken(err error) *Error { return Wrap(err, KindInvalidToken, MsgInvalidToken) }

func ExpiredToken(err error) *Error { return Wrap(err, KindExpiredToken, MsgExpiredToken) }

func UserNotFound(err error) *Error { return Wrap(err, KindUserNotFound, MsgUserNotFound) }

func DataAccess(err error) *Error { return Wrap(err, KindDataAccessFailure, MsgDataAccessFailure) }

// MalformedRequest тело запроса не разобрано как JSON.
func MalformedRequest(err error) *Error {
	return Wrap(err, KindMalformedRequest, MsgMalformedRequest)
}

// Validation ошибка формы входных данных.
func Validation(message string) *Error { return New(KindValidation, message) }

// PlanMismatch ошибка несоответствия тарифа.
func PlanMismatch(required, actual string) *Error {
	return New(KindPlanMismatch, fmt.Sprintf(MsgPlanMismatch, required)).
		WithDetails(map[string]any{"required_plan": required, "current_plan": actual})
}
