// Package models содержит доменные структуры: пользователя, подписку,
// вычисленный статус доступа и данные аутентифицированного запроса.
// Структуры используются в бизнес‑логике и при работе с хранилищем.
package models

import "time"

// User представляет зарегистрированного пользователя системы.
type User struct {
	ID           string     // Уникальный идентификатор пользователя (uuid)
	Username     string     // Имя пользователя (уникальное)
	Email        string     // Электронная почта (уникальная)
	PasswordHash string     // bcrypt-хэш пароля
	FullName     string     // Полное имя
	Phone        *string    // Телефон, необязательный
	CreatedAt    time.Time  // Момент регистрации, от него считается пробный период
	LastLogin    *time.Time // Время последнего входа
}

// PublicUser представление пользователя для ответа клиенту, без хэша пароля.
type PublicUser struct {
	ID           string             `json:"id"`
	Username     string             `json:"username"`
	Email        string             `json:"email"`
	FullName     string             `json:"full_name"`
	Phone        *string            `json:"phone,omitempty"`
	CreatedAt    time.Time          `json:"created_at"`
	LastLogin    *time.Time         `json:"last_login,omitempty"`
	Subscription *EntitlementStatus `json:"subscription,omitempty"`
}

// Public возвращает представление пользователя без секретных полей.
func (u *User) Public(status *EntitlementStatus) PublicUser {
	return PublicUser{
		ID:           u.ID,
		Username:     u.Username,
		Email:        u.Email,
		FullName:     u.FullName,
		Phone:        u.Phone,
		CreatedAt:    u.CreatedAt,
		LastLogin:    u.LastLogin,
		Subscription: status,
	}
}

// NewUser данные для создания пользователя в хранилище.
type NewUser struct {
	Username     string
	Email        string
	PasswordHash string
	FullName     string
	Phone        *string
}

// LoginRequest тело запроса на вход. Username может быть именем или почтой.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// RegisterRequest тело запроса на регистрацию.
type RegisterRequest struct {
	Username string  `json:"username" validate:"required,min=3,max=50"`
	Email    string  `json:"email" validate:"required,email"`
	Password string  `json:"password" validate:"required"`
	FullName string  `json:"full_name" validate:"required"`
	Phone    *string `json:"phone,omitempty" validate:"omitempty,max=20"`
}

// ChangePasswordRequest тело запроса на смену пароля.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required"`
}

// Principal пользователь текущего запроса. Создаётся при аутентификации
// и живёт до конца обработки запроса.
type Principal struct {
	ID             string            `json:"id"`
	Username       string            `json:"username"`
	Entitlement    EntitlementStatus `json:"entitlement"`
	TokenID        string            `json:"-"`
	TokenExpiresAt time.Time         `json:"-"`
}
