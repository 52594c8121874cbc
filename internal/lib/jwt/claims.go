// Package jwt реализует выпуск и разбор подписанных токенов доступа.
//
// Токен несёт id и имя пользователя и снимок статуса доступа на момент выпуска.
// Снимок носит справочный характер: решение о доступе всегда принимается
// по свежим данным из хранилища.
package jwt

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"

	"github.com/magabrotheeeer/bizledger/internal/models"
)

var (
	// ErrInvalidToken токен повреждён, подписан другим ключом или другим алгоритмом.
	ErrInvalidToken = errors.New("invalid token")
	// ErrExpiredToken подпись верна, но срок действия токена истёк.
	ErrExpiredToken = errors.New("token has expired")
)

// Payload данные, которые кладутся в токен.
type Payload struct {
	UserID      string
	Username    string
	Entitlement models.EntitlementStatus
}

// Claims описывает данные, хранящиеся в JWT.
type Claims struct {
	UserID               string                   `json:"user_id"`
	Username             string                   `json:"username"`
	Entitlement          models.EntitlementStatus `json:"entitlement"`
	jwt.RegisteredClaims                          // iat, exp, jti, sub
}

// Payload возвращает полезную нагрузку токена.
func (c *Claims) Payload() Payload {
	return Payload{
		UserID:      c.UserID,
		Username:    c.Username,
		Entitlement: c.Entitlement,
	}
}

// Maker описывает интерфейс для генерации и парсинга токенов.
type Maker interface {
	GenerateToken(p Payload) (string, error)
	// ParseToken возвращает ErrExpiredToken для просроченного токена
	// и ErrInvalidToken для любого другого дефекта.
	ParseToken(tokenStr string) (*Claims, error)
}
