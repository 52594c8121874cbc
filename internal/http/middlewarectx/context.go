// Package middlewarectx содержит HTTP middleware для аутентификации, проверки
// подписки и ограничения частоты запросов, а также доступ к данным
// пользователя в контексте запроса.
package middlewarectx

import (
	"context"

	"github.com/magabrotheeeer/bizledger/internal/models"
)

// Key тип для ключей контекста HTTP-запроса.
type Key string

// PrincipalKey ключ, под которым в контексте лежит *models.Principal.
const PrincipalKey Key = "principal"

// WithPrincipal кладёт пользователя запроса в контекст.
func WithPrincipal(ctx context.Context, p *models.Principal) context.Context {
	return context.WithValue(ctx, PrincipalKey, p)
}

// PrincipalFrom достаёт пользователя запроса из контекста.
func PrincipalFrom(ctx context.Context) (*models.Principal, bool) {
	p, ok := ctx.Value(PrincipalKey).(*models.Principal)
	return p, ok && p != nil
}
