package middlewarectx

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"

	"github.com/magabrotheeeer/bizledger/internal/http/response"
	"github.com/magabrotheeeer/bizledger/internal/models"
)

// Authenticator проверяет заголовок Authorization.
// Реализуется шлюзом в процессе и gRPC-клиентом удалённого шлюза.
type Authenticator interface {
	// Authenticate требует действующий доступ.
	Authenticate(ctx context.Context, authorization string) (*models.Principal, error)
	// Identify проверяет только токен и существование пользователя.
	Identify(ctx context.Context, authorization string) (*models.Principal, error)
}

// AuthMiddleware пропускает запрос только с валидным токеном и действующим доступом.
// Пользователь запроса кладётся в контекст, см. PrincipalFrom.
func AuthMiddleware(log *slog.Logger, auth Authenticator) func(http.Handler) http.Handler {
	return gate(log, "middlewarectx.AuthMiddleware", auth.Authenticate)
}

// IdentifyMiddleware пропускает запрос с валидным токеном даже при истёкшем доступе.
// Нужен маршрутам продления подписки, выхода и просмотра статуса.
func IdentifyMiddleware(log *slog.Logger, auth Authenticator) func(http.Handler) http.Handler {
	return gate(log, "middlewarectx.IdentifyMiddleware", auth.Identify)
}

func gate(log *slog.Logger, op string, check func(context.Context, string) (*models.Principal, error)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			log := log.With(
				slog.String("op", op),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)

			p, err := check(r.Context(), r.Header.Get("Authorization"))
			if err != nil {
				response.Fail(w, r, log, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
		})
	}
}
