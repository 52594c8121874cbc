package middlewarectx

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"

	"github.com/magabrotheeeer/bizledger/internal/http/response"
	"github.com/magabrotheeeer/bizledger/internal/lib/apperrors"
	"github.com/magabrotheeeer/bizledger/internal/models"
)

// SubscriptionChecker проверяет доступ пользователя к тарифу.
type SubscriptionChecker interface {
	RequireSubscription(p *models.Principal, plan string) error
}

// RequireSubscription создаёт middleware, требующий действующий доступ,
// а при непустом plan ещё и этот тариф. Ставится после AuthMiddleware.
func RequireSubscription(log *slog.Logger, checker SubscriptionChecker, plan string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			log := log.With(
				slog.String("op", "middlewarectx.RequireSubscription"),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)

			p, ok := PrincipalFrom(r.Context())
			if !ok {
				response.Fail(w, r, log, apperrors.MissingToken())
				return
			}
			if err := checker.RequireSubscription(p, plan); err != nil {
				response.Fail(w, r, log, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
