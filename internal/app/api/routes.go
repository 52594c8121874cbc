// Package api собирает HTTP-сервис: маршруты, middleware и зависимости.
package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	httpSwagger "github.com/swaggo/http-swagger"

	// Регистрирует swagger-спецификацию для /docs.
	_ "github.com/magabrotheeeer/bizledger/docs"
	"github.com/magabrotheeeer/bizledger/internal/http/handlers/auth/changepassword"
	"github.com/magabrotheeeer/bizledger/internal/http/handlers/auth/login"
	"github.com/magabrotheeeer/bizledger/internal/http/handlers/auth/logout"
	"github.com/magabrotheeeer/bizledger/internal/http/handlers/auth/me"
	"github.com/magabrotheeeer/bizledger/internal/http/handlers/auth/register"
	"github.com/magabrotheeeer/bizledger/internal/http/handlers/auth/status"
	"github.com/magabrotheeeer/bizledger/internal/http/handlers/health"
	"github.com/magabrotheeeer/bizledger/internal/http/handlers/subscription/changeplan"
	"github.com/magabrotheeeer/bizledger/internal/http/handlers/subscription/create"
	"github.com/magabrotheeeer/bizledger/internal/http/handlers/subscription/extend"
	"github.com/magabrotheeeer/bizledger/internal/http/handlers/subscription/list"
	"github.com/magabrotheeeer/bizledger/internal/http/handlers/subscription/read"
	"github.com/magabrotheeeer/bizledger/internal/http/handlers/subscription/remove"
	"github.com/magabrotheeeer/bizledger/internal/http/handlers/subscription/renew"
	"github.com/magabrotheeeer/bizledger/internal/http/handlers/subscription/update"
	"github.com/magabrotheeeer/bizledger/internal/http/middlewarectx"
	"github.com/magabrotheeeer/bizledger/internal/models"
)

// AuthService проверка токенов и вход. Реализуется шлюзом в процессе
// или gRPC-клиентом удалённого шлюза.
type AuthService interface {
	middlewarectx.Authenticator
	middlewarectx.SubscriptionChecker
	login.Service
}

// AccountService операции с учетной записью, которым нужно хранилище пользователей.
type AccountService interface {
	register.Service
	logout.Service
	me.Service
	changepassword.Service
	status.Service
}

// SubscriptionService операции жизненного цикла подписки.
type SubscriptionService interface {
	renew.Service
	extend.Service
	changeplan.Service
	create.Service
	read.Service
	list.Service
	update.Service
	remove.Service
}

// Deps зависимости маршрутов.
type Deps struct {
	Auth          AuthService
	Accounts      AccountService
	Subscriptions SubscriptionService
	LoginLimiter  *middlewarectx.IPRateLimiter
	// Health зависимости, проверяемые /health.
	Health map[string]health.Pinger
	// Metrics middleware сбора HTTP-метрик и обработчик /metrics. Могут быть nil.
	Metrics        func(http.Handler) http.Handler
	MetricsHandler http.Handler
}

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, logger *slog.Logger, deps Deps) {
	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
	)
	if deps.Metrics != nil {
		r.Use(deps.Metrics)
	}

	r.Route("/api/v1", func(r chi.Router) {
		// Открытые конечные точки
		r.Post("/auth/register", register.New(logger, deps.Accounts).ServeHTTP)
		r.Group(func(r chi.Router) {
			if deps.LoginLimiter != nil {
				r.Use(middlewarectx.RateLimitMiddleware(logger, deps.LoginLimiter))
			}
			r.Post("/auth/login", login.New(logger, deps.Auth).ServeHTTP)
		})

		// Работают и при истёкшей подписке
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.IdentifyMiddleware(logger, deps.Auth))
			r.Post("/auth/logout", logout.New(logger, deps.Accounts).ServeHTTP)
			r.Get("/auth/subscription", status.NewSubscription(logger).ServeHTTP)
			r.Get("/auth/user-status", status.NewUserStatus(logger, deps.Accounts).ServeHTTP)
			r.Post("/auth/renew-subscription", renew.New(logger, deps.Subscriptions).ServeHTTP)
			r.Post("/auth/extend-subscription", extend.New(logger, deps.Subscriptions).ServeHTTP)
		})

		// Требуют действующий доступ
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.AuthMiddleware(logger, deps.Auth))
			r.Get("/auth/me", me.New(logger, deps.Accounts).ServeHTTP)
			r.Post("/auth/change-password", changepassword.New(logger, deps.Accounts).ServeHTTP)
			r.Post("/auth/change-subscription-plan", changeplan.New(logger, deps.Subscriptions).ServeHTTP)

			r.Group(func(r chi.Router) {
				r.Use(middlewarectx.RequireSubscription(logger, deps.Auth, models.PlanPremium))
				r.Post("/subscriptions", create.New(logger, deps.Subscriptions).ServeHTTP)
				r.Get("/subscriptions", list.New(logger, deps.Subscriptions).ServeHTTP)
				r.Get("/subscriptions/{id}", read.New(logger, deps.Subscriptions).ServeHTTP)
				r.Put("/subscriptions/{id}", update.New(logger, deps.Subscriptions).ServeHTTP)
				r.Delete("/subscriptions/{id}", remove.New(logger, deps.Subscriptions).ServeHTTP)
			})
		})
	})

	r.Get("/health", health.New(logger, deps.Health).ServeHTTP)
	if deps.MetricsHandler != nil {
		r.Handle("/metrics", deps.MetricsHandler)
	}
	r.Get("/docs/*", httpSwagger.WrapHandler)
}
