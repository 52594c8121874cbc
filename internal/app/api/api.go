package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/magabrotheeeer/bizledger/internal/app/infra"
	"github.com/magabrotheeeer/bizledger/internal/cache"
	"github.com/magabrotheeeer/bizledger/internal/config"
	"github.com/magabrotheeeer/bizledger/internal/entitlement"
	"github.com/magabrotheeeer/bizledger/internal/grpc/client"
	"github.com/magabrotheeeer/bizledger/internal/http/handlers/health"
	"github.com/magabrotheeeer/bizledger/internal/http/middlewarectx"
	"github.com/magabrotheeeer/bizledger/internal/lib/jwt"
	"github.com/magabrotheeeer/bizledger/internal/lib/sl"
	"github.com/magabrotheeeer/bizledger/internal/metrics"
	authsvc "github.com/magabrotheeeer/bizledger/internal/services/auth"
	subsvc "github.com/magabrotheeeer/bizledger/internal/services/subscription"
	"github.com/magabrotheeeer/bizledger/internal/storage/repository"
)

const shutdownTimeout = 15 * time.Second

// App HTTP-сервис.
type App struct {
	server     *http.Server
	logger     *slog.Logger
	db         *repository.Storage
	cache      *cache.Cache
	broker     *infra.Broker
	authClient *client.AuthClient
}

// New подключает зависимости, применяет миграции и собирает маршруты.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	const op = "app.api.New"

	db, err := infra.OpenStorage(ctx, cfg, true)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	app := &App{logger: logger, db: db}

	app.cache, err = infra.OpenCache(ctx, cfg)
	if err != nil {
		app.close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	app.broker, err = infra.OpenBroker(ctx, cfg)
	if err != nil {
		app.close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	m := metrics.New(prometheus.DefaultRegisterer)

	// Интерфейсы заполняются только реальными значениями, чтобы nil-указатель
	// не превратился в непустой интерфейс.
	var (
		revocations authsvc.RevocationStore
		subCache    subsvc.Cache
		publisher   subsvc.Publisher
	)
	checks := map[string]health.Pinger{"postgres": db}
	if app.cache != nil {
		revocations = app.cache
		subCache = app.cache
		checks["redis"] = app.cache
	} else {
		logger.Warn("redis is not configured: token revocation and read cache are disabled")
	}
	if app.broker != nil {
		publisher = app.broker.Publisher
	} else {
		logger.Warn("rabbitmq is not configured: subscription events are not published")
	}

	gate := authsvc.NewGate(
		logger,
		db,
		jwt.NewJWTMaker(cfg.JWTSecretKey, cfg.TokenTTL),
		entitlement.New(cfg.TrialDays),
		authsvc.Options{
			PasswordMinLength: cfg.PasswordMinLength,
			Revocations:       revocations,
			Metrics:           m,
		},
	)

	var auth AuthService = gate
	if cfg.AuthRemoteAddress != "" {
		app.authClient, err = client.NewAuthClient(cfg.AuthRemoteAddress)
		if err != nil {
			app.close()
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		auth = app.authClient
		logger.Info("using remote auth gate", slog.String("address", cfg.AuthRemoteAddress))
	}

	router := chi.NewRouter()
	RegisterRoutes(router, logger, Deps{
		Auth:           auth,
		Accounts:       gate,
		Subscriptions:  subsvc.NewSubscriptionService(logger, db, subCache, publisher),
		LoginLimiter:   middlewarectx.NewIPRateLimiter(cfg.LoginRate, cfg.LoginBurst),
		Health:         checks,
		Metrics:        m.Middleware,
		MetricsHandler: promhttp.Handler(),
	})

	app.server = &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}
	return app, nil
}

// Run обслуживает запросы до отмены ctx, затем плавно останавливает сервер.
func (a *App) Run(ctx context.Context) error {
	defer a.close()

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		return a.server.Shutdown(timeoutCtx)
	}
}

func (a *App) close() {
	if a.authClient != nil {
		if err := a.authClient.Close(); err != nil {
			a.logger.Error("failed to close auth client", sl.Err(err))
		}
	}
	a.broker.Close(a.logger)
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			a.logger.Error("failed to close redis", sl.Err(err))
		}
	}
	if err := a.db.Close(); err != nil {
		a.logger.Error("failed to close database", sl.Err(err))
	}
}
