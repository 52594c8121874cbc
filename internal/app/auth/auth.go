// Package auth собирает gRPC-сервис шлюза аутентификации.
package auth

import (
	"context"
	"fmt"
	"log/slog"
	"net"

	"github.com/prometheus/client_golang/prometheus"
	"google.golang.org/grpc"

	"github.com/magabrotheeeer/bizledger/internal/app/infra"
	"github.com/magabrotheeeer/bizledger/internal/cache"
	"github.com/magabrotheeeer/bizledger/internal/config"
	"github.com/magabrotheeeer/bizledger/internal/entitlement"
	"github.com/magabrotheeeer/bizledger/internal/grpc/authpb"
	"github.com/magabrotheeeer/bizledger/internal/grpc/server"
	"github.com/magabrotheeeer/bizledger/internal/lib/jwt"
	"github.com/magabrotheeeer/bizledger/internal/lib/sl"
	"github.com/magabrotheeeer/bizledger/internal/metrics"
	authservices "github.com/magabrotheeeer/bizledger/internal/services/auth"
	"github.com/magabrotheeeer/bizledger/internal/storage/repository"
)

// App gRPC-сервис аутентификации.
type App struct {
	grpcServer *grpc.Server
	listener   net.Listener
	logger     *slog.Logger
	db         *repository.Storage
	cache      *cache.Cache
}

// New подключает хранилище и регистрирует сервис auth.AuthService.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	const op = "app.auth.New"

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
	var revocations authservices.RevocationStore
	if app.cache != nil {
		revocations = app.cache
	}

	gate := authservices.NewGate(
		logger,
		db,
		jwt.NewJWTMaker(cfg.JWTSecretKey, cfg.TokenTTL),
		entitlement.New(cfg.TrialDays),
		authservices.Options{
			PasswordMinLength: cfg.PasswordMinLength,
			Revocations:       revocations,
			Metrics:           metrics.New(prometheus.DefaultRegisterer),
		},
	)

	app.listener, err = net.Listen("tcp", cfg.GRPCAuthAddress)
	if err != nil {
		app.close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	app.grpcServer = grpc.NewServer()
	authpb.RegisterAuthServiceServer(app.grpcServer, server.NewAuthServer(gate, logger))
	return app, nil
}

// Run обслуживает запросы до отмены ctx.
func (a *App) Run(ctx context.Context) error {
	defer a.close()

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("auth gRPC service listening", slog.String("address", a.listener.Addr().String()))
		errCh <- a.grpcServer.Serve(a.listener)
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutting down auth gRPC service")
		a.grpcServer.GracefulStop()
		return nil
	case err := <-errCh:
		return err
	}
}

func (a *App) close() {
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			a.logger.Error("failed to close redis", sl.Err(err))
		}
	}
	if err := a.db.Close(); err != nil {
		a.logger.Error("failed to close database", sl.Err(err))
	}
}
