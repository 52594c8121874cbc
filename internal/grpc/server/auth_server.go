// Package server реализует gRPC-сервер шлюза аутентификации.
//
// AuthServer принимает запросы входа и проверки токена, делегирует их шлюзу
// и переводит ошибки приложения в gRPC-статусы. Вид ошибки и её детали
// передаются в trailer-метаданных, чтобы клиент восстановил исходную ошибку.
package server

import (
	"context"
	"log/slog"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/magabrotheeeer/bizledger/internal/grpc/authpb"
	"github.com/magabrotheeeer/bizledger/internal/lib/apperrors"
	"github.com/magabrotheeeer/bizledger/internal/lib/sl"
	"github.com/magabrotheeeer/bizledger/internal/models"
	authsvc "github.com/magabrotheeeer/bizledger/internal/services/auth"
)

// AuthServiceInterface операции шлюза, доступные по gRPC.
type AuthServiceInterface interface {
	Login(ctx context.Context, login, password string) (*authsvc.LoginResult, error)
	Authenticate(ctx context.Context, authorization string) (*models.Principal, error)
	Identify(ctx context.Context, authorization string) (*models.Principal, error)
}

// AuthServer реализует authpb.AuthServiceServer.
type AuthServer struct {
	authService AuthServiceInterface
	log         *slog.Logger
}

var _ authpb.AuthServiceServer = (*AuthServer)(nil)

// NewAuthServer создает новый экземпляр AuthServer с указанным шлюзом и логгером.
func NewAuthServer(authService AuthServiceInterface, logger *slog.Logger) *AuthServer {
	return &AuthServer{
		authService: authService,
		log:         logger,
	}
}

// Login проверяет учетные данные и выпускает токен.
func (s *AuthServer) Login(ctx context.Context, req *authpb.LoginRequest) (*authpb.LoginResponse, error) {
	const op = "grpc.server.Login"

	res, err := s.authService.Login(ctx, req.Login, req.Password)
	if err != nil {
		return nil, s.fail(ctx, op, err)
	}
	return &authpb.LoginResponse{
		Token:       res.Token,
		TokenType:   res.TokenType,
		User:        res.User,
		Entitlement: res.Entitlement,
	}, nil
}

// Authenticate проверяет токен и требует действующий доступ.
func (s *AuthServer) Authenticate(ctx context.Context, req *authpb.TokenRequest) (*authpb.PrincipalResponse, error) {
	const op = "grpc.server.Authenticate"

	p, err := s.authService.Authenticate(ctx, req.Authorization)
	if err != nil {
		return nil, s.fail(ctx, op, err)
	}
	return authpb.FromPrincipal(p), nil
}

// Identify проверяет токен без требования действующего доступа.
func (s *AuthServer) Identify(ctx context.Context, req *authpb.TokenRequest) (*authpb.PrincipalResponse, error) {
	const op = "grpc.server.Identify"

	p, err := s.authService.Identify(ctx, req.Authorization)
	if err != nil {
		return nil, s.fail(ctx, op, err)
	}
	return authpb.FromPrincipal(p), nil
}

// fail переводит ошибку приложения в gRPC-статус. Причина ошибки клиенту не уходит.
func (s *AuthServer) fail(ctx context.Context, op string, err error) error {
	appErr := apperrors.From(err)
	code := CodeFor(appErr.Kind)
	if code == codes.Internal || code == codes.Unavailable {
		s.log.Error("request failed", slog.String("op", op), sl.Kind(err), sl.Err(err))
	} else {
		s.log.Info("request rejected", slog.String("op", op), sl.Kind(err), sl.Err(err))
	}

	md := metadata.Pairs(authpb.ErrorKindKey, string(appErr.Kind))
	if len(appErr.Details) > 0 {
		if details, derr := authpb.EncodeDetails(appErr.Details); derr == nil {
			md.Set(authpb.ErrorDetailsKey, details)
		} else {
			s.log.Warn("failed to encode error details", slog.String("op", op), sl.Err(derr))
		}
	}
	if terr := grpc.SetTrailer(ctx, md); terr != nil {
		s.log.Warn("failed to set error trailer", slog.String("op", op), sl.Err(terr))
	}
	return status.Error(code, appErr.Message)
}

// CodeFor возвращает gRPC-код для вида ошибки.
func CodeFor(kind apperrors.Kind) codes.Code {
	switch kind {
	case apperrors.KindInvalidCredentials, apperrors.KindMissingToken,
		apperrors.KindInvalidToken, apperrors.KindExpiredToken:
		return codes.Unauthenticated
	case apperrors.KindSubscriptionRequired, apperrors.KindSubscriptionExpired,
		apperrors.KindNoActiveSubscription, apperrors.KindPlanMismatch:
		return codes.PermissionDenied
	case apperrors.KindUserNotFound, apperrors.KindSubscriptionNotFound:
		return codes.NotFound
	case apperrors.KindUserExists:
		return codes.AlreadyExists
	case apperrors.KindValidation, apperrors.KindMalformedRequest:
		return codes.InvalidArgument
	case apperrors.KindDataAccessFailure:
		return codes.Unavailable
	default:
		return codes.Internal
	}
}
