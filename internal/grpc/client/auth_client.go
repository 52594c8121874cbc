// Package client реализует gRPC-клиент удалённого шлюза аутентификации.
//
// AuthClient удовлетворяет тем же интерфейсам, что и шлюз в процессе,
// поэтому HTTP-слой не отличает локальную проверку токена от удалённой.
package client

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/magabrotheeeer/bizledger/internal/entitlement"
	"github.com/magabrotheeeer/bizledger/internal/grpc/authpb"
	"github.com/magabrotheeeer/bizledger/internal/lib/apperrors"
	"github.com/magabrotheeeer/bizledger/internal/models"
	authsvc "github.com/magabrotheeeer/bizledger/internal/services/auth"
)

// AuthClient клиент сервиса auth.AuthService.
type AuthClient struct {
	conn   *grpc.ClientConn
	client authpb.AuthServiceClient
}

// NewAuthClient создает клиент. Соединение устанавливается лениво при первом вызове.
// Дополнительные опции добавляются после стандартных.
func NewAuthClient(addr string, opts ...grpc.DialOption) (*AuthClient, error) {
	const op = "grpc.client.NewAuthClient"

	dialOpts := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	}, opts...)

	conn, err := grpc.NewClient(addr, dialOpts...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &AuthClient{conn: conn, client: authpb.NewAuthServiceClient(conn)}, nil
}

// Close закрывает соединение.
func (a *AuthClient) Close() error {
	return a.conn.Close()
}

// Login выполняет вход через удалённый шлюз.
func (a *AuthClient) Login(ctx context.Context, login, password string) (*authsvc.LoginResult, error) {
	var trailer metadata.MD
	resp, err := a.client.Login(ctx, &authpb.LoginRequest{Login: login, Password: password}, grpc.Trailer(&trailer))
	if err != nil {
		return nil, fromStatus(err, trailer)
	}
	return &authsvc.LoginResult{
		Token:       resp.Token,
		TokenType:   resp.TokenType,
		User:        resp.User,
		Entitlement: resp.Entitlement,
	}, nil
}

// Authenticate проверяет заголовок Authorization и требует действующий доступ.
func (a *AuthClient) Authenticate(ctx context.Context, authorization string) (*models.Principal, error) {
	var trailer metadata.MD
	resp, err := a.client.Authenticate(ctx, &authpb.TokenRequest{Authorization: authorization}, grpc.Trailer(&trailer))
	if err != nil {
		return nil, fromStatus(err, trailer)
	}
	return resp.Principal(), nil
}

// Identify проверяет заголовок Authorization без требования действующего доступа.
func (a *AuthClient) Identify(ctx context.Context, authorization string) (*models.Principal, error) {
	var trailer metadata.MD
	resp, err := a.client.Identify(ctx, &authpb.TokenRequest{Authorization: authorization}, grpc.Trailer(&trailer))
	if err != nil {
		return nil, fromStatus(err, trailer)
	}
	return resp.Principal(), nil
}

// RequireSubscription проверяет доступ пользователя, полученного от Authenticate.
// Проверка локальная и совпадает с проверкой шлюза.
func (a *AuthClient) RequireSubscription(p *models.Principal, plan string) error {
	var current models.EntitlementStatus
	if p != nil {
		current = p.Entitlement
	}
	return entitlement.Require(current, plan)
}

// fromStatus восстанавливает ошибку приложения из gRPC-статуса и trailer-метаданных.
func fromStatus(err error, trailer metadata.MD) error {
	st, ok := status.FromError(err)
	if !ok {
		return apperrors.DataAccess(err)
	}

	kinds := trailer.Get(authpb.ErrorKindKey)
	if len(kinds) == 0 {
		switch st.Code() {
		case codes.Unavailable, codes.DeadlineExceeded, codes.Canceled:
			return apperrors.DataAccess(err)
		default:
			return apperrors.Wrap(err, apperrors.KindInternal, apperrors.MsgInternal)
		}
	}

	appErr := apperrors.New(apperrors.Kind(kinds[0]), st.Message())
	if raw := trailer.Get(authpb.ErrorDetailsKey); len(raw) > 0 {
		if details, derr := authpb.DecodeDetails(raw[0]); derr == nil {
			appErr = appErr.WithDetails(details)
		}
	}
	return appErr
}
