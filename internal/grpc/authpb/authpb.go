// Package authpb описывает gRPC-сервис auth.AuthService: сообщения,
// дескриптор сервиса и клиентскую заглушку.
//
// На проводе сообщения передаются как google.protobuf.Struct стандартным
// proto-кодеком gRPC. Типизированные сообщения пакета переводятся в Struct
// и обратно методами Proto и функциями *FromProto.
package authpb

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/magabrotheeeer/bizledger/internal/models"
)

// Полные имена методов.
const (
	ServiceName             = "auth.AuthService"
	AuthServiceLogin        = "/auth.AuthService/Login"
	AuthServiceAuthenticate = "/auth.AuthService/Authenticate"
	AuthServiceIdentify     = "/auth.AuthService/Identify"
)

// Ключи trailer-метаданных, в которых передаётся вид ошибки и её детали.
// Детали передаются бинарным Struct, поэтому ключ оканчивается на -bin.
const (
	ErrorKindKey    = "x-error-kind"
	ErrorDetailsKey = "x-error-details-bin"
)

// LoginRequest запрос на вход по имени или почте.
type LoginRequest struct {
	Login    string
	Password string
}

// Proto переводит запрос в сообщение для отправки.
func (m *LoginRequest) Proto() (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{
		"login":    m.Login,
		"password": m.Password,
	})
}

// LoginRequestFromProto разбирает запрос на вход.
func LoginRequestFromProto(s *structpb.Struct) (*LoginRequest, error) {
	f := fields(s.GetFields())
	return &LoginRequest{
		Login:    f.str("login"),
		Password: f.str("password"),
	}, nil
}

// LoginResponse результат входа.
type LoginResponse struct {
	Token       string
	TokenType   string
	User        models.PublicUser
	Entitlement models.EntitlementStatus
}

// Proto переводит ответ в сообщение для отправки.
func (m *LoginResponse) Proto() (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{
		"token":       m.Token,
		"token_type":  m.TokenType,
		"user":        userToMap(m.User),
		"entitlement": entitlementToMap(m.Entitlement),
	})
}

// LoginResponseFromProto разбирает результат входа.
func LoginResponseFromProto(s *structpb.Struct) (*LoginResponse, error) {
	f := fields(s.GetFields())
	user, err := userFromFields(f.sub("user"))
	if err != nil {
		return nil, fmt.Errorf("authpb.LoginResponse: user: %w", err)
	}
	ent, err := entitlementFromFields(f.sub("entitlement"))
	if err != nil {
		return nil, fmt.Errorf("authpb.LoginResponse: entitlement: %w", err)
	}
	return &LoginResponse{
		Token:       f.str("token"),
		TokenType:   f.str("token_type"),
		User:        user,
		Entitlement: ent,
	}, nil
}

// TokenRequest запрос проверки заголовка Authorization.
type TokenRequest struct {
	Authorization string
}

// Proto переводит запрос в сообщение для отправки.
func (m *TokenRequest) Proto() (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{
		"authorization": m.Authorization,
	})
}

// TokenRequestFromProto разбирает запрос проверки токена.
func TokenRequestFromProto(s *structpb.Struct) (*TokenRequest, error) {
	return &TokenRequest{Authorization: fields(s.GetFields()).str("authorization")}, nil
}

// PrincipalResponse пользователь, которому принадлежит токен.
type PrincipalResponse struct {
	ID             string
	Username       string
	Entitlement    models.EntitlementStatus
	TokenID        string
	TokenExpiresAt time.Time
}

// FromPrincipal переводит пользователя запроса в сообщение.
func FromPrincipal(p *models.Principal) *PrincipalResponse {
	return &PrincipalResponse{
		ID:             p.ID,
		Username:       p.Username,
		Entitlement:    p.Entitlement,
		TokenID:        p.TokenID,
		TokenExpiresAt: p.TokenExpiresAt,
	}
}

// Principal переводит сообщение обратно в пользователя запроса.
func (m *PrincipalResponse) Principal() *models.Principal {
	return &models.Principal{
		ID:             m.ID,
		Username:       m.Username,
		Entitlement:    m.Entitlement,
		TokenID:        m.TokenID,
		TokenExpiresAt: m.TokenExpiresAt,
	}
}

// Proto переводит ответ в сообщение для отправки.
func (m *PrincipalResponse) Proto() (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{
		"id":               m.ID,
		"username":         m.Username,
		"entitlement":      entitlementToMap(m.Entitlement),
		"token_id":         m.TokenID,
		"token_expires_at": formatTime(m.TokenExpiresAt),
	})
}

// PrincipalResponseFromProto разбирает ответ проверки токена.
func PrincipalResponseFromProto(s *structpb.Struct) (*PrincipalResponse, error) {
	f := fields(s.GetFields())
	ent, err := entitlementFromFields(f.sub("entitlement"))
	if err != nil {
		return nil, fmt.Errorf("authpb.PrincipalResponse: entitlement: %w", err)
	}
	expiresAt, err := f.time("token_expires_at")
	if err != nil {
		return nil, fmt.Errorf("authpb.PrincipalResponse: %w", err)
	}
	return &PrincipalResponse{
		ID:             f.str("id"),
		Username:       f.str("username"),
		Entitlement:    ent,
		TokenID:        f.str("token_id"),
		TokenExpiresAt: expiresAt,
	}, nil
}

// AuthServiceServer серверная часть сервиса.
type AuthServiceServer interface {
	Login(context.Context, *LoginRequest) (*LoginResponse, error)
	Authenticate(context.Context, *TokenRequest) (*PrincipalResponse, error)
	Identify(context.Context, *TokenRequest) (*PrincipalResponse, error)
}

// RegisterAuthServiceServer регистрирует реализацию сервиса на gRPC-сервере.
func RegisterAuthServiceServer(s grpc.ServiceRegistrar, srv AuthServiceServer) {
	s.RegisterService(&AuthServiceDesc, srv)
}

// AuthServiceDesc дескриптор сервиса auth.AuthService.
var AuthServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*AuthServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Login", Handler: loginHandler},
		{MethodName: "Authenticate", Handler: authenticateHandler},
		{MethodName: "Identify", Handler: identifyHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "auth.proto",
}

func loginHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	handler := func(ctx context.Context, req any) (any, error) {
		msg, err := LoginRequestFromProto(req.(*structpb.Struct))
		if err != nil {
			return nil, status.Error(codes.InvalidArgument, err.Error())
		}
		resp, err := srv.(AuthServiceServer).Login(ctx, msg)
		if err != nil {
			return nil, err
		}
		return encodeResponse(resp.Proto())
	}
	if interceptor == nil {
		return handler(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: AuthServiceLogin}
	return interceptor(ctx, in, info, handler)
}

func authenticateHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	handler := func(ctx context.Context, req any) (any, error) {
		msg, err := TokenRequestFromProto(req.(*structpb.Struct))
		if err != nil {
			return nil, status.Error(codes.InvalidArgument, err.Error())
		}
		resp, err := srv.(AuthServiceServer).Authenticate(ctx, msg)
		if err != nil {
			return nil, err
		}
		return encodeResponse(resp.Proto())
	}
	if interceptor == nil {
		return handler(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: AuthServiceAuthenticate}
	return interceptor(ctx, in, info, handler)
}

func identifyHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	handler := func(ctx context.Context, req any) (any, error) {
		msg, err := TokenRequestFromProto(req.(*structpb.Struct))
		if err != nil {
			return nil, status.Error(codes.InvalidArgument, err.Error())
		}
		resp, err := srv.(AuthServiceServer).Identify(ctx, msg)
		if err != nil {
			return nil, err
		}
		return encodeResponse(resp.Proto())
	}
	if interceptor == nil {
		return handler(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: AuthServiceIdentify}
	return interceptor(ctx, in, info, handler)
}

func encodeResponse(s *structpb.Struct, err error) (any, error) {
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return s, nil
}

// AuthServiceClient клиентская часть сервиса.
type AuthServiceClient interface {
	Login(ctx context.Context, in *LoginRequest, opts ...grpc.CallOption) (*LoginResponse, error)
	Authenticate(ctx context.Context, in *TokenRequest, opts ...grpc.CallOption) (*PrincipalResponse, error)
	Identify(ctx context.Context, in *TokenRequest, opts ...grpc.CallOption) (*PrincipalResponse, error)
}

type authServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewAuthServiceClient создает клиент поверх соединения.
func NewAuthServiceClient(cc grpc.ClientConnInterface) AuthServiceClient {
	return &authServiceClient{cc: cc}
}

func (c *authServiceClient) Login(ctx context.Context, in *LoginRequest, opts ...grpc.CallOption) (*LoginResponse, error) {
	out, err := c.invoke(ctx, AuthServiceLogin, in, opts)
	if err != nil {
		return nil, err
	}
	resp, err := LoginResponseFromProto(out)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return resp, nil
}

func (c *authServiceClient) Authenticate(ctx context.Context, in *TokenRequest, opts ...grpc.CallOption) (*PrincipalResponse, error) {
	out, err := c.invoke(ctx, AuthServiceAuthenticate, in, opts)
	if err != nil {
		return nil, err
	}
	resp, err := PrincipalResponseFromProto(out)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return resp, nil
}

func (c *authServiceClient) Identify(ctx context.Context, in *TokenRequest, opts ...grpc.CallOption) (*PrincipalResponse, error) {
	out, err := c.invoke(ctx, AuthServiceIdentify, in, opts)
	if err != nil {
		return nil, err
	}
	resp, err := PrincipalResponseFromProto(out)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return resp, nil
}

type protoMessage interface {
	Proto() (*structpb.Struct, error)
}

func (c *authServiceClient) invoke(ctx context.Context, method string, in protoMessage, opts []grpc.CallOption) (*structpb.Struct, error) {
	req, err := in.Proto()
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, method, req, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
