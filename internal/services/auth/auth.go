// Package services содержит шлюз аутентификации: вход по паролю, проверку токена
// на каждом запросе с пересчётом права доступа и связанные операции с учётной записью.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/magabrotheeeer/bizledger/internal/entitlement"
	"github.com/magabrotheeeer/bizledger/internal/lib/apperrors"
	"github.com/magabrotheeeer/bizledger/internal/lib/jwt"
	"github.com/magabrotheeeer/bizledger/internal/lib/password"
	"github.com/magabrotheeeer/bizledger/internal/lib/sl"
	"github.com/magabrotheeeer/bizledger/internal/metrics"
	"github.com/magabrotheeeer/bizledger/internal/models"
	"github.com/magabrotheeeer/bizledger/internal/storage/repository"
)

// TokenType тип токена в ответе на вход.
const TokenType = "Bearer"

// UserRepository описывает контракт для работы с пользователями в базе данных.
type UserRepository interface {
	CreateUser(ctx context.Context, user models.NewUser) (*models.User, error)
	GetUserByLogin(ctx context.Context, login string) (*models.User, error)
	GetUserByID(ctx context.Context, userID string) (*models.User, error)
	UpdateLastLogin(ctx context.Context, userID string, at time.Time) error
	UpdatePassword(ctx context.Context, userID, passwordHash string) error
	ListSubscriptionsByUser(ctx context.Context, userID string) ([]models.Subscription, error)
	GetCurrentSubscription(ctx context.Context, userID string) (*models.Subscription, error)
}

// RevocationStore хранит идентификаторы отозванных токенов.
type RevocationStore interface {
	Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// Recorder принимает события для метрик.
type Recorder interface {
	LoginAttempt(result string)
	AuthFailure(kind string)
}

// Options необязательные зависимости и параметры Gate.
type Options struct {
	PasswordMinLength int
	// Revocations nil отключает отзыв токенов.
	Revocations RevocationStore
	Metrics     Recorder
}

// Gate шлюз аутентификации. Не хранит состояния между запросами.
type Gate struct {
	log       *slog.Logger
	users     UserRepository
	tokens    jwt.Maker
	evaluator *entitlement.Evaluator
	revoked   RevocationStore
	metrics   Recorder
	minPwdLen int
}

// LoginResult результат успешного входа.
type LoginResult struct {
	Token       string
	TokenType   string
	User        models.PublicUser
	Entitlement models.EntitlementStatus
}

// StatusResult текущий статус доступа и текущая запись подписки, если она есть.
type StatusResult struct {
	Entitlement models.EntitlementStatus
	Current     *models.Subscription
}

// RegisterInput данные для регистрации.
type RegisterInput struct {
	Username string
	Email    string
	Password string
	FullName string
	Phone    *string
}

// NewGate создает новый экземпляр Gate.
func NewGate(log *slog.Logger, users UserRepository, tokens jwt.Maker, evaluator *entitlement.Evaluator, opts Options) *Gate {
	minLen := opts.PasswordMinLength
	if minLen < 1 {
		minLen = 6
	}
	return &Gate{
		log:       log,
		users:     users,
		tokens:    tokens,
		evaluator: evaluator,
		revoked:   opts.Revocations,
		metrics:   opts.Metrics,
		minPwdLen: minLen,
	}
}

// Login проверяет логин (имя или почту) и пароль, пересчитывает доступ и выпускает токен.
// Несуществующий пользователь и неверный пароль дают одинаковую ошибку.
func (g *Gate) Login(ctx context.Context, login, rawPassword string) (*LoginResult, error) {
	const op = "auth.Login"
	log := g.log.With(slog.String("op", op))

	res, err := g.login(ctx, login, rawPassword)
	if err != nil {
		g.recordLogin(false)
		g.recordFailure(err)
		log.Info("login rejected", sl.Kind(err), sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	g.recordLogin(true)
	log.Info("user logged in", slog.String("user_id", res.User.ID))
	return res, nil
}

func (g *Gate) login(ctx context.Context, login, rawPassword string) (*LoginResult, error) {
	login = strings.TrimSpace(login)
	if login == "" || rawPassword == "" {
		return nil, apperrors.Validation("username and password are required")
	}
	if err := g.checkPasswordLength(rawPassword); err != nil {
		return nil, err
	}

	user, err := g.users.GetUserByLogin(ctx, login)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			password.CompareDummy(rawPassword)
			return nil, apperrors.InvalidCredentials()
		}
		return nil, apperrors.DataAccess(err)
	}
	if err = password.CompareHash(user.PasswordHash, rawPassword); err != nil {
		return nil, apperrors.InvalidCredentials()
	}

	status, err := g.evaluate(ctx, user)
	if err != nil {
		return nil, err
	}
	if !status.IsActive {
		return nil, apperrors.New(apperrors.KindSubscriptionRequired, apperrors.MsgSubscriptionRequired).
			WithDetails(expiryDetails(status))
	}

	now := g.evaluator.Now()
	if err = g.users.UpdateLastLogin(ctx, user.ID, now); err != nil {
		g.log.Warn("failed to update last login",
			slog.String("op", "auth.Login"), slog.String("user_id", user.ID), sl.Err(err))
	} else {
		user.LastLogin = &now
	}

	token, err := g.tokens.GenerateToken(jwt.Payload{
		UserID:      user.ID,
		Username:    user.Username,
		Entitlement: status,
	})
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.KindInternal, apperrors.MsgInternal)
	}

	return &LoginResult{
		Token:       token,
		TokenType:   TokenType,
		User:        user.Public(&status),
		Entitlement: status,
	}, nil
}

// Authenticate проверяет токен из заголовка Authorization и пересчитывает доступ
// по данным хранилища. Снимок доступа из токена не учитывается.
// Если доступа нет, возвращает SubscriptionExpired с датой окончания и оставшимися днями.
func (g *Gate) Authenticate(ctx context.Context, authorization string) (*models.Principal, error) {
	const op = "auth.Authenticate"

	p, err := g.identify(ctx, authorization)
	if err == nil && !p.Entitlement.IsActive {
		err = apperrors.New(apperrors.KindSubscriptionExpired, apperrors.MsgSubscriptionExpired).
			WithDetails(expiryDetails(p.Entitlement))
	}
	if err != nil {
		g.recordFailure(err)
		g.log.Info("authentication rejected", slog.String("op", op), sl.Kind(err), sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return p, nil
}

// Identify проверяет токен и пользователя, но не требует действующего доступа.
// Используется маршрутами, которые должны работать и с истёкшей подпиской: продление, выход, статус.
func (g *Gate) Identify(ctx context.Context, authorization string) (*models.Principal, error) {
	const op = "auth.Identify"

	p, err := g.identify(ctx, authorization)
	if err != nil {
		g.recordFailure(err)
		g.log.Info("identification rejected", slog.String("op", op), sl.Kind(err), sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return p, nil
}

func (g *Gate) identify(ctx context.Context, authorization string) (*models.Principal, error) {
	tokenStr, err := BearerToken(authorization)
	if err != nil {
		return nil, err
	}

	claims, err := g.tokens.ParseToken(tokenStr)
	if err != nil {
		if errors.Is(err, jwt.ErrExpiredToken) {
			return nil, apperrors.ExpiredToken(err)
		}
		return nil, apperrors.InvalidToken(err)
	}

	if g.revoked != nil {
		revoked, err := g.revoked.IsRevoked(ctx, claims.ID)
		if err != nil {
			return nil, apperrors.DataAccess(err)
		}
		if revoked {
			return nil, apperrors.InvalidToken(errors.New("token has been revoked"))
		}
	}

	user, err := g.users.GetUserByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, apperrors.UserNotFound(err)
		}
		return nil, apperrors.DataAccess(err)
	}

	status, err := g.evaluate(ctx, user)
	if err != nil {
		return nil, err
	}

	p := &models.Principal{
		ID:          user.ID,
		Username:    user.Username,
		Entitlement: status,
		TokenID:     claims.ID,
	}
	if claims.ExpiresAt != nil {
		p.TokenExpiresAt = claims.ExpiresAt.Time
	}
	return p, nil
}

// RequireSubscription проверка после Authenticate: нужен действующий доступ
// и, если plan не пуст, именно этот тариф.
func (g *Gate) RequireSubscription(p *models.Principal, plan string) error {
	var status models.EntitlementStatus
	if p != nil {
		status = p.Entitlement
	}
	err := entitlement.Require(status, plan)
	if err != nil {
		g.recordFailure(err)
	}
	return err
}

// Register создаёт пользователя. Пробный период начинается с момента регистрации.
func (g *Gate) Register(ctx context.Context, in RegisterInput) (*models.PublicUser, error) {
	const op = "auth.Register"
	log := g.log.With(slog.String("op", op))

	if err := g.checkPasswordLength(in.Password); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	hashed, err := password.GetHash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, apperrors.Validation("password cannot be used"))
	}

	user, err := g.users.CreateUser(ctx, models.NewUser{
		Username:     strings.TrimSpace(in.Username),
		Email:        strings.TrimSpace(in.Email),
		PasswordHash: hashed,
		FullName:     in.FullName,
		Phone:        in.Phone,
	})
	if err != nil {
		if errors.Is(err, repository.ErrUserExists) {
			return nil, fmt.Errorf("%s: %w", op, apperrors.Wrap(err, apperrors.KindUserExists, apperrors.MsgUserExists))
		}
		log.Error("failed to create user", sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, apperrors.DataAccess(err))
	}

	status := g.evaluator.Status(user.CreatedAt, nil)
	public := user.Public(&status)
	log.Info("user registered", slog.String("user_id", user.ID))
	return &public, nil
}

// ChangePassword меняет пароль после проверки текущего.
func (g *Gate) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	const op = "auth.ChangePassword"

	if err := g.checkPasswordLength(newPassword); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	user, err := g.users.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return fmt.Errorf("%s: %w", op, apperrors.UserNotFound(err))
		}
		return fmt.Errorf("%s: %w", op, apperrors.DataAccess(err))
	}
	if err = password.CompareHash(user.PasswordHash, currentPassword); err != nil {
		return fmt.Errorf("%s: %w", op, apperrors.New(apperrors.KindInvalidCredentials, "current password is incorrect"))
	}
	hashed, err := password.GetHash(newPassword)
	if err != nil {
		return fmt.Errorf("%s: %w", op, apperrors.Validation("password cannot be used"))
	}
	if err = g.users.UpdatePassword(ctx, userID, hashed); err != nil {
		return fmt.Errorf("%s: %w", op, apperrors.DataAccess(err))
	}
	g.log.Info("password changed", slog.String("op", op), slog.String("user_id", userID))
	return nil
}

// Logout отзывает токен текущего запроса до конца его срока действия.
func (g *Gate) Logout(ctx context.Context, p *models.Principal) error {
	const op = "auth.Logout"

	if g.revoked == nil {
		g.log.Warn("token revocation is disabled, token stays valid until expiry",
			slog.String("op", op), slog.String("user_id", p.ID))
		return nil
	}
	if err := g.revoked.Revoke(ctx, p.TokenID, p.TokenExpiresAt); err != nil {
		return fmt.Errorf("%s: %w", op, apperrors.DataAccess(err))
	}
	return nil
}

// Me возвращает профиль пользователя и текущий статус доступа.
func (g *Gate) Me(ctx context.Context, p *models.Principal) (*models.PublicUser, error) {
	const op = "auth.Me"

	user, err := g.users.GetUserByID(ctx, p.ID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, fmt.Errorf("%s: %w", op, apperrors.UserNotFound(err))
		}
		return nil, fmt.Errorf("%s: %w", op, apperrors.DataAccess(err))
	}
	status := p.Entitlement
	public := user.Public(&status)
	return &public, nil
}

// Status возвращает свежий статус доступа и текущую подписку пользователя.
func (g *Gate) Status(ctx context.Context, userID string) (*StatusResult, error) {
	const op = "auth.Status"

	user, err := g.users.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, fmt.Errorf("%s: %w", op, apperrors.UserNotFound(err))
		}
		return nil, fmt.Errorf("%s: %w", op, apperrors.DataAccess(err))
	}
	subs, err := g.users.ListSubscriptionsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, apperrors.DataAccess(err))
	}
	return &StatusResult{
		Entitlement: g.evaluator.Status(user.CreatedAt, subs),
		Current:     entitlement.Current(subs),
	}, nil
}

func (g *Gate) evaluate(ctx context.Context, user *models.User) (models.EntitlementStatus, error) {
	subs, err := g.users.ListSubscriptionsByUser(ctx, user.ID)
	if err != nil {
		return models.EntitlementStatus{}, apperrors.DataAccess(err)
	}
	return g.evaluator.Status(user.CreatedAt, subs), nil
}

func (g *Gate) checkPasswordLength(pw string) error {
	if len([]rune(pw)) < g.minPwdLen {
		return apperrors.Validation(fmt.Sprintf("password must be at least %d characters", g.minPwdLen))
	}
	return nil
}

func (g *Gate) recordLogin(ok bool) {
	if g.metrics == nil {
		return
	}
	if ok {
		g.metrics.LoginAttempt(metrics.LoginSuccess)
	} else {
		g.metrics.LoginAttempt(metrics.LoginFailure)
	}
}

func (g *Gate) recordFailure(err error) {
	if g.metrics == nil {
		return
	}
	g.metrics.AuthFailure(string(apperrors.KindOf(err)))
}

// BearerToken извлекает токен из значения заголовка Authorization.
func BearerToken(authorization string) (string, error) {
	authorization = strings.TrimSpace(authorization)
	if authorization == "" || strings.EqualFold(authorization, TokenType) {
		return "", apperrors.MissingToken()
	}
	scheme, token, found := strings.Cut(authorization, " ")
	if !found || !strings.EqualFold(scheme, TokenType) {
		return "", apperrors.InvalidToken(errors.New("authorization scheme must be Bearer"))
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", apperrors.MissingToken()
	}
	return token, nil
}

func expiryDetails(s models.EntitlementStatus) map[string]any {
	details := map[string]any{"days_remaining": s.DaysRemaining}
	if s.EndDate != nil {
		details["end_date"] = s.EndDate.UTC().Format(time.RFC3339)
	}
	return details
}
