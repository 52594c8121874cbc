package api

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/bizledger/internal/entitlement"
	"github.com/magabrotheeeer/bizledger/internal/http/middlewarectx"
	"github.com/magabrotheeeer/bizledger/internal/lib/apperrors"
	"github.com/magabrotheeeer/bizledger/internal/models"
	authsvc "github.com/magabrotheeeer/bizledger/internal/services/auth"
)

// fakeAuth выдаёт пользователя по значению заголовка Authorization.
type fakeAuth struct {
	users map[string]*models.Principal
}

func (f *fakeAuth) lookup(authorization string) (*models.Principal, error) {
	if authorization == "" {
		return nil, apperrors.MissingToken()
	}
	p, ok := f.users[authorization]
	if !ok {
		return nil, apperrors.InvalidToken(nil)
	}
	return p, nil
}

func (f *fakeAuth) Authenticate(_ context.Context, authorization string) (*models.Principal, error) {
	p, err := f.lookup(authorization)
	if err != nil {
		return nil, err
	}
	if !p.Entitlement.IsActive {
		return nil, apperrors.New(apperrors.KindSubscriptionExpired, apperrors.MsgSubscriptionExpired)
	}
	return p, nil
}

func (f *fakeAuth) Identify(_ context.Context, authorization string) (*models.Principal, error) {
	return f.lookup(authorization)
}

func (f *fakeAuth) RequireSubscription(p *models.Principal, plan string) error {
	return entitlement.Require(p.Entitlement, plan)
}

func (f *fakeAuth) Login(_ context.Context, login, _ string) (*authsvc.LoginResult, error) {
	return &authsvc.LoginResult{Token: "t-" + login, TokenType: authsvc.TokenType}, nil
}

type fakeAccounts struct{}

func (fakeAccounts) Register(_ context.Context, in authsvc.RegisterInput) (*models.PublicUser, error) {
	return &models.PublicUser{ID: "new", Username: in.Username}, nil
}

func (fakeAccounts) Logout(context.Context, *models.Principal) error { return nil }

func (fakeAccounts) Me(_ context.Context, p *models.Principal) (*models.PublicUser, error) {
	return &models.PublicUser{ID: p.ID, Username: p.Username}, nil
}

func (fakeAccounts) ChangePassword(context.Context, string, string, string) error { return nil }

func (fakeAccounts) Status(_ context.Context, _ string) (*authsvc.StatusResult, error) {
	return &authsvc.StatusResult{}, nil
}

type fakeSubscriptions struct{}

func (fakeSubscriptions) Renew(_ context.Context, userID, plan string, _ int) (*models.Subscription, error) {
	return &models.Subscription{UserID: userID, Plan: plan, IsActive: true}, nil
}

func (fakeSubscriptions) Extend(_ context.Context, userID string, _ int) (*models.Subscription, error) {
	return &models.Subscription{UserID: userID, IsActive: true}, nil
}

func (fakeSubscriptions) ChangePlan(_ context.Context, userID, plan string) (*models.Subscription, string, error) {
	return &models.Subscription{UserID: userID, Plan: plan, IsActive: true}, models.PlanStandard, nil
}

func (fakeSubscriptions) Create(_ context.Context, userID, plan string, start, end time.Time) (*models.Subscription, error) {
	return &models.Subscription{ID: 1, UserID: userID, Plan: plan, StartDate: start, EndDate: end, IsActive: true}, nil
}

func (fakeSubscriptions) Read(_ context.Context, id int64) (*models.Subscription, error) {
	return &models.Subscription{ID: id}, nil
}

func (fakeSubscriptions) ListAll(context.Context, int, int) ([]models.Subscription, error) {
	return []models.Subscription{}, nil
}

func (fakeSubscriptions) ListForUser(context.Context, string) ([]models.Subscription, error) {
	return []models.Subscription{}, nil
}

func (fakeSubscriptions) Update(_ context.Context, id int64, _ models.SubscriptionUpdate) (*models.Subscription, error) {
	return &models.Subscription{ID: id}, nil
}

func (fakeSubscriptions) Remove(context.Context, int64) error { return nil }

func plan(p string) *string { return &p }

func newRouter(t *testing.T, limiter *middlewarectx.IPRateLimiter) http.Handler {
	t.Helper()
	auth := &fakeAuth{users: map[string]*models.Principal{
		"Bearer premium":  {ID: "u1", Entitlement: models.EntitlementStatus{IsActive: true, Plan: plan(models.PlanPremium)}},
		"Bearer standard": {ID: "u2", Entitlement: models.EntitlementStatus{IsActive: true, Plan: plan(models.PlanStandard)}},
		"Bearer expired":  {ID: "u3"},
	}}
	r := chi.NewRouter()
	RegisterRoutes(r, slog.New(slog.NewTextHandler(io.Discard, nil)), Deps{
		Auth:          auth,
		Accounts:      fakeAccounts{},
		Subscriptions: fakeSubscriptions{},
		LoginLimiter:  limiter,
	})
	return r
}

func TestRoutes_Access(t *testing.T) {
	router := newRouter(t, nil)

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		body   string
		want   int
		kind   string
	}{
		{name: "health is public", method: http.MethodGet, path: "/health", want: http.StatusOK},
		{name: "me without token", method: http.MethodGet, path: "/api/v1/auth/me", want: http.StatusUnauthorized, kind: "MISSING_TOKEN"},
		{name: "me with unknown token", method: http.MethodGet, path: "/api/v1/auth/me", token: "Bearer nope", want: http.StatusUnauthorized, kind: "INVALID_TOKEN"},
		{name: "me with active subscription", method: http.MethodGet, path: "/api/v1/auth/me", token: "Bearer standard", want: http.StatusOK},
		{name: "me with expired subscription", method: http.MethodGet, path: "/api/v1/auth/me", token: "Bearer expired", want: http.StatusForbidden, kind: "SUBSCRIPTION_EXPIRED"},
		{name: "status with expired subscription", method: http.MethodGet, path: "/api/v1/auth/subscription", token: "Bearer expired", want: http.StatusOK},
		{name: "renew with expired subscription", method: http.MethodPost, path: "/api/v1/auth/renew-subscription", token: "Bearer expired", body: `{"months":1}`, want: http.StatusOK},
		{name: "admin route needs premium", method: http.MethodGet, path: "/api/v1/subscriptions/5", token: "Bearer standard", want: http.StatusForbidden, kind: "PLAN_MISMATCH"},
		{name: "admin route with premium", method: http.MethodGet, path: "/api/v1/subscriptions/5", token: "Bearer premium", want: http.StatusOK},
		{name: "admin route with expired", method: http.MethodDelete, path: "/api/v1/subscriptions/5", token: "Bearer expired", want: http.StatusForbidden, kind: "SUBSCRIPTION_EXPIRED"},
		{name: "register is public", method: http.MethodPost, path: "/api/v1/auth/register",
			body: `{"username":"alice","email":"alice@example.com","password":"secret1","full_name":"Alice"}`, want: http.StatusCreated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, bytes.NewBufferString(tt.body))
			if tt.token != "" {
				req.Header.Set("Authorization", tt.token)
			}
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)

			assert.Equal(t, tt.want, rr.Code, rr.Body.String())
			if tt.kind != "" {
				assert.Contains(t, rr.Body.String(), `"kind":"`+tt.kind+`"`)
			}
		})
	}
}

func TestRoutes_LoginRateLimit(t *testing.T) {
	router := newRouter(t, middlewarectx.NewIPRateLimiter(0.001, 2))

	codes := make([]int, 0, 3)
	for range 3 {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewBufferString(`{"username":"alice","password":"secret1"}`))
		req.RemoteAddr = "203.0.113.7:5000"
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		codes = append(codes, rr.Code)
	}
	require.Len(t, codes, 3)
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.RemoteAddr = "203.0.113.7:5000"
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
}
