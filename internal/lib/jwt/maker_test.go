package jwt

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/bizledger/internal/models"
)

func trialStatus(days int) models.EntitlementStatus {
	plan := models.PlanTrial
	return models.EntitlementStatus{IsActive: true, Plan: &plan, DaysRemaining: days, IsTrial: true}
}

func TestJWTMaker_GenerateAndParseToken_ValidCases(t *testing.T) {
	tokenTTL := 15 * time.Minute
	maker := NewJWTMaker("test_secret_key_1234567890", tokenTTL)

	tests := []struct {
		name    string
		payload Payload
	}{
		{
			name:    "trial user",
			payload: Payload{UserID: "5f1c0c4e-0000-4000-8000-000000000001", Username: "trial_user", Entitlement: trialStatus(6)},
		},
		{
			name:    "inactive user",
			payload: Payload{UserID: "5f1c0c4e-0000-4000-8000-000000000002", Username: "user@domain.com"},
		},
		{
			name:    "user with numbers in username",
			payload: Payload{UserID: "5f1c0c4e-0000-4000-8000-000000000003", Username: "user123", Entitlement: trialStatus(0)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, err := maker.GenerateToken(tt.payload)
			require.NoError(t, err)
			assert.NotEmpty(t, token)

			claims, err := maker.ParseToken(token)
			require.NoError(t, err)

			assert.Equal(t, tt.payload, claims.Payload())
			assert.Equal(t, tt.payload.UserID, claims.Subject)
			assert.NotEmpty(t, claims.ID)
			assert.WithinDuration(t, time.Now(), claims.IssuedAt.Time, time.Second)
			assert.WithinDuration(t, time.Now().Add(tokenTTL), claims.ExpiresAt.Time, time.Second)
		})
	}
}

func TestJWTMaker_ParseToken_InvalidTokens(t *testing.T) {
	secretKey := "test_secret_key_1234567890"
	maker := NewJWTMaker(secretKey, 15*time.Minute)

	validToken, err := maker.GenerateToken(Payload{UserID: "u1", Username: "testuser"})
	require.NoError(t, err)

	tests := []struct {
		name    string
		token   string
		wantErr error
	}{
		{name: "empty token", token: "", wantErr: ErrInvalidToken},
		{name: "malformed token", token: "invalid.token.here", wantErr: ErrInvalidToken},
		{name: "expired token", token: createExpiredToken(t, secretKey), wantErr: ErrExpiredToken},
		{name: "wrong secret key", token: createTokenWithWrongSecret(t), wantErr: ErrInvalidToken},
		{name: "tampered token", token: validToken + "tampered", wantErr: ErrInvalidToken},
		{name: "none algorithm", token: createUnsignedToken(t), wantErr: ErrInvalidToken},
		{name: "other hmac algorithm", token: createHS512Token(t, secretKey), wantErr: ErrInvalidToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := maker.ParseToken(tt.token)

			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Nil(t, claims)
		})
	}
}

func TestJWTMaker_ExpiredIsNeverInvalid(t *testing.T) {
	secretKey := "test_secret_key"
	issuedAt := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	maker := NewJWTMaker(secretKey, time.Hour).WithClock(func() time.Time { return issuedAt })

	token, err := maker.GenerateToken(Payload{UserID: "u1", Username: "testuser"})
	require.NoError(t, err)

	within := maker.WithClock(func() time.Time { return issuedAt.Add(59 * time.Minute) })
	_, err = within.ParseToken(token)
	require.NoError(t, err)

	after := maker.WithClock(func() time.Time { return issuedAt.Add(61 * time.Minute) })
	_, err = after.ParseToken(token)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrExpiredToken)
	assert.NotErrorIs(t, err, ErrInvalidToken)
}

func TestJWTMaker_DifferentSecretKeys(t *testing.T) {
	maker1 := NewJWTMaker("first_secret_key", 15*time.Minute)
	maker2 := NewJWTMaker("different_secret_key", 15*time.Minute)

	token, err := maker1.GenerateToken(Payload{UserID: "u1", Username: "testuser"})
	require.NoError(t, err)

	claims, err := maker2.ParseToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
	assert.Nil(t, claims)

	claims, err = maker1.ParseToken(token)
	assert.NoError(t, err)
	assert.NotNil(t, claims)
}

func TestJWTMaker_UniqueTokenIDs(t *testing.T) {
	maker := NewJWTMaker("secret", time.Minute)
	p := Payload{UserID: "u1", Username: "testuser"}

	first, err := maker.GenerateToken(p)
	require.NoError(t, err)
	second, err := maker.GenerateToken(p)
	require.NoError(t, err)

	c1, err := maker.ParseToken(first)
	require.NoError(t, err)
	c2, err := maker.ParseToken(second)
	require.NoError(t, err)
	assert.NotEqual(t, c1.ID, c2.ID)
}

func createExpiredToken(t *testing.T, secretKey string) string {
	t.Helper()
	maker := NewJWTMaker(secretKey, -time.Hour)
	token, err := maker.GenerateToken(Payload{UserID: "u1", Username: "testuser"})
	require.NoError(t, err)
	return token
}

func createTokenWithWrongSecret(t *testing.T) string {
	t.Helper()
	wrongMaker := NewJWTMaker("wrong_secret_key", 15*time.Minute)
	token, err := wrongMaker.GenerateToken(Payload{UserID: "u1", Username: "testuser"})
	require.NoError(t, err)
	return token
}

func createUnsignedToken(t *testing.T) string {
	t.Helper()
	claims := Claims{
		UserID: "u1",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	return token
}

func createHS512Token(t *testing.T, secretKey string) string {
	t.Helper()
	claims := Claims{
		UserID: "u1",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte(secretKey))
	require.NoError(t, err)
	return token
}
