//go:build integration

package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/bizledger/internal/models"
)

func TestStorage_Users(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()
	ctx := context.Background()

	created, err := storage.CreateUser(ctx, newUser("alice"))
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Nil(t, created.LastLogin)

	t.Run("duplicate username", func(t *testing.T) {
		u := newUser("alice")
		u.Email = "other@example.com"
		_, err := storage.CreateUser(ctx, u)
		assert.ErrorIs(t, err, ErrUserExists)
	})

	t.Run("duplicate email ignores case", func(t *testing.T) {
		u := newUser("alice2")
		u.Email = "ALICE@example.com"
		_, err := storage.CreateUser(ctx, u)
		assert.ErrorIs(t, err, ErrUserExists)
	})

	tests := []struct {
		name    string
		login   string
		wantErr error
	}{
		{name: "by username", login: "alice"},
		{name: "by email", login: "alice@example.com"},
		{name: "by email upper case", login: "Alice@Example.com"},
		{name: "unknown", login: "bob", wantErr: ErrUserNotFound},
		{name: "injection attempt", login: "' OR 1=1 --", wantErr: ErrUserNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := storage.GetUserByLogin(ctx, tt.login)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, created.ID, got.ID)
		})
	}

	t.Run("by id", func(t *testing.T) {
		got, err := storage.GetUserByID(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, "alice", got.Username)

		_, err = storage.GetUserByID(ctx, "not-a-uuid")
		assert.ErrorIs(t, err, ErrUserNotFound)
	})

	t.Run("last login and password", func(t *testing.T) {
		at := time.Now().UTC().Truncate(time.Second)
		require.NoError(t, storage.UpdateLastLogin(ctx, created.ID, at))
		require.NoError(t, storage.UpdatePassword(ctx, created.ID, "newhash"))

		got, err := storage.GetUserByID(ctx, created.ID)
		require.NoError(t, err)
		require.NotNil(t, got.LastLogin)
		assert.True(t, got.LastLogin.Equal(at))
		assert.Equal(t, "newhash", got.PasswordHash)
	})
}

func TestStorage_SubscriptionLifecycle(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()
	ctx := context.Background()
	factory := NewTestDataFactory(storage)

	now := time.Now().UTC().Truncate(time.Second)
	userID := factory.CreateUser(t, "carol", "carol@example.com", now.AddDate(0, 0, -30))

	_, err := storage.GetCurrentSubscription(ctx, userID)
	assert.ErrorIs(t, err, ErrSubscriptionNotFound)

	_, err = storage.SetCurrentEndDate(ctx, userID, now)
	assert.ErrorIs(t, err, ErrSubscriptionNotFound)

	first, err := storage.UpsertCurrentSubscription(ctx, userID, models.PlanStandard, now, now.AddDate(0, 1, 0))
	require.NoError(t, err)

	renewed, err := storage.UpsertCurrentSubscription(ctx, userID, models.PlanPremium, now, now.AddDate(0, 3, 0))
	require.NoError(t, err)
	assert.Equal(t, first.ID, renewed.ID)
	assert.Equal(t, models.PlanPremium, renewed.Plan)
	assert.Equal(t, 1, factory.CountActive(t, userID))

	extended, err := storage.SetCurrentEndDate(ctx, userID, now.AddDate(0, 4, 0))
	require.NoError(t, err)
	assert.True(t, extended.EndDate.Equal(now.AddDate(0, 4, 0)))

	changed, err := storage.SetCurrentPlan(ctx, userID, models.PlanStandard)
	require.NoError(t, err)
	assert.True(t, changed.EndDate.Equal(extended.EndDate))

	created, err := storage.CreateSubscription(ctx, userID, models.PlanPremium, now, now.AddDate(1, 0, 0))
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, created.ID)
	assert.Equal(t, 1, factory.CountActive(t, userID))

	subs, err := storage.ListSubscriptionsByUser(ctx, userID)
	require.NoError(t, err)
	assert.Len(t, subs, 2)

	require.NoError(t, storage.DeactivateSubscription(ctx, created.ID))
	assert.Equal(t, 0, factory.CountActive(t, userID))
	assert.ErrorIs(t, storage.DeactivateSubscription(ctx, 999999), ErrSubscriptionNotFound)

	_, err = storage.CreateSubscription(ctx, "00000000-0000-0000-0000-000000000000", models.PlanPremium, now, now)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestStorage_ConcurrentExtendIsLastWriteWins(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()
	ctx := context.Background()
	factory := NewTestDataFactory(storage)

	now := time.Now().UTC().Truncate(time.Second)
	userID := factory.CreateUser(t, "dave", "dave@example.com", now)
	factory.CreateSubscription(t, userID, models.PlanStandard, now, now.AddDate(0, 1, 0), true)

	candidates := []time.Time{now.AddDate(0, 2, 0), now.AddDate(0, 4, 0)}
	var wg sync.WaitGroup
	for _, end := range candidates {
		wg.Add(1)
		go func(end time.Time) {
			defer wg.Done()
			_, err := storage.SetCurrentEndDate(ctx, userID, end)
			assert.NoError(t, err)
		}(end)
	}
	wg.Wait()

	current, err := storage.GetCurrentSubscription(ctx, userID)
	require.NoError(t, err)
	assert.True(t, current.EndDate.Equal(candidates[0]) || current.EndDate.Equal(candidates[1]))
}

func TestStorage_AdminOperations(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()
	ctx := context.Background()
	factory := NewTestDataFactory(storage)

	now := time.Now().UTC().Truncate(time.Second)
	userID := factory.CreateUser(t, "erin", "erin@example.com", now)
	id := factory.CreateSubscription(t, userID, models.PlanStandard, now, now.AddDate(0, 1, 0), true)
	factory.CreateSubscription(t, userID, models.PlanTrial, now.AddDate(0, -1, 0), now, false)

	got, err := storage.GetSubscription(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, userID, got.UserID)

	_, err = storage.GetSubscription(ctx, 424242)
	assert.ErrorIs(t, err, ErrSubscriptionNotFound)

	list, err := storage.ListSubscriptions(ctx, 1, 0)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	plan := models.PlanPremium
	updated, err := storage.UpdateSubscription(ctx, id, models.SubscriptionUpdate{Plan: &plan})
	require.NoError(t, err)
	assert.Equal(t, models.PlanPremium, updated.Plan)
	assert.True(t, updated.EndDate.Equal(got.EndDate))
}

func TestStorage_ExpiryQueries(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()
	ctx := context.Background()
	factory := NewTestDataFactory(storage)

	now := time.Now().UTC().Truncate(time.Second)
	from, to := now, now.Add(24*time.Hour)

	paid := factory.CreateUser(t, "paid", "paid@example.com", now.AddDate(0, -2, 0))
	factory.CreateSubscription(t, paid, models.PlanStandard, now.AddDate(0, -1, 0), now.Add(12*time.Hour), true)

	trial := factory.CreateUser(t, "trial", "trial@example.com", now.Add(-6*24*time.Hour-12*time.Hour))
	factory.CreateUser(t, "fresh", "fresh@example.com", now)

	ending, err := storage.FindSubscriptionsEndingBetween(ctx, from, to)
	require.NoError(t, err)
	require.Len(t, ending, 1)
	assert.Equal(t, paid, ending[0].UserID)

	trials, err := storage.FindTrialsEndingBetween(ctx, from, to, 7)
	require.NoError(t, err)
	require.Len(t, trials, 1)
	assert.Equal(t, trial, trials[0].UserID)
	assert.True(t, trials[0].IsTrial)
}
