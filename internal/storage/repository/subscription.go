package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/magabrotheeeer/bizledger/internal/models"
)

const subscriptionColumns = `id, user_id, plan, start_date, end_date, is_active, created_at, updated_at`

func scanSubscription(row rowScanner) (*models.Subscription, error) {
	var sub models.Subscription
	if err := row.Scan(&sub.ID, &sub.UserID, &sub.Plan, &sub.StartDate, &sub.EndDate,
		&sub.IsActive, &sub.CreatedAt, &sub.UpdatedAt); err != nil {
		return nil, err
	}
	return &sub, nil
}

func scanSubscriptions(rows *sql.Rows) ([]models.Subscription, error) {
	defer func() {
		_ = rows.Close()
	}()
	var result []models.Subscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *sub)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func subscriptionErr(op string, err error) error {
	switch {
	case errors.Is(err, sql.ErrNoRows), pgCode(err) == pgInvalidText:
		return fmt.Errorf("%s: %w", op, ErrSubscriptionNotFound)
	case pgCode(err) == pgForeignKeyViolation:
		return fmt.Errorf("%s: %w", op, ErrUserNotFound)
	case pgCode(err) == pgUniqueViolation:
		return fmt.Errorf("%s: %w", op, ErrSubscriptionConflict)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}

// ListSubscriptionsByUser возвращает все подписки пользователя, включая заменённые.
func (s *Storage) ListSubscriptionsByUser(ctx context.Context, userID string) ([]models.Subscription, error) {
	const op = "storage.ListSubscriptionsByUser"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + subscriptionColumns + `
			  FROM subscriptions
			  WHERE user_id = $1
			  ORDER BY id`
	rows, err := s.DB.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	subs, err := scanSubscriptions(rows)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return subs, nil
}

// GetCurrentSubscription возвращает текущую подписку пользователя.
func (s *Storage) GetCurrentSubscription(ctx context.Context, userID string) (*models.Subscription, error) {
	const op = "storage.GetCurrentSubscription"

	query := `SELECT ` + subscriptionColumns + `
			  FROM subscriptions
			  WHERE user_id = $1 AND is_active
			  ORDER BY end_date DESC, id DESC
			  LIMIT 1`
	sub, err := scanSubscription(s.DB.QueryRowContext(ctx, query, userID))
	if err != nil {
		return nil, subscriptionErr(op, err)
	}
	return sub, nil
}

// UpsertCurrentSubscription заменяет окно текущей подписки пользователя
// или создаёт её, если текущей нет. Выполняется одним запросом.
func (s *Storage) UpsertCurrentSubscription(ctx context.Context, userID, plan string, start, end time.Time) (*models.Subscription, error) {
	const op = "storage.UpsertCurrentSubscription"

	query := `INSERT INTO subscriptions (user_id, plan, start_date, end_date, is_active)
			  VALUES ($1, $2, $3, $4, TRUE)
			  ON CONFLICT (user_id) WHERE is_active
			  DO UPDATE SET plan = EXCLUDED.plan,
			                start_date = EXCLUDED.start_date,
			                end_date = EXCLUDED.end_date,
			                updated_at = now()
			  RETURNING ` + subscriptionColumns
	sub, err := scanSubscription(s.DB.QueryRowContext(ctx, query, userID, plan, start, end))
	if err != nil {
		return nil, subscriptionErr(op, err)
	}
	return sub, nil
}

// SetCurrentEndDate переносит дату окончания текущей подписки.
// Конкурентные вызовы не суммируются: остаётся значение последней записи.
func (s *Storage) SetCurrentEndDate(ctx context.Context, userID string, end time.Time) (*models.Subscription, error) {
	const op = "storage.SetCurrentEndDate"

	query := `UPDATE subscriptions
			  SET end_date = $2, updated_at = now()
			  WHERE user_id = $1 AND is_active
			  RETURNING ` + subscriptionColumns
	sub, err := scanSubscription(s.DB.QueryRowContext(ctx, query, userID, end))
	if err != nil {
		return nil, subscriptionErr(op, err)
	}
	return sub, nil
}

// SetCurrentPlan меняет тариф текущей подписки, даты сохраняются.
func (s *Storage) SetCurrentPlan(ctx context.Context, userID, plan string) (*models.Subscription, error) {
	const op = "storage.SetCurrentPlan"

	query := `UPDATE subscriptions
			  SET plan = $2, updated_at = now()
			  WHERE user_id = $1 AND is_active
			  RETURNING ` + subscriptionColumns
	sub, err := scanSubscription(s.DB.QueryRowContext(ctx, query, userID, plan))
	if err != nil {
		return nil, subscriptionErr(op, err)
	}
	return sub, nil
}

// CreateSubscription снимает флаг текущей с прежней подписки пользователя
// и вставляет новую, всё в одной транзакции.
func (s *Storage) CreateSubscription(ctx context.Context, userID, plan string, start, end time.Time) (*models.Subscription, error) {
	const op = "storage.CreateSubscription"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var created *models.Subscription
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`UPDATE subscriptions SET is_active = FALSE, updated_at = now()
			 WHERE user_id = $1 AND is_active`, userID); err != nil {
			return err
		}
		sub, err := scanSubscription(tx.QueryRowContext(ctx,
			`INSERT INTO subscriptions (user_id, plan, start_date, end_date, is_active)
			 VALUES ($1, $2, $3, $4, TRUE)
			 RETURNING `+subscriptionColumns, userID, plan, start, end))
		if err != nil {
			return err
		}
		created = sub
		return nil
	})
	if err != nil {
		return nil, subscriptionErr(op, err)
	}
	return created, nil
}

// GetSubscription возвращает подписку по id.
func (s *Storage) GetSubscription(ctx context.Context, id int64) (*models.Subscription, error) {
	const op = "storage.GetSubscription"

	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE id = $1`
	sub, err := scanSubscription(s.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, subscriptionErr(op, err)
	}
	return sub, nil
}

// ListSubscriptions возвращает все подписки с пагинацией.
func (s *Storage) ListSubscriptions(ctx context.Context, limit, offset int) ([]models.Subscription, error) {
	const op = "storage.ListSubscriptions"

	query := `SELECT ` + subscriptionColumns + `
			  FROM subscriptions
			  ORDER BY id
			  LIMIT $1 OFFSET $2`
	rows, err := s.DB.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	subs, err := scanSubscriptions(rows)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return subs, nil
}

// UpdateSubscription меняет заданные поля подписки, nil-поля остаются прежними.
func (s *Storage) UpdateSubscription(ctx context.Context, id int64, upd models.SubscriptionUpdate) (*models.Subscription, error) {
	const op = "storage.UpdateSubscription"

	query := `UPDATE subscriptions
			  SET plan = COALESCE($2, plan),
			      start_date = COALESCE($3, start_date),
			      end_date = COALESCE($4, end_date),
			      is_active = COALESCE($5, is_active),
			      updated_at = now()
			  WHERE id = $1
			  RETURNING ` + subscriptionColumns
	sub, err := scanSubscription(s.DB.QueryRowContext(ctx, query,
		id, upd.Plan, upd.StartDate, upd.EndDate, upd.IsActive))
	if err != nil {
		return nil, subscriptionErr(op, err)
	}
	return sub, nil
}

// DeactivateSubscription снимает с подписки флаг текущей. Запись не удаляется.
func (s *Storage) DeactivateSubscription(ctx context.Context, id int64) error {
	const op = "storage.DeactivateSubscription"

	res, err := s.DB.ExecContext(ctx,
		`UPDATE subscriptions SET is_active = FALSE, updated_at = now() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return checkAffected(op, res, ErrSubscriptionNotFound)
}

// FindSubscriptionsEndingBetween возвращает текущие подписки с окончанием в [from, to).
func (s *Storage) FindSubscriptionsEndingBetween(ctx context.Context, from, to time.Time) ([]models.ExpiryNotice, error) {
	const op = "storage.FindSubscriptionsEndingBetween"

	query := `SELECT u.id, u.username, u.email, s.plan, s.end_date
			  FROM subscriptions s
			  JOIN users u ON u.id = s.user_id
			  WHERE s.is_active AND s.end_date >= $1 AND s.end_date < $2
			  ORDER BY s.end_date`
	rows, err := s.DB.QueryContext(ctx, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []models.ExpiryNotice
	for rows.Next() {
		var n models.ExpiryNotice
		if err = rows.Scan(&n.UserID, &n.Username, &n.Email, &n.Plan, &n.EndDate); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		n.IsTrial = n.Plan == models.PlanTrial
		result = append(result, n)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}
