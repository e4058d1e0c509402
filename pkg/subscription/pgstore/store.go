// Package pgstore persists plans, user subscriptions and group membership
// in PostgreSQL.
package pgstore

import (
	"context"
	"embed"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmitrymomot/subkit/pkg/pg"
	"github.com/dmitrymomot/subkit/pkg/subscription"
)

// Migrations holds the schema for the tables used by this package.
//
//go:embed migrations/*.sql
var Migrations embed.FS

// MigrationsDir is the directory inside Migrations holding the SQL files.
const MigrationsDir = "migrations"

// Migrate applies the package schema.
func Migrate(ctx context.Context, pool *pgxpool.Pool, cfg pg.Config, log *slog.Logger) error {
	return pg.Migrate(ctx, pool, Migrations, MigrationsDir, cfg.MigrationsTable, log)
}

// DBTX is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store implements subscription.PlanStore and subscription.UserSubscriptionStore.
type Store struct {
	db DBTX
}

var (
	_ subscription.PlanStore             = (*Store)(nil)
	_ subscription.UserSubscriptionStore = (*Store)(nil)
)

func New(db DBTX) *Store {
	if db == nil {
		panic("pgstore: db is required")
	}
	return &Store{db: db}
}

const planColumns = `id, name, slug, description, price_amount, price_currency,
	trial_period, trial_unit, recurrence_period, recurrence_unit, group_name`

// GetPlan returns the plan or subscription.ErrPlanNotFound.
func (s *Store) GetPlan(ctx context.Context, id uuid.UUID) (*subscription.Plan, error) {
	rows, err := s.db.Query(ctx, `SELECT `+planColumns+` FROM subscription_plans WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("query plan: %w", err)
	}
	plan, err := pgx.CollectExactlyOneRow(rows, scanPlan)
	if pg.IsNotFoundError(err) {
		return nil, subscription.ErrPlanNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan plan: %w", err)
	}
	return plan, nil
}

// ListPlans returns all plans in display order.
func (s *Store) ListPlans(ctx context.Context) ([]subscription.Plan, error) {
	rows, err := s.db.Query(ctx, `SELECT `+planColumns+` FROM subscription_plans
		ORDER BY price_amount ASC, recurrence_period DESC, name ASC`)
	if err != nil {
		return nil, fmt.Errorf("list plans: %w", err)
	}
	plans, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (subscription.Plan, error) {
		p, err := scanPlan(row)
		if err != nil {
			return subscription.Plan{}, err
		}
		return *p, nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan plans: %w", err)
	}
	return plans, nil
}

// SavePlan upserts the plan by ID. A duplicate name yields subscription.ErrPlanNameTaken.
func (s *Store) SavePlan(ctx context.Context, p *subscription.Plan) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO subscription_plans (`+planColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			slug = EXCLUDED.slug,
			description = EXCLUDED.description,
			price_amount = EXCLUDED.price_amount,
			price_currency = EXCLUDED.price_currency,
			trial_period = EXCLUDED.trial_period,
			trial_unit = EXCLUDED.trial_unit,
			recurrence_period = EXCLUDED.recurrence_period,
			recurrence_unit = EXCLUDED.recurrence_unit,
			group_name = EXCLUDED.group_name`,
		p.ID, p.Name, p.Slug, p.Description, p.Price.Amount, p.Price.Currency,
		p.TrialPeriod, string(p.TrialUnit), p.RecurrencePeriod, string(p.RecurrenceUnit), p.Group)
	if pg.IsDuplicateKeyError(err) {
		return subscription.ErrPlanNameTaken
	}
	if err != nil {
		return fmt.Errorf("upsert plan: %w", err)
	}
	return nil
}

const subColumns = `id, user_id, plan_id, expires, active, cancelled, created_at, updated_at`

// Get returns the subscription or subscription.ErrSubscriptionNotFound.
func (s *Store) Get(ctx context.Context, id uuid.UUID) (*subscription.UserSubscription, error) {
	return s.one(ctx, `SELECT `+subColumns+` FROM user_subscriptions WHERE id = $1`, id)
}

// GetByUserAndPlan returns the user's subscription to the plan or subscription.ErrSubscriptionNotFound.
func (s *Store) GetByUserAndPlan(ctx context.Context, userID, planID uuid.UUID) (*subscription.UserSubscription, error) {
	return s.one(ctx, `SELECT `+subColumns+` FROM user_subscriptions WHERE user_id = $1 AND plan_id = $2`, userID, planID)
}

// ListByUser returns the user's subscriptions, oldest first.
func (s *Store) ListByUser(ctx context.Context, userID uuid.UUID) ([]*subscription.UserSubscription, error) {
	return s.many(ctx, `SELECT `+subColumns+` FROM user_subscriptions WHERE user_id = $1 ORDER BY created_at`, userID)
}

// ListExpiringBefore returns subscriptions whose expiry date is before date.
func (s *Store) ListExpiringBefore(ctx context.Context, date time.Time) ([]*subscription.UserSubscription, error) {
	return s.many(ctx, `SELECT `+subColumns+` FROM user_subscriptions
		WHERE expires IS NOT NULL AND expires < $1 ORDER BY created_at`, subscription.DateOf(date))
}

// ListActive returns subscriptions with the active flag set.
func (s *Store) ListActive(ctx context.Context) ([]*subscription.UserSubscription, error) {
	return s.many(ctx, `SELECT `+subColumns+` FROM user_subscriptions WHERE active ORDER BY created_at`)
}

// Save upserts the subscription by ID. A second subscription to the same plan yields subscription.ErrSubscriptionAlreadyExists.
func (s *Store) Save(ctx context.Context, us *subscription.UserSubscription) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO user_subscriptions (`+subColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		ON CONFLICT (id) DO UPDATE SET
			plan_id = EXCLUDED.plan_id,
			expires = EXCLUDED.expires,
			active = EXCLUDED.active,
			cancelled = EXCLUDED.cancelled,
			updated_at = EXCLUDED.updated_at`,
		us.ID, us.UserID, us.PlanID, us.Expires, us.Active, us.Cancelled, us.CreatedAt, us.UpdatedAt)
	if pg.IsDuplicateKeyError(err) {
		return subscription.ErrSubscriptionAlreadyExists
	}
	if err != nil {
		return fmt.Errorf("upsert user subscription: %w", err)
	}
	return nil
}

// Delete removes the subscription. Unknown IDs are ignored.
func (s *Store) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.db.Exec(ctx, `DELETE FROM user_subscriptions WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete user subscription: %w", err)
	}
	return nil
}

func (s *Store) one(ctx context.Context, query string, args ...any) (*subscription.UserSubscription, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query user subscription: %w", err)
	}
	us, err := pgx.CollectExactlyOneRow(rows, scanUserSubscription)
	if pg.IsNotFoundError(err) {
		return nil, subscription.ErrSubscriptionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan user subscription: %w", err)
	}
	return us, nil
}

func (s *Store) many(ctx context.Context, query string, args ...any) ([]*subscription.UserSubscription, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query user subscriptions: %w", err)
	}
	list, err := pgx.CollectRows(rows, scanUserSubscription)
	if err != nil {
		return nil, fmt.Errorf("scan user subscriptions: %w", err)
	}
	return list, nil
}

func scanPlan(row pgx.CollectableRow) (*subscription.Plan, error) {
	var (
		p                     subscription.Plan
		trialUnit, recurrence string
	)
	err := row.Scan(&p.ID, &p.Name, &p.Slug, &p.Description, &p.Price.Amount, &p.Price.Currency,
		&p.TrialPeriod, &trialUnit, &p.RecurrencePeriod, &recurrence, &p.Group)
	if err != nil {
		return nil, err
	}
	p.TrialUnit = subscription.TimeUnit(trialUnit)
	p.RecurrenceUnit = subscription.TimeUnit(recurrence)
	return &p, nil
}

func scanUserSubscription(row pgx.CollectableRow) (*subscription.UserSubscription, error) {
	var us subscription.UserSubscription
	err := row.Scan(&us.ID, &us.UserID, &us.PlanID, &us.Expires, &us.Active, &us.Cancelled, &us.CreatedAt, &us.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &us, nil
}
