package pgstore_test

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/subkit/pkg/pg"
	"github.com/dmitrymomot/subkit/pkg/subscription"
	"github.com/dmitrymomot/subkit/pkg/subscription/pgstore"
)

// newTestPool connects to PG_CONN_URL and applies the schema.
// The test is skipped when PG_CONN_URL is not set.
func newTestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	url := os.Getenv("PG_CONN_URL")
	if url == "" {
		t.Skip("PG_CONN_URL not set")
	}

	ctx := context.Background()
	cfg := pg.Config{ConnectionString: url, RetryAttempts: 1, MigrationsTable: "subkit_test_migrations"}
	pool, err := pg.Connect(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, pgstore.Migrate(ctx, pool, cfg, slog.New(slog.DiscardHandler)))
	return pool
}

func TestStore_Plans(t *testing.T) {
	pool := newTestPool(t)
	ctx := context.Background()
	store := pgstore.New(pool)

	suffix := uuid.NewString()[:8]
	plan := &subscription.Plan{
		ID:               uuid.New(),
		Name:             "Pro " + suffix,
		Group:            "pro-" + suffix,
		Price:            subscription.Money{Amount: 1500, Currency: "USD"},
		TrialPeriod:      14,
		TrialUnit:        subscription.UnitDay,
		RecurrencePeriod: 1,
		RecurrenceUnit:   subscription.UnitMonth,
	}
	require.NoError(t, store.SavePlan(ctx, plan))

	got, err := store.GetPlan(ctx, plan.ID)
	require.NoError(t, err)
	assert.Equal(t, plan, got)

	dup := &subscription.Plan{ID: uuid.New(), Name: plan.Name, Group: "x"}
	assert.ErrorIs(t, store.SavePlan(ctx, dup), subscription.ErrPlanNameTaken)

	_, err = store.GetPlan(ctx, uuid.New())
	assert.ErrorIs(t, err, subscription.ErrPlanNotFound)

	plans, err := store.ListPlans(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, plans)
}

func TestStore_UserSubscriptions(t *testing.T) {
	pool := newTestPool(t)
	ctx := context.Background()
	store := pgstore.New(pool)

	plan := &subscription.Plan{ID: uuid.New(), Name: "Basic " + uuid.NewString()[:8], Group: "basic"}
	require.NoError(t, store.SavePlan(ctx, plan))

	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	userID := uuid.New()
	us := subscription.NewUserSubscription(userID, plan.ID, now)
	expires := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	us.Expires = &expires
	require.NoError(t, store.Save(ctx, us))

	got, err := store.GetByUserAndPlan(ctx, userID, plan.ID)
	require.NoError(t, err)
	assert.Equal(t, us.ID, got.ID)
	require.NotNil(t, got.Expires)
	assert.True(t, expires.Equal(*got.Expires))

	other := subscription.NewUserSubscription(userID, plan.ID, now)
	assert.ErrorIs(t, store.Save(ctx, other), subscription.ErrSubscriptionAlreadyExists)

	stale, err := store.ListExpiringBefore(ctx, now)
	require.NoError(t, err)
	assert.Contains(t, ids(stale), us.ID)

	got.Expires = nil
	got.Cancelled = false
	require.NoError(t, store.Save(ctx, got))
	again, err := store.Get(ctx, us.ID)
	require.NoError(t, err)
	assert.Nil(t, again.Expires)
	assert.False(t, again.Cancelled)

	require.NoError(t, store.Delete(ctx, us.ID))
	_, err = store.Get(ctx, us.ID)
	assert.ErrorIs(t, err, subscription.ErrSubscriptionNotFound)
	require.NoError(t, store.Delete(ctx, us.ID))
}

func TestGroupStore(t *testing.T) {
	pool := newTestPool(t)
	ctx := context.Background()
	groups := pgstore.NewGroupStore(pool)
	userID := uuid.New()

	require.NoError(t, groups.AddToGroup(ctx, userID, "pro"))
	require.NoError(t, groups.AddToGroup(ctx, userID, "pro"))
	require.NoError(t, groups.AddToGroup(ctx, userID, "beta"))

	ok, err := groups.IsMember(ctx, userID, "pro")
	require.NoError(t, err)
	assert.True(t, ok)

	list, err := groups.Groups(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, []string{"beta", "pro"}, list)

	require.NoError(t, groups.RemoveFromGroup(ctx, userID, "pro"))
	ok, err = groups.IsMember(ctx, userID, "pro")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestUserDirectory(t *testing.T) {
	pool := newTestPool(t)
	ctx := context.Background()

	table := "subkit_test_users"
	_, err := pool.Exec(ctx, `CREATE TABLE IF NOT EXISTS `+table+` (id UUID PRIMARY KEY, email TEXT NOT NULL)`)
	require.NoError(t, err)
	t.Cleanup(func() { _, _ = pool.Exec(context.Background(), `DROP TABLE IF EXISTS `+table) })

	userID := uuid.New()
	_, err = pool.Exec(ctx, `INSERT INTO `+table+` (id, email) VALUES ($1, $2)`, userID, "jane@example.com")
	require.NoError(t, err)

	dir := pgstore.NewUserDirectory(pool, table)

	addr, err := dir.EmailAddress(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, "jane@example.com", addr)

	_, err = dir.EmailAddress(ctx, uuid.New())
	assert.ErrorIs(t, err, subscription.ErrUserNotFound)
}

func ids(list []*subscription.UserSubscription) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(list))
	for _, us := range list {
		out = append(out, us.ID)
	}
	return out
}
