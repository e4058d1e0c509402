package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/subkit/pkg/redis"
	"github.com/dmitrymomot/subkit/pkg/subscription"
)

var _ subscription.GroupMembership = (*redis.GroupStore)(nil)

func newClient(t *testing.T) (*miniredis.Miniredis, *goredis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client, err := redis.Connect(context.Background(), redis.Config{
		ConnectionURL: "redis://" + mr.Addr() + "/0",
		RetryAttempts: 1,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestConnect(t *testing.T) {
	t.Parallel()

	t.Run("healthy server", func(t *testing.T) {
		t.Parallel()
		_, client := newClient(t)
		assert.NoError(t, redis.Healthcheck(client)(context.Background()))
	})

	t.Run("empty url", func(t *testing.T) {
		t.Parallel()
		_, err := redis.Connect(context.Background(), redis.Config{})
		assert.ErrorIs(t, err, redis.ErrEmptyConnectionURL)
	})

	t.Run("invalid url", func(t *testing.T) {
		t.Parallel()
		_, err := redis.Connect(context.Background(), redis.Config{ConnectionURL: "mysql://nope"})
		assert.ErrorIs(t, err, redis.ErrInvalidURL)
	})

	t.Run("server down", func(t *testing.T) {
		t.Parallel()
		mr := miniredis.RunT(t)
		addr := mr.Addr()
		mr.Close()

		_, err := redis.Connect(context.Background(), redis.Config{
			ConnectionURL:  "redis://" + addr + "/0",
			RetryAttempts:  2,
			RetryInterval:  10 * time.Millisecond,
			ConnectTimeout: time.Second,
		})
		assert.ErrorIs(t, err, redis.ErrNotReady)
	})

	t.Run("no wait after the last attempt", func(t *testing.T) {
		t.Parallel()
		mr := miniredis.RunT(t)
		addr := mr.Addr()
		mr.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		_, err := redis.Connect(ctx, redis.Config{
			ConnectionURL: "redis://" + addr + "/0",
			RetryAttempts: 1,
			RetryInterval: time.Minute,
		})
		require.ErrorIs(t, err, redis.ErrNotReady)
		assert.NotErrorIs(t, err, context.DeadlineExceeded)
	})
}

func TestGroupStore(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	mr, client := newClient(t)
	store := redis.NewGroupStore(client, "test")
	userID := uuid.New()

	require.NoError(t, store.AddToGroup(ctx, userID, "pro"))
	require.NoError(t, store.AddToGroup(ctx, userID, "beta"))
	require.NoError(t, store.AddToGroup(ctx, userID, "pro"))

	members, err := mr.Members("test:groups:" + userID.String())
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"pro", "beta"}, members)

	ok, err := store.IsMember(ctx, userID, "pro")
	require.NoError(t, err)
	assert.True(t, ok)

	groups, err := store.Groups(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, []string{"beta", "pro"}, groups)

	require.NoError(t, store.RemoveFromGroup(ctx, userID, "pro"))
	ok, err = store.IsMember(ctx, userID, "pro")
	require.NoError(t, err)
	assert.False(t, ok)

	empty, err := store.Groups(ctx, uuid.New())
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestGroupStore_WithManager(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	_, client := newClient(t)

	plan := subscription.Plan{ID: uuid.New(), Name: "Lifetime", Group: "lifetime", Price: subscription.Money{Amount: 9900}}
	store := subscription.NewMemoryStore(plan)
	groups := redis.NewGroupStore(client, "")
	mgr := subscription.NewManager(store, store, groups)

	userID := uuid.New()
	us, err := mgr.UserSubscriptionFor(ctx, userID, plan.ID)
	require.NoError(t, err)
	require.NoError(t, mgr.Signup(ctx, us))
	require.NoError(t, mgr.Activate(ctx, us))

	ok, err := groups.IsMember(ctx, userID, "lifetime")
	require.NoError(t, err)
	assert.True(t, ok)

	valid, err := mgr.Valid(ctx, us)
	require.NoError(t, err)
	assert.True(t, valid)
}

func TestDeduplicator(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	mr, client := newClient(t)
	d := redis.NewDeduplicator(client, "test", time.Hour)

	first, err := d.Claim(ctx, "evt_1")
	require.NoError(t, err)
	assert.True(t, first)

	again, err := d.Claim(ctx, "evt_1")
	require.NoError(t, err)
	assert.False(t, again)
	assert.Equal(t, time.Hour, mr.TTL("test:events:evt_1"))

	require.NoError(t, d.Release(ctx, "evt_1"))
	retried, err := d.Claim(ctx, "evt_1")
	require.NoError(t, err)
	assert.True(t, retried)

	mr.FastForward(2 * time.Hour)
	expired, err := d.Claim(ctx, "evt_1")
	require.NoError(t, err)
	assert.True(t, expired)
}
