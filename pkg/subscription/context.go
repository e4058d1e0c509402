package subscription

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

type userIDCtxKey struct{}

// SetUserIDToContext stores the authenticated user's ID in the context.
func SetUserIDToContext(ctx context.Context, userID uuid.UUID) context.Context {
	return context.WithValue(ctx, userIDCtxKey{}, userID)
}

// GetUserIDFromContext retrieves the authenticated user's ID from the context.
func GetUserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	userID, ok := ctx.Value(userIDCtxKey{}).(uuid.UUID)
	return userID, ok && userID != uuid.Nil
}

// LoggerExtractor enriches log records with the user ID from context.
func LoggerExtractor() func(ctx context.Context) (slog.Attr, bool) {
	return func(ctx context.Context) (slog.Attr, bool) {
		if id, ok := GetUserIDFromContext(ctx); ok {
			return slog.String("user_id", id.String()), true
		}
		return slog.Attr{}, false
	}
}

type planCacheCtxKey struct{}

// planCache memoises UserPlan lookups for the lifetime of a request.
type planCache struct {
	mu    sync.Mutex
	plans map[uuid.UUID]*Plan
}

// WithPlanCache returns a context that memoises UserPlan results.
// The access middleware installs it on every request.
func WithPlanCache(ctx context.Context) context.Context {
	if _, ok := ctx.Value(planCacheCtxKey{}).(*planCache); ok {
		return ctx
	}
	return context.WithValue(ctx, planCacheCtxKey{}, &planCache{plans: make(map[uuid.UUID]*Plan)})
}

func cachedPlan(ctx context.Context, userID uuid.UUID) (*Plan, bool) {
	c, ok := ctx.Value(planCacheCtxKey{}).(*planCache)
	if !ok {
		return nil, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.plans[userID]
	return p, ok
}

func storePlan(ctx context.Context, userID uuid.UUID, plan *Plan) {
	c, ok := ctx.Value(planCacheCtxKey{}).(*planCache)
	if !ok {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.plans[userID] = plan
}
