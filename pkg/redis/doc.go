// Package redis connects to Redis with github.com/redis/go-redis/v9 and
// provides GroupStore, a Redis-set implementation of the subscription
// package's group membership interface.
//
//	client, err := redis.Connect(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	groups := redis.NewGroupStore(client, cfg.KeyPrefix)
//	manager := subscription.NewManager(plans, subs, groups)
//
// Healthcheck returns a probe suitable for readiness endpoints.
package redis
