// Command billingd serves the subscription billing API and runs the
// periodic reconciliation of expired subscriptions.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	payments "github.com/dmitrymomot/subkit/pkg/billing"
	"github.com/dmitrymomot/subkit/pkg/config"
	"github.com/dmitrymomot/subkit/pkg/email"
	"github.com/dmitrymomot/subkit/pkg/httpserver"
	"github.com/dmitrymomot/subkit/pkg/logger"
	"github.com/dmitrymomot/subkit/pkg/pg"
	"github.com/dmitrymomot/subkit/pkg/redis"
	"github.com/dmitrymomot/subkit/pkg/requestid"
	"github.com/dmitrymomot/subkit/pkg/scheduler"
	"github.com/dmitrymomot/subkit/pkg/subscription"
	"github.com/dmitrymomot/subkit/pkg/subscription/pgstore"
	"github.com/dmitrymomot/subkit/svc/billing"
)

func main() {
	if err := run(); err != nil {
		slog.Error("billingd stopped", logger.Error(err))
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		appCfg    billing.Config
		subCfg    subscription.Config
		pgCfg     pg.Config
		redisCfg  redis.Config
		mailCfg   email.Config
		paddleCfg payments.PaddleConfig
		httpCfg   httpserver.Config
	)
	if err := errors.Join(
		config.Load(&appCfg),
		config.Load(&subCfg),
		config.Load(&pgCfg),
		config.Load(&redisCfg),
		config.Load(&mailCfg),
		config.Load(&paddleCfg),
		config.Load(&httpCfg),
	); err != nil {
		return err
	}

	log := logger.New(
		logger.WithEnvironment(appCfg.AppEnv, appCfg.AppName),
		logger.WithLevelName(appCfg.LogLevel),
		logger.WithContextExtractors(requestid.LoggerExtractor(), subscription.LoggerExtractor()),
	)
	logger.SetAsDefault(log)

	pool, err := pg.Connect(ctx, pgCfg)
	if err != nil {
		return err
	}
	defer pool.Close()
	if err := pgstore.Migrate(ctx, pool, pgCfg, log); err != nil {
		return err
	}

	rdb, err := redis.Connect(ctx, redisCfg)
	if err != nil {
		return err
	}
	defer rdb.Close()

	var groups subscription.GroupMembership
	switch appCfg.Groups {
	case billing.GroupBackendRedis:
		groups = redis.NewGroupStore(rdb, redisCfg.KeyPrefix)
	case billing.GroupBackendPostgres:
		groups = pgstore.NewGroupStore(pool)
	default:
		return fmt.Errorf("unknown group backend %q", appCfg.Groups)
	}

	store := pgstore.New(pool)
	mgr := subscription.NewManager(store, store, groups,
		subscription.WithConfig(subCfg),
		subscription.WithLogger(log.With(logger.Component("subscription"))))

	if appCfg.PlansFile != "" {
		if err := syncPlans(ctx, mgr, appCfg.PlansFile); err != nil {
			return err
		}
	}

	var sender email.EmailSender = email.NewLogSender(log)
	if mailCfg.PostmarkEnabled() {
		if sender, err = email.NewPostmarkSender(mailCfg); err != nil {
			return err
		}
	}
	billing.NewNotifier(sender, pgstore.NewUserDirectory(pool, appCfg.UsersTable),
		billing.WithNotifierLogger(log.With(logger.Component("notifier")))).Connect(mgr.Signals())

	opts := []billing.Option{
		billing.WithLogger(log),
		billing.WithUserHeader(appCfg.UserHeader),
	}
	if subCfg.StartURL != "" {
		opts = append(opts, billing.WithAccessOptions(subscription.WithLoginURL(subCfg.StartURL)))
	}
	if paddleCfg.Enabled() {
		wh, err := payments.NewWebhookHandler(paddleCfg, mgr,
			payments.WithDeduplicator(redis.NewDeduplicator(rdb, redisCfg.KeyPrefix, redis.DefaultDedupTTL)),
			payments.WithLogger(log.With(logger.Component("paddle"))))
		if err != nil {
			return err
		}
		opts = append(opts, billing.WithWebhook(wh))
	} else {
		log.WarnContext(ctx, "PADDLE_WEBHOOK_SECRET not set, payment webhook disabled")
	}
	svc := billing.NewService(mgr, opts...)

	sched := scheduler.New(scheduler.WithLogger(log.With(logger.Component("scheduler"))))
	if err := svc.RegisterSweep(sched, subCfg.SweepInterval); err != nil {
		return err
	}

	router := svc.Router()
	router.Get("/healthz", httpserver.Liveness())
	router.Get("/readyz", httpserver.Readiness(log, 5*time.Second, map[string]httpserver.Check{
		"postgres": pg.Healthcheck(pool),
		"redis":    redis.Healthcheck(rdb),
	}))

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := sched.Start(ctx); !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return httpserver.New(httpCfg, httpserver.WithLogger(log)).Run(ctx, router)
	})
	return g.Wait()
}

func syncPlans(ctx context.Context, mgr *subscription.Manager, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open plan catalog: %w", err)
	}
	defer f.Close()

	plans, err := subscription.ParsePlanCatalog(f)
	if err != nil {
		return err
	}
	return mgr.SyncPlans(ctx, plans)
}
