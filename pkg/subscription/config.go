package subscription

import "time"

// Config holds lifecycle settings loaded from the environment.
type Config struct {
	GracePeriodDays int           `env:"SUBSCRIPTION_GRACE_PERIOD" envDefault:"2"`    // Days after expiry before membership is revoked.
	StartURL        string        `env:"SUBSCRIPTION_START_URL"`                      // Where users without a subscription are redirected.
	SweepInterval   time.Duration `env:"SUBSCRIPTION_SWEEP_INTERVAL" envDefault:"1h"` // How often expired subscriptions are reconciled.
}

// GracePeriod returns the grace period as a duration.
func (c Config) GracePeriod() time.Duration {
	return time.Duration(max(c.GracePeriodDays, 0)) * 24 * time.Hour
}
