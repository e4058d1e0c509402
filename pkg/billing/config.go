package billing

// PaddleConfig configures the Paddle notification endpoint.
type PaddleConfig struct {
	WebhookSecret string `env:"PADDLE_WEBHOOK_SECRET"`
	MaxBodyBytes  int64  `env:"PADDLE_WEBHOOK_MAX_BODY" envDefault:"1048576"`
}

// Enabled reports whether the webhook secret is configured.
func (c PaddleConfig) Enabled() bool {
	return c.WebhookSecret != ""
}
