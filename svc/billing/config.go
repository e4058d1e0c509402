package billing

// Config holds service-level settings for the billing HTTP API.
type Config struct {
	AppEnv     string `env:"APP_ENV" envDefault:"development"`
	AppName    string `env:"APP_NAME" envDefault:"billingd"`
	LogLevel   string `env:"LOG_LEVEL"`                                  // overrides the environment default
	UserHeader string `env:"BILLING_USER_HEADER" envDefault:"X-User-ID"` // set by the authenticating proxy
	UsersTable string `env:"BILLING_USERS_TABLE" envDefault:"users"`     // looked up for notification addresses
	Groups     string `env:"BILLING_GROUP_BACKEND" envDefault:"redis"`   // redis or postgres
	PlansFile  string `env:"BILLING_PLANS_FILE"`                         // YAML plan catalog synced at startup
}

// Group backends accepted by Config.Groups.
const (
	GroupBackendRedis    = "redis"
	GroupBackendPostgres = "postgres"
)
