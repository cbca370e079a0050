package config

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
)

const appID = "storefront"

type Config struct {
	HTTPAddress string `envconfig:"http_address" default:":8080"`
	GRPCAddress string `envconfig:"grpc_address" default:":8081"`
	PublicURL   string `envconfig:"public_url" default:"http://localhost:8080"`

	DatabaseDSN             string        `envconfig:"database_dsn" default:"storefront:storefront@tcp(localhost:3306)/storefront?parseTime=true&multiStatements=true&loc=UTC"`
	DatabaseMaxOpenConns    int           `envconfig:"database_max_open_conns" default:"20"`
	DatabaseMaxIdleConns    int           `envconfig:"database_max_idle_conns" default:"5"`
	DatabaseConnMaxLifetime time.Duration `envconfig:"database_conn_max_lifetime" default:"30m"`
	ConnectTimeout          time.Duration `envconfig:"connect_timeout" default:"1m"`
	MigrateOnStart          bool          `envconfig:"migrate_on_start" default:"true"`

	JWTSecret string        `envconfig:"jwt_secret" required:"true"`
	JWTTTL    time.Duration `envconfig:"jwt_ttl" default:"24h"`

	StripeWebhookSecret    string        `envconfig:"stripe_webhook_secret"`
	StripeWebhookTolerance time.Duration `envconfig:"stripe_webhook_tolerance" default:"5m"`
	PayPalWebhookID        string        `envconfig:"paypal_webhook_id"`
	PayPalCheckoutURL      string        `envconfig:"paypal_checkout_url" default:"https://www.sandbox.paypal.com/checkoutnow"`

	AMQPURL      string `envconfig:"amqp_url"`
	AMQPExchange string `envconfig:"amqp_exchange" default:"storefront.events"`
	RedisAddress string `envconfig:"redis_address"`

	MailFrom               string        `envconfig:"mail_from" default:"no-reply@storefront.local"`
	VerificationTTL        time.Duration `envconfig:"verification_ttl" default:"24h"`
	VerificationCooldown   time.Duration `envconfig:"verification_cooldown" default:"1m"`
	BcryptCost             int           `envconfig:"bcrypt_cost" default:"10"`
	RateLimitRPS           float64       `envconfig:"rate_limit_rps" default:"10"`
	RateLimitBurst         int           `envconfig:"rate_limit_burst" default:"20"`
	CORSOrigins            []string      `envconfig:"cors_origins" default:"*"`
	ExpireQuotesSchedule   string        `envconfig:"expire_quotes_schedule" default:"@every 15m"`
	OverdueInvoiceSchedule string        `envconfig:"overdue_invoice_schedule" default:"0 3 * * *"`
	Currency               string        `envconfig:"currency" default:"USD"`

	LogLevel string `envconfig:"log_level" default:"info"`
	LogFile  string `envconfig:"log_file"`
}

// Load reads an optional dotenv file and then STOREFRONT_* variables.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
			return nil, errors.Wrapf(err, "load %s", envFile)
		}
	}

	c := &Config{}
	if err := envconfig.Process(appID, c); err != nil {
		return nil, errors.Wrap(err, "parse environment")
	}
	c.Currency = strings.ToUpper(c.Currency)
	c.PublicURL = strings.TrimRight(c.PublicURL, "/")
	return c, nil
}
