// Package config loads service settings from the environment and an optional
// .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port                 string        `mapstructure:"PORT"`
	PostgresURL          string        `mapstructure:"POSTGRES_URL"`
	RedisAddr            string        `mapstructure:"REDIS_ADDR"`
	RedisPassword        string        `mapstructure:"REDIS_PASSWORD"`
	KafkaBrokers         string        `mapstructure:"KAFKA_BROKERS"`
	PayPalClientID       string        `mapstructure:"PAYPAL_CLIENT_ID"`
	PayPalSecret         string        `mapstructure:"PAYPAL_SECRET"`
	PayPalMode           string        `mapstructure:"PAYPAL_MODE"`
	PayPalReturnURL      string        `mapstructure:"PAYPAL_RETURN_URL"`
	PayPalCancelURL      string        `mapstructure:"PAYPAL_CANCEL_URL"`
	Currency             string        `mapstructure:"CURRENCY"`
	CheckoutTTL          time.Duration `mapstructure:"CHECKOUT_TTL"`
	EmailAPIURL          string        `mapstructure:"EMAIL_API_URL"`
	EmailServiceID       string        `mapstructure:"EMAIL_SERVICE_ID"`
	EmailPublicKey       string        `mapstructure:"EMAIL_PUBLIC_KEY"`
	EmailTemplateOrder   string        `mapstructure:"EMAIL_TEMPLATE_ORDER"`
	EmailTemplateCancel  string        `mapstructure:"EMAIL_TEMPLATE_CANCELLED"`
	EmailTemplateContact string        `mapstructure:"EMAIL_TEMPLATE_CONTACT"`
	EmailTemplateInvite  string        `mapstructure:"EMAIL_TEMPLATE_INVITE"`
	JWTSecret            string        `mapstructure:"JWT_SECRET"`
	JWTTTL               time.Duration `mapstructure:"JWT_TTL"`
	AdminBootstrapEmail  string        `mapstructure:"ADMIN_BOOTSTRAP_EMAIL"`
	AdminBootstrapPass   string        `mapstructure:"ADMIN_BOOTSTRAP_PASSWORD"`
	ContactInbox         string        `mapstructure:"CONTACT_INBOX"`
	RateLimitPerMinute   int           `mapstructure:"RATE_LIMIT_PER_MINUTE"`
	NotifyTimeout        time.Duration `mapstructure:"NOTIFY_TIMEOUT"`
	StorefrontServiceURL string        `mapstructure:"STOREFRONT_SERVICE_URL"`
	AdminServiceURL      string        `mapstructure:"ADMIN_SERVICE_URL"`
	OTLPEndpoint         string        `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
}

var defaults = map[string]any{
	"PORT":                        "8080",
	"POSTGRES_URL":                "",
	"REDIS_ADDR":                  "localhost:6379",
	"REDIS_PASSWORD":              "",
	"KAFKA_BROKERS":               "",
	"PAYPAL_CLIENT_ID":            "",
	"PAYPAL_SECRET":               "",
	"PAYPAL_MODE":                 "sandbox",
	"PAYPAL_RETURN_URL":           "http://localhost:3000/checkout/complete",
	"PAYPAL_CANCEL_URL":           "http://localhost:3000/checkout/cancel",
	"CURRENCY":                    "USD",
	"CHECKOUT_TTL":                30 * time.Minute,
	"EMAIL_API_URL":               "https://api.emailjs.com",
	"EMAIL_SERVICE_ID":            "",
	"EMAIL_PUBLIC_KEY":            "",
	"EMAIL_TEMPLATE_ORDER":        "template_order_confirmation",
	"EMAIL_TEMPLATE_CANCELLED":    "template_order_cancelled",
	"EMAIL_TEMPLATE_CONTACT":      "template_contact_relay",
	"EMAIL_TEMPLATE_INVITE":       "template_staff_invitation",
	"JWT_SECRET":                  "",
	"JWT_TTL":                     12 * time.Hour,
	"ADMIN_BOOTSTRAP_EMAIL":       "",
	"ADMIN_BOOTSTRAP_PASSWORD":    "",
	"CONTACT_INBOX":               "",
	"RATE_LIMIT_PER_MINUTE":       10,
	"NOTIFY_TIMEOUT":              3 * time.Second,
	"STOREFRONT_SERVICE_URL":      "",
	"ADMIN_SERVICE_URL":           "",
	"OTEL_EXPORTER_OTLP_ENDPOINT": "localhost:4317",
}

// Load reads configuration from the process environment, layered over an
// optional .env file in the working directory and the built-in defaults.
func Load() (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read .env: %w", err)
		}
	}
	v.AutomaticEnv()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return cfg, nil
}

// Brokers splits the comma separated KAFKA_BROKERS value.
func (c *Config) Brokers() []string {
	if c.KafkaBrokers == "" {
		return nil
	}
	return strings.Split(c.KafkaBrokers, ",")
}

// Require returns an error naming an empty required value, if any.
func Require(values map[string]string) error {
	for name, value := range values {
		if value == "" {
			return fmt.Errorf("%s environment variable is required", name)
		}
	}
	return nil
}
