package commands

import (
	"errors"
	"fmt"
	"os"
	"time"

	postgresstore "github.com/wolfeidau/orgkeeper/internal/store/postgres"
)

type PostgresStoreFlags struct {
	ConnString string `help:"PostgreSQL connection string" env:"POSTGRES_CONNECTION_STRING"`

	MaxConns         int32         `help:"maximum number of connections in pool" default:"20"`
	MinConns         int32         `help:"minimum number of connections in pool" default:"2"`
	MaxConnLifetime  time.Duration `help:"maximum connection lifetime" default:"1h"`
	MaxConnIdleTime  time.Duration `help:"maximum connection idle time" default:"30m"`
	StatementTimeout time.Duration `help:"server-side limit on each statement" default:"5s" env:"ORGKEEPER_POSTGRES_STATEMENT_TIMEOUT"`

	AutoMigrate bool `help:"run database migrations on startup" default:"false" env:"ORGKEEPER_POSTGRES_AUTO_MIGRATE"`
}

func (s *PostgresStoreFlags) Validate() error {
	if s.ConnString == "" {
		return errors.New("PostgreSQL connection string is required (--postgres-conn-string or POSTGRES_CONNECTION_STRING)")
	}
	if s.MinConns > s.MaxConns {
		return errors.New("--postgres-min-conns must not exceed --postgres-max-conns")
	}
	if s.StatementTimeout < 0 {
		return errors.New("--postgres-statement-timeout must not be negative")
	}
	return nil
}

// BillingFlags configure the payment provider, its cache and entitlement resolution.
type BillingFlags struct {
	PaidProductID      string        `help:"product id that grants the pro tier" default:"" env:"ORGKEEPER_PAID_PRODUCT_ID"`
	EntitlementTimeout time.Duration `help:"time budget for entitlement lookups" default:"3s" env:"ORGKEEPER_ENTITLEMENT_TIMEOUT"`

	ProviderURL  string        `help:"payment provider API base URL" default:"" env:"ORGKEEPER_BILLING_PROVIDER_URL"`
	TokenURL     string        `help:"OAuth2 token URL for the payment provider" default:"" env:"ORGKEEPER_BILLING_TOKEN_URL"`
	ClientID     string        `help:"OAuth2 client ID for the payment provider" default:"" env:"ORGKEEPER_BILLING_CLIENT_ID"`
	ClientSecret string        `help:"OAuth2 client secret for the payment provider" default:"" env:"ORGKEEPER_BILLING_CLIENT_SECRET"`
	Scopes       []string      `help:"OAuth2 scopes for the payment provider" env:"ORGKEEPER_BILLING_SCOPES"`
	HTTPCacheDir string        `help:"directory for the provider HTTP cache, empty keeps it in memory" default:"" env:"ORGKEEPER_BILLING_HTTP_CACHE_DIR"`
	Timeout      time.Duration `help:"payment provider request timeout" default:"10s" env:"ORGKEEPER_BILLING_TIMEOUT"`

	StaticAccounts string `help:"YAML file of billing accounts served instead of a provider" default:"" env:"ORGKEEPER_BILLING_STATIC_ACCOUNTS"`

	RedisURL string        `help:"Redis URL for caching provider reads" default:"" env:"ORGKEEPER_REDIS_URL"`
	CacheTTL time.Duration `help:"TTL of cached provider reads" default:"30s" env:"ORGKEEPER_BILLING_CACHE_TTL"`
}

func (b *BillingFlags) Validate() error {
	if b.ProviderURL != "" && b.StaticAccounts != "" {
		return errors.New("--billing-provider-url and --billing-static-accounts are mutually exclusive")
	}
	if b.ClientID != "" && b.TokenURL == "" {
		return errors.New("--billing-token-url is required with --billing-client-id")
	}
	return nil
}

// SMTPFlags configure invitation email delivery. Without a host emails are logged.
type SMTPFlags struct {
	Host     string `help:"SMTP server host" default:"" env:"ORGKEEPER_SMTP_HOST"`
	Port     int    `help:"SMTP server port" default:"587" env:"ORGKEEPER_SMTP_PORT"`
	Username string `help:"SMTP username" default:"" env:"ORGKEEPER_SMTP_USERNAME"`
	Password string `help:"SMTP password" default:"" env:"ORGKEEPER_SMTP_PASSWORD"`
	From     string `help:"sender address of invitation emails" default:"" env:"ORGKEEPER_SMTP_FROM"`
}

// readKey returns the PEM from value, or the contents of file when value is empty.
func readKey(value, file string) (string, error) {
	if value != "" {
		return value, nil
	}
	if file == "" {
		return "", errors.New("a JWT public key is required (--jwt-public-key or --jwt-public-key-file)")
	}
	data, err := os.ReadFile(file)
	if err != nil {
		return "", fmt.Errorf("failed to read JWT public key: %w", err)
	}
	return string(data), nil
}

func (s *PostgresStoreFlags) poolConfig() postgresstore.PoolConfig {
	return postgresstore.PoolConfig{
		ConnString:       s.ConnString,
		MaxConns:         s.MaxConns,
		MinConns:         s.MinConns,
		MaxConnLifetime:  s.MaxConnLifetime,
		MaxConnIdleTime:  s.MaxConnIdleTime,
		StatementTimeout: s.StatementTimeout,
	}
}
