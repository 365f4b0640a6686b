package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/wolfeidau/orgkeeper/internal/store"
)

const (
	applicationName = "orgkeeper"

	defaultMaxConns         = 20
	defaultMinConns         = 2
	defaultMaxConnLifetime  = time.Hour
	defaultMaxConnIdleTime  = 30 * time.Minute
	defaultStatementTimeout = 5 * time.Second
	defaultConnectTimeout   = 10 * time.Second
	healthCheckPeriod       = time.Minute
)

// PoolConfig sizes the connection pool shared by every store. Zero values take defaults.
type PoolConfig struct {
	ConnString      string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration

	// StatementTimeout bounds every statement on the server so a stuck query
	// fails the request as Unavailable instead of pinning a connection.
	// A statement_timeout in the connection string takes precedence.
	StatementTimeout time.Duration
}

func (c PoolConfig) withDefaults() PoolConfig {
	if c.MaxConns == 0 {
		c.MaxConns = defaultMaxConns
	}
	if c.MinConns == 0 {
		c.MinConns = min(defaultMinConns, c.MaxConns)
	}
	if c.MaxConnLifetime == 0 {
		c.MaxConnLifetime = defaultMaxConnLifetime
	}
	if c.MaxConnIdleTime == 0 {
		c.MaxConnIdleTime = defaultMaxConnIdleTime
	}
	if c.StatementTimeout == 0 {
		c.StatementTimeout = defaultStatementTimeout
	}
	return c
}

// pgxConfig builds the pgxpool configuration for c.
func (c PoolConfig) pgxConfig() (*pgxpool.Config, error) {
	if c.ConnString == "" {
		return nil, errors.New("postgres connection string is required")
	}

	c = c.withDefaults()
	switch {
	case c.MaxConns < 1:
		return nil, fmt.Errorf("max conns must be at least 1, got %d", c.MaxConns)
	case c.MinConns > c.MaxConns:
		return nil, fmt.Errorf("min conns %d exceeds max conns %d", c.MinConns, c.MaxConns)
	case c.StatementTimeout < 0:
		return nil, fmt.Errorf("statement timeout must not be negative, got %s", c.StatementTimeout)
	}

	cfg, err := pgxpool.ParseConfig(c.ConnString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}

	cfg.MaxConns = c.MaxConns
	cfg.MinConns = c.MinConns
	cfg.MaxConnLifetime = c.MaxConnLifetime
	cfg.MaxConnIdleTime = c.MaxConnIdleTime
	cfg.HealthCheckPeriod = healthCheckPeriod
	if cfg.ConnConfig.ConnectTimeout == 0 {
		cfg.ConnConfig.ConnectTimeout = defaultConnectTimeout
	}

	params := cfg.ConnConfig.RuntimeParams
	if _, ok := params["application_name"]; !ok {
		params["application_name"] = applicationName
	}
	if _, ok := params["statement_timeout"]; !ok {
		params["statement_timeout"] = strconv.FormatInt(c.StatementTimeout.Milliseconds(), 10)
	}

	return cfg, nil
}

// NewPool opens the shared pool and checks the database answers.
func NewPool(ctx context.Context, cfg PoolConfig) (*pgxpool.Pool, error) {
	pgxCfg, err := cfg.pgxConfig()
	if err != nil {
		return nil, fmt.Errorf("invalid pool config: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return pool, nil
}

// Config holds configuration for the PostgreSQL backend.
type Config struct {
	Pool PoolConfig

	// AutoMigrate runs pending migrations when the backend is opened.
	AutoMigrate bool
}

// Backend owns the shared connection pool and the stores built on it.
type Backend struct {
	pool   *pgxpool.Pool
	Stores store.Stores
}

// NewStores builds every store on one pool.
func NewStores(pool *pgxpool.Pool) store.Stores {
	return store.Stores{
		Organizations: NewOrganizationStore(pool),
		Memberships:   NewMembershipStore(pool),
		Invitations:   NewInvitationStore(pool),
		APIKeys:       NewAPIKeyStore(pool),
		Webhooks:      NewWebhookStore(pool),
	}
}

// Open connects to PostgreSQL, optionally migrates the schema and returns the stores.
func Open(ctx context.Context, cfg *Config) (*Backend, error) {
	if cfg == nil {
		return nil, fmt.Errorf("postgres config is required")
	}

	pool, err := NewPool(ctx, cfg.Pool)
	if err != nil {
		return nil, err
	}

	if cfg.AutoMigrate {
		if err := RunMigrations(ctx, pool); err != nil {
			pool.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	poolCfg := pool.Config()
	zerolog.Ctx(ctx).Info().
		Int32("max_conns", poolCfg.MaxConns).
		Str("statement_timeout", poolCfg.ConnConfig.RuntimeParams["statement_timeout"]).
		Bool("auto_migrate", cfg.AutoMigrate).
		Msg("PostgreSQL backend ready")

	return &Backend{
		pool:   pool,
		Stores: NewStores(pool),
	}, nil
}

// Ping verifies database connectivity.
func (b *Backend) Ping(ctx context.Context) error {
	return b.pool.Ping(ctx)
}

// Close releases the connection pool.
func (b *Backend) Close() {
	b.pool.Close()
}
