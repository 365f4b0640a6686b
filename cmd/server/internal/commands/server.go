package commands

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"connectrpc.com/connect"
	connectcors "connectrpc.com/cors"
	"connectrpc.com/otelconnect"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	orgkeeperv1 "github.com/wolfeidau/orgkeeper/api/orgkeeper/v1"
	"github.com/wolfeidau/orgkeeper/internal/auth"
	"github.com/wolfeidau/orgkeeper/internal/billing"
	"github.com/wolfeidau/orgkeeper/internal/credential"
	"github.com/wolfeidau/orgkeeper/internal/entitlement"
	httpmiddleware "github.com/wolfeidau/orgkeeper/internal/http"
	"github.com/wolfeidau/orgkeeper/internal/invitation"
	"github.com/wolfeidau/orgkeeper/internal/logger"
	"github.com/wolfeidau/orgkeeper/internal/notify"
	"github.com/wolfeidau/orgkeeper/internal/organization"
	"github.com/wolfeidau/orgkeeper/internal/orgctx"
	"github.com/wolfeidau/orgkeeper/internal/server"
	"github.com/wolfeidau/orgkeeper/internal/store"
	memorystore "github.com/wolfeidau/orgkeeper/internal/store/memory"
	postgresstore "github.com/wolfeidau/orgkeeper/internal/store/postgres"
	"github.com/wolfeidau/orgkeeper/internal/telemetry"
)

type ServerCmd struct {
	// Server configuration
	Listen string `help:"HTTP server listen address" default:"0.0.0.0:8443" env:"ORGKEEPER_LISTEN"`
	Cert   string `help:"path to TLS cert file" default:"" env:"ORGKEEPER_TLS_CERT"`
	Key    string `help:"path to TLS key file" default:"" env:"ORGKEEPER_TLS_KEY"`

	// CORS configuration
	CORSOrigins []string `help:"allowed CORS origins for API requests" default:"https://localhost" env:"ORGKEEPER_CORS_ORIGINS"`

	// Authentication
	JWTPublicKey      string `help:"PEM encoded ECDSA public key used to verify bearer tokens" default:"" env:"ORGKEEPER_JWT_PUBLIC_KEY"`
	JWTPublicKeyFile  string `help:"path to the PEM encoded JWT public key" default:"" env:"ORGKEEPER_JWT_PUBLIC_KEY_FILE"`
	TrustProxyHeaders bool   `help:"trust X-Forwarded-For and X-Real-IP for client addresses" default:"false" env:"ORGKEEPER_TRUST_PROXY_HEADERS"`

	// Telemetry
	Tracing     bool    `help:"enable tracing and OTLP metrics export" default:"false" env:"ORGKEEPER_TRACING"`
	SampleRatio float64 `help:"fraction of traces sampled" default:"0.1" env:"ORGKEEPER_TRACE_SAMPLE_RATIO"`

	// Store configuration
	StoreType     string             `help:"store type (memory or postgres)" default:"memory" env:"ORGKEEPER_STORE_TYPE" enum:"memory,postgres"`
	PostgresStore PostgresStoreFlags `embed:"" prefix:"postgres-"`

	// Invitations
	InvitationTTL time.Duration `help:"lifetime of new invitations" default:"168h" env:"ORGKEEPER_INVITATION_TTL"`
	AcceptURL     string        `help:"page that accepts invitations, the token is added as a query parameter" default:"https://localhost/invitations/accept" env:"ORGKEEPER_ACCEPT_URL"`

	Billing BillingFlags `embed:"" prefix:"billing-"`
	SMTP    SMTPFlags    `embed:"" prefix:"smtp-"`
}

func (c *ServerCmd) Run(globals *Globals) error {
	log := logger.Setup(globals.Debug)

	ctx, stop := signal.NotifyContext(log.WithContext(context.Background()), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info().Str("version", globals.Version).Bool("debug", globals.Debug).Msg("Starting server")

	publicKey, err := readKey(c.JWTPublicKey, c.JWTPublicKeyFile)
	if err != nil {
		return err
	}
	if err := c.Billing.Validate(); err != nil {
		return err
	}

	// Setup telemetry if enabled
	metrics := telemetry.NewNoopMetrics()
	var interceptors []connect.Interceptor
	if c.Tracing {
		log.Info().Float64("sample_ratio", c.SampleRatio).Msg("Tracing is enabled")
		providers, err := telemetry.InitTelemetry(ctx, telemetry.Config{
			ServiceName: "orgkeeper-server",
			Version:     globals.Version,
			SampleRatio: c.SampleRatio,
		})
		if err != nil {
			log.Warn().Err(err).Msg("Failed to initialize telemetry, continuing without metrics")
		} else {
			metrics = telemetry.NewMetrics(providers.MeterProvider)
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := providers.Shutdown(shutdownCtx); err != nil {
					log.Error().Err(err).Msg("Failed to shutdown telemetry")
				}
			}()
		}
		otelInterceptor, err := otelconnect.NewInterceptor()
		if err != nil {
			return fmt.Errorf("failed to create OTEL interceptor: %w", err)
		}
		interceptors = append(interceptors, otelInterceptor)
	}

	stores, closeStores, err := c.openStores(ctx, log)
	if err != nil {
		return err
	}
	defer closeStores()

	provider, closeProvider, err := c.openBillingProvider(ctx, log)
	if err != nil {
		return err
	}
	defer closeProvider()

	mailer, err := c.mailer(log)
	if err != nil {
		return err
	}
	dispatcher := notify.NewDispatcher(mailer, c.AcceptURL, 30*time.Second, metrics)

	resolver := orgctx.NewResolver(stores.Organizations, stores.Memberships, metrics)
	entitlements := entitlement.NewService(provider, metrics, entitlement.Config{
		PaidProductID: c.Billing.PaidProductID,
		Timeout:       c.Billing.EntitlementTimeout,
	})
	if c.Billing.PaidProductID == "" {
		log.Warn().Msg("No paid product configured (--billing-paid-product-id), every organization resolves to the free tier")
	}

	organizations := organization.NewService(stores, resolver, entitlements, nil)
	if cache, ok := provider.(*billing.CachingProvider); ok {
		organizations.WithBillingCache(cache)
	}

	srv := server.NewServer(server.Services{
		Organizations: organizations,
		Invitations:   invitation.NewService(stores, resolver, dispatcher, metrics, invitation.Config{TTL: c.InvitationTTL}),
		Credentials:   credential.NewIssuer(stores, resolver, entitlements, metrics, nil),
		Billing:       billing.NewService(provider, resolver),
	})

	authFunc, err := auth.NewJWTAuthFunc(publicKey, orgkeeperv1.PublicProcedures...)
	if err != nil {
		return fmt.Errorf("failed to configure authentication: %w", err)
	}

	handler := withCORS(c.CORSOrigins, srv.Handler(log, authFunc,
		httpmiddleware.ClientIPConfig{TrustProxyHeaders: c.TrustProxyHeaders},
		interceptors...))

	httpServer := configureHTTPServer(c.Listen, handler)
	httpServer.BaseContext = func(_ net.Listener) context.Context { return log.WithContext(context.Background()) }

	errCh := make(chan error, 1)
	go func() {
		errCh <- c.serve(log, httpServer)
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		log.Info().Msg("Shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Failed to shutdown HTTP server")
	}
	if err := dispatcher.Wait(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("Pending invitation emails were not delivered before shutdown")
	}

	return nil
}

func (c *ServerCmd) serve(log zerolog.Logger, httpServer *http.Server) error {
	if c.Cert == "" || c.Key == "" {
		log.Warn().Str("addr", c.Listen).Msg("No TLS certificate configured (--cert and --key), serving plain HTTP")
		return httpServer.ListenAndServe()
	}
	if _, err := os.Stat(c.Cert); err != nil {
		return fmt.Errorf("TLS certificate not found at %s: %w", c.Cert, err)
	}
	if _, err := os.Stat(c.Key); err != nil {
		return fmt.Errorf("TLS key not found at %s: %w", c.Key, err)
	}

	log.Info().Str("addr", c.Listen).Msg("Starting HTTPS server")
	return httpServer.ListenAndServeTLS(c.Cert, c.Key)
}

func (c *ServerCmd) openStores(ctx context.Context, log zerolog.Logger) (store.Stores, func(), error) {
	switch c.StoreType {
	case "postgres":
		if err := c.PostgresStore.Validate(); err != nil {
			return store.Stores{}, nil, err
		}
		backend, err := postgresstore.Open(ctx, &postgresstore.Config{
			Pool:        c.PostgresStore.poolConfig(),
			AutoMigrate: c.PostgresStore.AutoMigrate,
		})
		if err != nil {
			return store.Stores{}, nil, err
		}
		log.Info().Msg("Using PostgreSQL stores with shared connection pool")
		return backend.Stores, backend.Close, nil

	default:
		log.Info().Msg("Using in-memory stores")
		return memorystore.NewStores(), func() {}, nil
	}
}

func (c *ServerCmd) openBillingProvider(ctx context.Context, log zerolog.Logger) (billing.Provider, func(), error) {
	var provider billing.Provider

	switch {
	case c.Billing.ProviderURL != "":
		httpProvider, err := billing.NewHTTPProvider(ctx, billing.HTTPProviderConfig{
			BaseURL:      c.Billing.ProviderURL,
			TokenURL:     c.Billing.TokenURL,
			ClientID:     c.Billing.ClientID,
			ClientSecret: c.Billing.ClientSecret,
			Scopes:       c.Billing.Scopes,
			CacheDir:     c.Billing.HTTPCacheDir,
			Timeout:      c.Billing.Timeout,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create billing provider: %w", err)
		}
		log.Info().Str("url", c.Billing.ProviderURL).Msg("Using HTTP billing provider")
		provider = httpProvider

	case c.Billing.StaticAccounts != "":
		accounts, err := billing.LoadStaticAccounts(c.Billing.StaticAccounts)
		if err != nil {
			return nil, nil, err
		}
		log.Info().Int("accounts", len(accounts)).Msg("Using static billing accounts")
		provider = billing.NewStaticProvider(accounts)

	default:
		log.Warn().Msg("No billing provider configured, billing accounts will not be found")
		provider = billing.NewStaticProvider(nil)
	}

	if c.Billing.RedisURL == "" {
		return provider, func() {}, nil
	}

	redisClient, err := billing.NewRedisClient(ctx, c.Billing.RedisURL)
	if err != nil {
		return nil, nil, err
	}
	log.Info().Dur("ttl", c.Billing.CacheTTL).Msg("Caching billing provider reads in Redis")

	return billing.NewCachingProvider(provider, redisClient, c.Billing.CacheTTL), func() {
		if err := redisClient.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close redis client")
		}
	}, nil
}

func (c *ServerCmd) mailer(log zerolog.Logger) (notify.Mailer, error) {
	if c.SMTP.Host == "" {
		log.Warn().Msg("No SMTP host configured, invitation emails will be logged")
		return notify.LogMailer{}, nil
	}
	return notify.NewSMTPMailer(notify.SMTPConfig{
		Host:     c.SMTP.Host,
		Port:     c.SMTP.Port,
		Username: c.SMTP.Username,
		Password: c.SMTP.Password,
		From:     c.SMTP.From,
	})
}

// withCORS adds CORS support to a Connect HTTP handler.
func withCORS(allowedOrigins []string, h http.Handler) http.Handler {
	middleware := cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: connectcors.AllowedMethods(),
		AllowedHeaders: append(connectcors.AllowedHeaders(), "Authorization"),
		ExposedHeaders: append(connectcors.ExposedHeaders(), orgkeeperv1.ErrorReasonHeader),
	})
	return middleware.Handler(h)
}
