package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/wolfeidau/orgkeeper/internal/models"
	"github.com/wolfeidau/orgkeeper/internal/store"
)

// APIKeyStore implements store.APIKeyStore using PostgreSQL.
type APIKeyStore struct {
	pool *pgxpool.Pool
}

// NewAPIKeyStore creates a new PostgreSQL-backed API key store.
func NewAPIKeyStore(pool *pgxpool.Pool) *APIKeyStore {
	return &APIKeyStore{
		pool: pool,
	}
}

const apiKeyColumns = `
	key_id, org_id, description, secret_digest, display_prefix, created_by,
	created_at, expires_at, last_used_at, last_used_ip, revoked_at`

func scanAPIKey(row pgx.Row) (*models.APIKey, error) {
	var key models.APIKey
	err := row.Scan(
		&key.KeyID,
		&key.OrgID,
		&key.Description,
		&key.SecretDigest,
		&key.DisplayPrefix,
		&key.CreatedBy,
		&key.CreatedAt,
		&key.ExpiresAt,
		&key.LastUsedAt,
		&key.LastUsedIP,
		&key.RevokedAt,
	)
	if err != nil {
		return nil, err
	}
	return &key, nil
}

// Create inserts a new API key.
func (s *APIKeyStore) Create(ctx context.Context, key *models.APIKey) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO api_keys (
			key_id, org_id, description, secret_digest, display_prefix, created_by,
			created_at, expires_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8
		)
	`,
		key.KeyID,
		key.OrgID,
		key.Description,
		key.SecretDigest,
		key.DisplayPrefix,
		key.CreatedBy,
		key.CreatedAt,
		key.ExpiresAt,
	)
	if err != nil {
		switch {
		case isUniqueViolation(err):
			return store.ErrAPIKeyAlreadyExists
		case isForeignKeyViolation(err):
			return store.ErrOrganizationNotFound
		}
		return fmt.Errorf("failed to create api key: %w", mapPostgresError(err))
	}

	zerolog.Ctx(ctx).Debug().
		Str("key_id", key.KeyID.String()).
		Str("org_id", key.OrgID.String()).
		Msg("Created API key")

	return nil
}

func (s *APIKeyStore) getWhere(ctx context.Context, where string, args ...any) (*models.APIKey, error) {
	key, err := scanAPIKey(s.pool.QueryRow(ctx, `SELECT `+apiKeyColumns+` FROM api_keys WHERE `+where, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrAPIKeyNotFound
		}
		return nil, fmt.Errorf("failed to get api key: %w", mapPostgresError(err))
	}
	return key, nil
}

// Get retrieves an API key by organization and ID.
func (s *APIKeyStore) Get(ctx context.Context, orgID, keyID uuid.UUID) (*models.APIKey, error) {
	return s.getWhere(ctx, `org_id = $1 AND key_id = $2`, orgID, keyID)
}

// GetByDigest retrieves an API key by secret digest, revoked keys included.
func (s *APIKeyStore) GetByDigest(ctx context.Context, digest string) (*models.APIKey, error) {
	return s.getWhere(ctx, `secret_digest = $1`, digest)
}

// ListByOrganization returns all keys of an organization, newest first.
func (s *APIKeyStore) ListByOrganization(ctx context.Context, orgID uuid.UUID) ([]*models.APIKey, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+apiKeyColumns+`
		FROM api_keys
		WHERE org_id = $1
		ORDER BY created_at DESC
	`, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list api keys: %w", mapPostgresError(err))
	}
	defer rows.Close()

	var keys []*models.APIKey
	for rows.Next() {
		key, err := scanAPIKey(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan api key: %w", err)
		}
		keys = append(keys, key)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating api keys: %w", err)
	}

	return keys, nil
}

// TouchLastUsed records a successful use of the key.
func (s *APIKeyStore) TouchLastUsed(ctx context.Context, keyID uuid.UUID, at time.Time, ip string) error {
	result, err := s.pool.Exec(ctx, `
		UPDATE api_keys SET last_used_at = $2, last_used_ip = $3
		WHERE key_id = $1
	`, keyID, at, ip)
	if err != nil {
		return fmt.Errorf("failed to update api key last used: %w", mapPostgresError(err))
	}
	if result.RowsAffected() == 0 {
		return store.ErrAPIKeyNotFound
	}
	return nil
}

// Revoke marks a key revoked. A second revoke reports ErrAPIKeyAlreadyRevoked.
func (s *APIKeyStore) Revoke(ctx context.Context, orgID, keyID uuid.UUID, at time.Time) error {
	result, err := s.pool.Exec(ctx, `
		UPDATE api_keys SET revoked_at = $3
		WHERE org_id = $1 AND key_id = $2 AND revoked_at IS NULL
	`, orgID, keyID, at)
	if err != nil {
		return fmt.Errorf("failed to revoke api key: %w", mapPostgresError(err))
	}

	if result.RowsAffected() == 0 {
		if _, err := s.Get(ctx, orgID, keyID); err != nil {
			return err
		}
		return store.ErrAPIKeyAlreadyRevoked
	}

	zerolog.Ctx(ctx).Debug().
		Str("key_id", keyID.String()).
		Msg("Revoked API key")

	return nil
}

// WebhookStore implements store.WebhookStore using PostgreSQL.
type WebhookStore struct {
	pool *pgxpool.Pool
}

// NewWebhookStore creates a new PostgreSQL-backed webhook store.
func NewWebhookStore(pool *pgxpool.Pool) *WebhookStore {
	return &WebhookStore{
		pool: pool,
	}
}

const webhookColumns = `webhook_id, org_id, url, events, secret, created_by, created_at`

func scanWebhook(row pgx.Row) (*models.Webhook, error) {
	var (
		hook   models.Webhook
		events []string
	)
	err := row.Scan(
		&hook.WebhookID,
		&hook.OrgID,
		&hook.URL,
		&events,
		&hook.Secret,
		&hook.CreatedBy,
		&hook.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	hook.Events = make([]models.EventType, len(events))
	for i, e := range events {
		hook.Events[i] = models.EventType(e)
	}
	return &hook, nil
}

// Create inserts a new webhook.
func (s *WebhookStore) Create(ctx context.Context, hook *models.Webhook) error {
	events := make([]string, len(hook.Events))
	for i, e := range hook.Events {
		events[i] = string(e)
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO webhooks (webhook_id, org_id, url, events, secret, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`,
		hook.WebhookID,
		hook.OrgID,
		hook.URL,
		events,
		hook.Secret,
		hook.CreatedBy,
		hook.CreatedAt,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return store.ErrOrganizationNotFound
		}
		return fmt.Errorf("failed to create webhook: %w", mapPostgresError(err))
	}

	return nil
}

// Get retrieves a webhook by organization and ID.
func (s *WebhookStore) Get(ctx context.Context, orgID, webhookID uuid.UUID) (*models.Webhook, error) {
	hook, err := scanWebhook(s.pool.QueryRow(ctx, `
		SELECT `+webhookColumns+` FROM webhooks WHERE org_id = $1 AND webhook_id = $2
	`, orgID, webhookID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrWebhookNotFound
		}
		return nil, fmt.Errorf("failed to get webhook: %w", mapPostgresError(err))
	}
	return hook, nil
}

// ListByOrganization returns all webhooks of an organization, newest first.
func (s *WebhookStore) ListByOrganization(ctx context.Context, orgID uuid.UUID) ([]*models.Webhook, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+webhookColumns+`
		FROM webhooks
		WHERE org_id = $1
		ORDER BY created_at DESC
	`, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list webhooks: %w", mapPostgresError(err))
	}
	defer rows.Close()

	var hooks []*models.Webhook
	for rows.Next() {
		hook, err := scanWebhook(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan webhook: %w", err)
		}
		hooks = append(hooks, hook)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating webhooks: %w", err)
	}

	return hooks, nil
}

// Delete removes a webhook.
func (s *WebhookStore) Delete(ctx context.Context, orgID, webhookID uuid.UUID) error {
	result, err := s.pool.Exec(ctx, `
		DELETE FROM webhooks WHERE org_id = $1 AND webhook_id = $2
	`, orgID, webhookID)
	if err != nil {
		return fmt.Errorf("failed to delete webhook: %w", mapPostgresError(err))
	}
	if result.RowsAffected() == 0 {
		return store.ErrWebhookNotFound
	}
	return nil
}
