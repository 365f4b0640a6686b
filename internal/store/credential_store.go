package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/wolfeidau/orgkeeper/internal/models"
)

// Sentinel errors for credential store operations
var (
	ErrAPIKeyNotFound       = errors.New("api key not found")
	ErrAPIKeyAlreadyExists  = errors.New("api key already exists")
	ErrAPIKeyAlreadyRevoked = errors.New("api key already revoked")
	ErrWebhookNotFound      = errors.New("webhook not found")
)

// APIKeyStore defines the interface for API key storage operations.
// Keys are looked up by secret digest; raw secrets are never stored.
type APIKeyStore interface {
	// Create stores a new API key.
	// Returns ErrAPIKeyAlreadyExists if the ID or digest is already taken.
	Create(ctx context.Context, key *models.APIKey) error

	// Get retrieves an API key by organization and ID.
	// Returns ErrAPIKeyNotFound if it doesn't exist in the organization.
	Get(ctx context.Context, orgID, keyID uuid.UUID) (*models.APIKey, error)

	// GetByDigest retrieves an API key by its secret digest, including revoked keys.
	// Returns ErrAPIKeyNotFound if no key matches.
	GetByDigest(ctx context.Context, digest string) (*models.APIKey, error)

	// ListByOrganization returns all keys of an organization, newest first.
	ListByOrganization(ctx context.Context, orgID uuid.UUID) ([]*models.APIKey, error)

	// TouchLastUsed records a successful use of the key.
	TouchLastUsed(ctx context.Context, keyID uuid.UUID, at time.Time, ip string) error

	// Revoke marks a key revoked.
	// Returns ErrAPIKeyNotFound if it doesn't exist in the organization,
	// ErrAPIKeyAlreadyRevoked if it was already revoked.
	Revoke(ctx context.Context, orgID, keyID uuid.UUID, at time.Time) error
}

// WebhookStore defines the interface for webhook storage operations.
type WebhookStore interface {
	// Create stores a new webhook.
	Create(ctx context.Context, hook *models.Webhook) error

	// Get retrieves a webhook by organization and ID.
	// Returns ErrWebhookNotFound if it doesn't exist in the organization.
	Get(ctx context.Context, orgID, webhookID uuid.UUID) (*models.Webhook, error)

	// ListByOrganization returns all webhooks of an organization, newest first.
	ListByOrganization(ctx context.Context, orgID uuid.UUID) ([]*models.Webhook, error)

	// Delete removes a webhook.
	// Returns ErrWebhookNotFound if it doesn't exist in the organization.
	Delete(ctx context.Context, orgID, webhookID uuid.UUID) error
}
