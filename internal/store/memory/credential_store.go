package memory

import (
	"context"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/wolfeidau/orgkeeper/internal/models"
	"github.com/wolfeidau/orgkeeper/internal/store"
)

// APIKeyStore implements store.APIKeyStore using in-memory storage.
type APIKeyStore struct {
	db *db
}

func cloneAPIKey(key *models.APIKey) *models.APIKey {
	clone := *key
	if key.ExpiresAt != nil {
		t := *key.ExpiresAt
		clone.ExpiresAt = &t
	}
	if key.LastUsedAt != nil {
		t := *key.LastUsedAt
		clone.LastUsedAt = &t
	}
	if key.RevokedAt != nil {
		t := *key.RevokedAt
		clone.RevokedAt = &t
	}
	return &clone
}

// Create stores a new API key.
func (s *APIKeyStore) Create(ctx context.Context, key *models.APIKey) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if _, exists := s.db.apiKeys[key.KeyID]; exists {
		return store.ErrAPIKeyAlreadyExists
	}
	if _, exists := s.db.apiKeyDigests[key.SecretDigest]; exists {
		return store.ErrAPIKeyAlreadyExists
	}
	if _, exists := s.db.organizations[key.OrgID]; !exists {
		return store.ErrOrganizationNotFound
	}

	s.db.apiKeys[key.KeyID] = cloneAPIKey(key)
	s.db.apiKeyDigests[key.SecretDigest] = key.KeyID

	return nil
}

// Get retrieves an API key by organization and ID.
func (s *APIKeyStore) Get(ctx context.Context, orgID, keyID uuid.UUID) (*models.APIKey, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	key, ok := s.db.apiKeys[keyID]
	if !ok || key.OrgID != orgID {
		return nil, store.ErrAPIKeyNotFound
	}

	return cloneAPIKey(key), nil
}

// GetByDigest retrieves an API key by secret digest.
func (s *APIKeyStore) GetByDigest(ctx context.Context, digest string) (*models.APIKey, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	id, ok := s.db.apiKeyDigests[digest]
	if !ok {
		return nil, store.ErrAPIKeyNotFound
	}

	return cloneAPIKey(s.db.apiKeys[id]), nil
}

// ListByOrganization returns all keys of an organization, newest first.
func (s *APIKeyStore) ListByOrganization(ctx context.Context, orgID uuid.UUID) ([]*models.APIKey, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	var result []*models.APIKey
	for _, key := range s.db.apiKeys {
		if key.OrgID == orgID {
			result = append(result, cloneAPIKey(key))
		}
	}

	slices.SortFunc(result, func(a, b *models.APIKey) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})

	return result, nil
}

// TouchLastUsed records a successful use of the key.
func (s *APIKeyStore) TouchLastUsed(ctx context.Context, keyID uuid.UUID, at time.Time, ip string) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	key, ok := s.db.apiKeys[keyID]
	if !ok {
		return store.ErrAPIKeyNotFound
	}

	key.LastUsedAt = &at
	key.LastUsedIP = ip
	return nil
}

// Revoke marks a key revoked.
func (s *APIKeyStore) Revoke(ctx context.Context, orgID, keyID uuid.UUID, at time.Time) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	key, ok := s.db.apiKeys[keyID]
	if !ok || key.OrgID != orgID {
		return store.ErrAPIKeyNotFound
	}
	if key.RevokedAt != nil {
		return store.ErrAPIKeyAlreadyRevoked
	}

	key.RevokedAt = &at
	return nil
}

// WebhookStore implements store.WebhookStore using in-memory storage.
type WebhookStore struct {
	db *db
}

func cloneWebhook(hook *models.Webhook) *models.Webhook {
	clone := *hook
	clone.Events = slices.Clone(hook.Events)
	return &clone
}

// Create stores a new webhook.
func (s *WebhookStore) Create(ctx context.Context, hook *models.Webhook) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if _, exists := s.db.organizations[hook.OrgID]; !exists {
		return store.ErrOrganizationNotFound
	}

	s.db.webhooks[hook.WebhookID] = cloneWebhook(hook)
	return nil
}

// Get retrieves a webhook by organization and ID.
func (s *WebhookStore) Get(ctx context.Context, orgID, webhookID uuid.UUID) (*models.Webhook, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	hook, ok := s.db.webhooks[webhookID]
	if !ok || hook.OrgID != orgID {
		return nil, store.ErrWebhookNotFound
	}

	return cloneWebhook(hook), nil
}

// ListByOrganization returns all webhooks of an organization, newest first.
func (s *WebhookStore) ListByOrganization(ctx context.Context, orgID uuid.UUID) ([]*models.Webhook, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	var result []*models.Webhook
	for _, hook := range s.db.webhooks {
		if hook.OrgID == orgID {
			result = append(result, cloneWebhook(hook))
		}
	}

	slices.SortFunc(result, func(a, b *models.Webhook) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})

	return result, nil
}

// Delete removes a webhook.
func (s *WebhookStore) Delete(ctx context.Context, orgID, webhookID uuid.UUID) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	hook, ok := s.db.webhooks[webhookID]
	if !ok || hook.OrgID != orgID {
		return store.ErrWebhookNotFound
	}

	delete(s.db.webhooks, webhookID)
	return nil
}
