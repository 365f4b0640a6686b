package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/orgkeeper/internal/models"
	"github.com/wolfeidau/orgkeeper/internal/store"
)

func TestAPIKeyStore(t *testing.T) {
	ctx := context.Background()
	stores := NewStores()
	org, owner := seedOrg(t, stores, "acme")
	other, _ := seedOrg(t, stores, "globex")
	now := time.Now()

	key := &models.APIKey{
		KeyID:         newID(t),
		OrgID:         org.OrgID,
		Description:   "ci pipeline",
		SecretDigest:  "digest-1",
		DisplayPrefix: "okk_abc123",
		CreatedBy:     owner.ActorID,
		CreatedAt:     now,
	}
	require.NoError(t, stores.APIKeys.Create(ctx, key))

	t.Run("duplicate digest is rejected", func(t *testing.T) {
		dup := *key
		dup.KeyID = newID(t)
		require.ErrorIs(t, stores.APIKeys.Create(ctx, &dup), store.ErrAPIKeyAlreadyExists)
	})

	t.Run("lookup by digest", func(t *testing.T) {
		got, err := stores.APIKeys.GetByDigest(ctx, "digest-1")
		require.NoError(t, err)
		require.Equal(t, key.KeyID, got.KeyID)

		_, err = stores.APIKeys.GetByDigest(ctx, "unknown")
		require.ErrorIs(t, err, store.ErrAPIKeyNotFound)
	})

	t.Run("keys are scoped to their organization", func(t *testing.T) {
		_, err := stores.APIKeys.Get(ctx, other.OrgID, key.KeyID)
		require.ErrorIs(t, err, store.ErrAPIKeyNotFound)

		require.ErrorIs(t, stores.APIKeys.Revoke(ctx, other.OrgID, key.KeyID, now), store.ErrAPIKeyNotFound)
	})

	t.Run("touch last used", func(t *testing.T) {
		usedAt := now.Add(time.Minute)
		require.NoError(t, stores.APIKeys.TouchLastUsed(ctx, key.KeyID, usedAt, "10.0.0.1"))

		got, err := stores.APIKeys.Get(ctx, org.OrgID, key.KeyID)
		require.NoError(t, err)
		require.NotNil(t, got.LastUsedAt)
		require.True(t, usedAt.Equal(*got.LastUsedAt))
		require.Equal(t, "10.0.0.1", got.LastUsedIP)
	})

	t.Run("revoke once", func(t *testing.T) {
		require.NoError(t, stores.APIKeys.Revoke(ctx, org.OrgID, key.KeyID, now))
		require.ErrorIs(t, stores.APIKeys.Revoke(ctx, org.OrgID, key.KeyID, now), store.ErrAPIKeyAlreadyRevoked)

		keys, err := stores.APIKeys.ListByOrganization(ctx, org.OrgID)
		require.NoError(t, err)
		require.Len(t, keys, 1)
		require.True(t, keys[0].IsRevoked())
	})
}

func TestWebhookStore(t *testing.T) {
	ctx := context.Background()
	stores := NewStores()
	org, _ := seedOrg(t, stores, "acme")
	other, _ := seedOrg(t, stores, "globex")

	hook := &models.Webhook{
		WebhookID: newID(t),
		OrgID:     org.OrgID,
		URL:       "https://example.com/hook",
		Events:    []models.EventType{models.EventContactCreated, models.EventContactDeleted},
		Secret:    "whsec_test",
		CreatedAt: time.Now(),
	}
	require.NoError(t, stores.Webhooks.Create(ctx, hook))

	got, err := stores.Webhooks.Get(ctx, org.OrgID, hook.WebhookID)
	require.NoError(t, err)
	require.Equal(t, hook.Events, got.Events)

	// Mutating the returned copy does not affect the store
	got.Events[0] = models.EventMemberAdded
	again, err := stores.Webhooks.Get(ctx, org.OrgID, hook.WebhookID)
	require.NoError(t, err)
	require.Equal(t, models.EventContactCreated, again.Events[0])

	_, err = stores.Webhooks.Get(ctx, other.OrgID, hook.WebhookID)
	require.ErrorIs(t, err, store.ErrWebhookNotFound)

	require.NoError(t, stores.Webhooks.Delete(ctx, org.OrgID, hook.WebhookID))
	require.ErrorIs(t, stores.Webhooks.Delete(ctx, org.OrgID, hook.WebhookID), store.ErrWebhookNotFound)
}
