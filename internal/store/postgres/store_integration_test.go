//go:build integration

package postgres

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/wolfeidau/orgkeeper/internal/models"
	"github.com/wolfeidau/orgkeeper/internal/store"
)

func setupPostgres(t *testing.T) *Backend {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:18-alpine",
		tcpostgres.WithDatabase("orgkeeper"),
		tcpostgres.WithUsername("test"),
		tcpostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		t.Skipf("failed to start postgres container: %v", err)
	}
	t.Cleanup(func() {
		cleanupCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		_ = container.Terminate(cleanupCtx)
	})

	connString, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	backend, err := Open(ctx, &Config{
		Pool:        PoolConfig{ConnString: connString},
		AutoMigrate: true,
	})
	require.NoError(t, err)
	t.Cleanup(backend.Close)

	// A second run finds every migration applied.
	require.NoError(t, RunMigrations(ctx, backend.pool))

	return backend
}

func now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

func seedOrg(t *testing.T, stores store.Stores, slug string) (*models.Organization, *models.Membership) {
	t.Helper()
	ts := now()
	org := &models.Organization{
		OrgID:        uuid.Must(uuid.NewV7()),
		Slug:         slug,
		Name:         slug,
		OwnerActorID: uuid.Must(uuid.NewV7()),
		CreatedAt:    ts,
		UpdatedAt:    ts,
	}
	owner := &models.Membership{
		OrgID:     org.OrgID,
		ActorID:   org.OwnerActorID,
		Email:     "owner@" + slug + ".dev",
		Role:      models.RoleOwner,
		CreatedAt: ts,
	}
	require.NoError(t, stores.Organizations.Create(context.Background(), org, owner))
	return org, owner
}

func pendingInvitation(org *models.Organization, email, digest string) *models.Invitation {
	ts := now()
	return &models.Invitation{
		InvitationID: uuid.Must(uuid.NewV7()),
		OrgID:        org.OrgID,
		Email:        email,
		Role:         models.RoleMember,
		TokenDigest:  digest,
		Status:       models.InvitationPending,
		InvitedBy:    org.OwnerActorID,
		CreatedAt:    ts,
		ExpiresAt:    ts.Add(7 * 24 * time.Hour),
	}
}

func TestPostgresStores(t *testing.T) {
	backend := setupPostgres(t)
	stores := backend.Stores
	ctx := context.Background()

	t.Run("organization with owner", func(t *testing.T) {
		org, owner := seedOrg(t, stores, "acme")

		got, err := stores.Organizations.GetBySlug(ctx, "acme")
		require.NoError(t, err)
		require.Equal(t, org.OrgID, got.OrgID)
		require.True(t, org.CreatedAt.Equal(got.CreatedAt))

		m, err := stores.Memberships.Get(ctx, org.OrgID, owner.ActorID)
		require.NoError(t, err)
		require.Equal(t, models.RoleOwner, m.Role)

		dup := *org
		dup.OrgID = uuid.Must(uuid.NewV7())
		err = stores.Organizations.Create(ctx, &dup, &models.Membership{
			OrgID: dup.OrgID, ActorID: owner.ActorID, Email: owner.Email, Role: models.RoleOwner, CreatedAt: now(),
		})
		require.ErrorIs(t, err, store.ErrOrganizationAlreadyExists)

		orgs, err := stores.Organizations.ListByMember(ctx, owner.ActorID)
		require.NoError(t, err)
		require.Len(t, orgs, 1)
	})

	t.Run("owner membership is protected", func(t *testing.T) {
		org, owner := seedOrg(t, stores, "protected")

		err := stores.Memberships.Delete(ctx, org.OrgID, owner.ActorID)
		require.ErrorIs(t, err, store.ErrMembershipNotFound)

		err = stores.Memberships.UpdateRole(ctx, org.OrgID, owner.ActorID, models.RoleMember)
		require.ErrorIs(t, err, store.ErrMembershipNotFound)
	})

	t.Run("invitation accept and transfer ownership", func(t *testing.T) {
		org, owner := seedOrg(t, stores, "invites")

		inv := pendingInvitation(org, "b@x.com", "digest-accept")
		require.NoError(t, stores.Invitations.Create(ctx, inv))
		require.ErrorIs(t, stores.Invitations.Create(ctx, pendingInvitation(org, "B@x.com", "digest-other")),
			store.ErrInvitationAlreadyExists)

		actor := uuid.Must(uuid.NewV7())
		member := &models.Membership{OrgID: org.OrgID, ActorID: actor, Email: "b@x.com", Role: models.RoleMember, CreatedAt: now()}
		require.NoError(t, stores.Invitations.Accept(ctx, inv.InvitationID, member, now()))

		got, err := stores.Invitations.GetByTokenDigest(ctx, "digest-accept")
		require.NoError(t, err)
		require.Equal(t, models.InvitationAccepted, got.Status)
		require.NotNil(t, got.AcceptedBy)
		require.Equal(t, actor, *got.AcceptedBy)

		err = stores.Invitations.Accept(ctx, inv.InvitationID, member, now())
		require.ErrorIs(t, err, store.ErrInvitationStateChanged)

		err = stores.Invitations.Transition(ctx, inv.InvitationID, models.InvitationRevoked, now())
		require.ErrorIs(t, err, store.ErrInvitationStateChanged)

		require.NoError(t, stores.Organizations.TransferOwnership(ctx, org.OrgID, actor, time.Now()))
		prev, err := stores.Memberships.Get(ctx, org.OrgID, owner.ActorID)
		require.NoError(t, err)
		require.Equal(t, models.RoleAdmin, prev.Role)

		updated, err := stores.Organizations.Get(ctx, org.OrgID)
		require.NoError(t, err)
		require.Equal(t, actor, updated.OwnerActorID)

		err = stores.Organizations.TransferOwnership(ctx, org.OrgID, uuid.Must(uuid.NewV7()), time.Now())
		require.ErrorIs(t, err, store.ErrMembershipNotFound)
	})

	t.Run("concurrent accepts add one membership", func(t *testing.T) {
		org, _ := seedOrg(t, stores, "race")
		inv := pendingInvitation(org, "c@x.com", "digest-race")
		require.NoError(t, stores.Invitations.Create(ctx, inv))

		var (
			wg        sync.WaitGroup
			mu        sync.Mutex
			successes int
		)
		for range 8 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				m := &models.Membership{
					OrgID: org.OrgID, ActorID: uuid.Must(uuid.NewV7()), Email: "c@x.com", Role: models.RoleMember, CreatedAt: now(),
				}
				if err := stores.Invitations.Accept(ctx, inv.InvitationID, m, now()); err == nil {
					mu.Lock()
					successes++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()

		require.Equal(t, 1, successes)
		members, err := stores.Memberships.List(ctx, org.OrgID)
		require.NoError(t, err)
		require.Len(t, members, 2)
	})

	t.Run("api keys and webhooks", func(t *testing.T) {
		org, owner := seedOrg(t, stores, "creds")

		key := &models.APIKey{
			KeyID:         uuid.Must(uuid.NewV7()),
			OrgID:         org.OrgID,
			Description:   "ci",
			SecretDigest:  "key-digest",
			DisplayPrefix: "okk_abcdef",
			CreatedBy:     owner.ActorID,
			CreatedAt:     now(),
		}
		require.NoError(t, stores.APIKeys.Create(ctx, key))
		require.NoError(t, stores.APIKeys.TouchLastUsed(ctx, key.KeyID, now(), "10.0.0.1"))

		got, err := stores.APIKeys.GetByDigest(ctx, "key-digest")
		require.NoError(t, err)
		require.Nil(t, got.ExpiresAt)
		require.Equal(t, "10.0.0.1", got.LastUsedIP)

		require.NoError(t, stores.APIKeys.Revoke(ctx, org.OrgID, key.KeyID, now()))
		require.ErrorIs(t, stores.APIKeys.Revoke(ctx, org.OrgID, key.KeyID, now()), store.ErrAPIKeyAlreadyRevoked)
		require.ErrorIs(t, stores.APIKeys.Revoke(ctx, org.OrgID, uuid.Must(uuid.NewV7()), now()), store.ErrAPIKeyNotFound)

		hook := &models.Webhook{
			WebhookID: uuid.Must(uuid.NewV7()),
			OrgID:     org.OrgID,
			URL:       "https://hooks.example.com/in",
			Events:    []models.EventType{models.EventContactCreated, models.EventMemberAdded},
			Secret:    "whsec_x",
			CreatedBy: owner.ActorID,
			CreatedAt: now(),
		}
		require.NoError(t, stores.Webhooks.Create(ctx, hook))

		hooks, err := stores.Webhooks.ListByOrganization(ctx, org.OrgID)
		require.NoError(t, err)
		require.Len(t, hooks, 1)
		require.Equal(t, hook.Events, hooks[0].Events)

		require.NoError(t, stores.Webhooks.Delete(ctx, org.OrgID, hook.WebhookID))
		require.ErrorIs(t, stores.Webhooks.Delete(ctx, org.OrgID, hook.WebhookID), store.ErrWebhookNotFound)
	})

	t.Run("deleting an organization cascades", func(t *testing.T) {
		org, _ := seedOrg(t, stores, "doomed")
		require.NoError(t, stores.Invitations.Create(ctx, pendingInvitation(org, "d@x.com", "digest-doomed")))

		require.NoError(t, stores.Organizations.Delete(ctx, org.OrgID))
		require.ErrorIs(t, stores.Organizations.Delete(ctx, org.OrgID), store.ErrOrganizationNotFound)

		_, err := stores.Invitations.GetByTokenDigest(ctx, "digest-doomed")
		require.ErrorIs(t, err, store.ErrInvitationNotFound)

		members, err := stores.Memberships.List(ctx, org.OrgID)
		require.NoError(t, err)
		require.Empty(t, members)
	})
}

func TestSessionSettings(t *testing.T) {
	backend := setupPostgres(t)
	ctx := context.Background()

	var statementTimeout, applicationName string
	require.NoError(t, backend.pool.QueryRow(ctx, "SHOW statement_timeout").Scan(&statementTimeout))
	require.NoError(t, backend.pool.QueryRow(ctx, "SHOW application_name").Scan(&applicationName))

	require.Equal(t, "5s", statementTimeout)
	require.Equal(t, "orgkeeper", applicationName)
}
