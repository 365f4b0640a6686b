package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/orgkeeper/internal/models"
	"github.com/wolfeidau/orgkeeper/internal/store"
)

func newInvitation(t *testing.T, org *models.Organization, email, digest string) *models.Invitation {
	t.Helper()
	now := time.Now()
	return &models.Invitation{
		InvitationID: newID(t),
		OrgID:        org.OrgID,
		Email:        email,
		Role:         models.RoleMember,
		TokenDigest:  digest,
		Status:       models.InvitationPending,
		CreatedAt:    now,
		ExpiresAt:    now.Add(7 * 24 * time.Hour),
	}
}

func TestInvitationStore_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("second pending invitation for same email is rejected", func(t *testing.T) {
		stores := NewStores()
		org, _ := seedOrg(t, stores, "acme")

		require.NoError(t, stores.Invitations.Create(ctx, newInvitation(t, org, "b@x.com", "d1")))
		err := stores.Invitations.Create(ctx, newInvitation(t, org, "B@x.com", "d2"))
		require.ErrorIs(t, err, store.ErrInvitationAlreadyExists)
	})

	t.Run("duplicate token digest is rejected", func(t *testing.T) {
		stores := NewStores()
		org, _ := seedOrg(t, stores, "acme")

		require.NoError(t, stores.Invitations.Create(ctx, newInvitation(t, org, "b@x.com", "d1")))
		err := stores.Invitations.Create(ctx, newInvitation(t, org, "c@x.com", "d1"))
		require.ErrorIs(t, err, store.ErrInvitationAlreadyExists)
	})

	t.Run("new invitation allowed once previous is terminal", func(t *testing.T) {
		stores := NewStores()
		org, _ := seedOrg(t, stores, "acme")

		first := newInvitation(t, org, "b@x.com", "d1")
		require.NoError(t, stores.Invitations.Create(ctx, first))
		require.NoError(t, stores.Invitations.Transition(ctx, first.InvitationID, models.InvitationRevoked, time.Now()))

		require.NoError(t, stores.Invitations.Create(ctx, newInvitation(t, org, "b@x.com", "d2")))

		pending, err := stores.Invitations.FindPending(ctx, org.OrgID, "b@x.com")
		require.NoError(t, err)
		require.Equal(t, "d2", pending.TokenDigest)
	})
}

func TestInvitationStore_Transition(t *testing.T) {
	ctx := context.Background()
	stores := NewStores()
	org, _ := seedOrg(t, stores, "acme")

	inv := newInvitation(t, org, "b@x.com", "d1")
	require.NoError(t, stores.Invitations.Create(ctx, inv))

	require.NoError(t, stores.Invitations.Transition(ctx, inv.InvitationID, models.InvitationRevoked, time.Now()))

	got, err := stores.Invitations.Get(ctx, inv.InvitationID)
	require.NoError(t, err)
	require.Equal(t, models.InvitationRevoked, got.Status)
	require.NotNil(t, got.RevokedAt)

	// Terminal states cannot be left
	err = stores.Invitations.Transition(ctx, inv.InvitationID, models.InvitationExpired, time.Now())
	require.ErrorIs(t, err, store.ErrInvitationStateChanged)

	err = stores.Invitations.Transition(ctx, newID(t), models.InvitationRevoked, time.Now())
	require.ErrorIs(t, err, store.ErrInvitationNotFound)
}

func TestInvitationStore_Accept(t *testing.T) {
	ctx := context.Background()

	t.Run("accept flips status and adds membership", func(t *testing.T) {
		stores := NewStores()
		org, _ := seedOrg(t, stores, "acme")
		inv := newInvitation(t, org, "b@x.com", "d1")
		require.NoError(t, stores.Invitations.Create(ctx, inv))

		actorID := newID(t)
		m := &models.Membership{OrgID: org.OrgID, ActorID: actorID, Email: "b@x.com", Role: models.RoleMember, CreatedAt: time.Now()}
		require.NoError(t, stores.Invitations.Accept(ctx, inv.InvitationID, m, time.Now()))

		got, err := stores.Invitations.GetByTokenDigest(ctx, "d1")
		require.NoError(t, err)
		require.Equal(t, models.InvitationAccepted, got.Status)
		require.Equal(t, actorID, *got.AcceptedBy)

		member, err := stores.Memberships.Get(ctx, org.OrgID, actorID)
		require.NoError(t, err)
		require.Equal(t, models.RoleMember, member.Role)
	})

	t.Run("existing member leaves invitation pending", func(t *testing.T) {
		stores := NewStores()
		org, owner := seedOrg(t, stores, "acme")
		inv := newInvitation(t, org, "b@x.com", "d1")
		require.NoError(t, stores.Invitations.Create(ctx, inv))

		m := &models.Membership{OrgID: org.OrgID, ActorID: owner.ActorID, Email: "b@x.com", Role: models.RoleMember}
		err := stores.Invitations.Accept(ctx, inv.InvitationID, m, time.Now())
		require.ErrorIs(t, err, store.ErrMembershipAlreadyExists)

		got, err := stores.Invitations.Get(ctx, inv.InvitationID)
		require.NoError(t, err)
		require.Equal(t, models.InvitationPending, got.Status)

		owners, err := stores.Memberships.List(ctx, org.OrgID)
		require.NoError(t, err)
		require.Len(t, owners, 1)
		require.Equal(t, models.RoleOwner, owners[0].Role)
	})

	t.Run("concurrent accept and revoke have exactly one winner", func(t *testing.T) {
		stores := NewStores()
		org, _ := seedOrg(t, stores, "acme")
		inv := newInvitation(t, org, "b@x.com", "d1")
		require.NoError(t, stores.Invitations.Create(ctx, inv))

		var (
			wg        sync.WaitGroup
			acceptErr error
			revokeErr error
		)
		actorID := newID(t)
		wg.Add(2)
		go func() {
			defer wg.Done()
			acceptErr = stores.Invitations.Accept(ctx, inv.InvitationID,
				&models.Membership{OrgID: org.OrgID, ActorID: actorID, Email: "b@x.com", Role: models.RoleMember}, time.Now())
		}()
		go func() {
			defer wg.Done()
			revokeErr = stores.Invitations.Transition(ctx, inv.InvitationID, models.InvitationRevoked, time.Now())
		}()
		wg.Wait()

		require.True(t, (acceptErr == nil) != (revokeErr == nil), "exactly one writer must win")

		got, err := stores.Invitations.Get(ctx, inv.InvitationID)
		require.NoError(t, err)

		_, memberErr := stores.Memberships.Get(ctx, org.OrgID, actorID)
		if acceptErr == nil {
			require.Equal(t, models.InvitationAccepted, got.Status)
			require.NoError(t, memberErr)
			require.ErrorIs(t, revokeErr, store.ErrInvitationStateChanged)
		} else {
			require.Equal(t, models.InvitationRevoked, got.Status)
			require.ErrorIs(t, memberErr, store.ErrMembershipNotFound)
			require.ErrorIs(t, acceptErr, store.ErrInvitationStateChanged)
		}
	})
}

func TestInvitationStore_ListByOrganization(t *testing.T) {
	ctx := context.Background()
	stores := NewStores()
	org, _ := seedOrg(t, stores, "acme")
	other, _ := seedOrg(t, stores, "globex")

	first := newInvitation(t, org, "b@x.com", "d1")
	second := newInvitation(t, org, "c@x.com", "d2")
	second.CreatedAt = first.CreatedAt.Add(time.Second)
	require.NoError(t, stores.Invitations.Create(ctx, first))
	require.NoError(t, stores.Invitations.Create(ctx, second))
	require.NoError(t, stores.Invitations.Create(ctx, newInvitation(t, other, "b@x.com", "d3")))

	invs, err := stores.Invitations.ListByOrganization(ctx, org.OrgID)
	require.NoError(t, err)
	require.Len(t, invs, 2)
	require.Equal(t, second.InvitationID, invs[0].InvitationID)
}
