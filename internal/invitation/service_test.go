package invitation

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/orgkeeper/internal/apperr"
	"github.com/wolfeidau/orgkeeper/internal/auth"
	"github.com/wolfeidau/orgkeeper/internal/models"
	"github.com/wolfeidau/orgkeeper/internal/notify"
	"github.com/wolfeidau/orgkeeper/internal/orgctx"
	"github.com/wolfeidau/orgkeeper/internal/store"
	"github.com/wolfeidau/orgkeeper/internal/store/memory"
	"github.com/wolfeidau/orgkeeper/internal/telemetry"
)

type sentInvite struct {
	invite notify.Invite
	token  string
}

type recordingDispatcher struct {
	mu   sync.Mutex
	sent []sentInvite
}

func (d *recordingDispatcher) DispatchInvite(ctx context.Context, invite notify.Invite, token string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sent = append(d.sent, sentInvite{invite: invite, token: token})
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixture struct {
	svc        *Service
	stores     store.Stores
	dispatcher *recordingDispatcher
	clock      *clock
	org        *models.Organization
	owner      *auth.Actor
}

func newActor(t *testing.T, email string) *auth.Actor {
	t.Helper()
	id, err := uuid.NewV7()
	require.NoError(t, err)
	return &auth.Actor{ActorID: id, Email: email, EmailVerified: true}
}

func setup(t *testing.T) *fixture {
	t.Helper()

	stores := memory.NewStores()
	metrics := telemetry.NewNoopMetrics()
	c := &clock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	dispatcher := &recordingDispatcher{}

	owner := newActor(t, "a@x.com")
	orgID, err := uuid.NewV7()
	require.NoError(t, err)

	org := &models.Organization{
		OrgID:        orgID,
		Slug:         "acme",
		Name:         "Acme",
		OwnerActorID: owner.ActorID,
		CreatedAt:    c.Now(),
		UpdatedAt:    c.Now(),
	}
	require.NoError(t, stores.Organizations.Create(context.Background(), org, &models.Membership{
		OrgID:     org.OrgID,
		ActorID:   owner.ActorID,
		Email:     owner.Email,
		Role:      models.RoleOwner,
		CreatedAt: c.Now(),
	}))

	resolver := orgctx.NewResolver(stores.Organizations, stores.Memberships, metrics)
	svc := NewService(stores, resolver, dispatcher, metrics, Config{Now: c.Now})

	return &fixture{
		svc:        svc,
		stores:     stores,
		dispatcher: dispatcher,
		clock:      c,
		org:        org,
		owner:      owner,
	}
}

func (f *fixture) invite(t *testing.T, email string, role models.Role) (*models.Invitation, string) {
	t.Helper()
	inv, token, err := f.svc.Create(context.Background(), f.owner.ActorID, f.org.Slug, CreateInput{Email: email, Role: string(role)})
	require.NoError(t, err)
	return inv, token
}

func TestInviteAcceptScenario(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	inv, token := f.invite(t, "b@x.com", models.RoleMember)
	require.Equal(t, models.InvitationPending, inv.Status)
	require.Equal(t, f.clock.Now().Add(DefaultTTL), inv.ExpiresAt)
	require.NotContains(t, inv.TokenDigest, token)

	require.Len(t, f.dispatcher.sent, 1)
	require.Equal(t, token, f.dispatcher.sent[0].token)
	require.Equal(t, "Acme", f.dispatcher.sent[0].invite.OrgName)

	b := newActor(t, "b@x.com")
	m, err := f.svc.Accept(ctx, b, token)
	require.NoError(t, err)
	require.Equal(t, models.RoleMember, m.Role)
	require.Equal(t, f.org.OrgID, m.OrgID)

	resolver := orgctx.NewResolver(f.stores.Organizations, f.stores.Memberships, telemetry.NewNoopMetrics())
	oc, err := resolver.Resolve(ctx, b.ActorID, "acme")
	require.NoError(t, err)
	require.Equal(t, models.RoleMember, oc.Role())
	require.False(t, oc.IsOwner)

	_, err = f.svc.Accept(ctx, b, token)
	require.ErrorIs(t, err, apperr.ErrConflict)

	members, err := f.stores.Memberships.List(ctx, f.org.OrgID)
	require.NoError(t, err)
	require.Len(t, members, 2)
}

func TestCreate(t *testing.T) {
	ctx := context.Background()

	t.Run("email is normalized", func(t *testing.T) {
		f := setup(t)
		inv, _ := f.invite(t, "  B@X.com ", models.RoleAdmin)
		require.Equal(t, "b@x.com", inv.Email)
		require.Equal(t, models.RoleAdmin, inv.Role)
	})

	t.Run("owner role is invalid", func(t *testing.T) {
		f := setup(t)
		_, _, err := f.svc.Create(ctx, f.owner.ActorID, "acme", CreateInput{Email: "b@x.com", Role: "owner"})
		require.ErrorIs(t, err, apperr.ErrInvalid)
	})

	t.Run("bad email is invalid", func(t *testing.T) {
		f := setup(t)
		_, _, err := f.svc.Create(ctx, f.owner.ActorID, "acme", CreateInput{Email: "not-an-email", Role: "member"})
		require.ErrorIs(t, err, apperr.ErrInvalid)
	})

	t.Run("existing member is conflict", func(t *testing.T) {
		f := setup(t)
		_, _, err := f.svc.Create(ctx, f.owner.ActorID, "acme", CreateInput{Email: "a@x.com", Role: "member"})
		require.ErrorIs(t, err, apperr.ErrConflict)
	})

	t.Run("duplicate pending invitation is conflict", func(t *testing.T) {
		f := setup(t)
		f.invite(t, "b@x.com", models.RoleMember)
		_, _, err := f.svc.Create(ctx, f.owner.ActorID, "acme", CreateInput{Email: "b@x.com", Role: "admin"})
		require.ErrorIs(t, err, apperr.ErrConflict)
	})

	t.Run("expired pending invitation is replaced", func(t *testing.T) {
		f := setup(t)
		first, _ := f.invite(t, "b@x.com", models.RoleMember)
		f.clock.Advance(DefaultTTL + time.Minute)

		second, _ := f.invite(t, "b@x.com", models.RoleMember)
		require.NotEqual(t, first.InvitationID, second.InvitationID)

		old, err := f.stores.Invitations.Get(ctx, first.InvitationID)
		require.NoError(t, err)
		require.Equal(t, models.InvitationExpired, old.Status)
	})

	t.Run("member role cannot invite", func(t *testing.T) {
		f := setup(t)
		_, token := f.invite(t, "b@x.com", models.RoleMember)
		b := newActor(t, "b@x.com")
		_, err := f.svc.Accept(ctx, b, token)
		require.NoError(t, err)

		_, _, err = f.svc.Create(ctx, b.ActorID, "acme", CreateInput{Email: "c@x.com", Role: "member"})
		require.ErrorIs(t, err, apperr.ErrForbidden)
	})

	t.Run("non member is forbidden", func(t *testing.T) {
		f := setup(t)
		stranger := newActor(t, "z@x.com")
		_, _, err := f.svc.Create(ctx, stranger.ActorID, "acme", CreateInput{Email: "c@x.com", Role: "member"})
		require.ErrorIs(t, err, apperr.ErrForbidden)
	})
}

func TestAccept(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown token is not found", func(t *testing.T) {
		f := setup(t)
		_, err := f.svc.Accept(ctx, newActor(t, "b@x.com"), "oki_unknown")
		require.ErrorIs(t, err, apperr.ErrNotFound)
	})

	t.Run("revoked is gone", func(t *testing.T) {
		f := setup(t)
		inv, token := f.invite(t, "b@x.com", models.RoleMember)
		require.NoError(t, f.svc.Revoke(ctx, f.owner.ActorID, "acme", inv.InvitationID))

		_, err := f.svc.Accept(ctx, newActor(t, "b@x.com"), token)
		require.ErrorIs(t, err, apperr.ErrGone)
	})

	t.Run("past expiry is expired and transitioned", func(t *testing.T) {
		f := setup(t)
		inv, token := f.invite(t, "b@x.com", models.RoleMember)
		f.clock.Advance(DefaultTTL)

		_, err := f.svc.Accept(ctx, newActor(t, "b@x.com"), token)
		require.ErrorIs(t, err, apperr.ErrExpired)

		got, err := f.stores.Invitations.Get(ctx, inv.InvitationID)
		require.NoError(t, err)
		require.Equal(t, models.InvitationExpired, got.Status)

		_, err = f.svc.Accept(ctx, newActor(t, "b@x.com"), token)
		require.ErrorIs(t, err, apperr.ErrExpired)
	})

	t.Run("existing member is conflict and invitation stays pending", func(t *testing.T) {
		f := setup(t)
		inv, token := f.invite(t, "b@x.com", models.RoleMember)

		_, err := f.svc.Accept(ctx, f.owner, token)
		require.ErrorIs(t, err, apperr.ErrConflict)

		got, err := f.stores.Invitations.Get(ctx, inv.InvitationID)
		require.NoError(t, err)
		require.Equal(t, models.InvitationPending, got.Status)
	})

	t.Run("membership email follows verification", func(t *testing.T) {
		tests := []struct {
			name     string
			email    string
			verified bool
			expected string
		}{
			{name: "verified address is recorded", email: "Bob@Other.com", verified: true, expected: "bob@other.com"},
			{name: "unverified address falls back to invited", email: "attacker@evil.test", verified: false, expected: "b@x.com"},
			{name: "missing address falls back to invited", email: "", verified: false, expected: "b@x.com"},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				f := setup(t)
				_, token := f.invite(t, "b@x.com", models.RoleMember)
				actor := newActor(t, tt.email)
				actor.EmailVerified = tt.verified

				m, err := f.svc.Accept(ctx, actor, token)
				require.NoError(t, err)
				require.Equal(t, tt.expected, m.Email)
			})
		}
	})

	t.Run("unauthenticated", func(t *testing.T) {
		f := setup(t)
		_, token := f.invite(t, "b@x.com", models.RoleMember)
		_, err := f.svc.Accept(ctx, nil, token)
		require.ErrorIs(t, err, apperr.ErrUnauthorized)
	})

	t.Run("concurrent accepts produce one membership", func(t *testing.T) {
		f := setup(t)
		_, token := f.invite(t, "b@x.com", models.RoleMember)
		b := newActor(t, "b@x.com")

		var (
			wg        sync.WaitGroup
			mu        sync.Mutex
			successes int
		)
		for range 8 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, err := f.svc.Accept(ctx, b, token); err == nil {
					mu.Lock()
					successes++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()

		require.Equal(t, 1, successes)
		members, err := f.stores.Memberships.List(ctx, f.org.OrgID)
		require.NoError(t, err)
		require.Len(t, members, 2)
	})
}

func TestRevoke(t *testing.T) {
	ctx := context.Background()

	t.Run("accepted invitation cannot be revoked", func(t *testing.T) {
		f := setup(t)
		inv, token := f.invite(t, "b@x.com", models.RoleMember)
		_, err := f.svc.Accept(ctx, newActor(t, "b@x.com"), token)
		require.NoError(t, err)

		err = f.svc.Revoke(ctx, f.owner.ActorID, "acme", inv.InvitationID)
		require.ErrorIs(t, err, apperr.ErrConflict)

		got, err := f.stores.Invitations.Get(ctx, inv.InvitationID)
		require.NoError(t, err)
		require.Equal(t, models.InvitationAccepted, got.Status)
	})

	t.Run("second revoke is conflict", func(t *testing.T) {
		f := setup(t)
		inv, _ := f.invite(t, "b@x.com", models.RoleMember)
		require.NoError(t, f.svc.Revoke(ctx, f.owner.ActorID, "acme", inv.InvitationID))
		err := f.svc.Revoke(ctx, f.owner.ActorID, "acme", inv.InvitationID)
		require.ErrorIs(t, err, apperr.ErrConflict)
	})

	t.Run("expired invitation is conflict", func(t *testing.T) {
		f := setup(t)
		inv, _ := f.invite(t, "b@x.com", models.RoleMember)
		f.clock.Advance(DefaultTTL + time.Second)

		err := f.svc.Revoke(ctx, f.owner.ActorID, "acme", inv.InvitationID)
		require.ErrorIs(t, err, apperr.ErrConflict)

		got, err := f.stores.Invitations.Get(ctx, inv.InvitationID)
		require.NoError(t, err)
		require.Equal(t, models.InvitationExpired, got.Status)
	})

	t.Run("unknown invitation is not found", func(t *testing.T) {
		f := setup(t)
		id, err := uuid.NewV7()
		require.NoError(t, err)
		err = f.svc.Revoke(ctx, f.owner.ActorID, "acme", id)
		require.ErrorIs(t, err, apperr.ErrNotFound)
	})
}

func TestListAndPreview(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	_, token := f.invite(t, "b@x.com", models.RoleAdmin)
	f.clock.Advance(time.Hour)
	f.invite(t, "c@x.com", models.RoleMember)

	p, err := f.svc.Preview(ctx, token)
	require.NoError(t, err)
	require.Equal(t, "Acme", p.OrgName)
	require.Equal(t, models.RoleAdmin, p.Role)

	f.clock.Advance(DefaultTTL - 30*time.Minute)

	invs, err := f.svc.List(ctx, f.owner.ActorID, "acme")
	require.NoError(t, err)
	require.Len(t, invs, 2)
	require.Equal(t, "c@x.com", invs[0].Email)
	require.Equal(t, models.InvitationPending, invs[0].Status)
	require.Equal(t, models.InvitationExpired, invs[1].Status)

	_, err = f.svc.Preview(ctx, token)
	require.ErrorIs(t, err, apperr.ErrExpired)
}
