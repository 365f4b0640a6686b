// Package invitation manages the invitation lifecycle: create, accept, revoke and lazy expiry.
package invitation

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/wolfeidau/orgkeeper/internal/apperr"
	"github.com/wolfeidau/orgkeeper/internal/auth"
	"github.com/wolfeidau/orgkeeper/internal/models"
	"github.com/wolfeidau/orgkeeper/internal/notify"
	"github.com/wolfeidau/orgkeeper/internal/orgctx"
	"github.com/wolfeidau/orgkeeper/internal/retry"
	"github.com/wolfeidau/orgkeeper/internal/secret"
	"github.com/wolfeidau/orgkeeper/internal/store"
	"github.com/wolfeidau/orgkeeper/internal/telemetry"
	"github.com/wolfeidau/orgkeeper/internal/validation"
)

// DefaultTTL is how long an invitation stays acceptable.
const DefaultTTL = 168 * time.Hour

// Dispatcher delivers invitation emails without blocking the caller.
type Dispatcher interface {
	DispatchInvite(ctx context.Context, invite notify.Invite, token string)
}

// Config holds the tunables of the invitation service.
type Config struct {
	TTL time.Duration
	Now func() time.Time
}

// Service implements invitation operations over the stores.
type Service struct {
	orgs        store.OrganizationStore
	members     store.MembershipStore
	invitations store.InvitationStore
	resolver    *orgctx.Resolver
	dispatcher  Dispatcher
	metrics     *telemetry.Metrics
	validate    *validation.Validator
	ttl         time.Duration
	now         func() time.Time
	policy      retry.Policy
}

// NewService creates an invitation service.
func NewService(stores store.Stores, resolver *orgctx.Resolver, dispatcher Dispatcher, metrics *telemetry.Metrics, cfg Config) *Service {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Service{
		orgs:        stores.Organizations,
		members:     stores.Memberships,
		invitations: stores.Invitations,
		resolver:    resolver,
		dispatcher:  dispatcher,
		metrics:     metrics,
		validate:    validation.New(),
		ttl:         cfg.TTL,
		now:         cfg.Now,
		policy:      retry.DefaultPolicy,
	}
}

// CreateInput is the request to invite an email address.
type CreateInput struct {
	Email string `json:"email" validate:"required,email,max=254"`
	Role  string `json:"role" validate:"required,oneof=admin member"`
}

// Create invites email into the organization named by slug and returns the invitation
// and the raw token. The raw token is never stored and cannot be recovered later.
func (s *Service) Create(ctx context.Context, actorID uuid.UUID, slug string, in CreateInput) (*models.Invitation, string, error) {
	const op = "invitation.Create"

	oc, err := s.resolver.Require(ctx, actorID, slug, auth.ActionInvitationsManage)
	if err != nil {
		return nil, "", err
	}

	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if err := s.validate.Struct(op, in); err != nil {
		return nil, "", err
	}
	org := oc.Organization

	_, err = s.members.GetByEmail(ctx, org.OrgID, in.Email)
	switch {
	case err == nil:
		return nil, "", apperr.E(apperr.KindConflict, op, "email already belongs to a member")
	case !errors.Is(err, store.ErrMembershipNotFound):
		return nil, "", apperr.Wrap(apperr.KindUnavailable, op, err)
	}

	now := s.now()

	pending, err := s.invitations.FindPending(ctx, org.OrgID, in.Email)
	switch {
	case err == nil:
		if pending.EffectiveStatus(now) == models.InvitationPending {
			return nil, "", apperr.E(apperr.KindConflict, op, "a pending invitation already exists for this email")
		}
		if err := s.expire(ctx, pending, now); err != nil {
			return nil, "", err
		}
	case !errors.Is(err, store.ErrInvitationNotFound):
		return nil, "", apperr.Wrap(apperr.KindUnavailable, op, err)
	}

	token, err := secret.New(secret.InvitationMarker)
	if err != nil {
		return nil, "", apperr.Wrap(apperr.KindInternal, op, err)
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, "", apperr.Wrap(apperr.KindInternal, op, err)
	}

	inv := &models.Invitation{
		InvitationID: id,
		OrgID:        org.OrgID,
		Email:        in.Email,
		Role:         models.Role(in.Role),
		TokenDigest:  secret.Digest(token),
		Status:       models.InvitationPending,
		InvitedBy:    actorID,
		CreatedAt:    now,
		ExpiresAt:    now.Add(s.ttl),
	}

	if err := s.invitations.Create(ctx, inv); err != nil {
		if errors.Is(err, store.ErrInvitationAlreadyExists) {
			return nil, "", apperr.E(apperr.KindConflict, op, "a pending invitation already exists for this email")
		}
		return nil, "", apperr.Wrap(apperr.KindUnavailable, op, err)
	}

	s.metrics.InvitationsCreatedTotal.Add(ctx, 1)

	zerolog.Ctx(ctx).Info().
		Str("org_id", org.OrgID.String()).
		Str("invitation_id", inv.InvitationID.String()).
		Str("role", string(inv.Role)).
		Msg("invitation created")

	s.dispatcher.DispatchInvite(ctx, notify.Invite{
		Email:     inv.Email,
		OrgName:   org.Name,
		Role:      string(inv.Role),
		ExpiresAt: inv.ExpiresAt,
	}, token)

	return inv, token, nil
}

// Accept redeems token on behalf of actor and returns the new membership.
func (s *Service) Accept(ctx context.Context, actor *auth.Actor, token string) (*models.Membership, error) {
	const op = "invitation.Accept"

	if actor == nil {
		return nil, apperr.E(apperr.KindUnauthorized, op, "not authenticated")
	}

	inv, err := s.lookup(ctx, op, token)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if err := s.checkRedeemable(ctx, op, inv, now); err != nil {
		return nil, err
	}

	// Only a verified address replaces the one the invitation was sent to.
	email := actor.VerifiedEmail()
	if email == "" {
		email = inv.Email
	}
	membership := &models.Membership{
		OrgID:     inv.OrgID,
		ActorID:   actor.ActorID,
		Email:     email,
		Role:      inv.Role,
		CreatedAt: now,
	}

	err = s.invitations.Accept(ctx, inv.InvitationID, membership, now)
	switch {
	case err == nil:
	case errors.Is(err, store.ErrMembershipAlreadyExists):
		return nil, apperr.E(apperr.KindConflict, op, "already a member of this organization")
	case errors.Is(err, store.ErrOrganizationNotFound), errors.Is(err, store.ErrInvitationNotFound):
		return nil, apperr.E(apperr.KindNotFound, op, "invitation not found")
	case errors.Is(err, store.ErrInvitationStateChanged):
		// Lost a race; report whatever state won.
		current, rerr := s.invitations.Get(ctx, inv.InvitationID)
		if rerr != nil {
			return nil, apperr.Wrap(apperr.KindUnavailable, op, rerr)
		}
		if serr := s.checkRedeemable(ctx, op, current, now); serr != nil {
			return nil, serr
		}
		return nil, apperr.E(apperr.KindConflict, op, "invitation changed concurrently")
	default:
		return nil, apperr.Wrap(apperr.KindUnavailable, op, err)
	}

	s.metrics.InvitationsAcceptedTotal.Add(ctx, 1)

	zerolog.Ctx(ctx).Info().
		Str("org_id", inv.OrgID.String()).
		Str("invitation_id", inv.InvitationID.String()).
		Str("actor_id", actor.ActorID.String()).
		Msg("invitation accepted")

	return membership, nil
}

// Preview describes a pending invitation for the accept page.
type Preview struct {
	OrgName   string
	OrgSlug   string
	Email     string
	Role      models.Role
	ExpiresAt time.Time
}

// Preview returns the organization and role an invitation token grants, subject to the
// same outcomes as Accept. Only the lazy expiry transition is written.
func (s *Service) Preview(ctx context.Context, token string) (*Preview, error) {
	const op = "invitation.Preview"

	inv, err := s.lookup(ctx, op, token)
	if err != nil {
		return nil, err
	}
	if err := s.checkRedeemable(ctx, op, inv, s.now()); err != nil {
		return nil, err
	}

	org, err := retry.Read(ctx, s.policy, op, isNotFound, func(ctx context.Context) (*models.Organization, error) {
		return s.orgs.Get(ctx, inv.OrgID)
	})
	if err != nil {
		if errors.Is(err, store.ErrOrganizationNotFound) {
			return nil, apperr.E(apperr.KindNotFound, op, "invitation not found")
		}
		return nil, err
	}

	return &Preview{
		OrgName:   org.Name,
		OrgSlug:   org.Slug,
		Email:     inv.Email,
		Role:      inv.Role,
		ExpiresAt: inv.ExpiresAt,
	}, nil
}

// Revoke withdraws a pending invitation of the organization named by slug.
func (s *Service) Revoke(ctx context.Context, actorID uuid.UUID, slug string, invitationID uuid.UUID) error {
	const op = "invitation.Revoke"

	oc, err := s.resolver.Require(ctx, actorID, slug, auth.ActionInvitationsManage)
	if err != nil {
		return err
	}

	inv, err := s.invitations.Get(ctx, invitationID)
	if err != nil {
		if errors.Is(err, store.ErrInvitationNotFound) {
			return apperr.E(apperr.KindNotFound, op, "invitation not found")
		}
		return apperr.Wrap(apperr.KindUnavailable, op, err)
	}
	if inv.OrgID != oc.Organization.OrgID {
		return apperr.E(apperr.KindNotFound, op, "invitation not found")
	}

	now := s.now()
	switch inv.EffectiveStatus(now) {
	case models.InvitationPending:
	case models.InvitationExpired:
		if err := s.expire(ctx, inv, now); err != nil {
			return err
		}
		return apperr.E(apperr.KindConflict, op, "invitation has expired")
	default:
		return apperr.Errorf(apperr.KindConflict, op, "invitation is %s", inv.Status)
	}

	if err := s.invitations.Transition(ctx, inv.InvitationID, models.InvitationRevoked, now); err != nil {
		if errors.Is(err, store.ErrInvitationStateChanged) {
			return apperr.E(apperr.KindConflict, op, "invitation is no longer pending")
		}
		return apperr.Wrap(apperr.KindUnavailable, op, err)
	}

	s.metrics.InvitationsRevokedTotal.Add(ctx, 1)

	zerolog.Ctx(ctx).Info().
		Str("org_id", inv.OrgID.String()).
		Str("invitation_id", inv.InvitationID.String()).
		Msg("invitation revoked")

	return nil
}

// List returns the invitations of an organization with their effective status.
// Pending rows past expiry are reported as expired.
func (s *Service) List(ctx context.Context, actorID uuid.UUID, slug string) ([]*models.Invitation, error) {
	const op = "invitation.List"

	oc, err := s.resolver.Require(ctx, actorID, slug, auth.ActionOrgRead)
	if err != nil {
		return nil, err
	}

	invs, err := retry.Read(ctx, s.policy, op, nil, func(ctx context.Context) ([]*models.Invitation, error) {
		return s.invitations.ListByOrganization(ctx, oc.Organization.OrgID)
	})
	if err != nil {
		return nil, err
	}

	now := s.now()
	for _, inv := range invs {
		inv.Status = inv.EffectiveStatus(now)
	}
	return invs, nil
}

func (s *Service) lookup(ctx context.Context, op, token string) (*models.Invitation, error) {
	if !secret.WellFormed(token, secret.InvitationMarker) {
		return nil, apperr.E(apperr.KindNotFound, op, "invitation not found")
	}

	inv, err := retry.Read(ctx, s.policy, op, isNotFound, func(ctx context.Context) (*models.Invitation, error) {
		return s.invitations.GetByTokenDigest(ctx, secret.Digest(token))
	})
	if err != nil {
		if errors.Is(err, store.ErrInvitationNotFound) {
			return nil, apperr.E(apperr.KindNotFound, op, "invitation not found")
		}
		return nil, err
	}
	return inv, nil
}

// checkRedeemable maps the invitation state at now to an outcome, expiring it if due.
func (s *Service) checkRedeemable(ctx context.Context, op string, inv *models.Invitation, now time.Time) error {
	switch inv.EffectiveStatus(now) {
	case models.InvitationPending:
		return nil
	case models.InvitationRevoked:
		return apperr.E(apperr.KindGone, op, "invitation was revoked")
	case models.InvitationAccepted:
		return apperr.E(apperr.KindConflict, op, "invitation was already accepted")
	default:
		if inv.Status == models.InvitationPending {
			if err := s.expire(ctx, inv, now); err != nil {
				return err
			}
		}
		return apperr.E(apperr.KindExpired, op, "invitation has expired")
	}
}

// expire records the lazy Pending to Expired transition. A concurrent transition is not an error.
func (s *Service) expire(ctx context.Context, inv *models.Invitation, now time.Time) error {
	err := s.invitations.Transition(ctx, inv.InvitationID, models.InvitationExpired, now)
	switch {
	case err == nil:
		inv.Status = models.InvitationExpired
		s.metrics.InvitationsExpiredTotal.Add(ctx, 1)
		return nil
	case errors.Is(err, store.ErrInvitationStateChanged):
		return nil
	default:
		return apperr.Wrap(apperr.KindUnavailable, "invitation.expire", err)
	}
}

func isNotFound(err error) bool {
	return errors.Is(err, store.ErrInvitationNotFound) || errors.Is(err, store.ErrOrganizationNotFound)
}
