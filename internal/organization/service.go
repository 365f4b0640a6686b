// Package organization manages organizations and their memberships.
package organization

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/wolfeidau/orgkeeper/internal/apperr"
	"github.com/wolfeidau/orgkeeper/internal/auth"
	"github.com/wolfeidau/orgkeeper/internal/entitlement"
	"github.com/wolfeidau/orgkeeper/internal/models"
	"github.com/wolfeidau/orgkeeper/internal/orgctx"
	"github.com/wolfeidau/orgkeeper/internal/retry"
	"github.com/wolfeidau/orgkeeper/internal/store"
	"github.com/wolfeidau/orgkeeper/internal/validation"
)

// Entitlements resolves the tier of an organization.
type Entitlements interface {
	Resolve(ctx context.Context, org *models.Organization) entitlement.Entitlement
}

// BillingCache drops cached billing reads of an account.
type BillingCache interface {
	Invalidate(ctx context.Context, accountRef string) error
}

// Service implements organization and membership operations.
type Service struct {
	orgs         store.OrganizationStore
	members      store.MembershipStore
	resolver     *orgctx.Resolver
	entitlements Entitlements
	validate     *validation.Validator
	now          func() time.Time
	policy       retry.Policy
	billingCache BillingCache
}

// NewService creates an organization service. now defaults to time.Now.
func NewService(stores store.Stores, resolver *orgctx.Resolver, entitlements Entitlements, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{
		orgs:         stores.Organizations,
		members:      stores.Memberships,
		resolver:     resolver,
		entitlements: entitlements,
		validate:     validation.New(),
		now:          now,
		policy:       retry.DefaultPolicy,
	}
}

// WithBillingCache makes Update invalidate cached billing reads when the billing account changes.
func (s *Service) WithBillingCache(cache BillingCache) *Service {
	s.billingCache = cache
	return s
}

// CreateInput is the request to create an organization.
type CreateInput struct {
	Slug              string `json:"slug" validate:"required,min=3,max=63"`
	Name              string `json:"name" validate:"required,max=200,nocontrol"`
	BillingAccountRef string `json:"billing_account_ref" validate:"max=255"`
}

// Create creates an organization owned by actor.
func (s *Service) Create(ctx context.Context, actor *auth.Actor, in CreateInput) (*models.Organization, error) {
	const op = "organization.Create"

	if actor == nil {
		return nil, apperr.E(apperr.KindUnauthorized, op, "not authenticated")
	}

	in.Slug = strings.TrimSpace(in.Slug)
	in.Name = strings.TrimSpace(in.Name)
	if err := s.validate.Struct(op, in); err != nil {
		return nil, err
	}
	if !models.ValidSlug(in.Slug) {
		return nil, apperr.E(apperr.KindInvalid, op, "slug must be lowercase letters, digits and hyphens")
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, op, err)
	}

	now := s.now()
	org := &models.Organization{
		OrgID:             id,
		Slug:              in.Slug,
		Name:              in.Name,
		BillingAccountRef: in.BillingAccountRef,
		OwnerActorID:      actor.ActorID,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	owner := &models.Membership{
		OrgID:     id,
		ActorID:   actor.ActorID,
		Email:     actor.VerifiedEmail(),
		Role:      models.RoleOwner,
		CreatedAt: now,
	}

	if err := s.orgs.Create(ctx, org, owner); err != nil {
		if errors.Is(err, store.ErrOrganizationAlreadyExists) {
			return nil, apperr.Errorf(apperr.KindConflict, op, "slug %q is taken", in.Slug)
		}
		return nil, apperr.Wrap(apperr.KindUnavailable, op, err)
	}

	zerolog.Ctx(ctx).Info().
		Str("org_id", org.OrgID.String()).
		Str("slug", org.Slug).
		Str("owner_id", actor.ActorID.String()).
		Msg("organization created")

	return org, nil
}

// Context returns the authorization context of actorID in the organization named by slug.
func (s *Service) Context(ctx context.Context, actorID uuid.UUID, slug string) (*orgctx.Context, error) {
	return s.resolver.Resolve(ctx, actorID, slug)
}

// List returns every organization actorID belongs to.
func (s *Service) List(ctx context.Context, actorID uuid.UUID) ([]*models.Organization, error) {
	return retry.Read(ctx, s.policy, "organization.List", nil, func(ctx context.Context) ([]*models.Organization, error) {
		return s.orgs.ListByMember(ctx, actorID)
	})
}

// UpdateInput changes the mutable fields of an organization. Nil fields are left unchanged.
type UpdateInput struct {
	Name              *string `json:"name,omitempty" validate:"omitempty,min=1,max=200,nocontrol"`
	BillingAccountRef *string `json:"billing_account_ref,omitempty" validate:"omitempty,max=255"`
}

// Update changes the name or billing account of an organization. The slug is immutable.
func (s *Service) Update(ctx context.Context, actorID uuid.UUID, slug string, in UpdateInput) (*models.Organization, error) {
	const op = "organization.Update"

	action := auth.ActionOrgUpdate
	if in.BillingAccountRef != nil {
		action = auth.ActionBillingManage
	}
	oc, err := s.resolver.Require(ctx, actorID, slug, action)
	if err != nil {
		return nil, err
	}
	if in.Name != nil && !oc.Can(auth.ActionOrgUpdate) {
		return nil, apperr.E(apperr.KindForbidden, op, "cannot update organization")
	}

	if err := s.validate.Struct(op, in); err != nil {
		return nil, err
	}

	org := *oc.Organization
	if in.Name != nil {
		org.Name = strings.TrimSpace(*in.Name)
	}
	if in.BillingAccountRef != nil {
		org.BillingAccountRef = *in.BillingAccountRef
	}
	org.UpdatedAt = s.now()

	if err := s.orgs.Update(ctx, &org); err != nil {
		if errors.Is(err, store.ErrOrganizationNotFound) {
			return nil, apperr.E(apperr.KindNotFound, op, "organization not found")
		}
		return nil, apperr.Wrap(apperr.KindUnavailable, op, err)
	}

	if previous := oc.Organization.BillingAccountRef; previous != org.BillingAccountRef {
		s.invalidateBilling(ctx, previous, org.BillingAccountRef)
	}
	return &org, nil
}

func (s *Service) invalidateBilling(ctx context.Context, refs ...string) {
	if s.billingCache == nil {
		return
	}
	for _, ref := range refs {
		if ref == "" {
			continue
		}
		if err := s.billingCache.Invalidate(ctx, ref); err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Str("billing_account_ref", ref).Msg("failed to invalidate billing cache")
		}
	}
}

// Delete deletes an organization with its memberships, invitations and credentials. Owner only.
func (s *Service) Delete(ctx context.Context, actorID uuid.UUID, slug string) error {
	const op = "organization.Delete"

	oc, err := s.resolver.Require(ctx, actorID, slug, auth.ActionOrgDelete)
	if err != nil {
		return err
	}

	if err := s.orgs.Delete(ctx, oc.Organization.OrgID); err != nil {
		if errors.Is(err, store.ErrOrganizationNotFound) {
			return apperr.E(apperr.KindNotFound, op, "organization not found")
		}
		return apperr.Wrap(apperr.KindUnavailable, op, err)
	}

	zerolog.Ctx(ctx).Info().
		Str("org_id", oc.Organization.OrgID.String()).
		Str("slug", slug).
		Msg("organization deleted")

	return nil
}

// TransferOwnership makes newOwnerID the owner; the previous owner becomes an admin.
func (s *Service) TransferOwnership(ctx context.Context, actorID uuid.UUID, slug string, newOwnerID uuid.UUID) error {
	const op = "organization.TransferOwnership"

	oc, err := s.resolver.Require(ctx, actorID, slug, auth.ActionOrgTransferOwnership)
	if err != nil {
		return err
	}
	if newOwnerID == actorID {
		return apperr.E(apperr.KindInvalid, op, "already the owner")
	}

	if err := s.orgs.TransferOwnership(ctx, oc.Organization.OrgID, newOwnerID, s.now()); err != nil {
		if errors.Is(err, store.ErrMembershipNotFound) {
			return apperr.E(apperr.KindNotFound, op, "new owner is not a member")
		}
		return apperr.Wrap(apperr.KindUnavailable, op, err)
	}

	zerolog.Ctx(ctx).Info().
		Str("org_id", oc.Organization.OrgID.String()).
		Str("from", actorID.String()).
		Str("to", newOwnerID.String()).
		Msg("ownership transferred")

	return nil
}

// ListMembers returns the memberships of the organization.
func (s *Service) ListMembers(ctx context.Context, actorID uuid.UUID, slug string) ([]*models.Membership, error) {
	oc, err := s.resolver.Require(ctx, actorID, slug, auth.ActionOrgRead)
	if err != nil {
		return nil, err
	}

	return retry.Read(ctx, s.policy, "organization.ListMembers", nil, func(ctx context.Context) ([]*models.Membership, error) {
		return s.members.List(ctx, oc.Organization.OrgID)
	})
}

// UpdateMemberRole changes the role of a non-owner member to admin or member.
func (s *Service) UpdateMemberRole(ctx context.Context, actorID uuid.UUID, slug string, targetID uuid.UUID, role models.Role) error {
	const op = "organization.UpdateMemberRole"

	if role != models.RoleAdmin && role != models.RoleMember {
		return apperr.Errorf(apperr.KindInvalid, op, "role must be admin or member, got %q", role)
	}

	oc, target, err := s.manageable(ctx, op, actorID, slug, targetID)
	if err != nil {
		return err
	}
	if target.Role == role {
		return nil
	}

	if err := s.members.UpdateRole(ctx, oc.Organization.OrgID, targetID, role); err != nil {
		if errors.Is(err, store.ErrMembershipNotFound) {
			return apperr.E(apperr.KindNotFound, op, "member not found")
		}
		return apperr.Wrap(apperr.KindUnavailable, op, err)
	}
	return nil
}

// RemoveMember removes a member. Members may remove themselves; the owner can never be removed.
func (s *Service) RemoveMember(ctx context.Context, actorID uuid.UUID, slug string, targetID uuid.UUID) error {
	const op = "organization.RemoveMember"

	var orgID uuid.UUID
	if targetID == actorID {
		oc, err := s.resolver.Require(ctx, actorID, slug, auth.ActionProfileManageOwn)
		if err != nil {
			return err
		}
		if oc.IsOwner {
			return apperr.E(apperr.KindForbidden, op, "the owner cannot leave; transfer ownership first")
		}
		orgID = oc.Organization.OrgID
	} else {
		oc, _, err := s.manageable(ctx, op, actorID, slug, targetID)
		if err != nil {
			return err
		}
		orgID = oc.Organization.OrgID
	}

	if err := s.members.Delete(ctx, orgID, targetID); err != nil {
		if errors.Is(err, store.ErrMembershipNotFound) {
			return apperr.E(apperr.KindNotFound, op, "member not found")
		}
		return apperr.Wrap(apperr.KindUnavailable, op, err)
	}

	zerolog.Ctx(ctx).Info().
		Str("org_id", orgID.String()).
		Str("actor_id", targetID.String()).
		Msg("member removed")

	return nil
}

// Entitlement returns the tier of the organization named by slug.
func (s *Service) Entitlement(ctx context.Context, actorID uuid.UUID, slug string) (entitlement.Entitlement, error) {
	oc, err := s.resolver.Require(ctx, actorID, slug, auth.ActionOrgRead)
	if err != nil {
		return entitlement.Entitlement{}, err
	}
	return s.entitlements.Resolve(ctx, oc.Organization), nil
}

// manageable resolves the actor and target memberships and checks the actor may act on the target.
func (s *Service) manageable(ctx context.Context, op string, actorID uuid.UUID, slug string, targetID uuid.UUID) (*orgctx.Context, *models.Membership, error) {
	oc, err := s.resolver.Require(ctx, actorID, slug, auth.ActionMembersManage)
	if err != nil {
		return nil, nil, err
	}

	target, err := retry.Read(ctx, s.policy, op, isMembershipNotFound, func(ctx context.Context) (*models.Membership, error) {
		return s.members.Get(ctx, oc.Organization.OrgID, targetID)
	})
	if err != nil {
		if errors.Is(err, store.ErrMembershipNotFound) {
			return nil, nil, apperr.E(apperr.KindNotFound, op, "member not found")
		}
		return nil, nil, err
	}

	if !auth.CanManageMember(oc.Role(), target.Role) {
		return nil, nil, apperr.Errorf(apperr.KindForbidden, op, "role %s cannot manage %s", oc.Role(), target.Role)
	}
	return oc, target, nil
}

func isMembershipNotFound(err error) bool {
	return errors.Is(err, store.ErrMembershipNotFound)
}
