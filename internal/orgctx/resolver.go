// Package orgctx resolves which organization an actor is operating within and the role held there.
package orgctx

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/wolfeidau/orgkeeper/internal/apperr"
	"github.com/wolfeidau/orgkeeper/internal/auth"
	"github.com/wolfeidau/orgkeeper/internal/models"
	"github.com/wolfeidau/orgkeeper/internal/retry"
	"github.com/wolfeidau/orgkeeper/internal/store"
	"github.com/wolfeidau/orgkeeper/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Context is the authorization context for one actor in one organization.
type Context struct {
	Organization *models.Organization
	Membership   *models.Membership
	IsOwner      bool
}

// Role returns the role held by the actor.
func (c *Context) Role() models.Role {
	return c.Membership.Role
}

// Can reports whether the actor may perform action in this organization.
func (c *Context) Can(action auth.Action) bool {
	return auth.CanPerform(c.Membership.Role, action)
}

// Resolver produces authorization contexts from the organization and membership stores.
// It holds no state between requests; see WithMemo for per-request memoization.
type Resolver struct {
	orgs    store.OrganizationStore
	members store.MembershipStore
	metrics *telemetry.Metrics
	policy  retry.Policy
}

// NewResolver creates a resolver over the given stores.
func NewResolver(orgs store.OrganizationStore, members store.MembershipStore, metrics *telemetry.Metrics) *Resolver {
	return &Resolver{
		orgs:    orgs,
		members: members,
		metrics: metrics,
		policy:  retry.DefaultPolicy,
	}
}

// Resolve returns the authorization context of actorID in the organization named by slug.
//
// Fails with NotFound if no organization has the slug, Forbidden if the actor has no
// membership, and Unavailable if the stores cannot be read. Results are shared within
// a context prepared by WithMemo.
func (r *Resolver) Resolve(ctx context.Context, actorID uuid.UUID, slug string) (*Context, error) {
	if m := memoFromContext(ctx); m != nil {
		return m.do(actorID, slug, func() (*Context, error) {
			return r.resolve(ctx, actorID, slug)
		})
	}
	return r.resolve(ctx, actorID, slug)
}

func (r *Resolver) resolve(ctx context.Context, actorID uuid.UUID, slug string) (*Context, error) {
	const op = "orgctx.Resolve"

	org, err := retry.Read(ctx, r.policy, op, isNotFound, func(ctx context.Context) (*models.Organization, error) {
		return r.orgs.GetBySlug(ctx, slug)
	})
	if err != nil {
		if errors.Is(err, store.ErrOrganizationNotFound) {
			r.record(ctx, "not_found")
			return nil, apperr.E(apperr.KindNotFound, op, fmt.Sprintf("organization %q not found", slug))
		}
		r.record(ctx, "unavailable")
		return nil, err
	}

	membership, err := retry.Read(ctx, r.policy, op, isNotFound, func(ctx context.Context) (*models.Membership, error) {
		return r.members.Get(ctx, org.OrgID, actorID)
	})
	if err != nil {
		if errors.Is(err, store.ErrMembershipNotFound) {
			r.record(ctx, "forbidden")
			zerolog.Ctx(ctx).Debug().
				Str("actor_id", actorID.String()).
				Str("slug", slug).
				Msg("actor has no membership")
			return nil, apperr.E(apperr.KindForbidden, op, "not a member of this organization")
		}
		r.record(ctx, "unavailable")
		return nil, err
	}

	r.record(ctx, "ok")

	return &Context{
		Organization: org,
		Membership:   membership,
		IsOwner:      membership.Role == models.RoleOwner,
	}, nil
}

// Require resolves the context and checks that the actor's role permits action.
func (r *Resolver) Require(ctx context.Context, actorID uuid.UUID, slug string, action auth.Action) (*Context, error) {
	oc, err := r.Resolve(ctx, actorID, slug)
	if err != nil {
		return nil, err
	}
	if !oc.Can(action) {
		return nil, apperr.Errorf(apperr.KindForbidden, "orgctx.Require", "role %s cannot %s", oc.Membership.Role, action)
	}
	return oc, nil
}

func (r *Resolver) record(ctx context.Context, outcome string) {
	r.metrics.ContextResolutionsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

func isNotFound(err error) bool {
	return errors.Is(err, store.ErrOrganizationNotFound) || errors.Is(err, store.ErrMembershipNotFound)
}
