package billing

import (
	"context"

	"github.com/google/uuid"
	"github.com/wolfeidau/orgkeeper/internal/auth"
	"github.com/wolfeidau/orgkeeper/internal/models"
	"github.com/wolfeidau/orgkeeper/internal/orgctx"
	"github.com/wolfeidau/orgkeeper/internal/retry"
)

// Service serves billing views for organization members.
type Service struct {
	provider Provider
	resolver *orgctx.Resolver
	policy   retry.Policy
}

// NewService creates a billing service.
func NewService(provider Provider, resolver *orgctx.Resolver) *Service {
	return &Service{
		provider: provider,
		resolver: resolver,
		policy:   retry.DefaultPolicy,
	}
}

// Breakdown returns the projected invoice of the organization named by slug.
// An organization without a billing account has an empty breakdown.
func (s *Service) Breakdown(ctx context.Context, actorID uuid.UUID, slug string) (*models.BillingBreakdown, error) {
	const op = "billing.Breakdown"

	oc, err := s.resolver.Require(ctx, actorID, slug, auth.ActionBillingRead)
	if err != nil {
		return nil, err
	}

	ref := oc.Organization.BillingAccountRef
	if ref == "" {
		return Aggregate(nil, nil, nil)
	}

	subs, err := retry.Read(ctx, s.policy, op, nil, func(ctx context.Context) ([]models.Subscription, error) {
		return s.provider.ListSubscriptions(ctx, ref)
	})
	if err != nil {
		return nil, err
	}

	items, err := retry.Read(ctx, s.policy, op, nil, func(ctx context.Context) ([]models.LineItem, error) {
		return s.provider.ListUpcomingLineItems(ctx, ref)
	})
	if err != nil {
		return nil, err
	}

	taxes, err := retry.Read(ctx, s.policy, op, nil, func(ctx context.Context) ([]models.TaxLine, error) {
		return s.provider.ListUpcomingTaxes(ctx, ref)
	})
	if err != nil {
		return nil, err
	}

	return Aggregate(subs, items, taxes)
}
