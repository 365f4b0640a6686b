package entitlement

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/wolfeidau/orgkeeper/internal/models"
	"github.com/wolfeidau/orgkeeper/internal/retry"
	"github.com/wolfeidau/orgkeeper/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// DefaultTimeout bounds a single entitlement resolution including retries.
const DefaultTimeout = 3 * time.Second

// SubscriptionSource lists the live subscriptions of a billing account.
type SubscriptionSource interface {
	ListSubscriptions(ctx context.Context, accountRef string) ([]models.Subscription, error)
}

// Entitlement is the resolved tier of an organization.
// Degraded is set when the provider could not be read and the tier fell back to Free.
type Entitlement struct {
	Tier     models.Tier `json:"tier"`
	Degraded bool        `json:"degraded"`
}

// Allows reports whether the entitlement grants feature.
func (e Entitlement) Allows(feature Feature) bool {
	return Allows(e.Tier, feature)
}

// Config holds the tunables of the entitlement service.
type Config struct {
	PaidProductID string
	Timeout       time.Duration
}

// Service resolves entitlements against the payment provider.
type Service struct {
	source        SubscriptionSource
	paidProductID string
	timeout       time.Duration
	metrics       *telemetry.Metrics
	policy        retry.Policy
}

// NewService creates an entitlement service.
func NewService(source SubscriptionSource, metrics *telemetry.Metrics, cfg Config) *Service {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Service{
		source:        source,
		paidProductID: cfg.PaidProductID,
		timeout:       cfg.Timeout,
		metrics:       metrics,
		policy:        retry.DefaultPolicy,
	}
}

// Resolve returns the entitlement of org. It never fails: any provider error or timeout
// yields a degraded Free entitlement so no elevated tier is granted on uncertainty.
func (s *Service) Resolve(ctx context.Context, org *models.Organization) Entitlement {
	if org.BillingAccountRef == "" {
		return Entitlement{Tier: models.TierFree}
	}

	log := zerolog.Ctx(ctx).With().
		Str("org_id", org.OrgID.String()).
		Str("billing_account", org.BillingAccountRef).
		Logger()

	rctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	subs, err := retry.Read(rctx, s.policy, "entitlement.Resolve", nil, func(ctx context.Context) ([]models.Subscription, error) {
		return s.source.ListSubscriptions(ctx, org.BillingAccountRef)
	})
	if err != nil {
		s.metrics.EntitlementDegradedTotal.Add(ctx, 1)
		log.Warn().Err(err).Msg("subscription lookup failed, falling back to free tier")
		return Entitlement{Tier: models.TierFree, Degraded: true}
	}

	if sel, ambiguous := SelectSubscription(subs); ambiguous {
		s.metrics.SubscriptionAmbiguousTotal.Add(ctx, 1, metric.WithAttributes(attribute.Int("count", len(subs))))
		log.Warn().
			Int("count", len(subs)).
			Str("selected", sel.ID).
			Msg("multiple subscriptions for billing account, selected earliest")
	}

	return Entitlement{Tier: ResolveTier(subs, s.paidProductID)}
}
