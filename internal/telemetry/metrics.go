package telemetry

import (
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

const (
	meterName = "github.com/wolfeidau/orgkeeper"
)

// Metrics holds all the OpenTelemetry metric instruments.
// It is constructed once per process and passed to each component.
type Metrics struct {
	// Organization context metrics
	ContextResolutionsTotal metric.Int64Counter

	// Invitation metrics
	InvitationsCreatedTotal  metric.Int64Counter
	InvitationsAcceptedTotal metric.Int64Counter
	InvitationsRevokedTotal  metric.Int64Counter
	InvitationsExpiredTotal  metric.Int64Counter

	// Credential metrics
	APIKeysIssuedTotal     metric.Int64Counter
	APIKeyValidationsTotal metric.Int64Counter
	WebhooksCreatedTotal   metric.Int64Counter

	// Entitlement metrics
	EntitlementDegradedTotal   metric.Int64Counter
	SubscriptionAmbiguousTotal metric.Int64Counter

	// Email metrics
	EmailsDispatchedTotal metric.Int64Counter
	EmailErrorsTotal      metric.Int64Counter
}

// NewNoopMetrics returns instruments that record nothing, for tests and tools.
func NewNoopMetrics() *Metrics {
	return NewMetrics(noop.NewMeterProvider())
}

// NewMetrics creates and registers all metric instruments with the given provider.
func NewMetrics(provider metric.MeterProvider) *Metrics {
	meter := provider.Meter(meterName)

	m := &Metrics{}

	m.ContextResolutionsTotal, _ = meter.Int64Counter(
		"orgkeeper.orgctx.resolutions.total",
		metric.WithDescription("Total number of organization context resolutions by outcome"),
		metric.WithUnit("{resolution}"),
	)

	// Invitation metrics
	m.InvitationsCreatedTotal, _ = meter.Int64Counter(
		"orgkeeper.invitations.created.total",
		metric.WithDescription("Total number of invitations created"),
		metric.WithUnit("{invitation}"),
	)

	m.InvitationsAcceptedTotal, _ = meter.Int64Counter(
		"orgkeeper.invitations.accepted.total",
		metric.WithDescription("Total number of invitations accepted"),
		metric.WithUnit("{invitation}"),
	)

	m.InvitationsRevokedTotal, _ = meter.Int64Counter(
		"orgkeeper.invitations.revoked.total",
		metric.WithDescription("Total number of invitations revoked"),
		metric.WithUnit("{invitation}"),
	)

	m.InvitationsExpiredTotal, _ = meter.Int64Counter(
		"orgkeeper.invitations.expired.total",
		metric.WithDescription("Total number of invitations transitioned to expired on read"),
		metric.WithUnit("{invitation}"),
	)

	// Credential metrics
	m.APIKeysIssuedTotal, _ = meter.Int64Counter(
		"orgkeeper.apikeys.issued.total",
		metric.WithDescription("Total number of API keys issued"),
		metric.WithUnit("{key}"),
	)

	m.APIKeyValidationsTotal, _ = meter.Int64Counter(
		"orgkeeper.apikeys.validations.total",
		metric.WithDescription("Total number of API key validations by outcome"),
		metric.WithUnit("{validation}"),
	)

	m.WebhooksCreatedTotal, _ = meter.Int64Counter(
		"orgkeeper.webhooks.created.total",
		metric.WithDescription("Total number of webhooks registered"),
		metric.WithUnit("{webhook}"),
	)

	// Entitlement metrics
	m.EntitlementDegradedTotal, _ = meter.Int64Counter(
		"orgkeeper.entitlement.degraded.total",
		metric.WithDescription("Total number of entitlement resolutions that fell back to free"),
		metric.WithUnit("{resolution}"),
	)

	m.SubscriptionAmbiguousTotal, _ = meter.Int64Counter(
		"orgkeeper.entitlement.ambiguous_subscriptions.total",
		metric.WithDescription("Total number of resolutions that saw more than one subscription"),
		metric.WithUnit("{resolution}"),
	)

	// Email metrics
	m.EmailsDispatchedTotal, _ = meter.Int64Counter(
		"orgkeeper.email.dispatched.total",
		metric.WithDescription("Total number of emails handed to the mailer"),
		metric.WithUnit("{email}"),
	)

	m.EmailErrorsTotal, _ = meter.Int64Counter(
		"orgkeeper.email.errors.total",
		metric.WithDescription("Total number of email dispatch failures"),
		metric.WithUnit("{error}"),
	)

	return m
}
