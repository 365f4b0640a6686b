// Package credential issues and validates organization API keys and registers webhooks.
package credential

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
	"github.com/wolfeidau/orgkeeper/internal/secret"
	"github.com/wolfeidau/orgkeeper/internal/store"
	"github.com/wolfeidau/orgkeeper/internal/telemetry"
	"github.com/wolfeidau/orgkeeper/internal/validation"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Entitlements resolves the feature gate of an organization.
type Entitlements interface {
	Resolve(ctx context.Context, org *models.Organization) entitlement.Entitlement
}

// Issuer creates, validates and revokes organization credentials.
type Issuer struct {
	apiKeys      store.APIKeyStore
	webhooks     store.WebhookStore
	resolver     *orgctx.Resolver
	entitlements Entitlements
	metrics      *telemetry.Metrics
	validate     *validation.Validator
	now          func() time.Time
	policy       retry.Policy
}

// NewIssuer creates a credential issuer. now defaults to time.Now.
func NewIssuer(stores store.Stores, resolver *orgctx.Resolver, entitlements Entitlements, metrics *telemetry.Metrics, now func() time.Time) *Issuer {
	if now == nil {
		now = time.Now
	}
	return &Issuer{
		apiKeys:      stores.APIKeys,
		webhooks:     stores.Webhooks,
		resolver:     resolver,
		entitlements: entitlements,
		metrics:      metrics,
		validate:     validation.New(),
		now:          now,
		policy:       retry.DefaultPolicy,
	}
}

// CreateAPIKeyInput is the request to issue an API key.
// Exactly one of ExpiresAt and NeverExpires must be set.
type CreateAPIKeyInput struct {
	Description  string     `json:"description" validate:"required,min=1,max=200"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
	NeverExpires bool       `json:"never_expires"`
}

// CreateAPIKey issues a key for the organization named by slug.
// The returned secret is shown once; only its digest is stored.
func (i *Issuer) CreateAPIKey(ctx context.Context, actorID uuid.UUID, slug string, in CreateAPIKeyInput) (*models.APIKey, string, error) {
	const op = "credential.CreateAPIKey"

	oc, err := i.resolver.Require(ctx, actorID, slug, auth.ActionAPIKeysManage)
	if err != nil {
		return nil, "", err
	}

	in.Description = strings.TrimSpace(in.Description)
	if err := i.validate.Struct(op, in); err != nil {
		return nil, "", err
	}

	now := i.now()
	switch {
	case in.NeverExpires && in.ExpiresAt != nil:
		return nil, "", apperr.E(apperr.KindInvalid, op, "expires_at and never_expires are mutually exclusive")
	case !in.NeverExpires && in.ExpiresAt == nil:
		return nil, "", apperr.E(apperr.KindInvalid, op, "one of expires_at or never_expires is required")
	case in.ExpiresAt != nil && !in.ExpiresAt.After(now):
		return nil, "", apperr.E(apperr.KindInvalid, op, "expires_at must be in the future")
	}

	raw, err := secret.New(secret.APIKeyMarker)
	if err != nil {
		return nil, "", apperr.Wrap(apperr.KindInternal, op, err)
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, "", apperr.Wrap(apperr.KindInternal, op, err)
	}

	key := &models.APIKey{
		KeyID:         id,
		OrgID:         oc.Organization.OrgID,
		Description:   in.Description,
		SecretDigest:  secret.Digest(raw),
		DisplayPrefix: secret.DisplayPrefix(raw, secret.APIKeyMarker),
		CreatedBy:     actorID,
		CreatedAt:     now,
	}
	if in.ExpiresAt != nil {
		exp := in.ExpiresAt.UTC()
		key.ExpiresAt = &exp
	}

	if err := i.apiKeys.Create(ctx, key); err != nil {
		if errors.Is(err, store.ErrAPIKeyAlreadyExists) {
			return nil, "", apperr.Wrap(apperr.KindConflict, op, err)
		}
		return nil, "", apperr.Wrap(apperr.KindUnavailable, op, err)
	}

	i.metrics.APIKeysIssuedTotal.Add(ctx, 1)

	zerolog.Ctx(ctx).Info().
		Str("org_id", key.OrgID.String()).
		Str("key_id", key.KeyID.String()).
		Str("prefix", key.DisplayPrefix).
		Msg("api key created")

	return key, raw, nil
}

// ValidateAPIKey authenticates a presented secret. Every failure to authenticate is Unauthorized;
// a store outage is Unavailable so the caller fails closed without treating it as a decision.
func (i *Issuer) ValidateAPIKey(ctx context.Context, presented, clientIP string) (*models.APIKey, error) {
	const op = "credential.ValidateAPIKey"

	key, err := i.validateAPIKey(ctx, op, presented)
	if err != nil {
		i.recordValidation(ctx, apperr.KindOf(err).String())
		return nil, err
	}
	i.recordValidation(ctx, "ok")

	if err := i.apiKeys.TouchLastUsed(ctx, key.KeyID, i.now(), clientIP); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("key_id", key.KeyID.String()).Msg("failed to record api key usage")
	}

	return key, nil
}

func (i *Issuer) validateAPIKey(ctx context.Context, op, presented string) (*models.APIKey, error) {
	if !secret.WellFormed(presented, secret.APIKeyMarker) {
		return nil, apperr.E(apperr.KindUnauthorized, op, "invalid api key")
	}

	digest := secret.Digest(presented)
	key, err := retry.Read(ctx, i.policy, op, isAPIKeyNotFound, func(ctx context.Context) (*models.APIKey, error) {
		return i.apiKeys.GetByDigest(ctx, digest)
	})
	if err != nil {
		if errors.Is(err, store.ErrAPIKeyNotFound) {
			return nil, apperr.E(apperr.KindUnauthorized, op, "invalid api key")
		}
		return nil, err
	}

	if !secret.Matches(presented, key.SecretDigest) {
		return nil, apperr.E(apperr.KindUnauthorized, op, "invalid api key")
	}
	if !key.Usable(i.now()) {
		return nil, apperr.E(apperr.KindUnauthorized, op, "api key revoked or expired")
	}

	return key, nil
}

// ListAPIKeys returns key metadata for the organization, newest first.
func (i *Issuer) ListAPIKeys(ctx context.Context, actorID uuid.UUID, slug string) ([]*models.APIKey, error) {
	oc, err := i.resolver.Require(ctx, actorID, slug, auth.ActionOrgRead)
	if err != nil {
		return nil, err
	}

	return retry.Read(ctx, i.policy, "credential.ListAPIKeys", nil, func(ctx context.Context) ([]*models.APIKey, error) {
		return i.apiKeys.ListByOrganization(ctx, oc.Organization.OrgID)
	})
}

// RevokeAPIKey revokes a key of the organization. Revoking twice is a Conflict.
func (i *Issuer) RevokeAPIKey(ctx context.Context, actorID uuid.UUID, slug string, keyID uuid.UUID) error {
	const op = "credential.RevokeAPIKey"

	oc, err := i.resolver.Require(ctx, actorID, slug, auth.ActionAPIKeysManage)
	if err != nil {
		return err
	}

	err = i.apiKeys.Revoke(ctx, oc.Organization.OrgID, keyID, i.now())
	switch {
	case err == nil:
	case errors.Is(err, store.ErrAPIKeyNotFound):
		return apperr.E(apperr.KindNotFound, op, "api key not found")
	case errors.Is(err, store.ErrAPIKeyAlreadyRevoked):
		return apperr.E(apperr.KindConflict, op, "api key already revoked")
	default:
		return apperr.Wrap(apperr.KindUnavailable, op, err)
	}

	zerolog.Ctx(ctx).Info().
		Str("org_id", oc.Organization.OrgID.String()).
		Str("key_id", keyID.String()).
		Msg("api key revoked")

	return nil
}

func (i *Issuer) recordValidation(ctx context.Context, outcome string) {
	i.metrics.APIKeyValidationsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

func isAPIKeyNotFound(err error) bool {
	return errors.Is(err, store.ErrAPIKeyNotFound)
}
