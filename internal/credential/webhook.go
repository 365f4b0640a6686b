package credential

import (
	"context"
	"errors"
	"net"
	"net/url"
	"slices"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/wolfeidau/orgkeeper/internal/apperr"
	"github.com/wolfeidau/orgkeeper/internal/auth"
	"github.com/wolfeidau/orgkeeper/internal/entitlement"
	"github.com/wolfeidau/orgkeeper/internal/models"
	"github.com/wolfeidau/orgkeeper/internal/retry"
	"github.com/wolfeidau/orgkeeper/internal/secret"
	"github.com/wolfeidau/orgkeeper/internal/store"
)

// CreateWebhookInput is the request to register a webhook.
type CreateWebhookInput struct {
	URL    string             `json:"url" validate:"required,url,max=2048"`
	Events []models.EventType `json:"events" validate:"required,min=1"`
}

// CreateWebhook registers a webhook for the organization named by slug.
// Webhooks are a Pro feature; a degraded entitlement counts as Free.
func (i *Issuer) CreateWebhook(ctx context.Context, actorID uuid.UUID, slug string, in CreateWebhookInput) (*models.Webhook, error) {
	const op = "credential.CreateWebhook"

	oc, err := i.resolver.Require(ctx, actorID, slug, auth.ActionWebhooksManage)
	if err != nil {
		return nil, err
	}

	if err := i.validate.Struct(op, in); err != nil {
		return nil, err
	}
	if err := checkWebhookURL(op, in.URL); err != nil {
		return nil, err
	}
	events, err := normalizeEvents(op, in.Events)
	if err != nil {
		return nil, err
	}

	ent := i.entitlements.Resolve(ctx, oc.Organization)
	if !ent.Allows(entitlement.FeatureWebhooks) {
		return nil, apperr.Errorf(apperr.KindForbidden, op, "webhooks require a paid plan (current tier %s)", ent.Tier)
	}

	whsec, err := secret.New(secret.WebhookMarker)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, op, err)
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, op, err)
	}

	hook := &models.Webhook{
		WebhookID: id,
		OrgID:     oc.Organization.OrgID,
		URL:       in.URL,
		Events:    events,
		Secret:    whsec,
		CreatedBy: actorID,
		CreatedAt: i.now(),
	}

	if err := i.webhooks.Create(ctx, hook); err != nil {
		return nil, apperr.Wrap(apperr.KindUnavailable, op, err)
	}

	i.metrics.WebhooksCreatedTotal.Add(ctx, 1)

	zerolog.Ctx(ctx).Info().
		Str("org_id", hook.OrgID.String()).
		Str("webhook_id", hook.WebhookID.String()).
		Int("events", len(hook.Events)).
		Msg("webhook created")

	return hook, nil
}

// ListWebhooks returns the webhooks of the organization, newest first.
func (i *Issuer) ListWebhooks(ctx context.Context, actorID uuid.UUID, slug string) ([]*models.Webhook, error) {
	oc, err := i.resolver.Require(ctx, actorID, slug, auth.ActionOrgRead)
	if err != nil {
		return nil, err
	}

	return retry.Read(ctx, i.policy, "credential.ListWebhooks", nil, func(ctx context.Context) ([]*models.Webhook, error) {
		return i.webhooks.ListByOrganization(ctx, oc.Organization.OrgID)
	})
}

// DeleteWebhook removes a webhook of the organization.
func (i *Issuer) DeleteWebhook(ctx context.Context, actorID uuid.UUID, slug string, webhookID uuid.UUID) error {
	const op = "credential.DeleteWebhook"

	oc, err := i.resolver.Require(ctx, actorID, slug, auth.ActionWebhooksManage)
	if err != nil {
		return err
	}

	if err := i.webhooks.Delete(ctx, oc.Organization.OrgID, webhookID); err != nil {
		if errors.Is(err, store.ErrWebhookNotFound) {
			return apperr.E(apperr.KindNotFound, op, "webhook not found")
		}
		return apperr.Wrap(apperr.KindUnavailable, op, err)
	}
	return nil
}

// checkWebhookURL requires an absolute https URL; plain http is accepted for localhost only.
func checkWebhookURL(op, raw string) error {
	u, err := url.Parse(raw)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return apperr.E(apperr.KindInvalid, op, "url must be absolute")
	}

	switch u.Scheme {
	case "https":
		return nil
	case "http":
		host := u.Hostname()
		if host == "localhost" {
			return nil
		}
		if ip := net.ParseIP(host); ip != nil && ip.IsLoopback() {
			return nil
		}
		return apperr.E(apperr.KindInvalid, op, "url must use https")
	default:
		return apperr.E(apperr.KindInvalid, op, "url must use https")
	}
}

// normalizeEvents checks events against the vocabulary and returns them de-duplicated and sorted.
func normalizeEvents(op string, events []models.EventType) ([]models.EventType, error) {
	if len(events) == 0 {
		return nil, apperr.E(apperr.KindInvalid, op, "at least one event is required")
	}
	for _, e := range events {
		if !e.Valid() {
			return nil, apperr.Errorf(apperr.KindInvalid, op, "unknown event type %q", e)
		}
	}

	out := slices.Clone(events)
	slices.Sort(out)
	return slices.Compact(out), nil
}
