package server

import (
	"context"
	"net/http"

	"connectrpc.com/connect"
	"github.com/google/uuid"
	orgkeeperv1 "github.com/wolfeidau/orgkeeper/api/orgkeeper/v1"
	"github.com/wolfeidau/orgkeeper/internal/auth"
	"github.com/wolfeidau/orgkeeper/internal/credential"
	httpmiddleware "github.com/wolfeidau/orgkeeper/internal/http"
	"github.com/wolfeidau/orgkeeper/internal/models"
)

// CredentialServer implements orgkeeper.v1.CredentialService.
// ValidateAPIKey is public and used by the data plane; the key is the credential.
type CredentialServer struct {
	issuer *credential.Issuer
}

// NewCredentialServer creates a new CredentialService server.
func NewCredentialServer(issuer *credential.Issuer) *CredentialServer {
	return &CredentialServer{issuer: issuer}
}

func (s *CredentialServer) register(mux *http.ServeMux, opts []connect.HandlerOption) {
	handle(mux, orgkeeperv1.CredentialServiceCreateAPIKeyProcedure, s.CreateAPIKey, opts)
	handle(mux, orgkeeperv1.CredentialServiceListAPIKeysProcedure, s.ListAPIKeys, opts)
	handle(mux, orgkeeperv1.CredentialServiceRevokeAPIKeyProcedure, s.RevokeAPIKey, opts)
	handle(mux, orgkeeperv1.CredentialServiceValidateAPIKeyProcedure, s.ValidateAPIKey, opts)
	handle(mux, orgkeeperv1.CredentialServiceCreateWebhookProcedure, s.CreateWebhook, opts)
	handle(mux, orgkeeperv1.CredentialServiceListWebhooksProcedure, s.ListWebhooks, opts)
	handle(mux, orgkeeperv1.CredentialServiceDeleteWebhookProcedure, s.DeleteWebhook, opts)
}

// CreateAPIKey issues a key. The raw secret is returned once.
func (s *CredentialServer) CreateAPIKey(ctx context.Context, req *orgkeeperv1.CreateAPIKeyRequest) (*orgkeeperv1.CreateAPIKeyResponse, error) {
	actor, err := auth.RequireActor(ctx)
	if err != nil {
		return nil, err
	}

	key, secret, err := s.issuer.CreateAPIKey(ctx, actor.ActorID, req.OrgSlug, credential.CreateAPIKeyInput{
		Description:  req.Description,
		ExpiresAt:    req.ExpiresAt,
		NeverExpires: req.NeverExpires,
	})
	if err != nil {
		return nil, err
	}

	return &orgkeeperv1.CreateAPIKeyResponse{APIKey: toAPIKey(key), Secret: secret}, nil
}

func (s *CredentialServer) ListAPIKeys(ctx context.Context, req *orgkeeperv1.ListAPIKeysRequest) (*orgkeeperv1.ListAPIKeysResponse, error) {
	actor, err := auth.RequireActor(ctx)
	if err != nil {
		return nil, err
	}

	keys, err := s.issuer.ListAPIKeys(ctx, actor.ActorID, req.OrgSlug)
	if err != nil {
		return nil, err
	}

	resp := &orgkeeperv1.ListAPIKeysResponse{APIKeys: make([]orgkeeperv1.APIKey, 0, len(keys))}
	for _, key := range keys {
		resp.APIKeys = append(resp.APIKeys, toAPIKey(key))
	}
	return resp, nil
}

func (s *CredentialServer) RevokeAPIKey(ctx context.Context, req *orgkeeperv1.RevokeAPIKeyRequest) (*orgkeeperv1.RevokeAPIKeyResponse, error) {
	actor, err := auth.RequireActor(ctx)
	if err != nil {
		return nil, err
	}

	keyID, err := uuid.Parse(req.KeyID)
	if err != nil {
		return nil, invalidID("server.RevokeAPIKey", "key_id")
	}

	if err := s.issuer.RevokeAPIKey(ctx, actor.ActorID, req.OrgSlug, keyID); err != nil {
		return nil, err
	}
	return &orgkeeperv1.RevokeAPIKeyResponse{}, nil
}

// ValidateAPIKey resolves a presented key to its organization.
func (s *CredentialServer) ValidateAPIKey(ctx context.Context, req *orgkeeperv1.ValidateAPIKeyRequest) (*orgkeeperv1.ValidateAPIKeyResponse, error) {
	key, err := s.issuer.ValidateAPIKey(ctx, req.Key, httpmiddleware.ClientIPFromContext(ctx))
	if err != nil {
		return nil, err
	}

	return &orgkeeperv1.ValidateAPIKeyResponse{
		KeyID: key.KeyID.String(),
		OrgID: key.OrgID.String(),
	}, nil
}

func (s *CredentialServer) CreateWebhook(ctx context.Context, req *orgkeeperv1.CreateWebhookRequest) (*orgkeeperv1.CreateWebhookResponse, error) {
	actor, err := auth.RequireActor(ctx)
	if err != nil {
		return nil, err
	}

	events := make([]models.EventType, 0, len(req.Events))
	for _, e := range req.Events {
		events = append(events, models.EventType(e))
	}

	hook, err := s.issuer.CreateWebhook(ctx, actor.ActorID, req.OrgSlug, credential.CreateWebhookInput{
		URL:    req.URL,
		Events: events,
	})
	if err != nil {
		return nil, err
	}

	return &orgkeeperv1.CreateWebhookResponse{Webhook: toWebhook(hook), Secret: hook.Secret}, nil
}

func (s *CredentialServer) ListWebhooks(ctx context.Context, req *orgkeeperv1.ListWebhooksRequest) (*orgkeeperv1.ListWebhooksResponse, error) {
	actor, err := auth.RequireActor(ctx)
	if err != nil {
		return nil, err
	}

	hooks, err := s.issuer.ListWebhooks(ctx, actor.ActorID, req.OrgSlug)
	if err != nil {
		return nil, err
	}

	resp := &orgkeeperv1.ListWebhooksResponse{Webhooks: make([]orgkeeperv1.Webhook, 0, len(hooks))}
	for _, hook := range hooks {
		resp.Webhooks = append(resp.Webhooks, toWebhook(hook))
	}
	return resp, nil
}

func (s *CredentialServer) DeleteWebhook(ctx context.Context, req *orgkeeperv1.DeleteWebhookRequest) (*orgkeeperv1.DeleteWebhookResponse, error) {
	actor, err := auth.RequireActor(ctx)
	if err != nil {
		return nil, err
	}

	webhookID, err := uuid.Parse(req.WebhookID)
	if err != nil {
		return nil, invalidID("server.DeleteWebhook", "webhook_id")
	}

	if err := s.issuer.DeleteWebhook(ctx, actor.ActorID, req.OrgSlug, webhookID); err != nil {
		return nil, err
	}
	return &orgkeeperv1.DeleteWebhookResponse{}, nil
}

func toAPIKey(key *models.APIKey) orgkeeperv1.APIKey {
	return orgkeeperv1.APIKey{
		KeyID:         key.KeyID.String(),
		OrgID:         key.OrgID.String(),
		Description:   key.Description,
		DisplayPrefix: key.DisplayPrefix,
		CreatedBy:     key.CreatedBy.String(),
		CreatedAt:     key.CreatedAt,
		ExpiresAt:     key.ExpiresAt,
		LastUsedAt:    key.LastUsedAt,
		LastUsedIP:    key.LastUsedIP,
		RevokedAt:     key.RevokedAt,
	}
}

// toWebhook omits the signing secret.
func toWebhook(hook *models.Webhook) orgkeeperv1.Webhook {
	events := make([]string, 0, len(hook.Events))
	for _, e := range hook.Events {
		events = append(events, string(e))
	}
	return orgkeeperv1.Webhook{
		WebhookID: hook.WebhookID.String(),
		OrgID:     hook.OrgID.String(),
		URL:       hook.URL,
		Events:    events,
		CreatedBy: hook.CreatedBy.String(),
		CreatedAt: hook.CreatedAt,
	}
}
