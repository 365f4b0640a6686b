package orgkeeperv1

import (
	"time"

	"github.com/wolfeidau/orgkeeper/internal/models"
)

type Organization struct {
	OrgID             string    `json:"org_id"`
	Slug              string    `json:"slug"`
	Name              string    `json:"name"`
	BillingAccountRef string    `json:"billing_account_ref,omitempty"`
	OwnerActorID      string    `json:"owner_actor_id"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

type Member struct {
	ActorID   string    `json:"actor_id"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

type CreateOrganizationRequest struct {
	Slug              string `json:"slug"`
	Name              string `json:"name"`
	BillingAccountRef string `json:"billing_account_ref,omitempty"`
}

type CreateOrganizationResponse struct {
	Organization Organization `json:"organization"`
}

type ListOrganizationsRequest struct{}

type ListOrganizationsResponse struct {
	Organizations []Organization `json:"organizations"`
}

type GetOrganizationContextRequest struct {
	OrgSlug string `json:"org_slug"`
}

type GetOrganizationContextResponse struct {
	Organization Organization `json:"organization"`
	Role         string       `json:"role"`
	IsOwner      bool         `json:"is_owner"`
	Permissions  []string     `json:"permissions"`
}

type UpdateOrganizationRequest struct {
	OrgSlug           string  `json:"org_slug"`
	Name              *string `json:"name,omitempty"`
	BillingAccountRef *string `json:"billing_account_ref,omitempty"`
}

type UpdateOrganizationResponse struct {
	Organization Organization `json:"organization"`
}

type DeleteOrganizationRequest struct {
	OrgSlug string `json:"org_slug"`
}

type DeleteOrganizationResponse struct{}

type TransferOwnershipRequest struct {
	OrgSlug    string `json:"org_slug"`
	NewOwnerID string `json:"new_owner_id"`
}

type TransferOwnershipResponse struct{}

type ListMembersRequest struct {
	OrgSlug string `json:"org_slug"`
}

type ListMembersResponse struct {
	Members []Member `json:"members"`
}

type UpdateMemberRoleRequest struct {
	OrgSlug string `json:"org_slug"`
	ActorID string `json:"actor_id"`
	Role    string `json:"role"`
}

type UpdateMemberRoleResponse struct{}

type RemoveMemberRequest struct {
	OrgSlug string `json:"org_slug"`
	ActorID string `json:"actor_id"`
}

type RemoveMemberResponse struct{}

type GetEntitlementRequest struct {
	OrgSlug string `json:"org_slug"`
}

type GetEntitlementResponse struct {
	Tier     string   `json:"tier"`
	Degraded bool     `json:"degraded"`
	Features []string `json:"features"`
}

type Invitation struct {
	InvitationID string     `json:"invitation_id"`
	OrgID        string     `json:"org_id"`
	Email        string     `json:"email"`
	Role         string     `json:"role"`
	Status       string     `json:"status"`
	InvitedBy    string     `json:"invited_by"`
	CreatedAt    time.Time  `json:"created_at"`
	ExpiresAt    time.Time  `json:"expires_at"`
	AcceptedAt   *time.Time `json:"accepted_at,omitempty"`
}

type CreateInvitationRequest struct {
	OrgSlug string `json:"org_slug"`
	Email   string `json:"email"`
	Role    string `json:"role"`
}

// CreateInvitationResponse carries the raw token. It is returned once and never stored.
type CreateInvitationResponse struct {
	Invitation Invitation `json:"invitation"`
	Token      string     `json:"token"`
}

type AcceptInvitationRequest struct {
	Token string `json:"token"`
}

type AcceptInvitationResponse struct {
	Member Member `json:"member"`
	OrgID  string `json:"org_id"`
}

type RevokeInvitationRequest struct {
	OrgSlug      string `json:"org_slug"`
	InvitationID string `json:"invitation_id"`
}

type RevokeInvitationResponse struct{}

type ListInvitationsRequest struct {
	OrgSlug string `json:"org_slug"`
}

type ListInvitationsResponse struct {
	Invitations []Invitation `json:"invitations"`
}

type PreviewInvitationRequest struct {
	Token string `json:"token"`
}

type PreviewInvitationResponse struct {
	OrgName   string    `json:"org_name"`
	OrgSlug   string    `json:"org_slug"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	ExpiresAt time.Time `json:"expires_at"`
}

type APIKey struct {
	KeyID         string     `json:"key_id"`
	OrgID         string     `json:"org_id"`
	Description   string     `json:"description"`
	DisplayPrefix string     `json:"display_prefix"`
	CreatedBy     string     `json:"created_by"`
	CreatedAt     time.Time  `json:"created_at"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
	LastUsedAt    *time.Time `json:"last_used_at,omitempty"`
	LastUsedIP    string     `json:"last_used_ip,omitempty"`
	RevokedAt     *time.Time `json:"revoked_at,omitempty"`
}

type CreateAPIKeyRequest struct {
	OrgSlug      string     `json:"org_slug"`
	Description  string     `json:"description"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
	NeverExpires bool       `json:"never_expires,omitempty"`
}

// CreateAPIKeyResponse carries the raw secret. It is returned once and never stored.
type CreateAPIKeyResponse struct {
	APIKey APIKey `json:"api_key"`
	Secret string `json:"secret"`
}

type ListAPIKeysRequest struct {
	OrgSlug string `json:"org_slug"`
}

type ListAPIKeysResponse struct {
	APIKeys []APIKey `json:"api_keys"`
}

type RevokeAPIKeyRequest struct {
	OrgSlug string `json:"org_slug"`
	KeyID   string `json:"key_id"`
}

type RevokeAPIKeyResponse struct{}

type ValidateAPIKeyRequest struct {
	Key string `json:"key"`
}

type ValidateAPIKeyResponse struct {
	KeyID string `json:"key_id"`
	OrgID string `json:"org_id"`
}

type Webhook struct {
	WebhookID string    `json:"webhook_id"`
	OrgID     string    `json:"org_id"`
	URL       string    `json:"url"`
	Events    []string  `json:"events"`
	CreatedBy string    `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
}

type CreateWebhookRequest struct {
	OrgSlug string   `json:"org_slug"`
	URL     string   `json:"url"`
	Events  []string `json:"events"`
}

// CreateWebhookResponse carries the signing secret. It is returned once.
type CreateWebhookResponse struct {
	Webhook Webhook `json:"webhook"`
	Secret  string  `json:"secret"`
}

type ListWebhooksRequest struct {
	OrgSlug string `json:"org_slug"`
}

type ListWebhooksResponse struct {
	Webhooks []Webhook `json:"webhooks"`
}

type DeleteWebhookRequest struct {
	OrgSlug   string `json:"org_slug"`
	WebhookID string `json:"webhook_id"`
}

type DeleteWebhookResponse struct{}

type GetBillingBreakdownRequest struct {
	OrgSlug string `json:"org_slug"`
}

type GetBillingBreakdownResponse struct {
	Breakdown *models.BillingBreakdown `json:"breakdown"`
}
