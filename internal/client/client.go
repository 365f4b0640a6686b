package client

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"connectrpc.com/connect"
	"connectrpc.com/otelconnect"
	orgkeeperv1 "github.com/wolfeidau/orgkeeper/api/orgkeeper/v1"
)

// Config holds common client configuration
type Config struct {
	ServerURL string
	Token     string
	Timeout   time.Duration
	Tracing   bool
}

// DefaultConfig returns a default client configuration
func DefaultConfig() Config {
	return Config{
		ServerURL: "https://localhost:8443",
		Timeout:   30 * time.Second,
	}
}

// Client calls the orgkeeper.v1 services.
type Client struct {
	httpClient connect.HTTPClient
	baseURL    string
	opts       []connect.ClientOption
}

// New creates a client. A non-empty Config.Token is sent as a bearer token on every call.
func New(config Config, httpClient connect.HTTPClient) (*Client, error) {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: config.Timeout}
	}

	interceptors := []connect.Interceptor{}
	if config.Token != "" {
		interceptors = append(interceptors, NewBearerInterceptor(config.Token))
	}
	if config.Tracing {
		otelInterceptor, err := otelconnect.NewInterceptor()
		if err != nil {
			return nil, err
		}
		interceptors = append(interceptors, otelInterceptor)
	}

	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(config.ServerURL, "/"),
		opts: []connect.ClientOption{
			connect.WithCodec(orgkeeperv1.Codec{}),
			connect.WithInterceptors(interceptors...),
		},
	}, nil
}

// NewBearerInterceptor sets the Authorization header on outgoing unary calls.
func NewBearerInterceptor(token string) connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			if req.Spec().IsClient {
				req.Header().Set("Authorization", "Bearer "+token)
			}
			return next(ctx, req)
		}
	}
}

func call[Req, Res any](ctx context.Context, c *Client, procedure string, req *Req) (*Res, error) {
	rpc := connect.NewClient[Req, Res](c.httpClient, c.baseURL+procedure, c.opts...)
	resp, err := rpc.CallUnary(ctx, connect.NewRequest(req))
	if err != nil {
		return nil, err
	}
	return resp.Msg, nil
}

// ErrorReason returns the stable reason attached to a failed call, or "" if none.
func ErrorReason(err error) string {
	var cerr *connect.Error
	if errors.As(err, &cerr) {
		return cerr.Meta().Get(orgkeeperv1.ErrorReasonHeader)
	}
	return ""
}

func (c *Client) CreateOrganization(ctx context.Context, req *orgkeeperv1.CreateOrganizationRequest) (*orgkeeperv1.CreateOrganizationResponse, error) {
	return call[orgkeeperv1.CreateOrganizationRequest, orgkeeperv1.CreateOrganizationResponse](ctx, c, orgkeeperv1.OrganizationServiceCreateOrganizationProcedure, req)
}

func (c *Client) ListOrganizations(ctx context.Context, req *orgkeeperv1.ListOrganizationsRequest) (*orgkeeperv1.ListOrganizationsResponse, error) {
	return call[orgkeeperv1.ListOrganizationsRequest, orgkeeperv1.ListOrganizationsResponse](ctx, c, orgkeeperv1.OrganizationServiceListOrganizationsProcedure, req)
}

func (c *Client) GetOrganizationContext(ctx context.Context, req *orgkeeperv1.GetOrganizationContextRequest) (*orgkeeperv1.GetOrganizationContextResponse, error) {
	return call[orgkeeperv1.GetOrganizationContextRequest, orgkeeperv1.GetOrganizationContextResponse](ctx, c, orgkeeperv1.OrganizationServiceGetOrganizationContextProcedure, req)
}

func (c *Client) UpdateOrganization(ctx context.Context, req *orgkeeperv1.UpdateOrganizationRequest) (*orgkeeperv1.UpdateOrganizationResponse, error) {
	return call[orgkeeperv1.UpdateOrganizationRequest, orgkeeperv1.UpdateOrganizationResponse](ctx, c, orgkeeperv1.OrganizationServiceUpdateOrganizationProcedure, req)
}

func (c *Client) DeleteOrganization(ctx context.Context, req *orgkeeperv1.DeleteOrganizationRequest) (*orgkeeperv1.DeleteOrganizationResponse, error) {
	return call[orgkeeperv1.DeleteOrganizationRequest, orgkeeperv1.DeleteOrganizationResponse](ctx, c, orgkeeperv1.OrganizationServiceDeleteOrganizationProcedure, req)
}

func (c *Client) TransferOwnership(ctx context.Context, req *orgkeeperv1.TransferOwnershipRequest) (*orgkeeperv1.TransferOwnershipResponse, error) {
	return call[orgkeeperv1.TransferOwnershipRequest, orgkeeperv1.TransferOwnershipResponse](ctx, c, orgkeeperv1.OrganizationServiceTransferOwnershipProcedure, req)
}

func (c *Client) ListMembers(ctx context.Context, req *orgkeeperv1.ListMembersRequest) (*orgkeeperv1.ListMembersResponse, error) {
	return call[orgkeeperv1.ListMembersRequest, orgkeeperv1.ListMembersResponse](ctx, c, orgkeeperv1.OrganizationServiceListMembersProcedure, req)
}

func (c *Client) UpdateMemberRole(ctx context.Context, req *orgkeeperv1.UpdateMemberRoleRequest) (*orgkeeperv1.UpdateMemberRoleResponse, error) {
	return call[orgkeeperv1.UpdateMemberRoleRequest, orgkeeperv1.UpdateMemberRoleResponse](ctx, c, orgkeeperv1.OrganizationServiceUpdateMemberRoleProcedure, req)
}

func (c *Client) RemoveMember(ctx context.Context, req *orgkeeperv1.RemoveMemberRequest) (*orgkeeperv1.RemoveMemberResponse, error) {
	return call[orgkeeperv1.RemoveMemberRequest, orgkeeperv1.RemoveMemberResponse](ctx, c, orgkeeperv1.OrganizationServiceRemoveMemberProcedure, req)
}

func (c *Client) GetEntitlement(ctx context.Context, req *orgkeeperv1.GetEntitlementRequest) (*orgkeeperv1.GetEntitlementResponse, error) {
	return call[orgkeeperv1.GetEntitlementRequest, orgkeeperv1.GetEntitlementResponse](ctx, c, orgkeeperv1.OrganizationServiceGetEntitlementProcedure, req)
}

func (c *Client) CreateInvitation(ctx context.Context, req *orgkeeperv1.CreateInvitationRequest) (*orgkeeperv1.CreateInvitationResponse, error) {
	return call[orgkeeperv1.CreateInvitationRequest, orgkeeperv1.CreateInvitationResponse](ctx, c, orgkeeperv1.InvitationServiceCreateInvitationProcedure, req)
}

func (c *Client) AcceptInvitation(ctx context.Context, req *orgkeeperv1.AcceptInvitationRequest) (*orgkeeperv1.AcceptInvitationResponse, error) {
	return call[orgkeeperv1.AcceptInvitationRequest, orgkeeperv1.AcceptInvitationResponse](ctx, c, orgkeeperv1.InvitationServiceAcceptInvitationProcedure, req)
}

func (c *Client) RevokeInvitation(ctx context.Context, req *orgkeeperv1.RevokeInvitationRequest) (*orgkeeperv1.RevokeInvitationResponse, error) {
	return call[orgkeeperv1.RevokeInvitationRequest, orgkeeperv1.RevokeInvitationResponse](ctx, c, orgkeeperv1.InvitationServiceRevokeInvitationProcedure, req)
}

func (c *Client) ListInvitations(ctx context.Context, req *orgkeeperv1.ListInvitationsRequest) (*orgkeeperv1.ListInvitationsResponse, error) {
	return call[orgkeeperv1.ListInvitationsRequest, orgkeeperv1.ListInvitationsResponse](ctx, c, orgkeeperv1.InvitationServiceListInvitationsProcedure, req)
}

func (c *Client) PreviewInvitation(ctx context.Context, req *orgkeeperv1.PreviewInvitationRequest) (*orgkeeperv1.PreviewInvitationResponse, error) {
	return call[orgkeeperv1.PreviewInvitationRequest, orgkeeperv1.PreviewInvitationResponse](ctx, c, orgkeeperv1.InvitationServicePreviewInvitationProcedure, req)
}

func (c *Client) CreateAPIKey(ctx context.Context, req *orgkeeperv1.CreateAPIKeyRequest) (*orgkeeperv1.CreateAPIKeyResponse, error) {
	return call[orgkeeperv1.CreateAPIKeyRequest, orgkeeperv1.CreateAPIKeyResponse](ctx, c, orgkeeperv1.CredentialServiceCreateAPIKeyProcedure, req)
}

func (c *Client) ListAPIKeys(ctx context.Context, req *orgkeeperv1.ListAPIKeysRequest) (*orgkeeperv1.ListAPIKeysResponse, error) {
	return call[orgkeeperv1.ListAPIKeysRequest, orgkeeperv1.ListAPIKeysResponse](ctx, c, orgkeeperv1.CredentialServiceListAPIKeysProcedure, req)
}

func (c *Client) RevokeAPIKey(ctx context.Context, req *orgkeeperv1.RevokeAPIKeyRequest) (*orgkeeperv1.RevokeAPIKeyResponse, error) {
	return call[orgkeeperv1.RevokeAPIKeyRequest, orgkeeperv1.RevokeAPIKeyResponse](ctx, c, orgkeeperv1.CredentialServiceRevokeAPIKeyProcedure, req)
}

func (c *Client) ValidateAPIKey(ctx context.Context, req *orgkeeperv1.ValidateAPIKeyRequest) (*orgkeeperv1.ValidateAPIKeyResponse, error) {
	return call[orgkeeperv1.ValidateAPIKeyRequest, orgkeeperv1.ValidateAPIKeyResponse](ctx, c, orgkeeperv1.CredentialServiceValidateAPIKeyProcedure, req)
}

func (c *Client) CreateWebhook(ctx context.Context, req *orgkeeperv1.CreateWebhookRequest) (*orgkeeperv1.CreateWebhookResponse, error) {
	return call[orgkeeperv1.CreateWebhookRequest, orgkeeperv1.CreateWebhookResponse](ctx, c, orgkeeperv1.CredentialServiceCreateWebhookProcedure, req)
}

func (c *Client) ListWebhooks(ctx context.Context, req *orgkeeperv1.ListWebhooksRequest) (*orgkeeperv1.ListWebhooksResponse, error) {
	return call[orgkeeperv1.ListWebhooksRequest, orgkeeperv1.ListWebhooksResponse](ctx, c, orgkeeperv1.CredentialServiceListWebhooksProcedure, req)
}

func (c *Client) DeleteWebhook(ctx context.Context, req *orgkeeperv1.DeleteWebhookRequest) (*orgkeeperv1.DeleteWebhookResponse, error) {
	return call[orgkeeperv1.DeleteWebhookRequest, orgkeeperv1.DeleteWebhookResponse](ctx, c, orgkeeperv1.CredentialServiceDeleteWebhookProcedure, req)
}

func (c *Client) GetBillingBreakdown(ctx context.Context, req *orgkeeperv1.GetBillingBreakdownRequest) (*orgkeeperv1.GetBillingBreakdownResponse, error) {
	return call[orgkeeperv1.GetBillingBreakdownRequest, orgkeeperv1.GetBillingBreakdownResponse](ctx, c, orgkeeperv1.BillingServiceGetBillingBreakdownProcedure, req)
}
