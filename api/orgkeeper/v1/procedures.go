// Package orgkeeperv1 defines the orgkeeper.v1 RPC surface: procedure paths, wire messages
// and the JSON codec shared by the server and its clients.
package orgkeeperv1

const (
	OrganizationServiceName = "orgkeeper.v1.OrganizationService"
	InvitationServiceName   = "orgkeeper.v1.InvitationService"
	CredentialServiceName   = "orgkeeper.v1.CredentialService"
	BillingServiceName      = "orgkeeper.v1.BillingService"
)

// OrganizationService procedures.
const (
	OrganizationServiceCreateOrganizationProcedure     = "/" + OrganizationServiceName + "/CreateOrganization"
	OrganizationServiceListOrganizationsProcedure      = "/" + OrganizationServiceName + "/ListOrganizations"
	OrganizationServiceGetOrganizationContextProcedure = "/" + OrganizationServiceName + "/GetOrganizationContext"
	OrganizationServiceUpdateOrganizationProcedure     = "/" + OrganizationServiceName + "/UpdateOrganization"
	OrganizationServiceDeleteOrganizationProcedure     = "/" + OrganizationServiceName + "/DeleteOrganization"
	OrganizationServiceTransferOwnershipProcedure      = "/" + OrganizationServiceName + "/TransferOwnership"
	OrganizationServiceListMembersProcedure            = "/" + OrganizationServiceName + "/ListMembers"
	OrganizationServiceUpdateMemberRoleProcedure       = "/" + OrganizationServiceName + "/UpdateMemberRole"
	OrganizationServiceRemoveMemberProcedure           = "/" + OrganizationServiceName + "/RemoveMember"
	OrganizationServiceGetEntitlementProcedure         = "/" + OrganizationServiceName + "/GetEntitlement"
)

// InvitationService procedures.
const (
	InvitationServiceCreateInvitationProcedure  = "/" + InvitationServiceName + "/CreateInvitation"
	InvitationServiceAcceptInvitationProcedure  = "/" + InvitationServiceName + "/AcceptInvitation"
	InvitationServiceRevokeInvitationProcedure  = "/" + InvitationServiceName + "/RevokeInvitation"
	InvitationServiceListInvitationsProcedure   = "/" + InvitationServiceName + "/ListInvitations"
	InvitationServicePreviewInvitationProcedure = "/" + InvitationServiceName + "/PreviewInvitation"
)

// CredentialService procedures.
const (
	CredentialServiceCreateAPIKeyProcedure   = "/" + CredentialServiceName + "/CreateAPIKey"
	CredentialServiceListAPIKeysProcedure    = "/" + CredentialServiceName + "/ListAPIKeys"
	CredentialServiceRevokeAPIKeyProcedure   = "/" + CredentialServiceName + "/RevokeAPIKey"
	CredentialServiceValidateAPIKeyProcedure = "/" + CredentialServiceName + "/ValidateAPIKey"
	CredentialServiceCreateWebhookProcedure  = "/" + CredentialServiceName + "/CreateWebhook"
	CredentialServiceListWebhooksProcedure   = "/" + CredentialServiceName + "/ListWebhooks"
	CredentialServiceDeleteWebhookProcedure  = "/" + CredentialServiceName + "/DeleteWebhook"
)

// BillingService procedures.
const (
	BillingServiceGetBillingBreakdownProcedure = "/" + BillingServiceName + "/GetBillingBreakdown"
)

// PublicProcedures are served without an identity token.
var PublicProcedures = []string{
	CredentialServiceValidateAPIKeyProcedure,
	InvitationServicePreviewInvitationProcedure,
}

// ErrorReasonHeader carries the stable error kind on failed calls.
const ErrorReasonHeader = "Error-Reason"
