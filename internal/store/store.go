// Package store defines the persistence contracts of organizations, memberships,
// invitations and credentials. Implementations live in the memory and postgres packages.
package store

// Stores groups the store implementations sharing one backend.
type Stores struct {
	Organizations OrganizationStore
	Memberships   MembershipStore
	Invitations   InvitationStore
	APIKeys       APIKeyStore
	Webhooks      WebhookStore
}
