package models

import (
	"slices"
	"time"

	"github.com/google/uuid"
)

// APIKey is an organization-scoped bearer credential.
// Only a digest of the secret is stored.
type APIKey struct {
	KeyID         uuid.UUID // UUIDv7
	OrgID         uuid.UUID
	Description   string
	SecretDigest  string // hex SHA-256 of the raw secret
	DisplayPrefix string // marker plus the first characters of the secret, for display
	CreatedBy     uuid.UUID
	CreatedAt     time.Time
	ExpiresAt     *time.Time // nil means the key never expires
	LastUsedAt    *time.Time
	LastUsedIP    string
	RevokedAt     *time.Time
}

// IsRevoked returns true if the key has been revoked.
func (k *APIKey) IsRevoked() bool {
	return k.RevokedAt != nil
}

// IsExpired reports whether the key is past its expiry at now.
func (k *APIKey) IsExpired(now time.Time) bool {
	return k.ExpiresAt != nil && !now.Before(*k.ExpiresAt)
}

// Usable reports whether the key can authenticate requests at now.
func (k *APIKey) Usable(now time.Time) bool {
	return !k.IsRevoked() && !k.IsExpired(now)
}

// EventType is a webhook trigger drawn from a fixed vocabulary.
type EventType string

const (
	EventContactCreated     EventType = "contact.created"
	EventContactUpdated     EventType = "contact.updated"
	EventContactDeleted     EventType = "contact.deleted"
	EventMemberAdded        EventType = "organization.member_added"
	EventMemberRemoved      EventType = "organization.member_removed"
	EventInvitationCreated  EventType = "invitation.created"
	EventInvitationAccepted EventType = "invitation.accepted"
	EventInvitationRevoked  EventType = "invitation.revoked"
)

// EventTypes is the complete trigger vocabulary.
var EventTypes = []EventType{
	EventContactCreated,
	EventContactUpdated,
	EventContactDeleted,
	EventMemberAdded,
	EventMemberRemoved,
	EventInvitationCreated,
	EventInvitationAccepted,
	EventInvitationRevoked,
}

// Valid reports whether e belongs to the vocabulary.
func (e EventType) Valid() bool {
	return slices.Contains(EventTypes, e)
}

// Webhook is an outbound notification target for an organization.
type Webhook struct {
	WebhookID uuid.UUID // UUIDv7
	OrgID     uuid.UUID
	URL       string
	Events    []EventType // non-empty, sorted, subset of EventTypes
	Secret    string      // HMAC signing key used for outbound delivery
	CreatedBy uuid.UUID
	CreatedAt time.Time
}
