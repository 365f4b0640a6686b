package models

import (
	"time"

	"github.com/google/uuid"
)

// InvitationStatus is the lifecycle state of an invitation.
// Accepted, Revoked and Expired are terminal.
type InvitationStatus string

const (
	InvitationPending  InvitationStatus = "pending"
	InvitationAccepted InvitationStatus = "accepted"
	InvitationRevoked  InvitationStatus = "revoked"
	InvitationExpired  InvitationStatus = "expired"
)

// Terminal reports whether no further transition is possible from s.
func (s InvitationStatus) Terminal() bool {
	return s != InvitationPending
}

// Invitation grants membership to an email address once accepted.
type Invitation struct {
	InvitationID uuid.UUID // UUIDv7
	OrgID        uuid.UUID
	Email        string // lowercase
	Role         Role   // admin or member
	TokenDigest  string // hex SHA-256 of the raw token, unique
	Status       InvitationStatus
	InvitedBy    uuid.UUID
	CreatedAt    time.Time
	ExpiresAt    time.Time
	AcceptedAt   *time.Time
	AcceptedBy   *uuid.UUID
	RevokedAt    *time.Time
}

// EffectiveStatus returns the status as observed at now. A pending invitation
// past its expiry is reported as expired whether or not the stored row says so.
func (i *Invitation) EffectiveStatus(now time.Time) InvitationStatus {
	if i.Status == InvitationPending && !now.Before(i.ExpiresAt) {
		return InvitationExpired
	}
	return i.Status
}
