package models

import (
	"regexp"
	"time"

	"github.com/google/uuid"
)

var slugPattern = regexp.MustCompile(`^[a-z0-9](?:[a-z0-9-]{1,61}[a-z0-9])$`)

// Organization represents an organization (tenant) in the system.
// An organization owns memberships, invitations, credentials and a billing account.
type Organization struct {
	OrgID             uuid.UUID // UUIDv7
	Slug              string    // unique, URL-safe, immutable after creation
	Name              string
	BillingAccountRef string    // opaque payment-provider customer id, may be empty
	OwnerActorID      uuid.UUID // mirrors the single Owner membership
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// ValidSlug reports whether slug is lowercase, URL-safe and between 3 and 63 characters.
func ValidSlug(slug string) bool {
	return slugPattern.MatchString(slug)
}

// Role is the role a member holds within an organization.
type Role string

const (
	RoleOwner  Role = "owner"
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

// Rank orders roles, higher is more privileged. Unknown roles rank zero.
func (r Role) Rank() int {
	switch r {
	case RoleOwner:
		return 3
	case RoleAdmin:
		return 2
	case RoleMember:
		return 1
	default:
		return 0
	}
}

// Valid reports whether r is one of the three known roles.
func (r Role) Valid() bool {
	return r.Rank() > 0
}

// ParseRole converts a string into a Role.
func ParseRole(s string) (Role, bool) {
	r := Role(s)
	return r, r.Valid()
}

// Membership binds an actor to an organization with a role.
// (OrgID, ActorID) is unique.
type Membership struct {
	OrgID     uuid.UUID
	ActorID   uuid.UUID
	Email     string // verified email captured at join time, lowercase
	Role      Role
	CreatedAt time.Time
}
