package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/wolfeidau/orgkeeper/internal/models"
)

// Sentinel errors for invitation store operations
var (
	ErrInvitationNotFound      = errors.New("invitation not found")
	ErrInvitationAlreadyExists = errors.New("invitation already exists")
	// ErrInvitationStateChanged is returned when a conditional transition finds
	// the invitation no longer in the expected state.
	ErrInvitationStateChanged = errors.New("invitation state changed")
)

// InvitationStore defines the interface for invitation storage operations.
// Transitions are conditional on the current status so concurrent writers cannot overwrite each other.
type InvitationStore interface {
	// Create stores a new pending invitation.
	// Returns ErrInvitationAlreadyExists if the token digest is taken or a pending
	// invitation already exists for the same organization and email.
	Create(ctx context.Context, inv *models.Invitation) error

	// Get retrieves an invitation by ID.
	// Returns ErrInvitationNotFound if the invitation doesn't exist.
	Get(ctx context.Context, invitationID uuid.UUID) (*models.Invitation, error)

	// GetByTokenDigest retrieves an invitation by the digest of its token.
	// Returns ErrInvitationNotFound if no invitation matches.
	GetByTokenDigest(ctx context.Context, digest string) (*models.Invitation, error)

	// FindPending returns the stored pending invitation for an email in an organization.
	// The row may be past its expiry. Returns ErrInvitationNotFound if none exists.
	FindPending(ctx context.Context, orgID uuid.UUID, email string) (*models.Invitation, error)

	// ListByOrganization returns all invitations of an organization, newest first.
	ListByOrganization(ctx context.Context, orgID uuid.UUID) ([]*models.Invitation, error)

	// Transition moves a pending invitation to a terminal status (revoked or expired).
	// Returns ErrInvitationStateChanged if the invitation is no longer pending,
	// ErrInvitationNotFound if it doesn't exist.
	Transition(ctx context.Context, invitationID uuid.UUID, to models.InvitationStatus, at time.Time) error

	// Accept marks a pending invitation accepted and inserts the membership in one transaction.
	// Either both happen or neither does.
	// Returns ErrInvitationStateChanged if the invitation is no longer pending,
	// ErrMembershipAlreadyExists if the actor is already a member.
	Accept(ctx context.Context, invitationID uuid.UUID, membership *models.Membership, at time.Time) error
}
