package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/wolfeidau/orgkeeper/internal/models"
)

// Sentinel errors for organization and membership store operations
var (
	ErrOrganizationNotFound      = errors.New("organization not found")
	ErrOrganizationAlreadyExists = errors.New("organization already exists")
	ErrMembershipNotFound        = errors.New("membership not found")
	ErrMembershipAlreadyExists   = errors.New("membership already exists")
)

// OrganizationStore defines the interface for organization storage operations.
// Organizations represent tenants, each with exactly one owner membership.
type OrganizationStore interface {
	// Create creates a new organization together with its owner membership, atomically.
	// Returns ErrOrganizationAlreadyExists if the ID or slug is already taken.
	Create(ctx context.Context, org *models.Organization, owner *models.Membership) error

	// Get retrieves an organization by ID.
	// Returns ErrOrganizationNotFound if the organization doesn't exist.
	Get(ctx context.Context, orgID uuid.UUID) (*models.Organization, error)

	// GetBySlug retrieves an organization by its slug.
	// Returns ErrOrganizationNotFound if no organization has the slug.
	GetBySlug(ctx context.Context, slug string) (*models.Organization, error)

	// Update updates the mutable fields (name, billing account) of an organization.
	// The slug and owner are never changed by Update.
	// Returns ErrOrganizationNotFound if the organization doesn't exist.
	Update(ctx context.Context, org *models.Organization) error

	// Delete deletes an organization by ID.
	// This cascade-deletes its memberships, invitations, API keys and webhooks.
	// Returns ErrOrganizationNotFound if the organization doesn't exist.
	Delete(ctx context.Context, orgID uuid.UUID) error

	// ListByMember returns all organizations the actor holds a membership in.
	ListByMember(ctx context.Context, actorID uuid.UUID) ([]*models.Organization, error)

	// TransferOwnership demotes the current owner to admin and promotes newOwner to owner,
	// atomically, stamping the organization's UpdatedAt with at. newOwner must already be a member.
	// Returns ErrMembershipNotFound if newOwner is not a member.
	TransferOwnership(ctx context.Context, orgID, newOwnerID uuid.UUID, at time.Time) error
}

// MembershipStore defines the interface for membership storage operations.
type MembershipStore interface {
	// Get retrieves the membership of an actor in an organization.
	// Returns ErrMembershipNotFound if the actor is not a member.
	Get(ctx context.Context, orgID, actorID uuid.UUID) (*models.Membership, error)

	// GetByEmail retrieves the membership for an email address in an organization.
	// Returns ErrMembershipNotFound if no member has the email.
	GetByEmail(ctx context.Context, orgID uuid.UUID, email string) (*models.Membership, error)

	// List returns all memberships of an organization ordered by creation time.
	List(ctx context.Context, orgID uuid.UUID) ([]*models.Membership, error)

	// UpdateRole changes the role of a non-owner member. The owner role can only
	// be granted or removed through OrganizationStore.TransferOwnership.
	// Returns ErrMembershipNotFound if the actor is not a non-owner member.
	UpdateRole(ctx context.Context, orgID, actorID uuid.UUID, role models.Role) error

	// Delete removes a non-owner membership.
	// Returns ErrMembershipNotFound if the actor is not a non-owner member.
	Delete(ctx context.Context, orgID, actorID uuid.UUID) error
}
