package memory

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/wolfeidau/orgkeeper/internal/models"
	"github.com/wolfeidau/orgkeeper/internal/store"
)

// InvitationStore implements store.InvitationStore using in-memory storage.
type InvitationStore struct {
	db *db
}

// Create stores a new pending invitation.
func (s *InvitationStore) Create(ctx context.Context, inv *models.Invitation) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if _, exists := s.db.invitations[inv.InvitationID]; exists {
		return store.ErrInvitationAlreadyExists
	}
	if _, exists := s.db.inviteTokens[inv.TokenDigest]; exists {
		return store.ErrInvitationAlreadyExists
	}
	if s.findPendingLocked(inv.OrgID, inv.Email) != nil {
		return store.ErrInvitationAlreadyExists
	}

	clone := *inv
	s.db.invitations[inv.InvitationID] = &clone
	s.db.inviteTokens[inv.TokenDigest] = inv.InvitationID

	return nil
}

// Get retrieves an invitation by ID.
func (s *InvitationStore) Get(ctx context.Context, invitationID uuid.UUID) (*models.Invitation, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	inv, ok := s.db.invitations[invitationID]
	if !ok {
		return nil, store.ErrInvitationNotFound
	}

	clone := *inv
	return &clone, nil
}

// GetByTokenDigest retrieves an invitation by token digest.
func (s *InvitationStore) GetByTokenDigest(ctx context.Context, digest string) (*models.Invitation, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	id, ok := s.db.inviteTokens[digest]
	if !ok {
		return nil, store.ErrInvitationNotFound
	}

	clone := *s.db.invitations[id]
	return &clone, nil
}

// FindPending returns the stored pending invitation for an email.
func (s *InvitationStore) FindPending(ctx context.Context, orgID uuid.UUID, email string) (*models.Invitation, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	inv := s.findPendingLocked(orgID, email)
	if inv == nil {
		return nil, store.ErrInvitationNotFound
	}

	clone := *inv
	return &clone, nil
}

func (s *InvitationStore) findPendingLocked(orgID uuid.UUID, email string) *models.Invitation {
	for _, inv := range s.db.invitations {
		if inv.OrgID == orgID && inv.Status == models.InvitationPending && strings.EqualFold(inv.Email, email) {
			return inv
		}
	}
	return nil
}

// ListByOrganization returns all invitations of an organization, newest first.
func (s *InvitationStore) ListByOrganization(ctx context.Context, orgID uuid.UUID) ([]*models.Invitation, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	var result []*models.Invitation
	for _, inv := range s.db.invitations {
		if inv.OrgID == orgID {
			clone := *inv
			result = append(result, &clone)
		}
	}

	slices.SortFunc(result, func(a, b *models.Invitation) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})

	return result, nil
}

// Transition moves a pending invitation to revoked or expired.
func (s *InvitationStore) Transition(ctx context.Context, invitationID uuid.UUID, to models.InvitationStatus, at time.Time) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	inv, ok := s.db.invitations[invitationID]
	if !ok {
		return store.ErrInvitationNotFound
	}
	if inv.Status != models.InvitationPending {
		return store.ErrInvitationStateChanged
	}

	inv.Status = to
	if to == models.InvitationRevoked {
		inv.RevokedAt = &at
	}

	return nil
}

// Accept flips a pending invitation to accepted and adds the membership in one critical section.
func (s *InvitationStore) Accept(ctx context.Context, invitationID uuid.UUID, membership *models.Membership, at time.Time) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	inv, ok := s.db.invitations[invitationID]
	if !ok {
		return store.ErrInvitationNotFound
	}
	if inv.Status != models.InvitationPending {
		return store.ErrInvitationStateChanged
	}
	if _, exists := s.db.organizations[membership.OrgID]; !exists {
		return store.ErrOrganizationNotFound
	}

	members := s.db.memberships[membership.OrgID]
	if _, exists := members[membership.ActorID]; exists {
		return store.ErrMembershipAlreadyExists
	}

	clone := *membership
	members[membership.ActorID] = &clone

	actorID := membership.ActorID
	inv.Status = models.InvitationAccepted
	inv.AcceptedAt = &at
	inv.AcceptedBy = &actorID

	return nil
}
