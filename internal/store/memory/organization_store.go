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

// OrganizationStore implements store.OrganizationStore using in-memory storage.
type OrganizationStore struct {
	db *db
}

// Create creates a new organization and its owner membership.
func (s *OrganizationStore) Create(ctx context.Context, org *models.Organization, owner *models.Membership) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if _, exists := s.db.organizations[org.OrgID]; exists {
		return store.ErrOrganizationAlreadyExists
	}
	if _, exists := s.db.slugs[org.Slug]; exists {
		return store.ErrOrganizationAlreadyExists
	}

	// Clone to avoid external modifications
	clone := *org
	s.db.organizations[org.OrgID] = &clone
	s.db.slugs[org.Slug] = org.OrgID

	ownerClone := *owner
	s.db.memberships[org.OrgID] = map[uuid.UUID]*models.Membership{
		owner.ActorID: &ownerClone,
	}

	return nil
}

// Get retrieves an organization by ID.
func (s *OrganizationStore) Get(ctx context.Context, orgID uuid.UUID) (*models.Organization, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	org, exists := s.db.organizations[orgID]
	if !exists {
		return nil, store.ErrOrganizationNotFound
	}

	clone := *org
	return &clone, nil
}

// GetBySlug retrieves an organization by slug.
func (s *OrganizationStore) GetBySlug(ctx context.Context, slug string) (*models.Organization, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	orgID, exists := s.db.slugs[slug]
	if !exists {
		return nil, store.ErrOrganizationNotFound
	}

	clone := *s.db.organizations[orgID]
	return &clone, nil
}

// Update updates the name and billing account of an organization.
func (s *OrganizationStore) Update(ctx context.Context, org *models.Organization) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	existing, exists := s.db.organizations[org.OrgID]
	if !exists {
		return store.ErrOrganizationNotFound
	}

	existing.Name = org.Name
	existing.BillingAccountRef = org.BillingAccountRef
	existing.UpdatedAt = org.UpdatedAt

	return nil
}

// Delete deletes an organization and everything it owns.
func (s *OrganizationStore) Delete(ctx context.Context, orgID uuid.UUID) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	org, exists := s.db.organizations[orgID]
	if !exists {
		return store.ErrOrganizationNotFound
	}

	delete(s.db.slugs, org.Slug)
	delete(s.db.organizations, orgID)
	delete(s.db.memberships, orgID)

	for id, inv := range s.db.invitations {
		if inv.OrgID == orgID {
			delete(s.db.inviteTokens, inv.TokenDigest)
			delete(s.db.invitations, id)
		}
	}
	for id, key := range s.db.apiKeys {
		if key.OrgID == orgID {
			delete(s.db.apiKeyDigests, key.SecretDigest)
			delete(s.db.apiKeys, id)
		}
	}
	for id, hook := range s.db.webhooks {
		if hook.OrgID == orgID {
			delete(s.db.webhooks, id)
		}
	}

	return nil
}

// ListByMember returns all organizations the actor belongs to, ordered by slug.
func (s *OrganizationStore) ListByMember(ctx context.Context, actorID uuid.UUID) ([]*models.Organization, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	var result []*models.Organization
	for orgID, members := range s.db.memberships {
		if _, ok := members[actorID]; !ok {
			continue
		}
		clone := *s.db.organizations[orgID]
		result = append(result, &clone)
	}

	slices.SortFunc(result, func(a, b *models.Organization) int {
		return strings.Compare(a.Slug, b.Slug)
	})

	return result, nil
}

// TransferOwnership swaps the owner role to another existing member.
func (s *OrganizationStore) TransferOwnership(ctx context.Context, orgID, newOwnerID uuid.UUID, at time.Time) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	org, exists := s.db.organizations[orgID]
	if !exists {
		return store.ErrOrganizationNotFound
	}

	members := s.db.memberships[orgID]
	next, ok := members[newOwnerID]
	if !ok {
		return store.ErrMembershipNotFound
	}
	if next.Role == models.RoleOwner {
		return nil
	}

	if current, ok := members[org.OwnerActorID]; ok {
		current.Role = models.RoleAdmin
	}
	next.Role = models.RoleOwner
	org.OwnerActorID = newOwnerID
	org.UpdatedAt = at

	return nil
}

// MembershipStore implements store.MembershipStore using in-memory storage.
type MembershipStore struct {
	db *db
}

// Get retrieves the membership of an actor in an organization.
func (s *MembershipStore) Get(ctx context.Context, orgID, actorID uuid.UUID) (*models.Membership, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	m, ok := s.db.memberships[orgID][actorID]
	if !ok {
		return nil, store.ErrMembershipNotFound
	}

	clone := *m
	return &clone, nil
}

// GetByEmail retrieves the membership for an email address in an organization.
func (s *MembershipStore) GetByEmail(ctx context.Context, orgID uuid.UUID, email string) (*models.Membership, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	for _, m := range s.db.memberships[orgID] {
		if strings.EqualFold(m.Email, email) {
			clone := *m
			return &clone, nil
		}
	}

	return nil, store.ErrMembershipNotFound
}

// List returns all memberships of an organization ordered by creation time.
func (s *MembershipStore) List(ctx context.Context, orgID uuid.UUID) ([]*models.Membership, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	result := make([]*models.Membership, 0, len(s.db.memberships[orgID]))
	for _, m := range s.db.memberships[orgID] {
		clone := *m
		result = append(result, &clone)
	}

	slices.SortFunc(result, func(a, b *models.Membership) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ActorID.String(), b.ActorID.String())
	})

	return result, nil
}

// UpdateRole changes the role of a non-owner member.
func (s *MembershipStore) UpdateRole(ctx context.Context, orgID, actorID uuid.UUID, role models.Role) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	m, ok := s.db.memberships[orgID][actorID]
	if !ok || m.Role == models.RoleOwner {
		return store.ErrMembershipNotFound
	}

	m.Role = role
	return nil
}

// Delete removes a non-owner membership.
func (s *MembershipStore) Delete(ctx context.Context, orgID, actorID uuid.UUID) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	m, ok := s.db.memberships[orgID][actorID]
	if !ok || m.Role == models.RoleOwner {
		return store.ErrMembershipNotFound
	}

	delete(s.db.memberships[orgID], actorID)
	return nil
}
