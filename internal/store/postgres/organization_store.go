package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/wolfeidau/orgkeeper/internal/models"
	"github.com/wolfeidau/orgkeeper/internal/store"
)

// OrganizationStore implements store.OrganizationStore using PostgreSQL.
type OrganizationStore struct {
	pool *pgxpool.Pool
}

// NewOrganizationStore creates a new PostgreSQL-backed organization store.
// It shares the connection pool with other stores.
func NewOrganizationStore(pool *pgxpool.Pool) *OrganizationStore {
	return &OrganizationStore{
		pool: pool,
	}
}

const organizationColumns = `org_id, slug, name, billing_account_ref, owner_actor_id, created_at, updated_at`

func scanOrganization(row pgx.Row) (*models.Organization, error) {
	var org models.Organization
	err := row.Scan(
		&org.OrgID,
		&org.Slug,
		&org.Name,
		&org.BillingAccountRef,
		&org.OwnerActorID,
		&org.CreatedAt,
		&org.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &org, nil
}

// Create inserts the organization and its owner membership in one transaction.
func (s *OrganizationStore) Create(ctx context.Context, org *models.Organization, owner *models.Membership) error {
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO organizations (`+organizationColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`,
			org.OrgID,
			org.Slug,
			org.Name,
			org.BillingAccountRef,
			org.OwnerActorID,
			org.CreatedAt,
			org.UpdatedAt,
		)
		if err != nil {
			return err
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO memberships (org_id, actor_id, email, role, created_at)
			VALUES ($1, $2, $3, $4, $5)
		`,
			owner.OrgID,
			owner.ActorID,
			owner.Email,
			owner.Role,
			owner.CreatedAt,
		)
		return err
	})
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrOrganizationAlreadyExists
		}
		return fmt.Errorf("failed to create organization: %w", mapPostgresError(err))
	}

	zerolog.Ctx(ctx).Debug().
		Str("org_id", org.OrgID.String()).
		Str("slug", org.Slug).
		Msg("Created organization")

	return nil
}

// Get retrieves an organization by ID.
func (s *OrganizationStore) Get(ctx context.Context, orgID uuid.UUID) (*models.Organization, error) {
	org, err := scanOrganization(s.pool.QueryRow(ctx, `
		SELECT `+organizationColumns+`
		FROM organizations
		WHERE org_id = $1
	`, orgID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrOrganizationNotFound
		}
		return nil, fmt.Errorf("failed to get organization: %w", mapPostgresError(err))
	}
	return org, nil
}

// GetBySlug retrieves an organization by slug.
func (s *OrganizationStore) GetBySlug(ctx context.Context, slug string) (*models.Organization, error) {
	org, err := scanOrganization(s.pool.QueryRow(ctx, `
		SELECT `+organizationColumns+`
		FROM organizations
		WHERE slug = $1
	`, slug))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrOrganizationNotFound
		}
		return nil, fmt.Errorf("failed to get organization by slug: %w", mapPostgresError(err))
	}
	return org, nil
}

// Update updates the name and billing account of an organization.
func (s *OrganizationStore) Update(ctx context.Context, org *models.Organization) error {
	result, err := s.pool.Exec(ctx, `
		UPDATE organizations SET
			name = $2,
			billing_account_ref = $3,
			updated_at = $4
		WHERE org_id = $1
	`,
		org.OrgID,
		org.Name,
		org.BillingAccountRef,
		org.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update organization: %w", mapPostgresError(err))
	}

	if result.RowsAffected() == 0 {
		return store.ErrOrganizationNotFound
	}

	zerolog.Ctx(ctx).Debug().
		Str("org_id", org.OrgID.String()).
		Msg("Updated organization")

	return nil
}

// Delete deletes an organization by ID.
// Memberships, invitations, API keys and webhooks are removed by ON DELETE CASCADE.
func (s *OrganizationStore) Delete(ctx context.Context, orgID uuid.UUID) error {
	result, err := s.pool.Exec(ctx, `DELETE FROM organizations WHERE org_id = $1`, orgID)
	if err != nil {
		return fmt.Errorf("failed to delete organization: %w", mapPostgresError(err))
	}

	if result.RowsAffected() == 0 {
		return store.ErrOrganizationNotFound
	}

	zerolog.Ctx(ctx).Info().
		Str("org_id", orgID.String()).
		Msg("Deleted organization (and cascade-deleted all dependents)")

	return nil
}

// ListByMember returns all organizations the actor belongs to, newest first.
func (s *OrganizationStore) ListByMember(ctx context.Context, actorID uuid.UUID) ([]*models.Organization, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT o.org_id, o.slug, o.name, o.billing_account_ref, o.owner_actor_id, o.created_at, o.updated_at
		FROM organizations o
		JOIN memberships m ON m.org_id = o.org_id
		WHERE m.actor_id = $1
		ORDER BY o.created_at DESC
	`, actorID)
	if err != nil {
		return nil, fmt.Errorf("failed to list organizations: %w", mapPostgresError(err))
	}
	defer rows.Close()

	var orgs []*models.Organization
	for rows.Next() {
		org, err := scanOrganization(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan organization: %w", err)
		}
		orgs = append(orgs, org)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating organizations: %w", err)
	}

	return orgs, nil
}

// TransferOwnership demotes the current owner to admin and promotes newOwnerID in one transaction.
func (s *OrganizationStore) TransferOwnership(ctx context.Context, orgID, newOwnerID uuid.UUID, at time.Time) error {
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		var exists bool
		if err := tx.QueryRow(ctx, `
			SELECT EXISTS(SELECT 1 FROM memberships WHERE org_id = $1 AND actor_id = $2)
		`, orgID, newOwnerID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return store.ErrMembershipNotFound
		}

		// Demote first so the single-owner index never sees two owners.
		if _, err := tx.Exec(ctx, `
			UPDATE memberships SET role = 'admin' WHERE org_id = $1 AND role = 'owner'
		`, orgID); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `
			UPDATE memberships SET role = 'owner' WHERE org_id = $1 AND actor_id = $2
		`, orgID, newOwnerID); err != nil {
			return err
		}

		result, err := tx.Exec(ctx, `
			UPDATE organizations SET owner_actor_id = $2, updated_at = $3 WHERE org_id = $1
		`, orgID, newOwnerID, at)
		if err != nil {
			return err
		}
		if result.RowsAffected() == 0 {
			return store.ErrOrganizationNotFound
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, store.ErrMembershipNotFound) || errors.Is(err, store.ErrOrganizationNotFound) {
			return err
		}
		return fmt.Errorf("failed to transfer ownership: %w", mapPostgresError(err))
	}

	zerolog.Ctx(ctx).Info().
		Str("org_id", orgID.String()).
		Str("new_owner_id", newOwnerID.String()).
		Msg("Transferred organization ownership")

	return nil
}

// MembershipStore implements store.MembershipStore using PostgreSQL.
type MembershipStore struct {
	pool *pgxpool.Pool
}

// NewMembershipStore creates a new PostgreSQL-backed membership store.
func NewMembershipStore(pool *pgxpool.Pool) *MembershipStore {
	return &MembershipStore{
		pool: pool,
	}
}

const membershipColumns = `org_id, actor_id, email, role, created_at`

func scanMembership(row pgx.Row) (*models.Membership, error) {
	var m models.Membership
	if err := row.Scan(&m.OrgID, &m.ActorID, &m.Email, &m.Role, &m.CreatedAt); err != nil {
		return nil, err
	}
	return &m, nil
}

// Get retrieves the membership of an actor in an organization.
func (s *MembershipStore) Get(ctx context.Context, orgID, actorID uuid.UUID) (*models.Membership, error) {
	m, err := scanMembership(s.pool.QueryRow(ctx, `
		SELECT `+membershipColumns+`
		FROM memberships
		WHERE org_id = $1 AND actor_id = $2
	`, orgID, actorID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrMembershipNotFound
		}
		return nil, fmt.Errorf("failed to get membership: %w", mapPostgresError(err))
	}
	return m, nil
}

// GetByEmail retrieves a membership by email, case-insensitively.
func (s *MembershipStore) GetByEmail(ctx context.Context, orgID uuid.UUID, email string) (*models.Membership, error) {
	m, err := scanMembership(s.pool.QueryRow(ctx, `
		SELECT `+membershipColumns+`
		FROM memberships
		WHERE org_id = $1 AND lower(email) = lower($2)
		LIMIT 1
	`, orgID, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrMembershipNotFound
		}
		return nil, fmt.Errorf("failed to get membership by email: %w", mapPostgresError(err))
	}
	return m, nil
}

// List returns all memberships of an organization ordered by creation time.
func (s *MembershipStore) List(ctx context.Context, orgID uuid.UUID) ([]*models.Membership, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+membershipColumns+`
		FROM memberships
		WHERE org_id = $1
		ORDER BY created_at ASC, actor_id ASC
	`, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list memberships: %w", mapPostgresError(err))
	}
	defer rows.Close()

	var members []*models.Membership
	for rows.Next() {
		m, err := scanMembership(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan membership: %w", err)
		}
		members = append(members, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating memberships: %w", err)
	}

	return members, nil
}

// UpdateRole changes the role of a non-owner member.
func (s *MembershipStore) UpdateRole(ctx context.Context, orgID, actorID uuid.UUID, role models.Role) error {
	result, err := s.pool.Exec(ctx, `
		UPDATE memberships SET role = $3
		WHERE org_id = $1 AND actor_id = $2 AND role <> 'owner'
	`, orgID, actorID, role)
	if err != nil {
		return fmt.Errorf("failed to update membership role: %w", mapPostgresError(err))
	}
	if result.RowsAffected() == 0 {
		return store.ErrMembershipNotFound
	}
	return nil
}

// Delete removes a non-owner membership.
func (s *MembershipStore) Delete(ctx context.Context, orgID, actorID uuid.UUID) error {
	result, err := s.pool.Exec(ctx, `
		DELETE FROM memberships
		WHERE org_id = $1 AND actor_id = $2 AND role <> 'owner'
	`, orgID, actorID)
	if err != nil {
		return fmt.Errorf("failed to delete membership: %w", mapPostgresError(err))
	}
	if result.RowsAffected() == 0 {
		return store.ErrMembershipNotFound
	}
	return nil
}
