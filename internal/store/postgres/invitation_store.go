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

// InvitationStore implements store.InvitationStore using PostgreSQL.
// Transitions are guarded by "status = 'pending'" so concurrent writers serialize on the row.
type InvitationStore struct {
	pool *pgxpool.Pool
}

// NewInvitationStore creates a new PostgreSQL-backed invitation store.
func NewInvitationStore(pool *pgxpool.Pool) *InvitationStore {
	return &InvitationStore{
		pool: pool,
	}
}

const invitationColumns = `
	invitation_id, org_id, email, role, token_digest, status, invited_by,
	created_at, expires_at, accepted_at, accepted_by, revoked_at`

func scanInvitation(row pgx.Row) (*models.Invitation, error) {
	var inv models.Invitation
	err := row.Scan(
		&inv.InvitationID,
		&inv.OrgID,
		&inv.Email,
		&inv.Role,
		&inv.TokenDigest,
		&inv.Status,
		&inv.InvitedBy,
		&inv.CreatedAt,
		&inv.ExpiresAt,
		&inv.AcceptedAt,
		&inv.AcceptedBy,
		&inv.RevokedAt,
	)
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

// Create inserts a pending invitation.
func (s *InvitationStore) Create(ctx context.Context, inv *models.Invitation) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO invitations (
			invitation_id, org_id, email, role, token_digest, status, invited_by,
			created_at, expires_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9
		)
	`,
		inv.InvitationID,
		inv.OrgID,
		inv.Email,
		inv.Role,
		inv.TokenDigest,
		inv.Status,
		inv.InvitedBy,
		inv.CreatedAt,
		inv.ExpiresAt,
	)
	if err != nil {
		switch {
		case isUniqueViolation(err):
			return store.ErrInvitationAlreadyExists
		case isForeignKeyViolation(err):
			return store.ErrOrganizationNotFound
		}
		return fmt.Errorf("failed to create invitation: %w", mapPostgresError(err))
	}

	zerolog.Ctx(ctx).Debug().
		Str("invitation_id", inv.InvitationID.String()).
		Str("org_id", inv.OrgID.String()).
		Msg("Created invitation")

	return nil
}

func (s *InvitationStore) getWhere(ctx context.Context, where string, args ...any) (*models.Invitation, error) {
	inv, err := scanInvitation(s.pool.QueryRow(ctx, `SELECT `+invitationColumns+` FROM invitations WHERE `+where, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrInvitationNotFound
		}
		return nil, fmt.Errorf("failed to get invitation: %w", mapPostgresError(err))
	}
	return inv, nil
}

// Get retrieves an invitation by ID.
func (s *InvitationStore) Get(ctx context.Context, invitationID uuid.UUID) (*models.Invitation, error) {
	return s.getWhere(ctx, `invitation_id = $1`, invitationID)
}

// GetByTokenDigest retrieves an invitation by token digest.
func (s *InvitationStore) GetByTokenDigest(ctx context.Context, digest string) (*models.Invitation, error) {
	return s.getWhere(ctx, `token_digest = $1`, digest)
}

// FindPending returns the stored pending invitation for an email, which may be past expiry.
func (s *InvitationStore) FindPending(ctx context.Context, orgID uuid.UUID, email string) (*models.Invitation, error) {
	return s.getWhere(ctx, `org_id = $1 AND lower(email) = lower($2) AND status = 'pending'`, orgID, email)
}

// ListByOrganization returns all invitations of an organization, newest first.
func (s *InvitationStore) ListByOrganization(ctx context.Context, orgID uuid.UUID) ([]*models.Invitation, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+invitationColumns+`
		FROM invitations
		WHERE org_id = $1
		ORDER BY created_at DESC
	`, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list invitations: %w", mapPostgresError(err))
	}
	defer rows.Close()

	var invs []*models.Invitation
	for rows.Next() {
		inv, err := scanInvitation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan invitation: %w", err)
		}
		invs = append(invs, inv)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating invitations: %w", err)
	}

	return invs, nil
}

// Transition moves a pending invitation to revoked or expired.
func (s *InvitationStore) Transition(ctx context.Context, invitationID uuid.UUID, to models.InvitationStatus, at time.Time) error {
	var revokedAt *time.Time
	if to == models.InvitationRevoked {
		revokedAt = &at
	}

	result, err := s.pool.Exec(ctx, `
		UPDATE invitations SET status = $2, revoked_at = COALESCE($3, revoked_at)
		WHERE invitation_id = $1 AND status = 'pending'
	`, invitationID, to, revokedAt)
	if err != nil {
		return fmt.Errorf("failed to transition invitation: %w", mapPostgresError(err))
	}

	if result.RowsAffected() == 0 {
		if _, err := s.Get(ctx, invitationID); err != nil {
			return err
		}
		return store.ErrInvitationStateChanged
	}

	return nil
}

// Accept locks the invitation row, inserts the membership and marks the invitation accepted
// in one transaction.
func (s *InvitationStore) Accept(ctx context.Context, invitationID uuid.UUID, membership *models.Membership, at time.Time) error {
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		var status models.InvitationStatus
		err := tx.QueryRow(ctx, `
			SELECT status FROM invitations WHERE invitation_id = $1 FOR UPDATE
		`, invitationID).Scan(&status)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return store.ErrInvitationNotFound
			}
			return err
		}
		if status != models.InvitationPending {
			return store.ErrInvitationStateChanged
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO memberships (org_id, actor_id, email, role, created_at)
			VALUES ($1, $2, $3, $4, $5)
		`,
			membership.OrgID,
			membership.ActorID,
			membership.Email,
			membership.Role,
			membership.CreatedAt,
		)
		if err != nil {
			switch {
			case isUniqueViolation(err):
				return store.ErrMembershipAlreadyExists
			case isForeignKeyViolation(err):
				return store.ErrOrganizationNotFound
			}
			return err
		}

		_, err = tx.Exec(ctx, `
			UPDATE invitations SET status = 'accepted', accepted_at = $2, accepted_by = $3
			WHERE invitation_id = $1
		`, invitationID, at, membership.ActorID)
		return err
	})
	if err != nil {
		switch {
		case errors.Is(err, store.ErrInvitationNotFound),
			errors.Is(err, store.ErrInvitationStateChanged),
			errors.Is(err, store.ErrMembershipAlreadyExists),
			errors.Is(err, store.ErrOrganizationNotFound):
			return err
		}
		return fmt.Errorf("failed to accept invitation: %w", mapPostgresError(err))
	}

	zerolog.Ctx(ctx).Debug().
		Str("invitation_id", invitationID.String()).
		Str("actor_id", membership.ActorID.String()).
		Msg("Accepted invitation")

	return nil
}
