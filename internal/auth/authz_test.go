package auth

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/orgkeeper/internal/apperr"
	"github.com/wolfeidau/orgkeeper/internal/models"
)

func TestCanPerform(t *testing.T) {
	tests := []struct {
		name           string
		role           models.Role
		action         Action
		expectedResult bool
	}{
		// Owner permissions
		{
			name:           "owner can delete organization",
			role:           models.RoleOwner,
			action:         ActionOrgDelete,
			expectedResult: true,
		},
		{
			name:           "owner can transfer ownership",
			role:           models.RoleOwner,
			action:         ActionOrgTransferOwnership,
			expectedResult: true,
		},
		{
			name:           "owner can manage invitations",
			role:           models.RoleOwner,
			action:         ActionInvitationsManage,
			expectedResult: true,
		},

		{
			name:           "owner is never granted remove_owner",
			role:           models.RoleOwner,
			action:         ActionMembersRemoveOwner,
			expectedResult: false,
		},

		// Admin permissions
		{
			name:           "admin can manage members",
			role:           models.RoleAdmin,
			action:         ActionMembersManage,
			expectedResult: true,
		},
		{
			name:           "admin can manage webhooks",
			role:           models.RoleAdmin,
			action:         ActionWebhooksManage,
			expectedResult: true,
		},
		{
			name:           "admin can manage api keys",
			role:           models.RoleAdmin,
			action:         ActionAPIKeysManage,
			expectedResult: true,
		},
		{
			name:           "admin can manage billing",
			role:           models.RoleAdmin,
			action:         ActionBillingManage,
			expectedResult: true,
		},
		{
			name:           "admin cannot delete organization",
			role:           models.RoleAdmin,
			action:         ActionOrgDelete,
			expectedResult: false,
		},
		{
			name:           "admin cannot transfer ownership",
			role:           models.RoleAdmin,
			action:         ActionOrgTransferOwnership,
			expectedResult: false,
		},

		// Member permissions
		{
			name:           "member can read organization",
			role:           models.RoleMember,
			action:         ActionOrgRead,
			expectedResult: true,
		},
		{
			name:           "member can manage own profile",
			role:           models.RoleMember,
			action:         ActionProfileManageOwn,
			expectedResult: true,
		},
		{
			name:           "member cannot update organization",
			role:           models.RoleMember,
			action:         ActionOrgUpdate,
			expectedResult: false,
		},
		{
			name:           "member cannot manage invitations",
			role:           models.RoleMember,
			action:         ActionInvitationsManage,
			expectedResult: false,
		},
		{
			name:           "member cannot manage api keys",
			role:           models.RoleMember,
			action:         ActionAPIKeysManage,
			expectedResult: false,
		},

		// Unknown role
		{
			name:           "unknown role has no permissions",
			role:           models.Role("superuser"),
			action:         ActionOrgRead,
			expectedResult: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.expectedResult, CanPerform(tt.role, tt.action))
		})
	}
}

func TestRoleActionsAreNested(t *testing.T) {
	for _, action := range RoleActions[models.RoleMember] {
		require.True(t, CanPerform(models.RoleAdmin, action), "admin should have %s", action)
	}
	for _, action := range RoleActions[models.RoleAdmin] {
		require.True(t, CanPerform(models.RoleOwner, action), "owner should have %s", action)
	}
}

func TestCanManageMember(t *testing.T) {
	require.True(t, CanManageMember(models.RoleAdmin, models.RoleMember))
	require.True(t, CanManageMember(models.RoleAdmin, models.RoleAdmin))
	require.True(t, CanManageMember(models.RoleOwner, models.RoleAdmin))
	require.False(t, CanManageMember(models.RoleAdmin, models.RoleOwner))
	require.False(t, CanManageMember(models.RoleOwner, models.RoleOwner))
	require.False(t, CanManageMember(models.RoleMember, models.RoleMember))
}

func TestRequireActor(t *testing.T) {
	t.Run("no actor in context", func(t *testing.T) {
		_, err := RequireActor(context.Background())
		require.ErrorIs(t, err, apperr.ErrUnauthorized)
	})

	t.Run("actor in context", func(t *testing.T) {
		actor := &Actor{ActorID: uuid.Must(uuid.NewV7()), Email: "a@x.com"}
		ctx := WithActor(context.Background(), actor)

		got, err := RequireActor(ctx)
		require.NoError(t, err)
		require.Equal(t, actor, got)
	})
}

func TestVerifiedEmail(t *testing.T) {
	tests := []struct {
		name     string
		actor    *Actor
		expected string
	}{
		{name: "verified email is lowercased", actor: &Actor{Email: "Alice@Example.COM", EmailVerified: true}, expected: "alice@example.com"},
		{name: "unverified email is dropped", actor: &Actor{Email: "alice@example.com"}, expected: ""},
		{name: "verified but empty", actor: &Actor{EmailVerified: true}, expected: ""},
		{name: "nil actor", actor: nil, expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.expected, tt.actor.VerifiedEmail())
		})
	}
}
