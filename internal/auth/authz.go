package auth

import (
	"slices"

	"github.com/wolfeidau/orgkeeper/internal/models"
)

// Action represents an organization-scoped capability.
type Action string

const (
	ActionOrgRead              Action = "org:read"
	ActionOrgUpdate            Action = "org:update"
	ActionOrgDelete            Action = "org:delete"
	ActionOrgTransferOwnership Action = "org:transfer_ownership"
	ActionMembersManage        Action = "members:manage"
	ActionMembersRemoveOwner   Action = "members:remove_owner" // never granted
	ActionInvitationsManage    Action = "invitations:manage"
	ActionWebhooksManage       Action = "webhooks:manage"
	ActionAPIKeysManage        Action = "apikeys:manage"
	ActionBillingManage        Action = "billing:manage"
	ActionBillingRead          Action = "billing:read"
	ActionProfileManageOwn     Action = "profile:manage_own"
)

// memberActions are granted to every role.
var memberActions = []Action{
	ActionOrgRead,
	ActionBillingRead,
	ActionProfileManageOwn,
}

// adminActions are granted to admins and owners.
var adminActions = append(slices.Clone(memberActions),
	ActionOrgUpdate,
	ActionMembersManage,
	ActionInvitationsManage,
	ActionWebhooksManage,
	ActionAPIKeysManage,
	ActionBillingManage,
)

// RoleActions maps each role to the actions it may perform.
var RoleActions = map[models.Role][]Action{
	models.RoleOwner: append(slices.Clone(adminActions),
		ActionOrgDelete,
		ActionOrgTransferOwnership,
	),
	models.RoleAdmin:  adminActions,
	models.RoleMember: memberActions,
}

// CanPerform checks if a role permits an action. Unknown roles permit nothing.
func CanPerform(role models.Role, action Action) bool {
	actions, ok := RoleActions[role]
	if !ok {
		return false
	}
	return slices.Contains(actions, action)
}

// CanManageMember reports whether a member holding actor may change or remove
// a member holding target. Nobody may act on the owner; ownership moves only by transfer.
func CanManageMember(actor, target models.Role) bool {
	if !CanPerform(actor, ActionMembersManage) {
		return false
	}
	return target != models.RoleOwner
}
