package moderation

import "github.com/medshare/moderation/internal/models"

// Principal is a user together with the role resolved for them. An owner
// whose role could not be resolved is represented as RoleRegular.
type Principal struct {
	ID   int64
	Role models.Role
}

// CanRemove reports whether actor may remove content owned by owner. Owners
// may always remove their own content; moderators and admins may remove
// anything not owned by an admin.
func CanRemove(actor, owner Principal) bool {
	if actor.ID == owner.ID {
		return true
	}
	return actor.Role.IsElevated() && owner.Role != models.RoleAdmin
}

// CanReport reports whether actor may file a report against owner's content.
// Elevated roles remove directly instead of reporting.
func CanReport(actor, owner Principal) bool {
	return actor.Role == models.RoleRegular &&
		actor.ID != owner.ID &&
		owner.Role != models.RoleAdmin
}

// CanRestore reports whether actor may undo a removal.
func CanRestore(actor Principal) bool {
	return actor.Role == models.RoleAdmin
}

// CanManageRoles reports whether actor may grant or revoke roles.
func CanManageRoles(actor Principal) bool {
	return actor.Role == models.RoleAdmin
}

// CanModerate reports whether actor may work the report queue and answer
// appeals.
func CanModerate(actor Principal) bool {
	return actor.Role.IsElevated()
}

// CanSanction reports whether actor may warn, ban or unban target.
func CanSanction(actor, target Principal) bool {
	return actor.Role.IsElevated() &&
		actor.ID != target.ID &&
		target.Role != models.RoleAdmin
}

// isHardDelete reports whether a permitted removal deletes the row instead
// of appending a removal entry.
func isHardDelete(actor, owner Principal) bool {
	return actor.ID == owner.ID
}
