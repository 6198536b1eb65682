package moderation

import (
	"testing"

	"github.com/medshare/moderation/internal/models"
)

var (
	regular   = Principal{ID: 1, Role: models.RoleRegular}
	regular2  = Principal{ID: 2, Role: models.RoleRegular}
	moderator = Principal{ID: 3, Role: models.RoleModerator}
	mod2      = Principal{ID: 4, Role: models.RoleModerator}
	admin     = Principal{ID: 5, Role: models.RoleAdmin}
	admin2    = Principal{ID: 6, Role: models.RoleAdmin}
)

func TestCanRemove(t *testing.T) {
	tests := []struct {
		name         string
		actor, owner Principal
		expected     bool
	}{
		{"regular self", regular, regular, true},
		{"moderator self", moderator, moderator, true},
		{"admin self", admin, admin, true},
		{"regular other regular", regular, regular2, false},
		{"regular admin", regular, admin, false},
		{"moderator regular", moderator, regular, true},
		{"moderator moderator", moderator, mod2, true},
		{"moderator admin", moderator, admin, false},
		{"admin moderator", admin, moderator, true},
		{"admin admin", admin, admin2, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanRemove(tt.actor, tt.owner); got != tt.expected {
				t.Errorf("CanRemove(%v, %v) = %v, want %v", tt.actor, tt.owner, got, tt.expected)
			}
		})
	}
}

func TestCanRemove_SelfAlwaysAllowed(t *testing.T) {
	for _, role := range []models.Role{models.RoleRegular, models.RoleModerator, models.RoleAdmin} {
		p := Principal{ID: 42, Role: role}
		if !CanRemove(p, p) {
			t.Errorf("CanRemove(self) = false for %s", role)
		}
		if !isHardDelete(p, p) {
			t.Errorf("self removal by %s should hard delete", role)
		}
	}
	if isHardDelete(moderator, regular) {
		t.Errorf("privileged removal should soft delete")
	}
}

func TestCanReport(t *testing.T) {
	tests := []struct {
		name         string
		actor, owner Principal
		expected     bool
	}{
		{"regular other regular", regular, regular2, true},
		{"regular moderator", regular, moderator, true},
		{"regular self", regular, regular, false},
		{"regular admin", regular, admin, false},
		{"moderator regular", moderator, regular, false},
		{"admin regular", admin, regular, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanReport(tt.actor, tt.owner); got != tt.expected {
				t.Errorf("CanReport(%v, %v) = %v, want %v", tt.actor, tt.owner, got, tt.expected)
			}
		})
	}
}

func TestRoleChecks(t *testing.T) {
	tests := []struct {
		name                      string
		actor                     Principal
		restore, manage, moderate bool
	}{
		{"regular", regular, false, false, false},
		{"moderator", moderator, false, false, true},
		{"admin", admin, true, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanRestore(tt.actor); got != tt.restore {
				t.Errorf("CanRestore() = %v, want %v", got, tt.restore)
			}
			if got := CanManageRoles(tt.actor); got != tt.manage {
				t.Errorf("CanManageRoles() = %v, want %v", got, tt.manage)
			}
			if got := CanModerate(tt.actor); got != tt.moderate {
				t.Errorf("CanModerate() = %v, want %v", got, tt.moderate)
			}
		})
	}
}

func TestCanSanction(t *testing.T) {
	tests := []struct {
		name          string
		actor, target Principal
		expected      bool
	}{
		{"moderator regular", moderator, regular, true},
		{"moderator moderator", moderator, mod2, true},
		{"moderator admin", moderator, admin, false},
		{"admin moderator", admin, moderator, true},
		{"moderator self", moderator, moderator, false},
		{"regular regular", regular, regular2, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanSanction(tt.actor, tt.target); got != tt.expected {
				t.Errorf("CanSanction(%v, %v) = %v, want %v", tt.actor, tt.target, got, tt.expected)
			}
		})
	}
}
