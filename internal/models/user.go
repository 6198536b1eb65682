package models

import (
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// User mirrors the account registry owned by the auth service. The engine only
// reads display names and the last login time.
type User struct {
	ID          int64        `gorm:"primaryKey;autoIncrement;column:id"`
	Username    string       `gorm:"type:varchar(64);not null;uniqueIndex;column:username"`
	LastLoginAt sql.NullTime `gorm:"column:last_login_at"`
	CreatedAt   time.Time    `gorm:"not null;column:created_at"`
}

// TableName specifies the table name for User
func (User) TableName() string {
	return "users"
}

// Role is a site-wide role. Users without an assignment are regular.
type Role int16

const (
	RoleRegular   Role = 0
	RoleModerator Role = 4
	RoleAdmin     Role = 6
)

// IsElevated reports whether r is moderator or admin.
func (r Role) IsElevated() bool {
	return r == RoleModerator || r == RoleAdmin
}

func (r Role) String() string {
	switch r {
	case RoleModerator:
		return "moderator"
	case RoleAdmin:
		return "admin"
	default:
		return "regular"
	}
}

// MarshalText renders the role name.
func (r Role) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText accepts role names.
func (r *Role) UnmarshalText(b []byte) error {
	parsed, err := ParseRole(string(b))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// ParseRole converts a role name to a Role.
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "regular", "":
		return RoleRegular, nil
	case "moderator", "mod":
		return RoleModerator, nil
	case "admin":
		return RoleAdmin, nil
	default:
		return RoleRegular, fmt.Errorf("unknown role %q", s)
	}
}

// RoleAssignment grants an elevated role. At most one row per user.
type RoleAssignment struct {
	UserID    int64     `gorm:"primaryKey;autoIncrement:false;column:user_id" json:"user_id"`
	Role      Role      `gorm:"type:smallint;not null;column:role" json:"role"`
	GrantedBy int64     `gorm:"not null;column:granted_by" json:"granted_by"`
	CreatedAt time.Time `gorm:"not null;column:created_at" json:"created_at"`
}

// TableName specifies the table name for RoleAssignment
func (RoleAssignment) TableName() string {
	return "role_assignments"
}
