package models

import (
	"database/sql"
	"time"
)

// Notification is an outbound message queued for the delivery service
// (email, in-app). The engine only writes these rows.
type Notification struct {
	ID        int64          `gorm:"primaryKey;autoIncrement;column:id"`
	Type      int16          `gorm:"type:smallint;not null;column:type_id"`
	SrcID     sql.NullInt64  `gorm:"column:src_id"`
	DstID     int64          `gorm:"not null;index;column:dst_id"`
	Payload   sql.NullString `gorm:"type:text;column:payload"`
	CreatedAt time.Time      `gorm:"not null;column:created_at"`
}

// TableName specifies the table name for Notification
func (Notification) TableName() string {
	return "notifications"
}

// Notification type constants
const (
	NotifyTypeWarning        int16 = 1
	NotifyTypeBan            int16 = 2
	NotifyTypeAppealResponse int16 = 3
	NotifyTypeUnban          int16 = 4
)

// NotifyTypeName returns the wire name of a notification type.
func NotifyTypeName(typeID int16) string {
	switch typeID {
	case NotifyTypeWarning:
		return "warning"
	case NotifyTypeBan:
		return "ban"
	case NotifyTypeAppealResponse:
		return "appeal_response"
	case NotifyTypeUnban:
		return "unban"
	default:
		return "unknown"
	}
}

// All returns every table model, used for schema bootstrap.
func All() []interface{} {
	return []interface{}{
		&User{},
		&RoleAssignment{},
		&Comment{},
		&AnonymityFlag{},
		&LedgerEntry{},
		&Warning{},
		&Ban{},
		&BanAppeal{},
		&AppealResponse{},
		&Notification{},
	}
}
