package models

import (
	"database/sql"
	"fmt"
	"time"
)

// Warning is a moderator note against a user.
type Warning struct {
	ID       int64     `gorm:"primaryKey;autoIncrement;column:id" json:"id"`
	UserID   int64     `gorm:"not null;index:warnings_user_issued_idx,priority:1;column:user_id" json:"user_id"`
	Reason   string    `gorm:"type:varchar(1000);not null;column:reason" json:"reason"`
	IssuedAt time.Time `gorm:"not null;index:warnings_user_issued_idx,priority:2;column:issued_at" json:"issued_at"`
	IssuerID int64     `gorm:"not null;column:issuer_id" json:"issuer_id"`
	Read     bool      `gorm:"not null;default:false;column:is_read" json:"read"`
}

// TableName specifies the table name for Warning
func (Warning) TableName() string {
	return "warnings"
}

// Ban is present while a user is banned.
type Ban struct {
	UserID   int64     `gorm:"primaryKey;autoIncrement:false;column:user_id" json:"user_id"`
	Reason   string    `gorm:"type:varchar(1000);not null;column:reason" json:"reason"`
	BannedAt time.Time `gorm:"not null;column:banned_at" json:"banned_at"`
	BannedBy int64     `gorm:"not null;column:banned_by" json:"banned_by"`
}

// TableName specifies the table name for Ban
func (Ban) TableName() string {
	return "bans"
}

// AppealStatus tracks an appeal through review.
type AppealStatus int16

const (
	AppealPending  AppealStatus = 0
	AppealAccepted AppealStatus = 1
	AppealRejected AppealStatus = 2
)

func (s AppealStatus) String() string {
	switch s {
	case AppealAccepted:
		return "accepted"
	case AppealRejected:
		return "rejected"
	default:
		return "pending"
	}
}

func (s AppealStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *AppealStatus) UnmarshalText(b []byte) error {
	switch string(b) {
	case "pending":
		*s = AppealPending
	case "accepted":
		*s = AppealAccepted
	case "rejected":
		*s = AppealRejected
	default:
		return fmt.Errorf("unknown appeal status %q", b)
	}
	return nil
}

// Decision is a reviewer's answer to an appeal.
type Decision string

const (
	DecisionAccepted Decision = "accepted"
	DecisionRejected Decision = "rejected"
)

// Valid reports whether d is accepted or rejected.
func (d Decision) Valid() bool {
	return d == DecisionAccepted || d == DecisionRejected
}

// Status returns the appeal status the decision leads to.
func (d Decision) Status() AppealStatus {
	if d == DecisionAccepted {
		return AppealAccepted
	}
	return AppealRejected
}

// BanAppeal is a banned user's request to lift the ban.
type BanAppeal struct {
	ID          int64            `gorm:"primaryKey;autoIncrement;column:id" json:"id"`
	UserID      int64            `gorm:"not null;index;uniqueIndex:ban_appeals_pending_ux,where:status = 0;column:user_id" json:"user_id"`
	Content     string           `gorm:"type:text;not null;column:content" json:"content"`
	SubmittedAt time.Time        `gorm:"not null;column:submitted_at" json:"submitted_at"`
	Status      AppealStatus     `gorm:"type:smallint;not null;default:0;column:status" json:"status"`
	AnsweredAt  sql.NullTime     `gorm:"column:answered_at" json:"-"`
	Responses   []AppealResponse `gorm:"foreignKey:AppealID;references:ID" json:"responses,omitempty"`
}

// TableName specifies the table name for BanAppeal
func (BanAppeal) TableName() string {
	return "ban_appeals"
}

// AppealResponse is a reviewer reply to an appeal.
type AppealResponse struct {
	ID          int64     `gorm:"primaryKey;autoIncrement;column:id" json:"id"`
	AppealID    int64     `gorm:"not null;index;column:appeal_id" json:"appeal_id"`
	ResponderID int64     `gorm:"not null;column:responder_id" json:"responder_id"`
	Content     string    `gorm:"type:text;not null;column:content" json:"content"`
	Decision    Decision  `gorm:"type:varchar(16);not null;column:decision" json:"decision"`
	RespondedAt time.Time `gorm:"not null;column:responded_at" json:"responded_at"`
}

// TableName specifies the table name for AppealResponse
func (AppealResponse) TableName() string {
	return "appeal_responses"
}
