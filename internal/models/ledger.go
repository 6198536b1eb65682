package models

import (
	"database/sql"
	"time"
)

// LedgerKind is the role of a ledger entry.
type LedgerKind int16

const (
	LedgerReport  LedgerKind = 1 // complaint awaiting review, content stays visible
	LedgerRemoval LedgerKind = 2 // soft delete, content hidden
)

func (k LedgerKind) String() string {
	switch k {
	case LedgerReport:
		return "report"
	case LedgerRemoval:
		return "removal"
	default:
		return "unknown"
	}
}

// LedgerEntry is a moderation record: a report or a removal.
//
// At most one removal exists per (category, target_id), and one report per
// reporter and target; both are enforced by partial unique indexes.
type LedgerEntry struct {
	ID         int64        `gorm:"primaryKey;autoIncrement;column:id" json:"id"`
	Kind       LedgerKind   `gorm:"type:smallint;not null;index:ledger_target_idx,priority:1;uniqueIndex:ledger_removal_ux,priority:1,where:kind = 2;uniqueIndex:ledger_report_ux,priority:1,where:kind = 1;column:kind" json:"kind"`
	Category   Category     `gorm:"type:smallint;not null;index:ledger_target_idx,priority:2;uniqueIndex:ledger_removal_ux,priority:2,where:kind = 2;uniqueIndex:ledger_report_ux,priority:2,where:kind = 1;column:category" json:"category"`
	TargetID   int64        `gorm:"not null;index:ledger_target_idx,priority:3;uniqueIndex:ledger_removal_ux,priority:3,where:kind = 2;uniqueIndex:ledger_report_ux,priority:3,where:kind = 1;column:target_id" json:"target_id"`
	ActorID    int64        `gorm:"not null;index;uniqueIndex:ledger_report_ux,priority:4,where:kind = 1;column:actor_id" json:"actor_id"`
	Reason     string       `gorm:"type:varchar(500);not null;default:'';column:reason" json:"reason,omitempty"`
	CreatedAt  time.Time    `gorm:"not null;column:created_at" json:"created_at"`
	ResolvedAt sql.NullTime `gorm:"column:resolved_at" json:"-"`
}

// TableName specifies the table name for LedgerEntry
func (LedgerEntry) TableName() string {
	return "moderation_ledger"
}

// Target returns the row the entry points at.
func (e *LedgerEntry) Target() Target {
	return Target{Category: e.Category, ID: e.TargetID}
}
