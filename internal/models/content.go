package models

import (
	"database/sql"
	"time"
)

// ContentItem is a root content row (post, question or discussion). The three
// kinds share one shape and live in separate tables; see Category.Table.
type ContentItem struct {
	ID        int64     `gorm:"primaryKey;autoIncrement;column:id"`
	OwnerID   int64     `gorm:"not null;column:owner_id"`
	Title     string    `gorm:"type:varchar(255);not null;column:title"`
	Body      string    `gorm:"type:text;not null;column:body"`
	CreatedAt time.Time `gorm:"not null;column:created_at"`
}

// Comment is a reply under root content. Its parent is either the root itself
// (ParentID NULL) or another comment of the same root.
type Comment struct {
	ID           int64         `gorm:"primaryKey;autoIncrement;column:id"`
	Category     Category      `gorm:"type:smallint;not null;index;column:category"`
	RootCategory Category      `gorm:"type:smallint;not null;index:comments_root_idx,priority:1;column:root_category"`
	RootID       int64         `gorm:"not null;index:comments_root_idx,priority:2;column:root_id"`
	ParentID     sql.NullInt64 `gorm:"index;column:parent_id"`
	Depth        int16         `gorm:"type:smallint;not null;default:0;column:depth"`
	OwnerID      int64         `gorm:"not null;index;column:owner_id"`
	Body         string        `gorm:"type:text;not null;column:body"`
	CreatedAt    time.Time     `gorm:"not null;column:created_at"`
}

// TableName specifies the table name for Comment
func (Comment) TableName() string {
	return "comments"
}

// Root returns the reference of the content this comment belongs to.
func (c *Comment) Root() ParentRef {
	return RootRef(c.RootCategory, c.RootID)
}

// Parent returns the tagged parent reference.
func (c *Comment) Parent() ParentRef {
	if c.ParentID.Valid {
		return CommentRef(c.ParentID.Int64)
	}
	return c.Root()
}

// AnonymityFlag marks content whose owner must be hidden from other viewers.
type AnonymityFlag struct {
	Category  Category  `gorm:"type:smallint;primaryKey;column:category"`
	TargetID  int64     `gorm:"primaryKey;column:target_id"`
	CreatedAt time.Time `gorm:"not null;column:created_at"`
}

// TableName specifies the table name for AnonymityFlag
func (AnonymityFlag) TableName() string {
	return "anonymity_flags"
}

// Target identifies one moderatable row.
type Target struct {
	Category Category `json:"category"`
	ID       int64    `json:"id"`
}
