package moderation

import (
	"context"
	"database/sql"
	"time"

	"github.com/medshare/moderation/internal/models"
)

// Lookups return (nil, nil) when the row does not exist. Boolean results of
// mutations report whether a row was written or deleted.

// ContentStore reads content and performs cascading hard deletes.
type ContentStore interface {
	GetItem(ctx context.Context, category models.Category, id int64) (*models.ContentItem, error)
	ListItems(ctx context.Context, category models.Category, limit, offset int) ([]*models.ContentItem, error)
	GetComment(ctx context.Context, id int64) (*models.Comment, error)
	ListComments(ctx context.Context, root models.ParentRef) ([]*models.Comment, error)
	CreateComment(ctx context.Context, comment *models.Comment, anonymous bool) error
	DeleteItem(ctx context.Context, category models.Category, id int64) (bool, int64, error)
	DeleteCommentSubtree(ctx context.Context, id int64) (bool, int64, error)
	AnonymousTargets(ctx context.Context, category models.Category, ids []int64) (map[int64]bool, error)
}

// LedgerStore persists reports and removals.
type LedgerStore interface {
	InsertReport(ctx context.Context, entry *models.LedgerEntry) (bool, error)
	InsertRemoval(ctx context.Context, entry *models.LedgerEntry) (bool, error)
	GetRemoval(ctx context.Context, category models.Category, targetID int64) (*models.LedgerEntry, error)
	GetEntry(ctx context.Context, id int64) (*models.LedgerEntry, error)
	DeleteRemoval(ctx context.Context, id int64) (bool, error)
	RemovedTargets(ctx context.Context, category models.Category, ids []int64) (map[int64]bool, error)
	GetReport(ctx context.Context, id int64) (*models.LedgerEntry, error)
	DeleteReport(ctx context.Context, id int64) (bool, error)
	OpenReports(ctx context.Context, limit int) ([]*models.LedgerEntry, error)
	RemovalsForOwner(ctx context.Context, ownerID int64) ([]*models.LedgerEntry, error)
}

// SanctionStore persists warnings, bans and appeals.
type SanctionStore interface {
	CreateWarning(ctx context.Context, w *models.Warning, threshold int64, since time.Time, escalate *models.Ban) (bool, error)
	CountWarningsSince(ctx context.Context, userID int64, since time.Time) (int64, error)
	UnreadWarningsAfter(ctx context.Context, userID int64, after sql.NullTime) ([]*models.Warning, error)
	ListWarnings(ctx context.Context, userID int64) ([]*models.Warning, error)
	GetWarning(ctx context.Context, id int64) (*models.Warning, error)
	MarkWarningRead(ctx context.Context, id int64) (bool, error)
	GetBan(ctx context.Context, userID int64) (*models.Ban, error)
	CreateBan(ctx context.Context, ban *models.Ban) (bool, error)
	DeleteBan(ctx context.Context, userID int64) (bool, error)
	PendingAppeal(ctx context.Context, userID int64) (*models.BanAppeal, error)
	CreateAppeal(ctx context.Context, appeal *models.BanAppeal) (bool, error)
	GetAppeal(ctx context.Context, id int64) (*models.BanAppeal, error)
	ListAppeals(ctx context.Context, userID int64) ([]*models.BanAppeal, error)
	AnswerAppeal(ctx context.Context, appeal *models.BanAppeal, resp *models.AppealResponse) (bool, error)
}

// UserStore reads the user registry mirror.
type UserStore interface {
	GetByID(ctx context.Context, id int64) (*models.User, error)
	Usernames(ctx context.Context, ids []int64) (map[int64]string, error)
}

// RoleStore persists role assignments.
type RoleStore interface {
	Set(ctx context.Context, ra *models.RoleAssignment) error
	Delete(ctx context.Context, userID int64) (bool, error)
	ListElevated(ctx context.Context) ([]*models.RoleAssignment, error)
}

// RoleResolver maps a user to their role.
type RoleResolver interface {
	RoleOf(ctx context.Context, userID int64) (models.Role, error)
}

// Notifier delivers user-facing notices. Errors are logged by the engine and
// never fail the operation that triggered them.
type Notifier interface {
	Notify(ctx context.Context, n *models.Notification) error
}

// NotificationStore reads back queued notices.
type NotificationStore interface {
	ListForUser(ctx context.Context, dstID int64, limit int) ([]*models.Notification, error)
}

// Stores bundles the persistence handles the engine needs. Notifications
// may be nil when notices are delivered elsewhere.
type Stores struct {
	Content       ContentStore
	Ledger        LedgerStore
	Sanctions     SanctionStore
	Users         UserStore
	Roles         RoleStore
	Notifications NotificationStore
}
