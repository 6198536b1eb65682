package notify

import (
	"context"

	"go.uber.org/zap"

	"github.com/medshare/moderation/internal/db"
	"github.com/medshare/moderation/internal/models"
	"github.com/medshare/moderation/pkg/logging"
)

// Writer persists notifications for the delivery service.
type Writer interface {
	Create(ctx context.Context, n *models.Notification) error
}

// StoreNotifier queues notifications in the notifications table, where the
// delivery service (email, in-app) picks them up.
type StoreNotifier struct {
	writer Writer
	logger *zap.Logger
}

// NewStoreNotifier creates a notifier backed by the notifications table
func NewStoreNotifier(repo *db.Repository) *StoreNotifier {
	return NewNotifier(db.NewNotificationRepository(repo))
}

// NewNotifier creates a notifier backed by any writer
func NewNotifier(w Writer) *StoreNotifier {
	return &StoreNotifier{
		writer: w,
		logger: logging.WithComponent("notify"),
	}
}

// Notify logs and stores a notification
func (n *StoreNotifier) Notify(ctx context.Context, notif *models.Notification) error {
	n.logger.Info("[NOTIFY]",
		zap.String("type", models.NotifyTypeName(notif.Type)),
		zap.Int64("src_id", nullInt64(notif.SrcID.Int64, notif.SrcID.Valid)),
		zap.Int64("dst_id", notif.DstID),
		zap.String("payload", nullString(notif.Payload.String, notif.Payload.Valid)))

	return n.writer.Create(ctx, notif)
}

// Helper functions
func nullInt64(v int64, valid bool) int64 {
	if !valid {
		return 0
	}
	return v
}

func nullString(v string, valid bool) string {
	if !valid {
		return ""
	}
	return v
}
