package notify

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/medshare/moderation/internal/models"
)

type memoryWriter struct {
	rows []*models.Notification
	err  error
}

func (w *memoryWriter) Create(_ context.Context, n *models.Notification) error {
	if w.err != nil {
		return w.err
	}
	w.rows = append(w.rows, n)
	return nil
}

func TestStoreNotifier_Notify(t *testing.T) {
	w := &memoryWriter{}
	n := NewNotifier(w)

	notif := &models.Notification{
		Type:      models.NotifyTypeBan,
		SrcID:     sql.NullInt64{Int64: 1, Valid: true},
		DstID:     9,
		Payload:   sql.NullString{String: `{"reason":"spam"}`, Valid: true},
		CreatedAt: time.Now(),
	}
	if err := n.Notify(context.Background(), notif); err != nil {
		t.Fatalf("Notify() error = %v", err)
	}
	if len(w.rows) != 1 || w.rows[0].DstID != 9 {
		t.Errorf("Notify() stored %+v, want one row for user 9", w.rows)
	}
}

func TestStoreNotifier_WriterError(t *testing.T) {
	boom := errors.New("boom")
	n := NewNotifier(&memoryWriter{err: boom})

	err := n.Notify(context.Background(), &models.Notification{Type: models.NotifyTypeWarning, DstID: 1})
	if !errors.Is(err, boom) {
		t.Errorf("Notify() error = %v, want %v", err, boom)
	}
}

func TestNotifyTypeName(t *testing.T) {
	tests := []struct {
		name     string
		typeID   int16
		expected string
	}{
		{"warning", models.NotifyTypeWarning, "warning"},
		{"ban", models.NotifyTypeBan, "ban"},
		{"appeal_response", models.NotifyTypeAppealResponse, "appeal_response"},
		{"unban", models.NotifyTypeUnban, "unban"},
		{"unknown", 999, "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := models.NotifyTypeName(tt.typeID)
			if result != tt.expected {
				t.Errorf("NotifyTypeName(%d) = %v, want %v", tt.typeID, result, tt.expected)
			}
		})
	}
}

func TestNullHelpers(t *testing.T) {
	if got := nullInt64(42, false); got != 0 {
		t.Errorf("nullInt64(invalid) = %d, want 0", got)
	}
	if got := nullInt64(42, true); got != 42 {
		t.Errorf("nullInt64(valid) = %d, want 42", got)
	}
	if got := nullString("x", false); got != "" {
		t.Errorf("nullString(invalid) = %q, want empty", got)
	}
	if got := nullString("x", true); got != "x" {
		t.Errorf("nullString(valid) = %q, want x", got)
	}
}
