package moderation

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/medshare/moderation/internal/models"
)

// Notice is a queued notification as its recipient sees it.
type Notice struct {
	ID        int64           `json:"id"`
	Type      string          `json:"type"`
	SrcID     int64           `json:"src_id,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// Notifications returns the newest notices addressed to the actor: warnings,
// bans, unbans and appeal responses. limit <= 0 selects DefaultPageSize.
func (e *Engine) Notifications(ctx context.Context, actorID int64, limit int) ([]Notice, error) {
	actor, err := e.authenticated(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	out := []Notice{}
	if e.stores.Notifications == nil {
		return out, nil
	}

	rows, err := e.stores.Notifications.ListForUser(ctx, actor.ID, limit)
	if err != nil {
		return nil, fmt.Errorf("load notifications: %w", err)
	}
	for _, n := range rows {
		out = append(out, toNotice(n))
	}
	return out, nil
}

func toNotice(n *models.Notification) Notice {
	notice := Notice{
		ID:        n.ID,
		Type:      models.NotifyTypeName(n.Type),
		CreatedAt: n.CreatedAt,
	}
	if n.SrcID.Valid {
		notice.SrcID = n.SrcID.Int64
	}
	if n.Payload.Valid && json.Valid([]byte(n.Payload.String)) {
		notice.Payload = json.RawMessage(n.Payload.String)
	}
	return notice
}
