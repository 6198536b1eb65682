package moderation

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/medshare/moderation/internal/models"
	"github.com/medshare/moderation/pkg/config"
	"github.com/medshare/moderation/pkg/logging"
	"github.com/medshare/moderation/pkg/telemetry"
)

// Options are the policy knobs of the engine.
type Options struct {
	// AutoBan bans a user once WarningThreshold warnings fall inside
	// WarningWindow.
	AutoBan          bool
	WarningThreshold int
	WarningWindow    time.Duration
	// MaxCommentDepth is the number of comment levels below root content.
	MaxCommentDepth int
	AnonymousName   string
}

// DefaultOptions returns the production policy.
func DefaultOptions() Options {
	return Options{
		AutoBan:          true,
		WarningThreshold: 3,
		WarningWindow:    30 * 24 * time.Hour,
		MaxCommentDepth:  10,
		AnonymousName:    AnonymousAuthor.Username,
	}
}

// OptionsFromConfig converts the moderation config section.
func OptionsFromConfig(cfg *config.ModerationConfig) Options {
	opts := DefaultOptions()
	opts.AutoBan = cfg.AutoBan
	if cfg.WarningThreshold > 0 {
		opts.WarningThreshold = cfg.WarningThreshold
	}
	if cfg.WarningWindow > 0 {
		opts.WarningWindow = cfg.WarningWindow
	}
	if cfg.MaxCommentDepth > 0 {
		opts.MaxCommentDepth = cfg.MaxCommentDepth
	}
	if strings.TrimSpace(cfg.AnonymousName) != "" {
		opts.AnonymousName = cfg.AnonymousName
	}
	return opts
}

// Engine is the moderation and visibility engine. It holds no state of its
// own beyond the injected stores.
type Engine struct {
	stores     Stores
	roles      RoleResolver
	notifier   Notifier
	opts       Options
	visibility Visibility
	now        func() time.Time
	logger     *zap.Logger
}

// NewEngine creates an engine. A nil notifier disables notifications.
func NewEngine(stores Stores, roles RoleResolver, notifier Notifier, opts Options) *Engine {
	sentinel := AnonymousAuthor
	sentinel.Username = opts.AnonymousName
	return &Engine{
		stores:     stores,
		roles:      roles,
		notifier:   notifier,
		opts:       opts,
		visibility: Visibility{Sentinel: sentinel},
		now:        func() time.Time { return time.Now().UTC() },
		logger:     logging.WithComponent("moderation"),
	}
}

// SetClock replaces the time source.
func (e *Engine) SetClock(now func() time.Time) {
	e.now = now
}

// Options returns the policy the engine runs with.
func (e *Engine) Options() Options {
	return e.opts
}

// principal resolves the role of an actor. Actor resolution failures are
// errors: a caller is never granted privileges by accident.
func (e *Engine) principal(ctx context.Context, userID int64) (Principal, error) {
	role, err := e.roles.RoleOf(ctx, userID)
	if err != nil {
		return Principal{}, fmt.Errorf("resolve role of %d: %w", userID, err)
	}
	return Principal{ID: userID, Role: role}, nil
}

// ownerPrincipal resolves the role of a content owner or sanction target.
// A user without a role row is regular; a failed lookup fails the operation.
func (e *Engine) ownerPrincipal(ctx context.Context, userID int64) (Principal, error) {
	role, err := e.roles.RoleOf(ctx, userID)
	if err != nil {
		return Principal{}, fmt.Errorf("resolve role of owner %d: %w", userID, err)
	}
	return Principal{ID: userID, Role: role}, nil
}

// authenticated resolves the actor and rejects anonymous callers.
func (e *Engine) authenticated(ctx context.Context, actorID int64) (Principal, error) {
	if actorID <= 0 {
		return Principal{}, ErrForbidden
	}
	return e.principal(ctx, actorID)
}

// target is a moderatable row with its owner.
type target struct {
	models.Target
	OwnerID int64
	Root    models.ParentRef // for comments, the root they hang under
}

// loadTarget resolves (category, id) to its owner. Missing rows are
// ErrNotFound.
func (e *Engine) loadTarget(ctx context.Context, category models.Category, id int64) (*target, error) {
	if !category.Valid() {
		return nil, invalidArgument("unknown category %d", int16(category))
	}
	if id <= 0 {
		return nil, invalidArgument("invalid id %d", id)
	}
	t := &target{Target: models.Target{Category: category, ID: id}}
	if category.IsRoot() {
		item, err := e.stores.Content.GetItem(ctx, category, id)
		if err != nil {
			return nil, fmt.Errorf("load %s %d: %w", category, id, err)
		}
		if item == nil {
			return nil, ErrNotFound
		}
		t.OwnerID = item.OwnerID
		return t, nil
	}
	c, err := e.stores.Content.GetComment(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load comment %d: %w", id, err)
	}
	if c == nil || c.Category != category {
		return nil, ErrNotFound
	}
	t.OwnerID = c.OwnerID
	t.Root = c.Root()
	return t, nil
}

// isRemoved reports whether a target carries a removal entry.
func (e *Engine) isRemoved(ctx context.Context, category models.Category, id int64) (bool, error) {
	removal, err := e.stores.Ledger.GetRemoval(ctx, category, id)
	if err != nil {
		return false, fmt.Errorf("load removal: %w", err)
	}
	return removal != nil, nil
}

// notify sends a notice in the background of the operation. Failures are
// logged and dropped.
func (e *Engine) notify(ctx context.Context, typeID int16, srcID, dstID int64, payload interface{}) {
	if e.notifier == nil {
		return
	}
	n := &models.Notification{
		Type:      typeID,
		DstID:     dstID,
		CreatedAt: e.now(),
	}
	if srcID > 0 {
		n.SrcID = sql.NullInt64{Int64: srcID, Valid: true}
	}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			e.logger.Error("Failed to encode notification payload",
				zap.String("type", models.NotifyTypeName(typeID)), zap.Error(err))
		} else {
			n.Payload = sql.NullString{String: string(raw), Valid: true}
		}
	}
	if err := e.notifier.Notify(ctx, n); err != nil {
		e.logger.Error("Notification failed",
			zap.String("type", models.NotifyTypeName(typeID)),
			zap.Int64("dst_id", dstID),
			zap.Error(err))
	}
}

// begin opens a span for an engine operation.
func (e *Engine) begin(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return telemetry.StartSpan(ctx, "moderation."+op, trace.WithAttributes(attrs...))
}

// finish closes the span and records the action counter.
func (e *Engine) finish(ctx context.Context, span trace.Span, op string, outcome Outcome, err error) {
	label := string(outcome)
	if err != nil {
		label = errorLabel(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, label)
	}
	span.SetAttributes(attribute.String("outcome", label))
	span.End()
	telemetry.RecordAction(ctx, op, label)
}
