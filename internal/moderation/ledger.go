package moderation

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/medshare/moderation/internal/models"
)

const maxReasonLength = 500

// RemoveResult describes a removal.
type RemoveResult struct {
	Outcome Outcome `json:"outcome"`
	// Cascaded counts comments deleted along with a hard-deleted target.
	Cascaded int64 `json:"cascaded,omitempty"`
}

// Report files a complaint against content. Reports do not change
// visibility. Reporting the same content twice is a no-op.
func (e *Engine) Report(ctx context.Context, actorID int64, category models.Category, targetID int64, reason string) (outcome Outcome, err error) {
	ctx, span := e.begin(ctx, "Report",
		attribute.String("category", category.String()),
		attribute.Int64("target_id", targetID),
		attribute.Int64("actor_id", actorID))
	defer func() { e.finish(ctx, span, "report", outcome, err) }()

	reason = strings.TrimSpace(reason)
	if len(reason) > maxReasonLength {
		return "", invalidArgument("reason longer than %d characters", maxReasonLength)
	}
	actor, err := e.authenticated(ctx, actorID)
	if err != nil {
		return "", err
	}
	t, err := e.loadTarget(ctx, category, targetID)
	if err != nil {
		return "", err
	}
	removed, err := e.isRemoved(ctx, category, targetID)
	if err != nil {
		return "", err
	}
	if removed {
		return "", ErrNotFound
	}
	owner, err := e.ownerPrincipal(ctx, t.OwnerID)
	if err != nil {
		return "", err
	}
	if !CanReport(actor, owner) {
		return "", ErrForbidden
	}

	inserted, err := e.stores.Ledger.InsertReport(ctx, &models.LedgerEntry{
		Category:  category,
		TargetID:  targetID,
		ActorID:   actor.ID,
		Reason:    reason,
		CreatedAt: e.now(),
	})
	if err != nil {
		return "", fmt.Errorf("insert report: %w", err)
	}
	if !inserted {
		return outcomeOf(OutcomeReported, ErrAlreadyInState)
	}
	return OutcomeReported, nil
}

// Remove deletes content. Owners hard delete their own content, cascading to
// every comment below it in one transaction. Content that is already gone is
// ErrNotFound. Moderators and admins append a
// removal entry instead, closing the open reports of the target.
func (e *Engine) Remove(ctx context.Context, actorID int64, category models.Category, targetID int64, reason string) (res RemoveResult, err error) {
	ctx, span := e.begin(ctx, "Remove",
		attribute.String("category", category.String()),
		attribute.Int64("target_id", targetID),
		attribute.Int64("actor_id", actorID))
	defer func() { e.finish(ctx, span, "remove", res.Outcome, err) }()

	reason = strings.TrimSpace(reason)
	if len(reason) > maxReasonLength {
		return RemoveResult{}, invalidArgument("reason longer than %d characters", maxReasonLength)
	}
	actor, err := e.authenticated(ctx, actorID)
	if err != nil {
		return RemoveResult{}, err
	}
	t, err := e.loadTarget(ctx, category, targetID)
	if err != nil {
		return RemoveResult{}, err
	}
	owner, err := e.ownerPrincipal(ctx, t.OwnerID)
	if err != nil {
		return RemoveResult{}, err
	}
	if !CanRemove(actor, owner) {
		return RemoveResult{}, ErrForbidden
	}

	if isHardDelete(actor, owner) {
		return e.hardDelete(ctx, t)
	}

	inserted, err := e.stores.Ledger.InsertRemoval(ctx, &models.LedgerEntry{
		Category:  category,
		TargetID:  targetID,
		ActorID:   actor.ID,
		Reason:    reason,
		CreatedAt: e.now(),
	})
	if err != nil {
		return RemoveResult{}, txFailure("soft delete", err)
	}
	if !inserted {
		outcome, _ := outcomeOf(OutcomeSoftDeleted, ErrAlreadyInState)
		return RemoveResult{Outcome: outcome}, nil
	}
	e.logger.Info("Content removed",
		zap.String("category", category.String()),
		zap.Int64("target_id", targetID),
		zap.Int64("actor_id", actor.ID),
		zap.Int64("owner_id", owner.ID))
	return RemoveResult{Outcome: OutcomeSoftDeleted}, nil
}

func (e *Engine) hardDelete(ctx context.Context, t *target) (RemoveResult, error) {
	var (
		deleted  bool
		cascaded int64
		err      error
	)
	if t.Category.IsRoot() {
		deleted, cascaded, err = e.stores.Content.DeleteItem(ctx, t.Category, t.ID)
	} else {
		deleted, cascaded, err = e.stores.Content.DeleteCommentSubtree(ctx, t.ID)
	}
	if err != nil {
		return RemoveResult{}, txFailure("hard delete", err)
	}
	if !deleted {
		// a concurrent delete won; same answer as a later repeat
		return RemoveResult{}, ErrNotFound
	}
	e.logger.Info("Content deleted by owner",
		zap.String("category", t.Category.String()),
		zap.Int64("target_id", t.ID),
		zap.Int64("owner_id", t.OwnerID),
		zap.Int64("cascaded", cascaded))
	return RemoveResult{Outcome: OutcomeHardDeleted, Cascaded: cascaded}, nil
}

// Restore deletes a removal entry so its target is visible again. Only
// admins may restore. A missing entry is ErrNotFound.
func (e *Engine) Restore(ctx context.Context, actorID, entryID int64) (outcome Outcome, err error) {
	ctx, span := e.begin(ctx, "Restore",
		attribute.Int64("entry_id", entryID),
		attribute.Int64("actor_id", actorID))
	defer func() { e.finish(ctx, span, "restore", outcome, err) }()

	actor, err := e.authenticated(ctx, actorID)
	if err != nil {
		return "", err
	}
	if !CanRestore(actor) {
		return "", ErrForbidden
	}

	entry, err := e.stores.Ledger.GetEntry(ctx, entryID)
	if err != nil {
		return "", fmt.Errorf("load ledger entry %d: %w", entryID, err)
	}
	if entry == nil || entry.Kind != models.LedgerRemoval {
		return "", ErrNotFound
	}
	deleted, err := e.stores.Ledger.DeleteRemoval(ctx, entryID)
	if err != nil {
		return "", fmt.Errorf("delete removal %d: %w", entryID, err)
	}
	if !deleted {
		return "", ErrNotFound
	}
	e.logger.Info("Content restored",
		zap.String("category", entry.Category.String()),
		zap.Int64("target_id", entry.TargetID),
		zap.Int64("actor_id", actor.ID))
	return OutcomeRestored, nil
}

// DismissReport deletes a report without touching its target.
func (e *Engine) DismissReport(ctx context.Context, actorID, reportID int64) (outcome Outcome, err error) {
	ctx, span := e.begin(ctx, "DismissReport",
		attribute.Int64("report_id", reportID),
		attribute.Int64("actor_id", actorID))
	defer func() { e.finish(ctx, span, "dismiss_report", outcome, err) }()

	actor, err := e.authenticated(ctx, actorID)
	if err != nil {
		return "", err
	}
	if !CanModerate(actor) {
		return "", ErrForbidden
	}
	report, err := e.stores.Ledger.GetReport(ctx, reportID)
	if err != nil {
		return "", fmt.Errorf("load report %d: %w", reportID, err)
	}
	if report == nil {
		return "", ErrNotFound
	}
	deleted, err := e.stores.Ledger.DeleteReport(ctx, reportID)
	if err != nil {
		return "", fmt.Errorf("delete report %d: %w", reportID, err)
	}
	if !deleted {
		return outcomeOf(OutcomeDismissed, ErrAlreadyInState)
	}
	return OutcomeDismissed, nil
}

// ReportQueue returns open reports, oldest first.
func (e *Engine) ReportQueue(ctx context.Context, actorID int64, limit int) (out []*models.LedgerEntry, err error) {
	ctx, span := e.begin(ctx, "ReportQueue", attribute.Int64("actor_id", actorID))
	defer func() { e.finish(ctx, span, "report_queue", "read", err) }()

	actor, err := e.authenticated(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if !CanModerate(actor) {
		return nil, ErrForbidden
	}
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	out, err = e.stores.Ledger.OpenReports(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("load report queue: %w", err)
	}
	return out, nil
}

// RemovedContent lists the removal entries against a user's content. It is
// the only read path that exposes removed content, and only to the owner
// and admins.
func (e *Engine) RemovedContent(ctx context.Context, actorID, ownerID int64) (out []*models.LedgerEntry, err error) {
	ctx, span := e.begin(ctx, "RemovedContent",
		attribute.Int64("actor_id", actorID),
		attribute.Int64("owner_id", ownerID))
	defer func() { e.finish(ctx, span, "removed_content", "read", err) }()

	actor, err := e.authenticated(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if actor.ID != ownerID && actor.Role != models.RoleAdmin {
		return nil, ErrForbidden
	}
	out, err = e.stores.Ledger.RemovalsForOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("load removed content: %w", err)
	}
	return out, nil
}
