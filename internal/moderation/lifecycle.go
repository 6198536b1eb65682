package moderation

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/medshare/moderation/internal/models"
)

const (
	maxSanctionReasonLength = 1000
	maxAppealLength         = 5000
)

// WarnResult describes an issued warning.
type WarnResult struct {
	Warning *models.Warning `json:"warning"`
	// InWindow counts the user's warnings inside the rolling window,
	// including this one.
	InWindow int64 `json:"in_window"`
	// Banned is set when the warning triggered the automatic ban.
	Banned bool `json:"banned"`
}

// sanctionTarget resolves the actor and the user being sanctioned.
func (e *Engine) sanctionTarget(ctx context.Context, actorID, userID int64) (Principal, error) {
	actor, err := e.authenticated(ctx, actorID)
	if err != nil {
		return Principal{}, err
	}
	if !actor.Role.IsElevated() {
		return Principal{}, ErrForbidden
	}
	user, err := e.stores.Users.GetByID(ctx, userID)
	if err != nil {
		return Principal{}, fmt.Errorf("load user %d: %w", userID, err)
	}
	if user == nil {
		return Principal{}, ErrNotFound
	}
	target, err := e.ownerPrincipal(ctx, userID)
	if err != nil {
		return Principal{}, err
	}
	if !CanSanction(actor, target) {
		return Principal{}, ErrForbidden
	}
	return actor, nil
}

func cleanReason(reason string, max int) (string, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return "", invalidArgument("reason is required")
	}
	if len(reason) > max {
		return "", invalidArgument("reason longer than %d characters", max)
	}
	return reason, nil
}

// Warn issues a warning. With AutoBan enabled, reaching WarningThreshold
// warnings inside WarningWindow bans the user in the same transaction.
func (e *Engine) Warn(ctx context.Context, actorID, userID int64, reason string) (res *WarnResult, err error) {
	ctx, span := e.begin(ctx, "Warn",
		attribute.Int64("actor_id", actorID),
		attribute.Int64("user_id", userID))
	defer func() {
		outcome := OutcomeWarned
		if res != nil && res.Banned {
			outcome = OutcomeBanned
		}
		e.finish(ctx, span, "warn", outcome, err)
	}()

	if reason, err = cleanReason(reason, maxSanctionReasonLength); err != nil {
		return nil, err
	}
	actor, err := e.sanctionTarget(ctx, actorID, userID)
	if err != nil {
		return nil, err
	}

	now := e.now()
	since := now.Add(-e.opts.WarningWindow)
	w := &models.Warning{
		UserID:   userID,
		Reason:   reason,
		IssuedAt: now,
		IssuerID: actor.ID,
	}
	var escalate *models.Ban
	if e.opts.AutoBan {
		escalate = &models.Ban{
			UserID:   userID,
			Reason:   fmt.Sprintf("automatic: %d warnings within %s", e.opts.WarningThreshold, e.opts.WarningWindow),
			BannedAt: now,
			BannedBy: actor.ID,
		}
	}
	banned, err := e.stores.Sanctions.CreateWarning(ctx, w, int64(e.opts.WarningThreshold), since, escalate)
	if err != nil {
		return nil, txFailure("warn", err)
	}
	count, err := e.stores.Sanctions.CountWarningsSince(ctx, userID, since)
	if err != nil {
		e.logger.Warn("Failed to count warnings", zap.Int64("user_id", userID), zap.Error(err))
	}

	e.logger.Info("Warning issued",
		zap.Int64("user_id", userID),
		zap.Int64("actor_id", actor.ID),
		zap.Int64("in_window", count),
		zap.Bool("banned", banned))
	e.notify(ctx, models.NotifyTypeWarning, actor.ID, userID, map[string]interface{}{
		"warning_id": w.ID,
		"reason":     w.Reason,
		"in_window":  count,
	})
	if banned {
		e.notify(ctx, models.NotifyTypeBan, actor.ID, userID, map[string]interface{}{
			"reason":    escalate.Reason,
			"automatic": true,
		})
	}
	return &WarnResult{Warning: w, InWindow: count, Banned: banned}, nil
}

// Ban bans a user. Banning a banned user is a no-op.
func (e *Engine) Ban(ctx context.Context, actorID, userID int64, reason string) (outcome Outcome, err error) {
	ctx, span := e.begin(ctx, "Ban",
		attribute.Int64("actor_id", actorID),
		attribute.Int64("user_id", userID))
	defer func() { e.finish(ctx, span, "ban", outcome, err) }()

	if reason, err = cleanReason(reason, maxSanctionReasonLength); err != nil {
		return "", err
	}
	actor, err := e.sanctionTarget(ctx, actorID, userID)
	if err != nil {
		return "", err
	}
	inserted, err := e.stores.Sanctions.CreateBan(ctx, &models.Ban{
		UserID:   userID,
		Reason:   reason,
		BannedAt: e.now(),
		BannedBy: actor.ID,
	})
	if err != nil {
		return "", fmt.Errorf("insert ban: %w", err)
	}
	if !inserted {
		return outcomeOf(OutcomeBanned, ErrAlreadyInState)
	}
	e.logger.Info("User banned", zap.Int64("user_id", userID), zap.Int64("actor_id", actor.ID))
	e.notify(ctx, models.NotifyTypeBan, actor.ID, userID, map[string]interface{}{"reason": reason})
	return OutcomeBanned, nil
}

// Unban lifts a ban. Unbanning a user who is not banned is a no-op.
func (e *Engine) Unban(ctx context.Context, actorID, userID int64) (outcome Outcome, err error) {
	ctx, span := e.begin(ctx, "Unban",
		attribute.Int64("actor_id", actorID),
		attribute.Int64("user_id", userID))
	defer func() { e.finish(ctx, span, "unban", outcome, err) }()

	actor, err := e.sanctionTarget(ctx, actorID, userID)
	if err != nil {
		return "", err
	}
	deleted, err := e.stores.Sanctions.DeleteBan(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("delete ban: %w", err)
	}
	if !deleted {
		return outcomeOf(OutcomeUnbanned, ErrAlreadyInState)
	}
	e.logger.Info("User unbanned", zap.Int64("user_id", userID), zap.Int64("actor_id", actor.ID))
	e.notify(ctx, models.NotifyTypeUnban, actor.ID, userID, nil)
	return OutcomeUnbanned, nil
}

// selfOrModerator allows a user to read their own sanctions and moderators
// to read anyone's.
func (e *Engine) selfOrModerator(ctx context.Context, actorID, userID int64) error {
	actor, err := e.authenticated(ctx, actorID)
	if err != nil {
		return err
	}
	if actor.ID != userID && !CanModerate(actor) {
		return ErrForbidden
	}
	return nil
}

// WarningsInWindow counts a user's warnings inside the rolling window. It is
// the input to ban escalation.
func (e *Engine) WarningsInWindow(ctx context.Context, actorID, userID int64) (n int64, err error) {
	if err := e.selfOrModerator(ctx, actorID, userID); err != nil {
		return 0, err
	}
	n, err = e.stores.Sanctions.CountWarningsSince(ctx, userID, e.now().Add(-e.opts.WarningWindow))
	if err != nil {
		return 0, fmt.Errorf("count warnings: %w", err)
	}
	return n, nil
}

// NewWarnings returns unread warnings issued after the user's last login.
func (e *Engine) NewWarnings(ctx context.Context, actorID, userID int64) ([]*models.Warning, error) {
	if err := e.selfOrModerator(ctx, actorID, userID); err != nil {
		return nil, err
	}
	user, err := e.stores.Users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load user %d: %w", userID, err)
	}
	if user == nil {
		return nil, ErrNotFound
	}
	warnings, err := e.stores.Sanctions.UnreadWarningsAfter(ctx, userID, user.LastLoginAt)
	if err != nil {
		return nil, fmt.Errorf("load new warnings: %w", err)
	}
	return warnings, nil
}

// ListWarnings returns every warning of a user, newest first.
func (e *Engine) ListWarnings(ctx context.Context, actorID, userID int64) ([]*models.Warning, error) {
	if err := e.selfOrModerator(ctx, actorID, userID); err != nil {
		return nil, err
	}
	warnings, err := e.stores.Sanctions.ListWarnings(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load warnings: %w", err)
	}
	return warnings, nil
}

// MarkWarningRead acknowledges a warning. Only the warned user may do so.
func (e *Engine) MarkWarningRead(ctx context.Context, actorID, warningID int64) (Outcome, error) {
	if actorID <= 0 {
		return "", ErrForbidden
	}
	w, err := e.stores.Sanctions.GetWarning(ctx, warningID)
	if err != nil {
		return "", fmt.Errorf("load warning %d: %w", warningID, err)
	}
	if w == nil || w.UserID != actorID {
		return "", ErrNotFound
	}
	updated, err := e.stores.Sanctions.MarkWarningRead(ctx, warningID)
	if err != nil {
		return "", fmt.Errorf("mark warning %d read: %w", warningID, err)
	}
	if !updated {
		return outcomeOf(OutcomeRead, ErrAlreadyInState)
	}
	return OutcomeRead, nil
}

// BanStatus returns the user's ban, or nil when not banned.
func (e *Engine) BanStatus(ctx context.Context, actorID, userID int64) (*models.Ban, error) {
	if err := e.selfOrModerator(ctx, actorID, userID); err != nil {
		return nil, err
	}
	ban, err := e.stores.Sanctions.GetBan(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load ban: %w", err)
	}
	return ban, nil
}

// SubmitAppeal files an appeal against the user's ban. A user has at most
// one pending appeal; submitting again returns the pending one unchanged.
func (e *Engine) SubmitAppeal(ctx context.Context, userID int64, content string) (appeal *models.BanAppeal, outcome Outcome, err error) {
	ctx, span := e.begin(ctx, "SubmitAppeal", attribute.Int64("user_id", userID))
	defer func() { e.finish(ctx, span, "submit_appeal", outcome, err) }()

	if userID <= 0 {
		return nil, "", ErrForbidden
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, "", invalidArgument("appeal content is required")
	}
	if len(content) > maxAppealLength {
		return nil, "", invalidArgument("appeal longer than %d characters", maxAppealLength)
	}

	ban, err := e.stores.Sanctions.GetBan(ctx, userID)
	if err != nil {
		return nil, "", fmt.Errorf("load ban: %w", err)
	}
	if ban == nil {
		return nil, "", ErrForbidden
	}

	pending, err := e.stores.Sanctions.PendingAppeal(ctx, userID)
	if err != nil {
		return nil, "", fmt.Errorf("load pending appeal: %w", err)
	}
	if pending != nil {
		outcome, _ = outcomeOf(OutcomeSubmitted, ErrAlreadyInState)
		return pending, outcome, nil
	}

	appeal = &models.BanAppeal{
		UserID:      userID,
		Content:     content,
		SubmittedAt: e.now(),
	}
	inserted, err := e.stores.Sanctions.CreateAppeal(ctx, appeal)
	if err != nil {
		return nil, "", fmt.Errorf("insert appeal: %w", err)
	}
	if !inserted {
		// Lost a race with a concurrent submission.
		pending, err = e.stores.Sanctions.PendingAppeal(ctx, userID)
		if err != nil {
			return nil, "", fmt.Errorf("load pending appeal: %w", err)
		}
		outcome, _ = outcomeOf(OutcomeSubmitted, ErrAlreadyInState)
		return pending, outcome, nil
	}
	e.logger.Info("Ban appeal submitted", zap.Int64("user_id", userID), zap.Int64("appeal_id", appeal.ID))
	return appeal, OutcomeSubmitted, nil
}

// RespondAppeal answers a pending appeal. Accepting lifts the ban in the
// same transaction; rejecting leaves it. Answering an answered appeal is a
// no-op.
func (e *Engine) RespondAppeal(ctx context.Context, actorID, appealID int64, content string, decision models.Decision) (appeal *models.BanAppeal, outcome Outcome, err error) {
	ctx, span := e.begin(ctx, "RespondAppeal",
		attribute.Int64("actor_id", actorID),
		attribute.Int64("appeal_id", appealID),
		attribute.String("decision", string(decision)))
	defer func() { e.finish(ctx, span, "respond_appeal", outcome, err) }()

	if !decision.Valid() {
		return nil, "", invalidArgument("decision must be accepted or rejected")
	}
	content = strings.TrimSpace(content)
	if len(content) > maxAppealLength {
		return nil, "", invalidArgument("response longer than %d characters", maxAppealLength)
	}
	actor, err := e.authenticated(ctx, actorID)
	if err != nil {
		return nil, "", err
	}
	if !CanModerate(actor) {
		return nil, "", ErrForbidden
	}

	appeal, err = e.stores.Sanctions.GetAppeal(ctx, appealID)
	if err != nil {
		return nil, "", fmt.Errorf("load appeal %d: %w", appealID, err)
	}
	if appeal == nil {
		return nil, "", ErrNotFound
	}
	if appeal.Status != models.AppealPending {
		outcome, _ = outcomeOf(OutcomeAnswered, ErrAlreadyInState)
		return appeal, outcome, nil
	}

	resp := &models.AppealResponse{
		ResponderID: actor.ID,
		Content:     content,
		Decision:    decision,
		RespondedAt: e.now(),
	}
	answered, err := e.stores.Sanctions.AnswerAppeal(ctx, appeal, resp)
	if err != nil {
		return nil, "", txFailure("respond appeal", err)
	}
	if updated, err := e.stores.Sanctions.GetAppeal(ctx, appealID); err != nil {
		e.logger.Warn("Failed to reload appeal", zap.Int64("appeal_id", appealID), zap.Error(err))
	} else if updated != nil {
		appeal = updated
	}
	if !answered {
		outcome, _ = outcomeOf(OutcomeAnswered, ErrAlreadyInState)
		return appeal, outcome, nil
	}

	e.logger.Info("Ban appeal answered",
		zap.Int64("appeal_id", appealID),
		zap.Int64("user_id", appeal.UserID),
		zap.String("decision", string(decision)))
	e.notify(ctx, models.NotifyTypeAppealResponse, actor.ID, appeal.UserID, map[string]interface{}{
		"appeal_id": appealID,
		"decision":  decision,
		"content":   content,
	})
	return appeal, OutcomeAnswered, nil
}

// ListAppeals returns a user's appeals with their responses, newest first.
func (e *Engine) ListAppeals(ctx context.Context, actorID, userID int64) ([]*models.BanAppeal, error) {
	if err := e.selfOrModerator(ctx, actorID, userID); err != nil {
		return nil, err
	}
	appeals, err := e.stores.Sanctions.ListAppeals(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load appeals: %w", err)
	}
	return appeals, nil
}
