package api

import (
	"encoding/json"

	"github.com/gin-gonic/gin"

	"github.com/medshare/moderation/internal/models"
	"github.com/medshare/moderation/internal/moderation"
)

// SanctionAPI serves the sanctions.* methods
type SanctionAPI struct {
	engine *moderation.Engine
}

// NewSanctionAPI creates a new sanction API
func NewSanctionAPI(engine *moderation.Engine) *SanctionAPI {
	return &SanctionAPI{engine: engine}
}

type userReasonParams struct {
	UserID int64  `json:"user_id" validate:"required,gt=0"`
	Reason string `json:"reason" validate:"required,max=1000"`
}

type userParams struct {
	UserID int64 `json:"user_id" validate:"required,gt=0"`
}

// selfParams name a user and default to the caller
type selfParams struct {
	UserID int64 `json:"user_id" validate:"gte=0"`
}

type warningParams struct {
	WarningID int64 `json:"warning_id" validate:"required,gt=0"`
}

type submitAppealParams struct {
	Content string `json:"content" validate:"required,max=5000"`
}

type respondAppealParams struct {
	AppealID int64  `json:"appeal_id" validate:"required,gt=0"`
	Content  string `json:"content" validate:"max=5000"`
	Decision string `json:"decision" validate:"required,oneof=accepted rejected"`
}

type appealResult struct {
	Appeal  *models.BanAppeal  `json:"appeal"`
	Outcome moderation.Outcome `json:"outcome"`
}

func (a *SanctionAPI) subject(c *gin.Context, params json.RawMessage) (int64, error) {
	var p selfParams
	if err := bindParams(params, &p); err != nil {
		return 0, err
	}
	if p.UserID == 0 {
		return ActorID(c), nil
	}
	return p.UserID, nil
}

// Warn handles sanctions.warn
func (a *SanctionAPI) Warn(c *gin.Context, params json.RawMessage) (interface{}, error) {
	var p userReasonParams
	if err := bindParams(params, &p); err != nil {
		return nil, err
	}
	return a.engine.Warn(c.Request.Context(), ActorID(c), p.UserID, p.Reason)
}

// Ban handles sanctions.ban
func (a *SanctionAPI) Ban(c *gin.Context, params json.RawMessage) (interface{}, error) {
	var p userReasonParams
	if err := bindParams(params, &p); err != nil {
		return nil, err
	}
	outcome, err := a.engine.Ban(c.Request.Context(), ActorID(c), p.UserID, p.Reason)
	if err != nil {
		return nil, err
	}
	return outcomeResult{Outcome: outcome}, nil
}

// Unban handles sanctions.unban
func (a *SanctionAPI) Unban(c *gin.Context, params json.RawMessage) (interface{}, error) {
	var p userParams
	if err := bindParams(params, &p); err != nil {
		return nil, err
	}
	outcome, err := a.engine.Unban(c.Request.Context(), ActorID(c), p.UserID)
	if err != nil {
		return nil, err
	}
	return outcomeResult{Outcome: outcome}, nil
}

// WarningsInWindow handles sanctions.warnings_in_window
func (a *SanctionAPI) WarningsInWindow(c *gin.Context, params json.RawMessage) (interface{}, error) {
	userID, err := a.subject(c, params)
	if err != nil {
		return nil, err
	}
	n, err := a.engine.WarningsInWindow(c.Request.Context(), ActorID(c), userID)
	if err != nil {
		return nil, err
	}
	opts := a.engine.Options()
	return gin.H{
		"user_id":   userID,
		"count":     n,
		"threshold": opts.WarningThreshold,
		"window":    opts.WarningWindow.String(),
	}, nil
}

// NewWarnings handles sanctions.new_warnings
func (a *SanctionAPI) NewWarnings(c *gin.Context, params json.RawMessage) (interface{}, error) {
	userID, err := a.subject(c, params)
	if err != nil {
		return nil, err
	}
	warnings, err := a.engine.NewWarnings(c.Request.Context(), ActorID(c), userID)
	return warningList(warnings), err
}

// ListWarnings handles sanctions.list_warnings
func (a *SanctionAPI) ListWarnings(c *gin.Context, params json.RawMessage) (interface{}, error) {
	userID, err := a.subject(c, params)
	if err != nil {
		return nil, err
	}
	warnings, err := a.engine.ListWarnings(c.Request.Context(), ActorID(c), userID)
	return warningList(warnings), err
}

func warningList(warnings []*models.Warning) []*models.Warning {
	if warnings == nil {
		return []*models.Warning{}
	}
	return warnings
}

// MarkWarningRead handles sanctions.mark_warning_read
func (a *SanctionAPI) MarkWarningRead(c *gin.Context, params json.RawMessage) (interface{}, error) {
	var p warningParams
	if err := bindParams(params, &p); err != nil {
		return nil, err
	}
	outcome, err := a.engine.MarkWarningRead(c.Request.Context(), ActorID(c), p.WarningID)
	if err != nil {
		return nil, err
	}
	return outcomeResult{Outcome: outcome}, nil
}

// BanStatus handles sanctions.ban_status
func (a *SanctionAPI) BanStatus(c *gin.Context, params json.RawMessage) (interface{}, error) {
	userID, err := a.subject(c, params)
	if err != nil {
		return nil, err
	}
	ban, err := a.engine.BanStatus(c.Request.Context(), ActorID(c), userID)
	if err != nil {
		return nil, err
	}
	return gin.H{"user_id": userID, "banned": ban != nil, "ban": ban}, nil
}

// SubmitAppeal handles sanctions.submit_appeal
func (a *SanctionAPI) SubmitAppeal(c *gin.Context, params json.RawMessage) (interface{}, error) {
	var p submitAppealParams
	if err := bindParams(params, &p); err != nil {
		return nil, err
	}
	appeal, outcome, err := a.engine.SubmitAppeal(c.Request.Context(), ActorID(c), p.Content)
	if err != nil {
		return nil, err
	}
	return appealResult{Appeal: appeal, Outcome: outcome}, nil
}

// RespondAppeal handles sanctions.respond_appeal
func (a *SanctionAPI) RespondAppeal(c *gin.Context, params json.RawMessage) (interface{}, error) {
	var p respondAppealParams
	if err := bindParams(params, &p); err != nil {
		return nil, err
	}
	appeal, outcome, err := a.engine.RespondAppeal(c.Request.Context(), ActorID(c), p.AppealID, p.Content, models.Decision(p.Decision))
	if err != nil {
		return nil, err
	}
	return appealResult{Appeal: appeal, Outcome: outcome}, nil
}

// ListAppeals handles sanctions.list_appeals
func (a *SanctionAPI) ListAppeals(c *gin.Context, params json.RawMessage) (interface{}, error) {
	userID, err := a.subject(c, params)
	if err != nil {
		return nil, err
	}
	appeals, err := a.engine.ListAppeals(c.Request.Context(), ActorID(c), userID)
	if err != nil {
		return nil, err
	}
	if appeals == nil {
		appeals = []*models.BanAppeal{}
	}
	return appeals, nil
}

// Notifications handles sanctions.notifications
func (a *SanctionAPI) Notifications(c *gin.Context, params json.RawMessage) (interface{}, error) {
	var p limitParams
	if err := bindParams(params, &p); err != nil {
		return nil, err
	}
	return a.engine.Notifications(c.Request.Context(), ActorID(c), p.Limit)
}
