package api

import (
	"encoding/json"

	"github.com/gin-gonic/gin"

	"github.com/medshare/moderation/internal/models"
	"github.com/medshare/moderation/internal/moderation"
)

// ContentAPI serves the moderation.* methods
type ContentAPI struct {
	engine *moderation.Engine
}

// NewContentAPI creates a new content API
func NewContentAPI(engine *moderation.Engine) *ContentAPI {
	return &ContentAPI{engine: engine}
}

type getTreeParams struct {
	Root string `json:"root" validate:"required"`
}

type listItemsParams struct {
	Category string `json:"category" validate:"required"`
	Limit    int    `json:"limit" validate:"gte=0,lte=100"`
	Offset   int    `json:"offset" validate:"gte=0"`
}

type targetParams struct {
	Category string `json:"category" validate:"required"`
	ID       int64  `json:"id" validate:"required,gt=0"`
	Reason   string `json:"reason" validate:"max=500"`
}

type entryParams struct {
	EntryID int64 `json:"entry_id" validate:"required,gt=0"`
}

type reportParams struct {
	ReportID int64 `json:"report_id" validate:"required,gt=0"`
}

type limitParams struct {
	Limit int `json:"limit" validate:"gte=0,lte=100"`
}

type ownerParams struct {
	OwnerID int64 `json:"owner_id" validate:"gte=0"`
}

type createCommentParams struct {
	Parent    string `json:"parent" validate:"required"`
	Body      string `json:"body" validate:"required,max=10000"`
	Anonymous bool   `json:"anonymous"`
}

type outcomeResult struct {
	Outcome moderation.Outcome `json:"outcome"`
}

func parseCategory(s string) (models.Category, error) {
	c, err := models.ParseCategory(s)
	if err != nil {
		return 0, invalidParams("%v", err)
	}
	return c, nil
}

func parseRef(s string) (models.ParentRef, error) {
	ref, err := models.ParseParentRef(s)
	if err != nil {
		return models.ParentRef{}, invalidParams("%v", err)
	}
	return ref, nil
}

func viewer(c *gin.Context) moderation.Viewer {
	return moderation.Viewer{ID: ActorID(c)}
}

// GetTree handles moderation.get_tree
func (a *ContentAPI) GetTree(c *gin.Context, params json.RawMessage) (interface{}, error) {
	var p getTreeParams
	if err := bindParams(params, &p); err != nil {
		return nil, err
	}
	root, err := parseRef(p.Root)
	if err != nil {
		return nil, err
	}
	if !root.IsRoot() {
		return nil, invalidParams("root must reference root content")
	}
	return a.engine.GetVisibleTree(c.Request.Context(), root, viewer(c))
}

// ListItems handles moderation.list_items
func (a *ContentAPI) ListItems(c *gin.Context, params json.RawMessage) (interface{}, error) {
	var p listItemsParams
	if err := bindParams(params, &p); err != nil {
		return nil, err
	}
	category, err := parseCategory(p.Category)
	if err != nil {
		return nil, err
	}
	items, err := a.engine.GetVisibleItems(c.Request.Context(), category, viewer(c), p.Limit, p.Offset)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []moderation.Entry{}
	}
	return items, nil
}

// Report handles moderation.report
func (a *ContentAPI) Report(c *gin.Context, params json.RawMessage) (interface{}, error) {
	var p targetParams
	if err := bindParams(params, &p); err != nil {
		return nil, err
	}
	category, err := parseCategory(p.Category)
	if err != nil {
		return nil, err
	}
	outcome, err := a.engine.Report(c.Request.Context(), ActorID(c), category, p.ID, p.Reason)
	if err != nil {
		return nil, err
	}
	return outcomeResult{Outcome: outcome}, nil
}

// Remove handles moderation.remove
func (a *ContentAPI) Remove(c *gin.Context, params json.RawMessage) (interface{}, error) {
	var p targetParams
	if err := bindParams(params, &p); err != nil {
		return nil, err
	}
	category, err := parseCategory(p.Category)
	if err != nil {
		return nil, err
	}
	return a.engine.Remove(c.Request.Context(), ActorID(c), category, p.ID, p.Reason)
}

// Restore handles moderation.restore
func (a *ContentAPI) Restore(c *gin.Context, params json.RawMessage) (interface{}, error) {
	var p entryParams
	if err := bindParams(params, &p); err != nil {
		return nil, err
	}
	outcome, err := a.engine.Restore(c.Request.Context(), ActorID(c), p.EntryID)
	if err != nil {
		return nil, err
	}
	return outcomeResult{Outcome: outcome}, nil
}

// DismissReport handles moderation.dismiss_report
func (a *ContentAPI) DismissReport(c *gin.Context, params json.RawMessage) (interface{}, error) {
	var p reportParams
	if err := bindParams(params, &p); err != nil {
		return nil, err
	}
	outcome, err := a.engine.DismissReport(c.Request.Context(), ActorID(c), p.ReportID)
	if err != nil {
		return nil, err
	}
	return outcomeResult{Outcome: outcome}, nil
}

// ReportQueue handles moderation.report_queue
func (a *ContentAPI) ReportQueue(c *gin.Context, params json.RawMessage) (interface{}, error) {
	var p limitParams
	if err := bindParams(params, &p); err != nil {
		return nil, err
	}
	reports, err := a.engine.ReportQueue(c.Request.Context(), ActorID(c), p.Limit)
	if err != nil {
		return nil, err
	}
	if reports == nil {
		reports = []*models.LedgerEntry{}
	}
	return reports, nil
}

// RemovedContent handles moderation.removed_content. The owner defaults to
// the caller.
func (a *ContentAPI) RemovedContent(c *gin.Context, params json.RawMessage) (interface{}, error) {
	var p ownerParams
	if err := bindParams(params, &p); err != nil {
		return nil, err
	}
	owner := p.OwnerID
	if owner == 0 {
		owner = ActorID(c)
	}
	entries, err := a.engine.RemovedContent(c.Request.Context(), ActorID(c), owner)
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []*models.LedgerEntry{}
	}
	return entries, nil
}

// CreateComment handles moderation.create_comment
func (a *ContentAPI) CreateComment(c *gin.Context, params json.RawMessage) (interface{}, error) {
	var p createCommentParams
	if err := bindParams(params, &p); err != nil {
		return nil, err
	}
	parent, err := parseRef(p.Parent)
	if err != nil {
		return nil, err
	}
	return a.engine.CreateComment(c.Request.Context(), ActorID(c), parent, p.Body, p.Anonymous)
}
