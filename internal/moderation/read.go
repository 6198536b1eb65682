package moderation

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/medshare/moderation/internal/models"
)

const (
	DefaultPageSize = 50
	MaxPageSize     = 100
)

// ThreadView is root content with its visible comment forest.
type ThreadView struct {
	Item Entry `json:"item"`
	Tree
}

// GetVisibleTree returns the root content and its comments as seen by
// viewer. Removed or missing root content is ErrNotFound; removed comments
// and their replies are left out. Posts come back with an empty forest.
func (e *Engine) GetVisibleTree(ctx context.Context, root models.ParentRef, viewer Viewer) (view *ThreadView, err error) {
	ctx, span := e.begin(ctx, "GetVisibleTree", attribute.String("root", root.String()))
	defer func() { e.finish(ctx, span, "get_visible_tree", "read", err) }()

	if !root.Valid() || !root.IsRoot() {
		return nil, ErrInvalidReference
	}

	item, err := e.stores.Content.GetItem(ctx, root.Category(), root.ID())
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", root, err)
	}
	if item == nil {
		return nil, ErrNotFound
	}
	items, err := e.visibleItems(ctx, root.Category(), []*models.ContentItem{item}, viewer)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, ErrNotFound
	}
	commentCategory, ok := root.Category().CommentCategory()
	if !ok {
		// posts carry no comments
		return &ThreadView{Item: items[0], Tree: BuildTree(nil, root)}, nil
	}

	comments, err := e.stores.Content.ListComments(ctx, root)
	if err != nil {
		return nil, fmt.Errorf("load comments of %s: %w", root, err)
	}
	entries, err := e.commentEntries(ctx, comments)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, len(entries))
	for i := range entries {
		ids[i] = entries[i].ID
	}
	removals, anonymity, err := e.ledgerSets(ctx, commentCategory, ids)
	if err != nil {
		return nil, err
	}

	tree := BuildTree(e.visibility.Filter(entries, removals, anonymity, viewer), root)
	if len(tree.Duplicates) > 0 {
		e.logger.Warn("Duplicate comment ids in thread",
			zap.String("root", root.String()),
			zap.Int64s("ids", tree.Duplicates))
	}
	if tree.Orphans > 0 {
		e.logger.Debug("Comments hidden with their parent",
			zap.String("root", root.String()),
			zap.Int("orphans", tree.Orphans))
	}
	return &ThreadView{Item: items[0], Tree: tree}, nil
}

// GetVisibleItems returns a page of root content of one category, newest
// first, as seen by viewer. limit <= 0 selects DefaultPageSize.
func (e *Engine) GetVisibleItems(ctx context.Context, category models.Category, viewer Viewer, limit, offset int) (out []Entry, err error) {
	ctx, span := e.begin(ctx, "GetVisibleItems", attribute.String("category", category.String()))
	defer func() { e.finish(ctx, span, "get_visible_items", "read", err) }()

	if !category.IsRoot() {
		return nil, invalidArgument("%s is not root content", category)
	}
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	if offset < 0 {
		offset = 0
	}

	items, err := e.stores.Content.ListItems(ctx, category, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", category, err)
	}
	return e.visibleItems(ctx, category, items, viewer)
}

// visibleItems converts root rows to entries and applies the filter.
func (e *Engine) visibleItems(ctx context.Context, category models.Category, items []*models.ContentItem, viewer Viewer) ([]Entry, error) {
	ids := make([]int64, len(items))
	owners := make([]int64, len(items))
	for i, it := range items {
		ids[i] = it.ID
		owners[i] = it.OwnerID
	}
	names, err := e.stores.Users.Usernames(ctx, owners)
	if err != nil {
		return nil, fmt.Errorf("load usernames: %w", err)
	}
	entries := make([]Entry, len(items))
	for i, it := range items {
		entries[i] = Entry{
			Category:  category,
			ID:        it.ID,
			OwnerID:   it.OwnerID,
			Author:    Author{ID: it.OwnerID, Username: names[it.OwnerID]},
			Title:     it.Title,
			Body:      it.Body,
			CreatedAt: it.CreatedAt,
		}
	}
	removals, anonymity, err := e.ledgerSets(ctx, category, ids)
	if err != nil {
		return nil, err
	}
	return e.visibility.Filter(entries, removals, anonymity, viewer), nil
}

// commentEntries converts comment rows to entries with author names.
func (e *Engine) commentEntries(ctx context.Context, comments []*models.Comment) ([]Entry, error) {
	owners := make([]int64, len(comments))
	for i, c := range comments {
		owners[i] = c.OwnerID
	}
	names, err := e.stores.Users.Usernames(ctx, owners)
	if err != nil {
		return nil, fmt.Errorf("load usernames: %w", err)
	}
	entries := make([]Entry, len(comments))
	for i, c := range comments {
		parent := c.Parent()
		entries[i] = Entry{
			Category:  c.Category,
			ID:        c.ID,
			OwnerID:   c.OwnerID,
			Author:    Author{ID: c.OwnerID, Username: names[c.OwnerID]},
			Body:      c.Body,
			Parent:    &parent,
			Depth:     int(c.Depth),
			CreatedAt: c.CreatedAt,
		}
	}
	return entries, nil
}

// ledgerSets loads removal and anonymity sets for ids of one category.
func (e *Engine) ledgerSets(ctx context.Context, category models.Category, ids []int64) (TargetSet, TargetSet, error) {
	removed, err := e.stores.Ledger.RemovedTargets(ctx, category, ids)
	if err != nil {
		return nil, nil, fmt.Errorf("load removals: %w", err)
	}
	anonymous, err := e.stores.Content.AnonymousTargets(ctx, category, ids)
	if err != nil {
		return nil, nil, fmt.Errorf("load anonymity flags: %w", err)
	}
	return toTargetSet(category, removed), toTargetSet(category, anonymous), nil
}

func toTargetSet(category models.Category, ids map[int64]bool) TargetSet {
	set := make(TargetSet, len(ids))
	for id, ok := range ids {
		if ok {
			set[models.Target{Category: category, ID: id}] = true
		}
	}
	return set
}
