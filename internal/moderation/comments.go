package moderation

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/medshare/moderation/internal/models"
)

const maxCommentLength = 10000

// CreateComment adds a comment under parent. The parent must exist and be
// visible, and the new comment may not exceed MaxCommentDepth levels below
// root content. Banned users cannot comment.
func (e *Engine) CreateComment(ctx context.Context, actorID int64, parent models.ParentRef, body string, anonymous bool) (entry *Entry, err error) {
	ctx, span := e.begin(ctx, "CreateComment",
		attribute.Int64("actor_id", actorID),
		attribute.String("parent", parent.String()))
	defer func() {
		var outcome Outcome
		if err == nil {
			outcome = OutcomeCreated
		}
		e.finish(ctx, span, "create_comment", outcome, err)
	}()

	if actorID <= 0 {
		return nil, ErrForbidden
	}
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, invalidArgument("comment body is required")
	}
	if len(body) > maxCommentLength {
		return nil, invalidArgument("comment longer than %d characters", maxCommentLength)
	}
	if !parent.Valid() {
		return nil, ErrInvalidReference
	}

	ban, err := e.stores.Sanctions.GetBan(ctx, actorID)
	if err != nil {
		return nil, fmt.Errorf("load ban: %w", err)
	}
	if ban != nil {
		return nil, ErrForbidden
	}

	comment, err := e.resolveParent(ctx, parent)
	if err != nil {
		return nil, err
	}
	comment.OwnerID = actorID
	comment.Body = body
	comment.CreatedAt = e.now()

	if err := e.stores.Content.CreateComment(ctx, comment, anonymous); err != nil {
		return nil, txFailure("create comment", err)
	}
	e.logger.Debug("Comment created",
		zap.Int64("comment_id", comment.ID),
		zap.String("parent", parent.String()),
		zap.Bool("anonymous", anonymous))

	entries, err := e.commentEntries(ctx, []*models.Comment{comment})
	if err != nil {
		return nil, err
	}
	// The author is the viewer here, so the entry is returned unmasked.
	entries[0].Author.Anonymous = anonymous
	return &entries[0], nil
}

// resolveParent validates parent and returns a comment with its placement
// fields filled in.
func (e *Engine) resolveParent(ctx context.Context, parent models.ParentRef) (*models.Comment, error) {
	if parent.IsRoot() {
		category, ok := parent.Category().CommentCategory()
		if !ok {
			return nil, ErrInvalidReference
		}
		if err := e.requireVisibleRoot(ctx, parent); err != nil {
			return nil, err
		}
		return &models.Comment{
			Category:     category,
			RootCategory: parent.Category(),
			RootID:       parent.ID(),
		}, nil
	}

	p, err := e.stores.Content.GetComment(ctx, parent.ID())
	if err != nil {
		return nil, fmt.Errorf("load comment %d: %w", parent.ID(), err)
	}
	if p == nil {
		return nil, ErrInvalidReference
	}
	depth := int(p.Depth) + 1
	if depth >= e.opts.MaxCommentDepth {
		return nil, ErrInvalidReference
	}
	if err := e.requireVisibleChain(ctx, p); err != nil {
		return nil, err
	}
	if err := e.requireVisibleRoot(ctx, p.Root()); err != nil {
		return nil, err
	}
	return &models.Comment{
		Category:     p.Category,
		RootCategory: p.RootCategory,
		RootID:       p.RootID,
		ParentID:     sql.NullInt64{Int64: p.ID, Valid: true},
		Depth:        int16(depth),
	}, nil
}

func (e *Engine) requireVisibleRoot(ctx context.Context, root models.ParentRef) error {
	item, err := e.stores.Content.GetItem(ctx, root.Category(), root.ID())
	if err != nil {
		return fmt.Errorf("load %s: %w", root, err)
	}
	if item == nil {
		return ErrInvalidReference
	}
	removed, err := e.isRemoved(ctx, root.Category(), root.ID())
	if err != nil {
		return err
	}
	if removed {
		return ErrInvalidReference
	}
	return nil
}

// requireVisibleChain checks that c and every comment above it are present
// and not removed. The walk is bounded by MaxCommentDepth.
func (e *Engine) requireVisibleChain(ctx context.Context, c *models.Comment) error {
	ids := []int64{c.ID}
	cur := c
	for steps := 0; cur.ParentID.Valid; steps++ {
		if steps >= e.opts.MaxCommentDepth {
			return ErrInvalidReference
		}
		next, err := e.stores.Content.GetComment(ctx, cur.ParentID.Int64)
		if err != nil {
			return fmt.Errorf("load comment %d: %w", cur.ParentID.Int64, err)
		}
		if next == nil {
			return ErrInvalidReference
		}
		ids = append(ids, next.ID)
		cur = next
	}
	removed, err := e.stores.Ledger.RemovedTargets(ctx, c.Category, ids)
	if err != nil {
		return fmt.Errorf("load removals: %w", err)
	}
	if len(removed) > 0 {
		return ErrInvalidReference
	}
	return nil
}
