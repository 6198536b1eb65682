package db

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/medshare/moderation/internal/models"
)

// Repository provides database access methods
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new repository
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// ContentRepository reads root content and comments, and performs the
// cascading hard deletes.
type ContentRepository struct {
	*Repository
}

// NewContentRepository creates a new content repository
func NewContentRepository(repo *Repository) *ContentRepository {
	return &ContentRepository{Repository: repo}
}

// GetItem retrieves root content by category and id
func (r *ContentRepository) GetItem(ctx context.Context, category models.Category, id int64) (*models.ContentItem, error) {
	var item models.ContentItem
	if err := r.db.WithContext(ctx).Table(category.Table()).First(&item, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &item, nil
}

// CreateItem inserts root content. Used when seeding a fresh database.
func (r *ContentRepository) CreateItem(ctx context.Context, category models.Category, item *models.ContentItem) error {
	return r.db.WithContext(ctx).Table(category.Table()).Create(item).Error
}

// ListItems returns a page of root content, newest first
func (r *ContentRepository) ListItems(ctx context.Context, category models.Category, limit, offset int) ([]*models.ContentItem, error) {
	var items []*models.ContentItem
	if err := r.db.WithContext(ctx).
		Table(category.Table()).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Offset(offset).
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// GetComment retrieves a comment by id
func (r *ContentRepository) GetComment(ctx context.Context, id int64) (*models.Comment, error) {
	var comment models.Comment
	if err := r.db.WithContext(ctx).First(&comment, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &comment, nil
}

// ListComments returns every comment under a root, oldest first
func (r *ContentRepository) ListComments(ctx context.Context, root models.ParentRef) ([]*models.Comment, error) {
	var comments []*models.Comment
	if err := r.db.WithContext(ctx).
		Where("root_category = ? AND root_id = ?", root.Category(), root.ID()).
		Order("created_at ASC, id ASC").
		Find(&comments).Error; err != nil {
		return nil, err
	}
	return comments, nil
}

// CreateComment inserts a comment and, when anonymous, its anonymity flag in
// the same transaction
func (r *ContentRepository) CreateComment(ctx context.Context, comment *models.Comment, anonymous bool) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(comment).Error; err != nil {
			return err
		}
		if !anonymous {
			return nil
		}
		return tx.Create(&models.AnonymityFlag{
			Category:  comment.Category,
			TargetID:  comment.ID,
			CreatedAt: comment.CreatedAt,
		}).Error
	})
}

// DeleteItem hard deletes root content together with every comment under it
// and the ledger and anonymity rows of all deleted rows. It returns false
// when the item did not exist, and the number of cascaded comments.
func (r *ContentRepository) DeleteItem(ctx context.Context, category models.Category, id int64) (bool, int64, error) {
	var (
		deleted  bool
		comments int64
	)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		del := tx.Table(category.Table()).Where("id = ?", id).Delete(&models.ContentItem{})
		if del.Error != nil {
			return del.Error
		}
		if del.RowsAffected == 0 {
			return nil
		}
		deleted = true

		if err := purgeTargets(tx, category, []int64{id}); err != nil {
			return err
		}

		commentCategory, ok := category.CommentCategory()
		if !ok {
			return nil
		}
		var ids []int64
		if err := tx.Model(&models.Comment{}).
			Where("root_category = ? AND root_id = ?", category, id).
			Pluck("id", &ids).Error; err != nil {
			return err
		}
		if len(ids) == 0 {
			return nil
		}
		cascade := tx.Where("root_category = ? AND root_id = ?", category, id).Delete(&models.Comment{})
		if cascade.Error != nil {
			return cascade.Error
		}
		comments = cascade.RowsAffected
		return purgeTargets(tx, commentCategory, ids)
	})
	if err != nil {
		return false, 0, err
	}
	return deleted, comments, nil
}

// DeleteCommentSubtree hard deletes a comment and every reply below it. The
// count excludes the comment itself.
func (r *ContentRepository) DeleteCommentSubtree(ctx context.Context, id int64) (bool, int64, error) {
	var (
		deleted  bool
		comments int64
	)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var target models.Comment
		if err := tx.First(&target, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return err
		}

		var siblings []models.Comment
		if err := tx.Select("id", "parent_id").
			Where("root_category = ? AND root_id = ?", target.RootCategory, target.RootID).
			Find(&siblings).Error; err != nil {
			return err
		}
		ids := subtreeIDs(target.ID, siblings)

		del := tx.Where("id IN ?", ids).Delete(&models.Comment{})
		if del.Error != nil {
			return del.Error
		}
		deleted = true
		comments = del.RowsAffected - 1
		return purgeTargets(tx, target.Category, ids)
	})
	if err != nil {
		return false, 0, err
	}
	return deleted, comments, nil
}

// AnonymousTargets returns the subset of ids flagged anonymous
func (r *ContentRepository) AnonymousTargets(ctx context.Context, category models.Category, ids []int64) (map[int64]bool, error) {
	out := make(map[int64]bool)
	if len(ids) == 0 {
		return out, nil
	}
	var flagged []int64
	if err := r.db.WithContext(ctx).Model(&models.AnonymityFlag{}).
		Where("category = ? AND target_id IN ?", category, ids).
		Pluck("target_id", &flagged).Error; err != nil {
		return nil, err
	}
	for _, id := range flagged {
		out[id] = true
	}
	return out, nil
}

// SetAnonymous flags existing content as anonymous
func (r *ContentRepository) SetAnonymous(ctx context.Context, flag *models.AnonymityFlag) error {
	return r.db.WithContext(ctx).Create(flag).Error
}

// subtreeIDs walks parent links breadth first from root.
func subtreeIDs(root int64, comments []models.Comment) []int64 {
	children := make(map[int64][]int64)
	for _, c := range comments {
		if c.ParentID.Valid {
			children[c.ParentID.Int64] = append(children[c.ParentID.Int64], c.ID)
		}
	}
	ids := []int64{root}
	for i := 0; i < len(ids); i++ {
		ids = append(ids, children[ids[i]]...)
	}
	return ids
}

// purgeTargets removes ledger and anonymity rows of deleted content.
func purgeTargets(tx *gorm.DB, category models.Category, ids []int64) error {
	if err := tx.Where("category = ? AND target_id IN ?", category, ids).
		Delete(&models.LedgerEntry{}).Error; err != nil {
		return err
	}
	return tx.Where("category = ? AND target_id IN ?", category, ids).
		Delete(&models.AnonymityFlag{}).Error
}
