package db

import (
	"context"
	"database/sql"
	"errors"
	"sort"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/medshare/moderation/internal/models"
)

// LedgerRepository provides moderation ledger operations
type LedgerRepository struct {
	*Repository
}

// NewLedgerRepository creates a new ledger repository
func NewLedgerRepository(repo *Repository) *LedgerRepository {
	return &LedgerRepository{Repository: repo}
}

// InsertReport appends a report. It returns false when the reporter already
// reported the target.
func (r *LedgerRepository) InsertReport(ctx context.Context, entry *models.LedgerEntry) (bool, error) {
	entry.Kind = models.LedgerReport
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(entry)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// InsertRemoval appends a removal and closes the open reports of the target
// in one transaction. It returns false when a removal already exists.
func (r *LedgerRepository) InsertRemoval(ctx context.Context, entry *models.LedgerEntry) (bool, error) {
	entry.Kind = models.LedgerRemoval
	inserted := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(entry)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		inserted = true
		return tx.Model(&models.LedgerEntry{}).
			Where("kind = ? AND category = ? AND target_id = ? AND resolved_at IS NULL",
				models.LedgerReport, entry.Category, entry.TargetID).
			Update("resolved_at", sql.NullTime{Time: entry.CreatedAt, Valid: true}).Error
	})
	if err != nil {
		return false, err
	}
	return inserted, nil
}

// GetRemoval retrieves the removal of a target
func (r *LedgerRepository) GetRemoval(ctx context.Context, category models.Category, targetID int64) (*models.LedgerEntry, error) {
	var entry models.LedgerEntry
	if err := r.db.WithContext(ctx).
		Where("kind = ? AND category = ? AND target_id = ?", models.LedgerRemoval, category, targetID).
		First(&entry).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &entry, nil
}

// GetEntry retrieves a ledger entry of either kind by id
func (r *LedgerRepository) GetEntry(ctx context.Context, id int64) (*models.LedgerEntry, error) {
	var entry models.LedgerEntry
	if err := r.db.WithContext(ctx).First(&entry, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &entry, nil
}

// DeleteRemoval removes a removal entry by id, making its target visible again
func (r *LedgerRepository) DeleteRemoval(ctx context.Context, id int64) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("kind = ? AND id = ?", models.LedgerRemoval, id).
		Delete(&models.LedgerEntry{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// RemovedTargets returns the subset of ids carrying a removal
func (r *LedgerRepository) RemovedTargets(ctx context.Context, category models.Category, ids []int64) (map[int64]bool, error) {
	out := make(map[int64]bool)
	if len(ids) == 0 {
		return out, nil
	}
	var removed []int64
	if err := r.db.WithContext(ctx).Model(&models.LedgerEntry{}).
		Where("kind = ? AND category = ? AND target_id IN ?", models.LedgerRemoval, category, ids).
		Pluck("target_id", &removed).Error; err != nil {
		return nil, err
	}
	for _, id := range removed {
		out[id] = true
	}
	return out, nil
}

// GetReport retrieves a report by id
func (r *LedgerRepository) GetReport(ctx context.Context, id int64) (*models.LedgerEntry, error) {
	var entry models.LedgerEntry
	if err := r.db.WithContext(ctx).
		Where("kind = ? AND id = ?", models.LedgerReport, id).
		First(&entry).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &entry, nil
}

// DeleteReport removes a report
func (r *LedgerRepository) DeleteReport(ctx context.Context, id int64) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("kind = ? AND id = ?", models.LedgerReport, id).
		Delete(&models.LedgerEntry{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// OpenReports returns unresolved reports, oldest first
func (r *LedgerRepository) OpenReports(ctx context.Context, limit int) ([]*models.LedgerEntry, error) {
	var entries []*models.LedgerEntry
	if err := r.db.WithContext(ctx).
		Where("kind = ? AND resolved_at IS NULL", models.LedgerReport).
		Order("created_at ASC, id ASC").
		Limit(limit).
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// RemovalsForOwner returns removals targeting content owned by ownerID,
// newest first
func (r *LedgerRepository) RemovalsForOwner(ctx context.Context, ownerID int64) ([]*models.LedgerEntry, error) {
	var out []*models.LedgerEntry
	for _, c := range models.Categories {
		table := c.Table()
		if c.IsComment() {
			table = models.Comment{}.TableName()
		}
		var entries []*models.LedgerEntry
		if err := r.db.WithContext(ctx).
			Table("moderation_ledger AS l").
			Select("l.*").
			Joins("JOIN "+table+" AS t ON t.id = l.target_id").
			Where("l.kind = ? AND l.category = ? AND t.owner_id = ?", models.LedgerRemoval, c, ownerID).
			Find(&entries).Error; err != nil {
			return nil, err
		}
		out = append(out, entries...)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}
