package db

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/medshare/moderation/internal/models"
)

// SanctionRepository provides warning, ban and appeal operations
type SanctionRepository struct {
	*Repository
}

// NewSanctionRepository creates a new sanction repository
func NewSanctionRepository(repo *Repository) *SanctionRepository {
	return &SanctionRepository{Repository: repo}
}

// CreateWarning inserts a warning. When escalate is non-nil and the user has
// at least threshold warnings issued since the given time (the new one
// included), escalate is inserted as a ban in the same transaction. The
// returned flag reports whether a ban was created.
func (r *SanctionRepository) CreateWarning(ctx context.Context, w *models.Warning, threshold int64, since time.Time, escalate *models.Ban) (bool, error) {
	banned := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(w).Error; err != nil {
			return err
		}
		if escalate == nil {
			return nil
		}
		var count int64
		if err := tx.Model(&models.Warning{}).
			Where("user_id = ? AND issued_at >= ?", w.UserID, since).
			Count(&count).Error; err != nil {
			return err
		}
		if count < threshold {
			return nil
		}
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(escalate)
		if res.Error != nil {
			return res.Error
		}
		banned = res.RowsAffected > 0
		return nil
	})
	if err != nil {
		return false, err
	}
	return banned, nil
}

// CountWarningsSince counts a user's warnings issued at or after since
func (r *SanctionRepository) CountWarningsSince(ctx context.Context, userID int64, since time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Warning{}).
		Where("user_id = ? AND issued_at >= ?", userID, since).
		Count(&count).Error
	return count, err
}

// UnreadWarningsAfter returns unread warnings issued after the given time,
// or all unread warnings when after is not valid
func (r *SanctionRepository) UnreadWarningsAfter(ctx context.Context, userID int64, after sql.NullTime) ([]*models.Warning, error) {
	q := r.db.WithContext(ctx).Where("user_id = ? AND is_read = ?", userID, false)
	if after.Valid {
		q = q.Where("issued_at > ?", after.Time)
	}
	var warnings []*models.Warning
	if err := q.Order("issued_at DESC, id DESC").Find(&warnings).Error; err != nil {
		return nil, err
	}
	return warnings, nil
}

// ListWarnings returns every warning of a user, newest first
func (r *SanctionRepository) ListWarnings(ctx context.Context, userID int64) ([]*models.Warning, error) {
	var warnings []*models.Warning
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("issued_at DESC, id DESC").
		Find(&warnings).Error; err != nil {
		return nil, err
	}
	return warnings, nil
}

// GetWarning retrieves a warning by id
func (r *SanctionRepository) GetWarning(ctx context.Context, id int64) (*models.Warning, error) {
	var w models.Warning
	if err := r.db.WithContext(ctx).First(&w, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &w, nil
}

// MarkWarningRead flags a warning as read. It returns false when the
// warning was already read.
func (r *SanctionRepository) MarkWarningRead(ctx context.Context, id int64) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.Warning{}).
		Where("id = ? AND is_read = ?", id, false).
		Update("is_read", true)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// GetBan retrieves the ban of a user
func (r *SanctionRepository) GetBan(ctx context.Context, userID int64) (*models.Ban, error) {
	var ban models.Ban
	if err := r.db.WithContext(ctx).First(&ban, "user_id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &ban, nil
}

// CreateBan inserts a ban. It returns false when the user is already banned.
func (r *SanctionRepository) CreateBan(ctx context.Context, ban *models.Ban) (bool, error) {
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(ban)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// DeleteBan lifts a ban. It returns false when the user was not banned.
func (r *SanctionRepository) DeleteBan(ctx context.Context, userID int64) (bool, error) {
	res := r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.Ban{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// PendingAppeal retrieves the pending appeal of a user
func (r *SanctionRepository) PendingAppeal(ctx context.Context, userID int64) (*models.BanAppeal, error) {
	var appeal models.BanAppeal
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND status = ?", userID, models.AppealPending).
		First(&appeal).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &appeal, nil
}

// CreateAppeal inserts a pending appeal. It returns false when the user
// already has one pending.
func (r *SanctionRepository) CreateAppeal(ctx context.Context, appeal *models.BanAppeal) (bool, error) {
	appeal.Status = models.AppealPending
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(appeal)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// GetAppeal retrieves an appeal with its responses
func (r *SanctionRepository) GetAppeal(ctx context.Context, id int64) (*models.BanAppeal, error) {
	var appeal models.BanAppeal
	if err := r.db.WithContext(ctx).
		Preload("Responses", func(db *gorm.DB) *gorm.DB {
			return db.Order("responded_at ASC, id ASC")
		}).
		First(&appeal, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &appeal, nil
}

// ListAppeals returns a user's appeals with responses, newest first
func (r *SanctionRepository) ListAppeals(ctx context.Context, userID int64) ([]*models.BanAppeal, error) {
	var appeals []*models.BanAppeal
	if err := r.db.WithContext(ctx).
		Preload("Responses", func(db *gorm.DB) *gorm.DB {
			return db.Order("responded_at ASC, id ASC")
		}).
		Where("user_id = ?", userID).
		Order("submitted_at DESC, id DESC").
		Find(&appeals).Error; err != nil {
		return nil, err
	}
	return appeals, nil
}

// AnswerAppeal moves a pending appeal to the response's decision, records the
// response and, on acceptance, lifts the ban, all in one transaction. It
// returns false without writing anything when the appeal is not pending.
func (r *SanctionRepository) AnswerAppeal(ctx context.Context, appeal *models.BanAppeal, resp *models.AppealResponse) (bool, error) {
	answered := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.BanAppeal{}).
			Where("id = ? AND status = ?", appeal.ID, models.AppealPending).
			Updates(map[string]interface{}{
				"status":      resp.Decision.Status(),
				"answered_at": sql.NullTime{Time: resp.RespondedAt, Valid: true},
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		answered = true

		resp.AppealID = appeal.ID
		if err := tx.Create(resp).Error; err != nil {
			return err
		}
		if resp.Decision == models.DecisionAccepted {
			return tx.Where("user_id = ?", appeal.UserID).Delete(&models.Ban{}).Error
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return answered, nil
}
