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

// UserRepository provides user-related database operations
type UserRepository struct {
	*Repository
}

// NewUserRepository creates a new user repository
func NewUserRepository(repo *Repository) *UserRepository {
	return &UserRepository{Repository: repo}
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

// Create creates a new user
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

// Usernames maps user ids to display names
func (r *UserRepository) Usernames(ctx context.Context, ids []int64) (map[int64]string, error) {
	out := make(map[int64]string, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var users []*models.User
	if err := r.db.WithContext(ctx).
		Select("id", "username").
		Where("id IN ?", ids).
		Find(&users).Error; err != nil {
		return nil, err
	}
	for _, u := range users {
		out[u.ID] = u.Username
	}
	return out, nil
}

// SetLastLogin updates the last_login_at timestamp for a user
func (r *UserRepository) SetLastLogin(ctx context.Context, id int64, at time.Time) error {
	return r.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", id).
		Update("last_login_at", sql.NullTime{Time: at, Valid: true}).Error
}

// RoleRepository provides role assignment operations
type RoleRepository struct {
	*Repository
}

// NewRoleRepository creates a new role repository
func NewRoleRepository(repo *Repository) *RoleRepository {
	return &RoleRepository{Repository: repo}
}

// RoleOf returns a user's role; users without an assignment are regular
func (r *RoleRepository) RoleOf(ctx context.Context, userID int64) (models.Role, error) {
	var ra models.RoleAssignment
	if err := r.db.WithContext(ctx).First(&ra, "user_id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.RoleRegular, nil
		}
		return models.RoleRegular, err
	}
	return ra.Role, nil
}

// Set upserts an assignment. Assigning the regular role deletes the row.
func (r *RoleRepository) Set(ctx context.Context, ra *models.RoleAssignment) error {
	if ra.Role == models.RoleRegular {
		_, err := r.Delete(ctx, ra.UserID)
		return err
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"role", "granted_by", "created_at"}),
	}).Create(ra).Error
}

// Delete removes an assignment
func (r *RoleRepository) Delete(ctx context.Context, userID int64) (bool, error) {
	res := r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.RoleAssignment{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// ListElevated returns every moderator and admin assignment
func (r *RoleRepository) ListElevated(ctx context.Context) ([]*models.RoleAssignment, error) {
	var out []*models.RoleAssignment
	if err := r.db.WithContext(ctx).Order("role DESC, user_id ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// NotificationRepository provides notification operations
type NotificationRepository struct {
	*Repository
}

// NewNotificationRepository creates a new notification repository
func NewNotificationRepository(repo *Repository) *NotificationRepository {
	return &NotificationRepository{Repository: repo}
}

// Create creates a new notification
func (r *NotificationRepository) Create(ctx context.Context, n *models.Notification) error {
	return r.db.WithContext(ctx).Create(n).Error
}

// ListForUser returns the newest notifications addressed to a user
func (r *NotificationRepository) ListForUser(ctx context.Context, dstID int64, limit int) ([]*models.Notification, error) {
	var out []*models.Notification
	if err := r.db.WithContext(ctx).
		Where("dst_id = ?", dstID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
