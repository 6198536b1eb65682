package cache

import (
	"context"
	"errors"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/medshare/moderation/internal/models"
	"github.com/medshare/moderation/pkg/logging"
)

// RoleSource resolves roles from the system of record.
type RoleSource interface {
	RoleOf(ctx context.Context, userID int64) (models.Role, error)
}

// RoleCache is a read-through Redis cache in front of a RoleSource. A nil
// or disabled Cache makes it a plain pass-through. Redis failures fall back
// to the source and are only logged.
type RoleCache struct {
	cache  *Cache
	source RoleSource
	ttl    time.Duration
	logger *zap.Logger
}

// NewRoleCache creates a role cache
func NewRoleCache(cache *Cache, source RoleSource, ttl time.Duration) *RoleCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &RoleCache{
		cache:  cache,
		source: source,
		ttl:    ttl,
		logger: logging.WithComponent("role-cache"),
	}
}

func roleKey(userID int64) string {
	return "role:" + strconv.FormatInt(userID, 10)
}

// RoleOf returns the role of a user
func (r *RoleCache) RoleOf(ctx context.Context, userID int64) (models.Role, error) {
	if r.cache != nil {
		raw, err := r.cache.Get(ctx, roleKey(userID))
		switch {
		case err == nil:
			if n, convErr := strconv.Atoi(raw); convErr == nil {
				return models.Role(n), nil
			}
		case errors.Is(err, ErrMiss):
		default:
			r.logger.Warn("Role cache read failed", zap.Int64("user_id", userID), zap.Error(err))
		}
	}

	role, err := r.source.RoleOf(ctx, userID)
	if err != nil {
		return models.RoleRegular, err
	}

	if r.cache != nil {
		if err := r.cache.Set(ctx, roleKey(userID), int(role), r.ttl); err != nil {
			r.logger.Warn("Role cache write failed", zap.Int64("user_id", userID), zap.Error(err))
		}
	}
	return role, nil
}

// Invalidate drops the cached role of a user
func (r *RoleCache) Invalidate(ctx context.Context, userID int64) {
	if r.cache == nil {
		return
	}
	if err := r.cache.Delete(ctx, roleKey(userID)); err != nil {
		r.logger.Warn("Role cache invalidation failed", zap.Int64("user_id", userID), zap.Error(err))
	}
}
