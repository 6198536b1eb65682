package moderation

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/medshare/moderation/internal/models"
)

// roleInvalidator is implemented by caching resolvers.
type roleInvalidator interface {
	Invalidate(ctx context.Context, userID int64)
}

func (e *Engine) invalidateRole(ctx context.Context, userID int64) {
	if inv, ok := e.roles.(roleInvalidator); ok {
		inv.Invalidate(ctx, userID)
	}
}

// GrantRole assigns role to a user. Admin only. Granting the regular role is
// the same as revoking.
func (e *Engine) GrantRole(ctx context.Context, actorID, userID int64, role models.Role) (outcome Outcome, err error) {
	ctx, span := e.begin(ctx, "GrantRole",
		attribute.Int64("actor_id", actorID),
		attribute.Int64("user_id", userID),
		attribute.String("role", role.String()))
	defer func() { e.finish(ctx, span, "grant_role", outcome, err) }()

	if role == models.RoleRegular {
		return e.RevokeRole(ctx, actorID, userID)
	}
	if !role.IsElevated() {
		return "", invalidArgument("unknown role %d", int16(role))
	}
	actor, err := e.authenticated(ctx, actorID)
	if err != nil {
		return "", err
	}
	if !CanManageRoles(actor) {
		return "", ErrForbidden
	}
	user, err := e.stores.Users.GetByID(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("load user %d: %w", userID, err)
	}
	if user == nil {
		return "", ErrNotFound
	}
	current, err := e.roles.RoleOf(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("resolve role of %d: %w", userID, err)
	}
	if current == role {
		return outcomeOf(OutcomeGranted, ErrAlreadyInState)
	}

	if err := e.stores.Roles.Set(ctx, &models.RoleAssignment{
		UserID:    userID,
		Role:      role,
		GrantedBy: actor.ID,
		CreatedAt: e.now(),
	}); err != nil {
		return "", fmt.Errorf("set role: %w", err)
	}
	e.invalidateRole(ctx, userID)
	e.logger.Info("Role granted",
		zap.Int64("user_id", userID),
		zap.String("role", role.String()),
		zap.Int64("actor_id", actor.ID))
	return OutcomeGranted, nil
}

// RevokeRole returns a user to the regular role. Admin only.
func (e *Engine) RevokeRole(ctx context.Context, actorID, userID int64) (outcome Outcome, err error) {
	actor, err := e.authenticated(ctx, actorID)
	if err != nil {
		return "", err
	}
	if !CanManageRoles(actor) {
		return "", ErrForbidden
	}
	deleted, err := e.stores.Roles.Delete(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("delete role: %w", err)
	}
	e.invalidateRole(ctx, userID)
	if !deleted {
		return outcomeOf(OutcomeRevoked, ErrAlreadyInState)
	}
	e.logger.Info("Role revoked", zap.Int64("user_id", userID), zap.Int64("actor_id", actor.ID))
	return OutcomeRevoked, nil
}

// ListRoles returns every elevated assignment. Moderators and admins only.
func (e *Engine) ListRoles(ctx context.Context, actorID int64) ([]*models.RoleAssignment, error) {
	actor, err := e.authenticated(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if !CanModerate(actor) {
		return nil, ErrForbidden
	}
	out, err := e.stores.Roles.ListElevated(ctx)
	if err != nil {
		return nil, fmt.Errorf("list roles: %w", err)
	}
	return out, nil
}
