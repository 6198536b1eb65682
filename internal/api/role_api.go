package api

import (
	"encoding/json"

	"github.com/gin-gonic/gin"

	"github.com/medshare/moderation/internal/models"
	"github.com/medshare/moderation/internal/moderation"
)

// RoleAPI serves the roles.* methods
type RoleAPI struct {
	engine *moderation.Engine
}

// NewRoleAPI creates a new role API
func NewRoleAPI(engine *moderation.Engine) *RoleAPI {
	return &RoleAPI{engine: engine}
}

type grantParams struct {
	UserID int64  `json:"user_id" validate:"required,gt=0"`
	Role   string `json:"role" validate:"required,oneof=regular moderator mod admin"`
}

// Grant handles roles.grant
func (a *RoleAPI) Grant(c *gin.Context, params json.RawMessage) (interface{}, error) {
	var p grantParams
	if err := bindParams(params, &p); err != nil {
		return nil, err
	}
	role, err := models.ParseRole(p.Role)
	if err != nil {
		return nil, invalidParams("%v", err)
	}
	outcome, err := a.engine.GrantRole(c.Request.Context(), ActorID(c), p.UserID, role)
	if err != nil {
		return nil, err
	}
	return outcomeResult{Outcome: outcome}, nil
}

// Revoke handles roles.revoke
func (a *RoleAPI) Revoke(c *gin.Context, params json.RawMessage) (interface{}, error) {
	var p userParams
	if err := bindParams(params, &p); err != nil {
		return nil, err
	}
	outcome, err := a.engine.RevokeRole(c.Request.Context(), ActorID(c), p.UserID)
	if err != nil {
		return nil, err
	}
	return outcomeResult{Outcome: outcome}, nil
}

// List handles roles.list
func (a *RoleAPI) List(c *gin.Context, _ json.RawMessage) (interface{}, error) {
	roles, err := a.engine.ListRoles(c.Request.Context(), ActorID(c))
	if err != nil {
		return nil, err
	}
	if roles == nil {
		roles = []*models.RoleAssignment{}
	}
	return roles, nil
}
