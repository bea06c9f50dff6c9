package api

import (
	"github.com/labstack/echo/v4"

	"github.com/julianpistorius/abaco/models"
)

// GetPermissions lists the grants on an actor.
func (a *API) GetPermissions(c echo.Context) error {
	_, actor, err := a.checkedActor(c, models.PermissionUpdate)
	if err != nil {
		return err
	}
	grants, err := a.auth.Get(c.Request().Context(), actor.DBID)
	if err != nil {
		return err
	}
	result := models.Record{}
	for user, level := range grants {
		result[user] = string(level)
	}
	return a.ok(c, result, "Permissions retrieved successfully.")
}

// grantRequest is the body of the permissions POST.
type grantRequest struct {
	User  string `json:"user" form:"user"`
	Level string `json:"level" form:"level"`
}

// AddPermission grants one user a level on the actor.
func (a *API) AddPermission(c echo.Context) error {
	_, actor, err := a.checkedActor(c, models.PermissionUpdate)
	if err != nil {
		return err
	}
	var req grantRequest
	if err := c.Bind(&req); err != nil {
		return DAOError("Could not deserialize permission request body.")
	}
	if req.User == "" {
		return ValidationError("user is required")
	}
	level, perr := models.ParsePermissionLevel(req.Level)
	if perr != nil {
		return ValidationError(perr.Error())
	}
	ctx := c.Request().Context()
	if err := a.auth.Grant(ctx, actor.DBID, req.User, level); err != nil {
		return err
	}
	grants, err := a.auth.Get(ctx, actor.DBID)
	if err != nil {
		return err
	}
	result := models.Record{}
	for user, l := range grants {
		result[user] = string(l)
	}
	return a.ok(c, result, "Permission added successfully.")
}
