package api

import (
	"errors"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/julianpistorius/abaco/models"
	"github.com/julianpistorius/abaco/stores"
)

// ListActors returns the caller's tenant's actors, filtered to those the
// caller can READ.
func (a *API) ListActors(c echo.Context) error {
	id, err := identity(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	actors, err := a.stores.Actors.Items(ctx)
	if err != nil {
		return err
	}
	result := make([]models.Record, 0)
	for _, actor := range actors {
		if actor.Tenant != id.Tenant {
			continue
		}
		level, err := a.auth.Effective(ctx, actor.DBID, id.User)
		if err != nil {
			return err
		}
		if !level.Includes(models.PermissionRead) {
			continue
		}
		result = append(result, actor.Display())
	}
	return a.ok(c, result, "Actors retrieved successfully.")
}

// CreateActor registers a new actor. Admission requires only
// authentication; the creator is granted UPDATE before the actor record
// becomes visible (write-permission-first, since the backing KV has no
// cross-key transactions).
func (a *API) CreateActor(c echo.Context) error {
	id, err := identity(c)
	if err != nil {
		return err
	}
	var req models.ActorRequest
	if err := c.Bind(&req); err != nil {
		return DAOError("Could not deserialize actor request body.")
	}
	if err := req.ValidateCreate(); err != nil {
		return ValidationError(err.Error())
	}
	actor := models.NewActor(req, id.Tenant, id.User, id.APIServer)
	ctx := c.Request().Context()
	if err := a.auth.Grant(ctx, actor.DBID, id.User, models.PermissionUpdate); err != nil {
		return err
	}
	if err := a.stores.Actors.Set(ctx, actor); err != nil {
		return err
	}
	a.logger.WithFields(logrus.Fields{
		"actor":  actor.DBID,
		"image":  actor.Image,
		"tenant": actor.Tenant,
	}).Info("new actor registered")
	if err := a.registry.EnsureOneWorker(ctx, actor); err != nil {
		return err
	}
	return a.ok(c, withLinks(actor.Display(), actorLinks(actor)), "Actor created successfully.")
}

// GetActor returns one actor's public projection.
func (a *API) GetActor(c echo.Context) error {
	_, actor, err := a.checkedActor(c, models.PermissionRead)
	if err != nil {
		return err
	}
	return a.ok(c, withLinks(actor.Display(), actorLinks(actor)), "Actor retrieved successfully.")
}

// UpdateActor overlays the update request onto the actor. An image change
// resets the status to SUBMITTED and requests a rollout; the spent image's
// workers are drained by the supervisor once the replacement is READY.
func (a *API) UpdateActor(c echo.Context) error {
	id, actor, err := a.checkedActor(c, models.PermissionUpdate)
	if err != nil {
		return err
	}
	var req models.ActorRequest
	if err := c.Bind(&req); err != nil {
		return DAOError("Could not deserialize actor request body.")
	}
	if err := req.ValidateUpdate(); err != nil {
		return ValidationError(err.Error())
	}
	previousImage := actor.Image
	updated := actor.Update(req, id.User, id.APIServer)
	updateImage := updated.Image != previousImage
	if updateImage {
		updated.Status = models.SUBMITTED
	}
	ctx := c.Request().Context()
	if err := a.stores.Actors.Set(ctx, updated); err != nil {
		return err
	}
	if updateImage {
		if err := a.registry.RequestRollout(ctx, updated); err != nil {
			return err
		}
	}
	a.logger.WithFields(logrus.Fields{
		"actor":        updated.DBID,
		"image":        updated.Image,
		"update_image": updateImage,
	}).Info("actor updated")
	return a.ok(c, withLinks(updated.Display(), actorLinks(updated)), "Actor updated successfully.")
}

// DeleteActor removes the actor and everything hanging off it. The cascade
// order is fixed and each step is idempotent, so a request that dies
// half-way can simply be retried: shutdown workers, delete per-execution
// logs, delete the executions entry, delete the actor, delete permissions.
func (a *API) DeleteActor(c echo.Context) error {
	_, actor, err := a.checkedActor(c, models.PermissionUpdate)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	if err := a.registry.ShutdownWorkers(ctx, actor.DBID); err != nil {
		return err
	}
	execs, err := a.stores.Executions.All(ctx, actor.DBID)
	if err != nil && !errors.Is(err, stores.ErrNotFound) {
		return err
	}
	for _, e := range execs {
		if err := a.stores.Logs.Delete(ctx, e.ID); err != nil {
			return err
		}
	}
	if err := a.stores.Executions.Delete(ctx, actor.DBID); err != nil {
		return err
	}
	if err := a.stores.Actors.Delete(ctx, actor.DBID); err != nil {
		return err
	}
	if err := a.stores.Permissions.Delete(ctx, actor.DBID); err != nil {
		return err
	}
	a.logger.WithField("actor", actor.DBID).Info("actor deleted")
	return a.ok(c, nil, "Actor deleted successfully.")
}

// stateRequest is the body of the state POST.
type stateRequest struct {
	State string `json:"state" form:"state"`
}

// GetState returns the actor's opaque state blob.
func (a *API) GetState(c echo.Context) error {
	_, actor, err := a.checkedActor(c, models.PermissionRead)
	if err != nil {
		return err
	}
	return a.ok(c, models.Record{"state": actor.State}, "Actor state retrieved successfully.")
}

// SetState replaces the state blob. Stateless actors have this endpoint
// disabled; clients depend on the 404 here, so the status is preserved.
func (a *API) SetState(c echo.Context) error {
	_, actor, err := a.checkedActor(c, models.PermissionUpdate)
	if err != nil {
		return err
	}
	if actor.Stateless {
		return ResourceError("actor is stateless.")
	}
	var req stateRequest
	if err := c.Bind(&req); err != nil {
		return DAOError("Could not deserialize state request body.")
	}
	if req.State == "" {
		return ValidationError("state is required")
	}
	ctx := c.Request().Context()
	if err := a.stores.Actors.UpdateState(ctx, actor.DBID, req.State); err != nil {
		return err
	}
	updated, err := a.stores.Actors.Get(ctx, actor.DBID)
	if err != nil {
		return err
	}
	return a.ok(c, withLinks(updated.Display(), actorLinks(updated)), "State updated successfully.")
}
