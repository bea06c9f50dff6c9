package api

import (
	"context"
	"errors"
	"fmt"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/julianpistorius/abaco/auth"
	"github.com/julianpistorius/abaco/channels"
	"github.com/julianpistorius/abaco/config"
	"github.com/julianpistorius/abaco/models"
	"github.com/julianpistorius/abaco/stores"
	"github.com/julianpistorius/abaco/worker"
)

// API wires the handlers to the stores, channels and services they mutate.
// Handlers are straight-line: validate, check permission, touch stores,
// publish, respond. All shared state lives behind concurrency-safe clients.
type API struct {
	stores    *stores.Set
	channels  *channels.Service
	auth      *auth.Service
	registry  *worker.Registry
	logger    *logrus.Entry
	camelCase bool
}

// New assembles the API from its collaborators.
func New(cfg *config.Config, st *stores.Set, ch *channels.Service, logger *logrus.Entry) *API {
	return &API{
		stores:    st,
		channels:  ch,
		auth:      auth.NewService(st.Permissions, logger),
		registry:  worker.NewRegistry(st.Workers, ch, logger),
		logger:    logger,
		camelCase: cfg.Web.Case == "camel",
	}
}

// Auth exposes the permission service, for wiring and tests.
func (a *API) Auth() *auth.Service {
	return a.auth
}

// Registry exposes the worker registry, for wiring and tests.
func (a *API) Registry() *worker.Registry {
	return a.registry
}

// identity returns the caller identity or a 401 when the authn collaborator
// did not supply tenant and user.
func identity(c echo.Context) (auth.Identity, error) {
	id, ok := auth.FromContext(c)
	if !ok || !id.Valid() {
		return auth.Identity{}, UnauthorizedError("No tenant and user on the request.")
	}
	return id, nil
}

// loadActor resolves the user-visible actor id to its record, translating
// a missing key into the canonical 404.
func (a *API) loadActor(ctx context.Context, id auth.Identity, actorID string) (models.Actor, error) {
	dbid := models.DBID(id.Tenant, actorID)
	actor, err := a.stores.Actors.Get(ctx, dbid)
	if errors.Is(err, stores.ErrNotFound) {
		return models.Actor{}, ResourceError(fmt.Sprintf("No actor found with id: %s.", actorID))
	}
	if err != nil {
		return models.Actor{}, err
	}
	return actor, nil
}

// checkedActor loads the actor and enforces the minimum permission level
// in one step; every handler below the collection endpoints starts here.
func (a *API) checkedActor(c echo.Context, required models.PermissionLevel) (auth.Identity, models.Actor, error) {
	id, err := identity(c)
	if err != nil {
		return auth.Identity{}, models.Actor{}, err
	}
	actor, err := a.loadActor(c.Request().Context(), id, c.Param("actor_id"))
	if err != nil {
		return auth.Identity{}, models.Actor{}, err
	}
	if err := a.auth.Check(c.Request().Context(), id, actor.DBID, required); err != nil {
		return auth.Identity{}, models.Actor{}, err
	}
	return id, actor, nil
}
