package api

import (
	"fmt"

	"github.com/labstack/echo/v4"

	"github.com/julianpistorius/abaco/models"
)

// GetWorkers lists the actor's worker population.
func (a *API) GetWorkers(c echo.Context) error {
	_, actor, err := a.checkedActor(c, models.PermissionRead)
	if err != nil {
		return err
	}
	workers, err := a.registry.Workers(c.Request().Context(), actor.DBID)
	if err != nil {
		return err
	}
	result := make([]models.Record, 0, len(workers))
	for _, w := range workers {
		result = append(result, w.Display())
	}
	return a.ok(c, result, "Workers retrieved successfully.")
}

// ensureWorkersRequest is the body of the workers POST.
type ensureWorkersRequest struct {
	Num int `json:"num" form:"num"`
}

// EnsureWorkers asserts a minimum worker population for the actor.
func (a *API) EnsureWorkers(c echo.Context) error {
	_, actor, err := a.checkedActor(c, models.PermissionUpdate)
	if err != nil {
		return err
	}
	var req ensureWorkersRequest
	if err := c.Bind(&req); err != nil {
		return DAOError("Could not deserialize workers request body.")
	}
	num := req.Num
	if num < 1 {
		num = 1
	}
	ids, err := a.registry.EnsureWorkers(c.Request().Context(), actor, num)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return a.ok(c, nil, fmt.Sprintf("Actor %s already had %d worker(s).", actor.ID, num))
	}
	return a.ok(c, nil, fmt.Sprintf("Scheduled %d new worker(s) to start.", len(ids)))
}

// GetWorker returns one worker record.
func (a *API) GetWorker(c echo.Context) error {
	_, actor, err := a.checkedActor(c, models.PermissionRead)
	if err != nil {
		return err
	}
	workerID := c.Param("worker_id")
	w, err := a.registry.Worker(c.Request().Context(), actor.DBID, workerID)
	if err != nil {
		return ResourceError(fmt.Sprintf("No worker found with id: %s.", workerID))
	}
	return a.ok(c, w.Display(), "Worker retrieved successfully.")
}

// StopWorker signals one worker to drain and stop. The record remains
// until the supervisor completes the shutdown.
func (a *API) StopWorker(c echo.Context) error {
	_, actor, err := a.checkedActor(c, models.PermissionUpdate)
	if err != nil {
		return err
	}
	workerID := c.Param("worker_id")
	w, err := a.registry.Worker(c.Request().Context(), actor.DBID, workerID)
	if err != nil {
		return ResourceError(fmt.Sprintf("No worker found with id: %s.", workerID))
	}
	if err := a.registry.ShutdownWorker(w.ChName); err != nil {
		return err
	}
	return a.ok(c, nil, "Worker scheduled to be stopped.")
}
