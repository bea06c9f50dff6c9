package api

import (
	"fmt"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/julianpistorius/abaco/models"
)

// GetExecutions returns the on-demand summary over all executions of the actor.
func (a *API) GetExecutions(c echo.Context) error {
	_, actor, err := a.checkedActor(c, models.PermissionRead)
	if err != nil {
		return err
	}
	execs, err := a.stores.Executions.All(c.Request().Context(), actor.DBID)
	if err != nil {
		return err
	}
	summary := models.SummarizeExecutions(actor.DBID, execs)
	return a.ok(c, summary.Display(), "Actor executions retrieved successfully.")
}

// AddExecution records the resource accounting of one finished run. This
// is the internal endpoint workers report through.
func (a *API) AddExecution(c echo.Context) error {
	id, actor, err := a.checkedActor(c, models.PermissionUpdate)
	if err != nil {
		return err
	}
	var stats models.ExecutionStats
	if err := c.Bind(&stats); err != nil {
		return DAOError("Could not deserialize execution stats body.")
	}
	runtime, cpu, io, verr := stats.Validate()
	if verr != nil {
		return ValidationError(verr.Error())
	}
	exec := models.NewExecution(actor.DBID, id.User)
	exec.Status = models.COMPLETE
	exec.Runtime = runtime
	exec.CPU = cpu
	exec.IO = io
	exec.FinishTime = time.Now().UTC()
	if err := a.stores.Executions.Add(c.Request().Context(), exec); err != nil {
		return err
	}
	a.logger.WithField("actor", actor.DBID).WithField("execution", exec.ID).
		Info("execution recorded")
	return a.ok(c, withLinks(actor.Display(), actorLinks(actor)), "Actor execution added successfully.")
}

// GetExecution returns one execution record.
func (a *API) GetExecution(c echo.Context) error {
	_, actor, err := a.checkedActor(c, models.PermissionRead)
	if err != nil {
		return err
	}
	execID := c.Param("execution_id")
	exec, err := a.stores.Executions.Get(c.Request().Context(), actor.DBID, execID)
	if err != nil {
		return ResourceError(fmt.Sprintf("Execution not found %s.", execID))
	}
	return a.ok(c, withLinks(exec.Display(), executionLinks(actor, exec.ID)),
		"Actor execution retrieved successfully.")
}

// GetExecutionLogs returns the execution's log blob; an execution that
// produced no logs yet reads as empty, not as missing.
func (a *API) GetExecutionLogs(c echo.Context) error {
	_, actor, err := a.checkedActor(c, models.PermissionRead)
	if err != nil {
		return err
	}
	execID := c.Param("execution_id")
	ctx := c.Request().Context()
	exec, err := a.stores.Executions.Get(ctx, actor.DBID, execID)
	if err != nil {
		return ResourceError(fmt.Sprintf("Execution %s not found.", execID))
	}
	logs, err := a.stores.Logs.Get(ctx, exec.ID)
	if err != nil {
		return err
	}
	result := models.Record{"logs": logs}
	return a.ok(c, withLinks(result, logsLinks(actor, exec.ID)), "Logs retrieved successfully.")
}
