package api

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/julianpistorius/abaco/models"
)

// TestGetExecutionsSummary verifies the aggregated executions view.
func TestGetExecutionsSummary(t *testing.T) {
	env := newTestEnv(t)
	id := testIdentity()
	ctx := context.Background()
	actorID := env.createActor(t, id, `{"name": "counter", "image": "abaco/counter"}`)
	dbid := models.DBID("dev", actorID)

	t.Run("empty summary for a fresh actor", func(t *testing.T) {
		rec := env.invoke(t, env.api.GetExecutions,
			getRequest("/actors/v2/"+actorID+"/executions"), id, map[string]string{"actor_id": actorID})
		require.Equal(t, http.StatusOK, rec.Code)
		result := resultMap(t, decodeEnvelope(t, rec))
		assert.Equal(t, float64(0), result["total_executions"])
		assert.Equal(t, []interface{}{}, result["ids"])
	})

	e1 := models.NewExecution(dbid, "jdoe")
	e1.Status = models.COMPLETE
	e1.Runtime, e1.CPU, e1.IO = 100, 10, 1
	e2 := models.NewExecution(dbid, "jdoe")
	e2.Status = models.COMPLETE
	e2.Runtime, e2.CPU, e2.IO = 200, 20, 2
	require.NoError(t, env.st.Executions.Add(ctx, e1))
	require.NoError(t, env.st.Executions.Add(ctx, e2))

	rec := env.invoke(t, env.api.GetExecutions,
		getRequest("/actors/v2/"+actorID+"/executions"), id, map[string]string{"actor_id": actorID})
	require.Equal(t, http.StatusOK, rec.Code)
	result := resultMap(t, decodeEnvelope(t, rec))
	assert.Equal(t, actorID, result["actor_id"])
	assert.Equal(t, float64(2), result["total_executions"])
	assert.Equal(t, float64(300), result["total_runtime"])
	assert.Equal(t, float64(30), result["total_cpu"])
	assert.Equal(t, float64(3), result["total_io"])
	counts := result["counts_by_status"].(map[string]interface{})
	assert.Equal(t, float64(2), counts[models.COMPLETE])
}

// TestAddExecution verifies the internal stats report endpoint.
func TestAddExecution(t *testing.T) {
	env := newTestEnv(t)
	id := testIdentity()
	ctx := context.Background()
	actorID := env.createActor(t, id, `{"name": "counter", "image": "abaco/counter"}`)
	dbid := models.DBID("dev", actorID)

	rec := env.invoke(t, env.api.AddExecution,
		jsonRequest(http.MethodPost, "/actors/v2/"+actorID+"/executions",
			`{"runtime": "1000", "cpu": "120", "io": "4"}`),
		id, map[string]string{"actor_id": actorID})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	execs, err := env.st.Executions.All(ctx, dbid)
	require.NoError(t, err)
	require.Len(t, execs, 1)
	assert.Equal(t, models.COMPLETE, execs[0].Status)
	assert.Equal(t, int64(1000), execs[0].Runtime)
	assert.Equal(t, int64(120), execs[0].CPU)
	assert.Equal(t, int64(4), execs[0].IO)
	assert.False(t, execs[0].FinishTime.IsZero())

	t.Run("non-integer stats are rejected", func(t *testing.T) {
		rec := env.invoke(t, env.api.AddExecution,
			jsonRequest(http.MethodPost, "/actors/v2/"+actorID+"/executions",
				`{"runtime": "fast", "cpu": "120", "io": "4"}`),
			id, map[string]string{"actor_id": actorID})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("missing stat is rejected", func(t *testing.T) {
		rec := env.invoke(t, env.api.AddExecution,
			jsonRequest(http.MethodPost, "/actors/v2/"+actorID+"/executions",
				`{"runtime": "1000"}`),
			id, map[string]string{"actor_id": actorID})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

// TestGetExecution verifies single execution retrieval and its 404 shape.
func TestGetExecution(t *testing.T) {
	env := newTestEnv(t)
	id := testIdentity()
	ctx := context.Background()
	actorID := env.createActor(t, id, `{"name": "counter", "image": "abaco/counter"}`)
	dbid := models.DBID("dev", actorID)

	exec := models.NewExecution(dbid, "jdoe")
	require.NoError(t, env.st.Executions.Add(ctx, exec))

	rec := env.invoke(t, env.api.GetExecution,
		getRequest("/actors/v2/"+actorID+"/executions/"+exec.ID),
		id, map[string]string{"actor_id": actorID, "execution_id": exec.ID})
	require.Equal(t, http.StatusOK, rec.Code)
	result := resultMap(t, decodeEnvelope(t, rec))
	assert.Equal(t, exec.ID, result["id"])
	assert.Equal(t, actorID, result["actor_id"], "db_id tenant prefix is stripped")
	assert.Contains(t, result, "_links")

	t.Run("unknown execution is 404", func(t *testing.T) {
		rec := env.invoke(t, env.api.GetExecution,
			getRequest("/actors/v2/"+actorID+"/executions/nope"),
			id, map[string]string{"actor_id": actorID, "execution_id": "nope"})
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "Execution not found nope.", decodeEnvelope(t, rec).Message)
	})
}

// TestGetExecutionLogs verifies log retrieval, including the empty-logs case.
func TestGetExecutionLogs(t *testing.T) {
	env := newTestEnv(t)
	id := testIdentity()
	ctx := context.Background()
	actorID := env.createActor(t, id, `{"name": "counter", "image": "abaco/counter"}`)
	dbid := models.DBID("dev", actorID)

	exec := models.NewExecution(dbid, "jdoe")
	require.NoError(t, env.st.Executions.Add(ctx, exec))

	t.Run("no logs yet reads as empty", func(t *testing.T) {
		rec := env.invoke(t, env.api.GetExecutionLogs,
			getRequest("/actors/v2/"+actorID+"/executions/"+exec.ID+"/logs"),
			id, map[string]string{"actor_id": actorID, "execution_id": exec.ID})
		require.Equal(t, http.StatusOK, rec.Code)
		result := resultMap(t, decodeEnvelope(t, rec))
		assert.Equal(t, "", result["logs"])
	})

	t.Run("collected logs are returned", func(t *testing.T) {
		require.NoError(t, env.st.Logs.Set(ctx, exec.ID, "hello from the container\n"))
		rec := env.invoke(t, env.api.GetExecutionLogs,
			getRequest("/actors/v2/"+actorID+"/executions/"+exec.ID+"/logs"),
			id, map[string]string{"actor_id": actorID, "execution_id": exec.ID})
		require.Equal(t, http.StatusOK, rec.Code)
		result := resultMap(t, decodeEnvelope(t, rec))
		assert.Equal(t, "hello from the container\n", result["logs"])
	})

	t.Run("unknown execution is 404", func(t *testing.T) {
		rec := env.invoke(t, env.api.GetExecutionLogs,
			getRequest("/actors/v2/"+actorID+"/executions/nope/logs"),
			id, map[string]string{"actor_id": actorID, "execution_id": "nope"})
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}
