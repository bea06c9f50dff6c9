package worker

import (
	"context"
	"encoding/json"
	"io"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/julianpistorius/abaco/channels"
	"github.com/julianpistorius/abaco/models"
	"github.com/julianpistorius/abaco/stores"
)

func newTestRegistry(t *testing.T) (*Registry, *stores.Set, *channels.MockAMQPChannel) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	st := stores.NewSet(client, "abaco")
	svc, mock := channels.NewMockService()
	t.Cleanup(func() { svc.Close() })
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return NewRegistry(st.Workers, svc, logger.WithField("service", "test")), st, mock
}

func testActor() models.Actor {
	return models.NewActor(models.ActorRequest{Name: "counter", Image: "abaco/counter"},
		"dev", "jdoe", "https://api")
}

func decodeCommands(t *testing.T, mock *channels.MockAMQPChannel) []channels.Command {
	t.Helper()
	var cmds []channels.Command
	for _, body := range mock.Messages("command") {
		var cmd channels.Command
		require.NoError(t, json.Unmarshal(body, &cmd))
		cmds = append(cmds, cmd)
	}
	return cmds
}

// TestRequestWorker verifies a fresh worker lands in REQUESTED with a
// derived private channel name.
func TestRequestWorker(t *testing.T) {
	r, st, _ := newTestRegistry(t)
	actor := testActor()
	ctx := context.Background()

	id, err := r.RequestWorker(ctx, actor)
	require.NoError(t, err)

	w, err := st.Workers.Get(ctx, actor.DBID, id)
	require.NoError(t, err)
	assert.Equal(t, models.WorkerRequested, w.Status)
	assert.Equal(t, models.WorkerChannelName(id), w.ChName)
	assert.Equal(t, actor.Image, w.Image)
}

// TestEnsureWorkers verifies the population assertion: a satisfied
// population is a no-op, a deficit reserves the missing ids and publishes
// exactly one command.
func TestEnsureWorkers(t *testing.T) {
	t.Run("deficit of one", func(t *testing.T) {
		r, _, mock := newTestRegistry(t)
		actor := testActor()

		ids, err := r.EnsureWorkers(context.Background(), actor, 1)
		require.NoError(t, err)
		require.Len(t, ids, 1)

		cmds := decodeCommands(t, mock)
		require.Len(t, cmds, 1)
		assert.Equal(t, actor.DBID, cmds[0].ActorID)
		assert.Equal(t, 1, cmds[0].Num)
		assert.Equal(t, ids, cmds[0].WorkerIDs)
		assert.False(t, cmds[0].StopExisting)
	})

	t.Run("already satisfied is a no-op", func(t *testing.T) {
		r, _, mock := newTestRegistry(t)
		actor := testActor()
		ctx := context.Background()

		_, err := r.EnsureWorkers(ctx, actor, 2)
		require.NoError(t, err)

		ids, err := r.EnsureWorkers(ctx, actor, 2)
		require.NoError(t, err)
		assert.Empty(t, ids)
		assert.Len(t, decodeCommands(t, mock), 1, "no second command published")
	})

	t.Run("partial deficit requests only the difference", func(t *testing.T) {
		r, _, mock := newTestRegistry(t)
		actor := testActor()
		ctx := context.Background()

		_, err := r.EnsureWorkers(ctx, actor, 2)
		require.NoError(t, err)

		ids, err := r.EnsureWorkers(ctx, actor, 3)
		require.NoError(t, err)
		assert.Len(t, ids, 1)

		cmds := decodeCommands(t, mock)
		require.Len(t, cmds, 2)
		assert.Equal(t, 1, cmds[1].Num)
		assert.Len(t, cmds[1].WorkerIDs, 1)
	})

	t.Run("num below one is clamped to one", func(t *testing.T) {
		r, _, _ := newTestRegistry(t)
		ids, err := r.EnsureWorkers(context.Background(), testActor(), 0)
		require.NoError(t, err)
		assert.Len(t, ids, 1)
	})
}

// TestRequestRollout verifies an image rollout seeds exactly one
// replacement worker and sets stop_existing on the command.
func TestRequestRollout(t *testing.T) {
	r, st, mock := newTestRegistry(t)
	actor := testActor()
	ctx := context.Background()

	// existing population on the old image
	_, err := r.EnsureWorkers(ctx, actor, 2)
	require.NoError(t, err)

	actor.Image = "abaco/counter:v2"
	require.NoError(t, r.RequestRollout(ctx, actor))

	cmds := decodeCommands(t, mock)
	require.Len(t, cmds, 2)
	rollout := cmds[1]
	assert.True(t, rollout.StopExisting)
	assert.Equal(t, 1, rollout.Num)
	assert.Len(t, rollout.WorkerIDs, 1)
	assert.Equal(t, "abaco/counter:v2", rollout.Image)

	w, err := st.Workers.Get(ctx, actor.DBID, rollout.WorkerIDs[0])
	require.NoError(t, err)
	assert.Equal(t, "abaco/counter:v2", w.Image)
}

// TestShutdownWorkers verifies one shutdown message lands on each worker's
// private channel.
func TestShutdownWorkers(t *testing.T) {
	r, st, mock := newTestRegistry(t)
	actor := testActor()
	ctx := context.Background()

	_, err := r.EnsureWorkers(ctx, actor, 2)
	require.NoError(t, err)
	workers, err := st.Workers.All(ctx, actor.DBID)
	require.NoError(t, err)
	require.Len(t, workers, 2)

	require.NoError(t, r.ShutdownWorkers(ctx, actor.DBID))

	for _, w := range workers {
		bodies := mock.Messages(w.ChName)
		require.Len(t, bodies, 1, "one shutdown per worker channel")
		assert.JSONEq(t, `{"command": "shutdown"}`, string(bodies[0]))
	}
}
