// Package worker implements the control-plane side of the worker
// provisioning protocol: reserving worker records, publishing desired-state
// commands for the out-of-band supervisor, and signalling shutdown to
// individual workers. Every operation here is fire-and-forget; the control
// plane never waits for a worker to become READY.
package worker

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/julianpistorius/abaco/channels"
	"github.com/julianpistorius/abaco/models"
	"github.com/julianpistorius/abaco/stores"
)

// Registry drives the worker fleet of all actors toward declared intent.
type Registry struct {
	workers  *stores.WorkersStore
	channels *channels.Service
	logger   *logrus.Entry
}

// NewRegistry creates a registry over the workers store and the channel service.
func NewRegistry(workers *stores.WorkersStore, ch *channels.Service, logger *logrus.Entry) *Registry {
	return &Registry{workers: workers, channels: ch, logger: logger}
}

// RequestWorker atomically reserves a new worker id for an actor and
// records it in status REQUESTED. The supervisor owns every later
// transition.
func (r *Registry) RequestWorker(ctx context.Context, actor models.Actor) (string, error) {
	w := models.NewRequestedWorker(actor.Tenant, actor.Image)
	if err := r.workers.Add(ctx, actor.DBID, w); err != nil {
		return "", fmt.Errorf("failed to request worker for %s: %w", actor.DBID, err)
	}
	r.logger.WithFields(logrus.Fields{
		"actor":  actor.DBID,
		"worker": w.ID,
	}).Debug("worker requested")
	return w.ID, nil
}

// Workers lists the current worker population of an actor.
func (r *Registry) Workers(ctx context.Context, actorDBID string) ([]models.Worker, error) {
	return r.workers.All(ctx, actorDBID)
}

// Worker fetches one worker record.
func (r *Registry) Worker(ctx context.Context, actorDBID, workerID string) (models.Worker, error) {
	return r.workers.Get(ctx, actorDBID, workerID)
}

// EnsureWorkers asserts that at least num workers exist for the actor.
// When the population already satisfies num this is a no-op; otherwise the
// missing ids are reserved and a single desired-state command is published.
// Idempotent: calling it concurrently can over-provision by at most the
// number of callers, and the supervisor converges the population.
// Returns the newly requested ids, empty on no-op.
func (r *Registry) EnsureWorkers(ctx context.Context, actor models.Actor, num int) ([]string, error) {
	if num < 1 {
		num = 1
	}
	current, err := r.workers.All(ctx, actor.DBID)
	if err != nil {
		return nil, fmt.Errorf("failed to list workers for %s: %w", actor.DBID, err)
	}
	if len(current) >= num {
		return nil, nil
	}
	toAdd := num - len(current)
	ids := make([]string, 0, toAdd)
	for i := 0; i < toAdd; i++ {
		id, err := r.RequestWorker(ctx, actor)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	cmd := channels.Command{
		ActorID:      actor.DBID,
		WorkerIDs:    ids,
		Image:        actor.Image,
		Tenant:       actor.Tenant,
		Num:          toAdd,
		StopExisting: false,
	}
	if err := r.channels.CommandChannel().PutCmd(cmd); err != nil {
		return nil, fmt.Errorf("failed to publish worker command for %s: %w", actor.DBID, err)
	}
	r.logger.WithFields(logrus.Fields{
		"actor": actor.DBID,
		"num":   toAdd,
		"ids":   ids,
	}).Info("scheduled new workers")
	return ids, nil
}

// EnsureOneWorker is the hot-path form used on actor creation and message
// intake.
func (r *Registry) EnsureOneWorker(ctx context.Context, actor models.Actor) error {
	_, err := r.EnsureWorkers(ctx, actor, 1)
	return err
}

// RequestRollout seeds one replacement worker on the actor's new image and
// publishes a command with stop_existing set; the supervisor drains and
// terminates the old population once the replacement is READY.
func (r *Registry) RequestRollout(ctx context.Context, actor models.Actor) error {
	id, err := r.RequestWorker(ctx, actor)
	if err != nil {
		return err
	}
	cmd := channels.Command{
		ActorID:      actor.DBID,
		WorkerIDs:    []string{id},
		Image:        actor.Image,
		Tenant:       actor.Tenant,
		Num:          1,
		StopExisting: true,
	}
	if err := r.channels.CommandChannel().PutCmd(cmd); err != nil {
		return fmt.Errorf("failed to publish rollout command for %s: %w", actor.DBID, err)
	}
	r.logger.WithFields(logrus.Fields{
		"actor": actor.DBID,
		"image": actor.Image,
	}).Info("image rollout requested")
	return nil
}

// ShutdownWorker signals one worker to drain and stop via its private channel.
func (r *Registry) ShutdownWorker(chName string) error {
	if err := r.channels.WorkerChannel(chName).PutShutdown(); err != nil {
		return fmt.Errorf("failed to signal shutdown on %s: %w", chName, err)
	}
	return nil
}

// ShutdownWorkers signals every worker of an actor. Invoked from actor
// deletion; each signal is idempotent, so retries after partial failure
// are safe.
func (r *Registry) ShutdownWorkers(ctx context.Context, actorDBID string) error {
	workers, err := r.workers.All(ctx, actorDBID)
	if err != nil {
		return fmt.Errorf("failed to list workers for %s: %w", actorDBID, err)
	}
	for _, w := range workers {
		if err := r.ShutdownWorker(w.ChName); err != nil {
			return err
		}
		r.logger.WithFields(logrus.Fields{
			"actor":  actorDBID,
			"worker": w.ID,
		}).Info("worker shutdown requested")
	}
	return nil
}
