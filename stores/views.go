package stores

import (
	"context"
	"sort"

	"github.com/redis/go-redis/v9"

	"github.com/julianpistorius/abaco/models"
)

// Set bundles the typed store views used by the control plane. Both HTTP
// frontends and worker supervisors construct a Set over the same redis
// keyspace.
type Set struct {
	Actors      *ActorsStore
	Executions  *ExecutionsStore
	Logs        *LogsStore
	Permissions *PermissionsStore
	Workers     *WorkersStore
}

// NewSet builds the five stores over one redis client. The prefix
// namespaces the deployment, e.g. "abaco".
func NewSet(client *redis.Client, prefix string) *Set {
	return &Set{
		Actors:      &ActorsStore{s: NewRedisStore(client, prefix+":actors")},
		Executions:  &ExecutionsStore{s: NewRedisStore(client, prefix+":executions")},
		Logs:        &LogsStore{s: NewRedisStore(client, prefix+":logs")},
		Permissions: &PermissionsStore{s: NewRedisStore(client, prefix+":permissions")},
		Workers:     &WorkersStore{s: NewRedisStore(client, prefix+":workers")},
	}
}

// ActorsStore holds actor records keyed by db_id.
type ActorsStore struct {
	s Store
}

func (a *ActorsStore) Get(ctx context.Context, dbid string) (models.Actor, error) {
	rec, err := a.s.Get(ctx, dbid)
	if err != nil {
		return models.Actor{}, err
	}
	return models.ActorFromDB(rec), nil
}

func (a *ActorsStore) Set(ctx context.Context, actor models.Actor) error {
	return a.s.Set(ctx, actor.DBID, actor.ToDB())
}

// UpdateState atomically replaces only the state blob, so concurrent PUTs
// on other fields are not clobbered.
func (a *ActorsStore) UpdateState(ctx context.Context, dbid, state string) error {
	return a.s.Update(ctx, dbid, "state", state)
}

// UpdateStatus atomically replaces only the lifecycle status.
func (a *ActorsStore) UpdateStatus(ctx context.Context, dbid, status string) error {
	return a.s.Update(ctx, dbid, "status", status)
}

func (a *ActorsStore) Delete(ctx context.Context, dbid string) error {
	return a.s.Delete(ctx, dbid)
}

// Items returns every stored actor. Enumeration order is unspecified.
func (a *ActorsStore) Items(ctx context.Context) ([]models.Actor, error) {
	recs, err := a.s.Items(ctx)
	if err != nil {
		return nil, err
	}
	actors := make([]models.Actor, 0, len(recs))
	for _, rec := range recs {
		actors = append(actors, models.ActorFromDB(rec))
	}
	sort.Slice(actors, func(i, j int) bool { return actors[i].DBID < actors[j].DBID })
	return actors, nil
}

// ExecutionsStore holds, per actor db_id, the map execution id -> record.
type ExecutionsStore struct {
	s Store
}

// Add inserts an execution under its actor, creating the actor's entry on
// first use. HSET on the execution id makes concurrent adds safe.
func (e *ExecutionsStore) Add(ctx context.Context, exec models.Execution) error {
	return e.s.SetField(ctx, exec.ActorID, exec.ID, exec.ToDB())
}

func (e *ExecutionsStore) Get(ctx context.Context, actorDBID, execID string) (models.Execution, error) {
	rec, err := e.s.Get(ctx, actorDBID)
	if err != nil {
		return models.Execution{}, err
	}
	sub, ok := rec[execID].(map[string]interface{})
	if !ok {
		return models.Execution{}, ErrNotFound
	}
	return models.ExecutionFromDB(sub), nil
}

// All returns every execution of one actor. A missing entry means no
// executions yet, not an error.
func (e *ExecutionsStore) All(ctx context.Context, actorDBID string) ([]models.Execution, error) {
	rec, err := e.s.Get(ctx, actorDBID)
	if err == ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	execs := make([]models.Execution, 0, len(rec))
	for _, v := range rec {
		if sub, ok := v.(map[string]interface{}); ok {
			execs = append(execs, models.ExecutionFromDB(sub))
		}
	}
	sort.Slice(execs, func(i, j int) bool { return execs[i].ID < execs[j].ID })
	return execs, nil
}

func (e *ExecutionsStore) Delete(ctx context.Context, actorDBID string) error {
	return e.s.Delete(ctx, actorDBID)
}

// LogsStore holds opaque text blobs keyed by execution id.
type LogsStore struct {
	s Store
}

// Get returns the logs for an execution, or "" when none were collected.
func (l *LogsStore) Get(ctx context.Context, execID string) (string, error) {
	rec, err := l.s.Get(ctx, execID)
	if err == ErrNotFound {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	if s, ok := rec["logs"].(string); ok {
		return s, nil
	}
	return "", nil
}

func (l *LogsStore) Set(ctx context.Context, execID, logs string) error {
	return l.s.SetField(ctx, execID, "logs", logs)
}

func (l *LogsStore) Delete(ctx context.Context, execID string) error {
	return l.s.Delete(ctx, execID)
}

// PermissionsStore holds, per actor db_id, the map user -> level.
type PermissionsStore struct {
	s Store
}

// Grant sets one user's level on an actor, creating the permission record
// on first use.
func (p *PermissionsStore) Grant(ctx context.Context, actorDBID, user string, level models.PermissionLevel) error {
	return p.s.SetField(ctx, actorDBID, user, string(level))
}

// Get returns the full permission map for an actor. A missing record means
// no grants, not an error.
func (p *PermissionsStore) Get(ctx context.Context, actorDBID string) (map[string]models.PermissionLevel, error) {
	rec, err := p.s.Get(ctx, actorDBID)
	if err == ErrNotFound {
		return map[string]models.PermissionLevel{}, nil
	}
	if err != nil {
		return nil, err
	}
	out := make(map[string]models.PermissionLevel, len(rec))
	for user, v := range rec {
		if s, ok := v.(string); ok {
			out[user] = models.PermissionLevel(s)
		}
	}
	return out, nil
}

func (p *PermissionsStore) Delete(ctx context.Context, actorDBID string) error {
	return p.s.Delete(ctx, actorDBID)
}

// WorkersStore holds, per actor db_id, the map worker id -> record.
type WorkersStore struct {
	s Store
}

// Add atomically reserves a worker id under its actor.
func (w *WorkersStore) Add(ctx context.Context, actorDBID string, worker models.Worker) error {
	return w.s.SetField(ctx, actorDBID, worker.ID, worker.ToDB())
}

func (w *WorkersStore) Get(ctx context.Context, actorDBID, workerID string) (models.Worker, error) {
	rec, err := w.s.Get(ctx, actorDBID)
	if err != nil {
		return models.Worker{}, err
	}
	sub, ok := rec[workerID].(map[string]interface{})
	if !ok {
		return models.Worker{}, ErrNotFound
	}
	return models.WorkerFromDB(sub), nil
}

// All returns every worker of one actor. A missing entry means no workers.
func (w *WorkersStore) All(ctx context.Context, actorDBID string) ([]models.Worker, error) {
	rec, err := w.s.Get(ctx, actorDBID)
	if err == ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	workers := make([]models.Worker, 0, len(rec))
	for _, v := range rec {
		if sub, ok := v.(map[string]interface{}); ok {
			workers = append(workers, models.WorkerFromDB(sub))
		}
	}
	sort.Slice(workers, func(i, j int) bool { return workers[i].ID < workers[j].ID })
	return workers, nil
}
