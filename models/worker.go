package models

import (
	"time"

	"github.com/google/uuid"
)

// Worker represents one container instance attached to an actor. The
// control plane only ever creates workers in REQUESTED; the out-of-band
// supervisor owns every later status transition.
type Worker struct {
	// ID is unique within the actor.
	ID string

	// ChName is the private channel the worker listens on for control
	// messages such as shutdown.
	ChName string

	Tenant string

	// Image must match the actor's image once the worker is READY.
	Image string

	// Host identifies the machine the container runs on.
	Host string

	Status string

	LastHealthCheckTime time.Time
}

// NewRequestedWorker reserves a fresh worker identity for an actor. The
// channel name is derived from the id so it is unique across the fleet.
func NewRequestedWorker(tenant, image string) Worker {
	id := uuid.NewString()
	return Worker{
		ID:     id,
		ChName: WorkerChannelName(id),
		Tenant: tenant,
		Image:  image,
		Status: WorkerRequested,
	}
}

// WorkerChannelName derives the private control channel name for a worker id.
func WorkerChannelName(workerID string) string {
	return "worker_" + workerID
}

// ToDB serializes the worker for storage. Lossless with FromDB.
func (w Worker) ToDB() Record {
	return Record{
		"id":                     w.ID,
		"ch_name":                w.ChName,
		"tenant":                 w.Tenant,
		"image":                  w.Image,
		"host":                   w.Host,
		"status":                 w.Status,
		"last_health_check_time": encTime(w.LastHealthCheckTime),
	}
}

// WorkerFromDB deserializes a stored worker record.
func WorkerFromDB(rec Record) Worker {
	return Worker{
		ID:                  recString(rec, "id"),
		ChName:              recString(rec, "ch_name"),
		Tenant:              recString(rec, "tenant"),
		Image:               recString(rec, "image"),
		Host:                recString(rec, "host"),
		Status:              recString(rec, "status"),
		LastHealthCheckTime: recTime(rec, "last_health_check_time"),
	}
}

// Display is the public projection of the worker. The raw channel name is
// internal and stripped.
func (w Worker) Display() Record {
	rec := Record{
		"id":     w.ID,
		"image":  w.Image,
		"status": w.Status,
	}
	if w.Host != "" {
		rec["host"] = w.Host
	}
	if !w.LastHealthCheckTime.IsZero() {
		rec["last_health_check_time"] = w.LastHealthCheckTime.Format(time.RFC3339)
	}
	return rec
}

// NewWorkerID returns a fresh worker identifier.
func NewWorkerID() string {
	return uuid.NewString()
}
