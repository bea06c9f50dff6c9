package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Execution records one message-triggered run of an actor, with resource
// accounting reported by the worker that ran it.
type Execution struct {
	// ID is unique within the actor.
	ID string

	// ActorID is the actor's db_id.
	ActorID string

	// Executor is the user whose message triggered the run.
	Executor string

	// Status is one of SUBMITTED, RUNNING, COMPLETE, FAILED.
	Status string

	// Runtime is wall time in milliseconds.
	Runtime int64

	// CPU is user jiffies consumed.
	CPU int64

	// IO counts 512-byte sectors read and written.
	IO int64

	// MessageID correlates the execution with its triggering message.
	MessageID string

	StartTime  time.Time
	FinishTime time.Time
}

// NewExecution builds a SUBMITTED execution for an actor with zeroed
// resource counters. Created before the message is enqueued so the id is
// available for correlation.
func NewExecution(actorDBID, executor string) Execution {
	return Execution{
		ID:       uuid.NewString(),
		ActorID:  actorDBID,
		Executor: executor,
		Status:   SUBMITTED,
	}
}

// ExecutionStats is the request schema for the internal execution POST.
type ExecutionStats struct {
	Runtime string `json:"runtime" form:"runtime"`
	CPU     string `json:"cpu" form:"cpu"`
	IO      string `json:"io" form:"io"`
}

// Validate checks all stats are present and integral, returning the parsed
// values.
func (s ExecutionStats) Validate() (runtime, cpu, io int64, err error) {
	fields := []struct {
		name string
		raw  string
		dst  *int64
	}{
		{"runtime", s.Runtime, &runtime},
		{"cpu", s.CPU, &cpu},
		{"io", s.IO, &io},
	}
	for _, f := range fields {
		if f.raw == "" {
			return 0, 0, 0, fmt.Errorf("%s is required", f.name)
		}
		var v int64
		if _, perr := fmt.Sscanf(f.raw, "%d", &v); perr != nil {
			return 0, 0, 0, fmt.Errorf("argument %s must be an integer", f.name)
		}
		*f.dst = v
	}
	return runtime, cpu, io, nil
}

// ToDB serializes the execution for storage. Lossless with FromDB.
func (e Execution) ToDB() Record {
	return Record{
		"id":          e.ID,
		"actor_id":    e.ActorID,
		"executor":    e.Executor,
		"status":      e.Status,
		"runtime":     e.Runtime,
		"cpu":         e.CPU,
		"io":          e.IO,
		"message_id":  e.MessageID,
		"start_time":  encTime(e.StartTime),
		"finish_time": encTime(e.FinishTime),
	}
}

// ExecutionFromDB deserializes a stored execution record.
func ExecutionFromDB(rec Record) Execution {
	return Execution{
		ID:         recString(rec, "id"),
		ActorID:    recString(rec, "actor_id"),
		Executor:   recString(rec, "executor"),
		Status:     recString(rec, "status"),
		Runtime:    recInt(rec, "runtime"),
		CPU:        recInt(rec, "cpu"),
		IO:         recInt(rec, "io"),
		MessageID:  recString(rec, "message_id"),
		StartTime:  recTime(rec, "start_time"),
		FinishTime: recTime(rec, "finish_time"),
	}
}

// Display is the public projection of the execution.
func (e Execution) Display() Record {
	rec := Record{
		"id":       e.ID,
		"actor_id": TenantStrippedActorID(e.ActorID),
		"executor": e.Executor,
		"status":   e.Status,
		"runtime":  e.Runtime,
		"cpu":      e.CPU,
		"io":       e.IO,
	}
	if e.MessageID != "" {
		rec["message_id"] = e.MessageID
	}
	if !e.StartTime.IsZero() {
		rec["start_time"] = e.StartTime.Format(time.RFC3339)
	}
	if !e.FinishTime.IsZero() {
		rec["finish_time"] = e.FinishTime.Format(time.RFC3339)
	}
	return rec
}

// TenantStrippedActorID converts a db_id back to the user-visible actor id.
func TenantStrippedActorID(dbid string) string {
	tenant := TenantOfDBID(dbid)
	if tenant == "" {
		return dbid
	}
	return dbid[len(tenant)+1:]
}

// ExecutionsSummary is a derived, read-only projection over all executions
// of one actor. Computed on demand, never persisted.
type ExecutionsSummary struct {
	ActorID        string
	TotalCount     int
	CountsByStatus map[string]int
	TotalRuntime   int64
	TotalCPU       int64
	TotalIO        int64
	IDs            []string
}

// SummarizeExecutions folds the executions of one actor into a summary.
func SummarizeExecutions(actorDBID string, execs []Execution) ExecutionsSummary {
	s := ExecutionsSummary{
		ActorID:        actorDBID,
		CountsByStatus: map[string]int{},
	}
	for _, e := range execs {
		s.TotalCount++
		s.CountsByStatus[e.Status]++
		s.TotalRuntime += e.Runtime
		s.TotalCPU += e.CPU
		s.TotalIO += e.IO
		s.IDs = append(s.IDs, e.ID)
	}
	return s
}

// Display is the public projection of the summary.
func (s ExecutionsSummary) Display() Record {
	ids := s.IDs
	if ids == nil {
		ids = []string{}
	}
	return Record{
		"actor_id":         TenantStrippedActorID(s.ActorID),
		"total_executions": s.TotalCount,
		"counts_by_status": s.CountsByStatus,
		"total_runtime":    s.TotalRuntime,
		"total_cpu":        s.TotalCPU,
		"total_io":         s.TotalIO,
		"ids":              ids,
	}
}
