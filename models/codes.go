package models

import "fmt"

// Actor and execution lifecycle statuses.
const (
	SUBMITTED = "SUBMITTED"
	READY     = "READY"
	ERROR     = "ERROR"
	RUNNING   = "RUNNING"
	COMPLETE  = "COMPLETE"
	FAILED    = "FAILED"
)

// Worker lifecycle statuses. Only REQUESTED is written by the control
// plane; the worker supervisor owns all later transitions.
const (
	WorkerRequested         = "REQUESTED"
	WorkerSpawning          = "SPAWNING"
	WorkerReady             = "READY"
	WorkerBusy              = "BUSY"
	WorkerFinishing         = "FINISHING"
	WorkerShutdownRequested = "SHUTDOWN_REQUESTED"
	WorkerError             = "ERROR"
)

// PermissionLevel is an ordered permission grant. A grant at one level
// implies every level below it.
type PermissionLevel string

const (
	PermissionNone    PermissionLevel = "NONE"
	PermissionRead    PermissionLevel = "READ"
	PermissionExecute PermissionLevel = "EXECUTE"
	PermissionUpdate  PermissionLevel = "UPDATE"
)

// WorldUser is the pseudo-user whose grants apply to every caller in the
// actor's tenant.
const WorldUser = "ABACO_WORLD"

var permissionRanks = map[PermissionLevel]int{
	PermissionNone:    0,
	PermissionRead:    1,
	PermissionExecute: 2,
	PermissionUpdate:  3,
}

// PermissionLevels lists the valid levels in ascending order.
var PermissionLevels = []PermissionLevel{
	PermissionNone,
	PermissionRead,
	PermissionExecute,
	PermissionUpdate,
}

// Rank returns the ordinal of the level for comparisons. Unknown levels
// rank below NONE.
func (l PermissionLevel) Rank() int {
	if r, ok := permissionRanks[l]; ok {
		return r
	}
	return -1
}

// Includes reports whether a grant at l admits an operation requiring other.
func (l PermissionLevel) Includes(other PermissionLevel) bool {
	return l.Rank() >= other.Rank()
}

// ParsePermissionLevel validates a user-supplied permission level.
func ParsePermissionLevel(s string) (PermissionLevel, error) {
	l := PermissionLevel(s)
	if _, ok := permissionRanks[l]; !ok {
		return "", fmt.Errorf("invalid permission level: %s. The valid values are %v", s, PermissionLevels)
	}
	return l, nil
}
