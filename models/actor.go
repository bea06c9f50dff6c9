package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Actor is the declared intent for a container-based message handler.
type Actor struct {
	// ID is the generated opaque identifier, unique within the tenant.
	ID string

	// DBID is the globally unique store key, derived from (tenant, ID).
	// Immutable for the life of the actor.
	DBID string

	// Name is the user-visible name; immutable after creation.
	Name string

	// Image is the container image backing the actor's workers.
	Image string

	Owner     string
	APIServer string
	Tenant    string

	// Stateless disables the state endpoint when true; immutable.
	Stateless bool

	// Status is one of SUBMITTED, READY, ERROR.
	Status string

	// State is an opaque caller-managed blob; mutable only when
	// Stateless is false.
	State string

	DefaultEnvironment map[string]string

	CreateTime time.Time
}

// DBID derives the store key for an actor from its tenant and id. This is
// the only way a key may be constructed; the encoding is injective because
// tenant names cannot contain underscores.
func DBID(tenant, actorID string) string {
	return tenant + "_" + actorID
}

// TenantOfDBID returns the tenant component of a store key.
func TenantOfDBID(dbid string) string {
	if i := strings.Index(dbid, "_"); i >= 0 {
		return dbid[:i]
	}
	return ""
}

// ActorRequest is the request schema for actor POST and PUT bodies.
type ActorRequest struct {
	Name               string            `json:"name"`
	Image              string            `json:"image"`
	Stateless          *bool             `json:"stateless"`
	DefaultEnvironment map[string]string `json:"default_environment"`
}

// ValidateCreate enforces the required fields for actor registration.
func (r ActorRequest) ValidateCreate() error {
	if r.Name == "" {
		return fmt.Errorf("name is required")
	}
	if r.Image == "" {
		return fmt.Errorf("image is required")
	}
	return nil
}

// ValidateUpdate enforces the required fields for actor update. Name is
// only required (and only accepted) on create.
func (r ActorRequest) ValidateUpdate() error {
	if r.Image == "" {
		return fmt.Errorf("image is required")
	}
	return nil
}

// NewActor builds an actor from a validated create request. The id is
// generated here; the db_id and creation time are fixed for the actor's
// lifetime.
func NewActor(r ActorRequest, tenant, owner, apiServer string) Actor {
	id := uuid.NewString()
	stateless := false
	if r.Stateless != nil {
		stateless = *r.Stateless
	}
	return Actor{
		ID:                 id,
		DBID:               DBID(tenant, id),
		Name:               r.Name,
		Image:              r.Image,
		Owner:              owner,
		APIServer:          apiServer,
		Tenant:             tenant,
		Stateless:          stateless,
		Status:             SUBMITTED,
		DefaultEnvironment: r.DefaultEnvironment,
		CreateTime:         time.Now().UTC(),
	}
}

// Update overlays a validated update request onto the existing actor,
// preserving identity, name, statelessness and creation time. The caller
// decides the resulting status based on whether the image changed.
func (a Actor) Update(r ActorRequest, owner, apiServer string) Actor {
	a.Image = r.Image
	a.Owner = owner
	a.APIServer = apiServer
	if r.DefaultEnvironment != nil {
		a.DefaultEnvironment = r.DefaultEnvironment
	}
	return a
}

// ToDB serializes the actor for storage. Lossless with FromDB.
func (a Actor) ToDB() Record {
	rec := Record{
		"id":          a.ID,
		"db_id":       a.DBID,
		"name":        a.Name,
		"image":       a.Image,
		"owner":       a.Owner,
		"api_server":  a.APIServer,
		"tenant":      a.Tenant,
		"stateless":   a.Stateless,
		"status":      a.Status,
		"state":       a.State,
		"create_time": encTime(a.CreateTime),
	}
	if a.DefaultEnvironment != nil {
		rec["default_environment"] = a.DefaultEnvironment
	}
	return rec
}

// ActorFromDB deserializes a stored actor record.
func ActorFromDB(rec Record) Actor {
	return Actor{
		ID:                 recString(rec, "id"),
		DBID:               recString(rec, "db_id"),
		Name:               recString(rec, "name"),
		Image:              recString(rec, "image"),
		Owner:              recString(rec, "owner"),
		APIServer:          recString(rec, "api_server"),
		Tenant:             recString(rec, "tenant"),
		Stateless:          recBool(rec, "stateless"),
		Status:             recString(rec, "status"),
		State:              recString(rec, "state"),
		DefaultEnvironment: recStringMap(rec, "default_environment"),
		CreateTime:         recTime(rec, "create_time"),
	}
}

// Display is the public projection of the actor: internal fields are
// stripped and timestamps formatted.
func (a Actor) Display() Record {
	env := a.DefaultEnvironment
	if env == nil {
		env = map[string]string{}
	}
	return Record{
		"id":                  a.ID,
		"name":                a.Name,
		"image":               a.Image,
		"owner":               a.Owner,
		"stateless":           a.Stateless,
		"status":              a.Status,
		"state":               a.State,
		"default_environment": env,
		"create_time":         a.CreateTime.Format(time.RFC3339),
	}
}
