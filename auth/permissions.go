package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/julianpistorius/abaco/models"
	"github.com/julianpistorius/abaco/stores"
)

// Authorization errors
var (
	// ErrForbidden means the caller's effective level is below the
	// required one, or the actor belongs to another tenant.
	ErrForbidden = errors.New("forbidden")
)

// Service answers permission questions for actors.
type Service struct {
	perms  *stores.PermissionsStore
	logger *logrus.Entry
}

// NewService creates a permission service over the permissions store.
func NewService(perms *stores.PermissionsStore, logger *logrus.Entry) *Service {
	return &Service{perms: perms, logger: logger}
}

// Check admits the caller iff their effective level on the actor is at
// least required. Cross-tenant access is always denied, regardless of any
// grants: the db_id's tenant component must equal the caller's tenant.
func (s *Service) Check(ctx context.Context, id Identity, actorDBID string, required models.PermissionLevel) error {
	if models.TenantOfDBID(actorDBID) != id.Tenant {
		s.logger.WithFields(logrus.Fields{
			"user":   id.User,
			"tenant": id.Tenant,
			"actor":  actorDBID,
		}).Warn("cross-tenant access denied")
		return ErrForbidden
	}
	level, err := s.Effective(ctx, actorDBID, id.User)
	if err != nil {
		return err
	}
	if !level.Includes(required) {
		return ErrForbidden
	}
	return nil
}

// Effective returns the caller's level on the actor: their own grant
// unioned with the WORLD pseudo-user's. Missing grants count as NONE.
func (s *Service) Effective(ctx context.Context, actorDBID, user string) (models.PermissionLevel, error) {
	grants, err := s.perms.Get(ctx, actorDBID)
	if err != nil {
		return models.PermissionNone, fmt.Errorf("failed to read permissions for %s: %w", actorDBID, err)
	}
	level := models.PermissionNone
	if l, ok := grants[user]; ok && l.Rank() > level.Rank() {
		level = l
	}
	if l, ok := grants[models.WorldUser]; ok && l.Rank() > level.Rank() {
		level = l
	}
	return level, nil
}

// Get returns the full permission map for an actor.
func (s *Service) Get(ctx context.Context, actorDBID string) (map[string]models.PermissionLevel, error) {
	return s.perms.Get(ctx, actorDBID)
}

// Grant sets one user's level on an actor. The creator of an actor is
// granted UPDATE through this same path at registration time.
func (s *Service) Grant(ctx context.Context, actorDBID, user string, level models.PermissionLevel) error {
	if err := s.perms.Grant(ctx, actorDBID, user, level); err != nil {
		return fmt.Errorf("failed to grant %s to %s on %s: %w", level, user, actorDBID, err)
	}
	s.logger.WithFields(logrus.Fields{
		"user":  user,
		"actor": actorDBID,
		"level": level,
	}).Info("permission added")
	return nil
}
