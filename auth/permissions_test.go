package auth

import (
	"context"
	"io"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/julianpistorius/abaco/models"
	"github.com/julianpistorius/abaco/stores"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return NewService(stores.NewSet(client, "abaco").Permissions, logger.WithField("service", "test"))
}

// TestCheckAdmission verifies the ordered admission rule: a grant at a
// level admits every operation at or below it.
func TestCheckAdmission(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	id := Identity{Tenant: "dev", User: "jdoe"}

	require.NoError(t, svc.Grant(ctx, "dev_abc", "jdoe", models.PermissionExecute))

	assert.NoError(t, svc.Check(ctx, id, "dev_abc", models.PermissionRead))
	assert.NoError(t, svc.Check(ctx, id, "dev_abc", models.PermissionExecute))
	assert.ErrorIs(t, svc.Check(ctx, id, "dev_abc", models.PermissionUpdate), ErrForbidden)
}

// TestCheckNoGrant verifies a user with no grant is denied even READ.
func TestCheckNoGrant(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	id := Identity{Tenant: "dev", User: "stranger"}

	require.NoError(t, svc.Grant(ctx, "dev_abc", "jdoe", models.PermissionUpdate))
	assert.ErrorIs(t, svc.Check(ctx, id, "dev_abc", models.PermissionRead), ErrForbidden)
}

// TestCheckCrossTenant verifies cross-tenant access is denied regardless of
// any grants on the actor.
func TestCheckCrossTenant(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.Grant(ctx, "dev_abc", "jdoe", models.PermissionUpdate))
	id := Identity{Tenant: "prod", User: "jdoe"}
	assert.ErrorIs(t, svc.Check(ctx, id, "dev_abc", models.PermissionRead), ErrForbidden)
}

// TestEffectiveWorldUnion verifies the caller's effective level is the max
// of their own grant and the WORLD pseudo-user's.
func TestEffectiveWorldUnion(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.Grant(ctx, "dev_abc", "jdoe", models.PermissionRead))
	require.NoError(t, svc.Grant(ctx, "dev_abc", models.WorldUser, models.PermissionExecute))

	t.Run("world grant raises a lower personal grant", func(t *testing.T) {
		level, err := svc.Effective(ctx, "dev_abc", "jdoe")
		require.NoError(t, err)
		assert.Equal(t, models.PermissionExecute, level)
	})

	t.Run("world grant covers users with no grant at all", func(t *testing.T) {
		level, err := svc.Effective(ctx, "dev_abc", "stranger")
		require.NoError(t, err)
		assert.Equal(t, models.PermissionExecute, level)
	})

	t.Run("higher personal grant is not lowered by world", func(t *testing.T) {
		require.NoError(t, svc.Grant(ctx, "dev_abc", "owner", models.PermissionUpdate))
		level, err := svc.Effective(ctx, "dev_abc", "owner")
		require.NoError(t, err)
		assert.Equal(t, models.PermissionUpdate, level)
	})
}

// TestEffectiveNoGrants verifies the default level is NONE.
func TestEffectiveNoGrants(t *testing.T) {
	svc := newTestService(t)
	level, err := svc.Effective(context.Background(), "dev_abc", "jdoe")
	require.NoError(t, err)
	assert.Equal(t, models.PermissionNone, level)
}

// TestIdentityValid verifies requests need both tenant and user.
func TestIdentityValid(t *testing.T) {
	assert.True(t, Identity{Tenant: "dev", User: "jdoe"}.Valid())
	assert.False(t, Identity{Tenant: "dev"}.Valid())
	assert.False(t, Identity{User: "jdoe"}.Valid())
	assert.False(t, Identity{}.Valid())
}
