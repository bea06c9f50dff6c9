// Package auth resolves request identity and enforces actor permissions.
//
// Token verification itself belongs to the JWT collaborator configured on
// the router; this package lifts the verified claims into an explicit
// Identity value carried per request, and implements the ordered
// permission model (NONE < READ < EXECUTE < UPDATE) over the permissions
// store.
package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

// Identity is the per-request caller context supplied by the authn
// collaborator. There is no process-global request state; handlers receive
// the identity explicitly.
type Identity struct {
	// Tenant is the caller's isolation unit. Required.
	Tenant string

	// User is the authenticated username. Required.
	User string

	// APIServer is the tenant's public API origin, used to mint
	// hypermedia links.
	APIServer string

	// JWTHeaderName is the header the tenant gateway delivers tokens in,
	// forwarded to workers so they can call back.
	JWTHeaderName string
}

// Valid reports whether the identity is usable; requests without tenant
// and user are rejected with 401.
func (i Identity) Valid() bool {
	return i.Tenant != "" && i.User != ""
}

const identityContextKey = "abaco.identity"

// SetIdentity stores the identity on the request context. Exposed for tests.
func SetIdentity(c echo.Context, id Identity) {
	c.Set(identityContextKey, id)
}

// FromContext returns the identity attached to the request, if any.
func FromContext(c echo.Context) (Identity, bool) {
	id, ok := c.Get(identityContextKey).(Identity)
	return id, ok
}

// IdentityMiddleware lifts claims from the verified JWT (left on the
// context by the echo-jwt middleware) into an Identity. The jwtHeaderName
// is deployment configuration, recorded so message metadata can carry it.
func IdentityMiddleware(jwtHeaderName string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token, ok := c.Get("user").(*jwt.Token)
			if !ok {
				return next(c)
			}
			claims, ok := token.Claims.(jwt.MapClaims)
			if !ok {
				return next(c)
			}
			id := Identity{
				Tenant:        claimString(claims, "tenant"),
				User:          claimString(claims, "username"),
				APIServer:     claimString(claims, "api_server"),
				JWTHeaderName: jwtHeaderName,
			}
			SetIdentity(c, id)
			return next(c)
		}
	}
}

func claimString(claims jwt.MapClaims, key string) string {
	if v, ok := claims[key].(string); ok {
		return v
	}
	return ""
}
