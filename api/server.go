package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"

	"github.com/julianpistorius/abaco/auth"
	"github.com/julianpistorius/abaco/config"
	"github.com/julianpistorius/abaco/version"
)

// NewEchoServer creates the Echo instance with the standard middleware stack.
func NewEchoServer(cfg *config.Config, logger *logrus.Entry) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Debug = cfg.Server.Debug

	e.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Format: "[${time_rfc3339}] ${status} ${method} ${uri} (${latency_human})\n",
	}))
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())

	e.HTTPErrorHandler = HTTPErrorHandler(logger)
	return e
}

// SetupRoutes registers the full /actors/v2 surface. Everything under the
// group requires a verified token; the healthcheck does not.
func SetupRoutes(e *echo.Echo, a *API, cfg *config.Config) {
	e.GET("/healthcheck", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "healthy",
			"service": "abaco",
			"version": version.Get(),
		})
	})

	g := e.Group("/actors/" + version.APIVersion)
	g.Use(echojwt.WithConfig(echojwt.Config{
		SigningKey:  []byte(cfg.Security.JWTSecret),
		TokenLookup: "header:Authorization:Bearer ",
	}))
	g.Use(auth.IdentityMiddleware(cfg.Security.JWTHeaderName))
	RegisterRoutes(g, a)
}

// RegisterRoutes attaches the handlers to an already-authenticated group.
// Split from SetupRoutes so tests can mount the surface behind a stub
// identity middleware.
func RegisterRoutes(g *echo.Group, a *API) {
	g.GET("", a.ListActors)
	g.POST("", a.CreateActor)
	g.GET("/:actor_id", a.GetActor)
	g.PUT("/:actor_id", a.UpdateActor)
	g.DELETE("/:actor_id", a.DeleteActor)

	g.GET("/:actor_id/state", a.GetState)
	g.POST("/:actor_id/state", a.SetState)

	g.GET("/:actor_id/executions", a.GetExecutions)
	g.POST("/:actor_id/executions", a.AddExecution)
	g.GET("/:actor_id/executions/:execution_id", a.GetExecution)
	g.GET("/:actor_id/executions/:execution_id/logs", a.GetExecutionLogs)

	g.GET("/:actor_id/messages", a.GetMessages)
	g.POST("/:actor_id/messages", a.PostMessage)

	g.GET("/:actor_id/workers", a.GetWorkers)
	g.POST("/:actor_id/workers", a.EnsureWorkers)
	g.GET("/:actor_id/workers/:worker_id", a.GetWorker)
	g.DELETE("/:actor_id/workers/:worker_id", a.StopWorker)

	g.GET("/:actor_id/permissions", a.GetPermissions)
	g.POST("/:actor_id/permissions", a.AddPermission)
}

// StartServer runs the server until it fails or is shut down.
func StartServer(e *echo.Echo, cfg *config.Config) error {
	read, _ := time.ParseDuration(cfg.Server.ReadTimeout)
	write, _ := time.ParseDuration(cfg.Server.WriteTimeout)
	s := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		ReadTimeout:  read,
		WriteTimeout: write,
	}
	return e.StartServer(s)
}

// GracefulShutdown drains in-flight requests before stopping.
func GracefulShutdown(e *echo.Echo, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	return nil
}
