// Command abaco runs the actor control plane: the HTTP surface through
// which clients register actors, post messages and manage workers.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/julianpistorius/abaco/api"
	"github.com/julianpistorius/abaco/channels"
	"github.com/julianpistorius/abaco/common"
	"github.com/julianpistorius/abaco/config"
	"github.com/julianpistorius/abaco/stores"
	"github.com/julianpistorius/abaco/version"
)

func main() {
	cfgFile := flag.String("config", "", "path to config file (default: search standard locations)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgFile)
	if err != nil {
		common.ServiceLogger(common.DefaultLoggerConfig()).
			WithError(err).Fatal("could not load configuration")
	}

	logger := common.ServiceLogger(common.LoggerConfig{
		Level:      common.LogLevel(cfg.Logging.Level),
		Format:     cfg.Logging.Format,
		Service:    "abaco",
		TimeFormat: time.RFC3339,
	})
	logger.WithField("version", version.Get()).Info("starting abaco control plane")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	client, err := stores.NewClient(ctx, cfg.Store.URL)
	cancel()
	if err != nil {
		logger.WithError(err).Fatal("could not connect to store")
	}
	defer client.Close()
	st := stores.NewSet(client, cfg.Store.Prefix)

	ch, err := channels.NewService(cfg.Channel.URL)
	if err != nil {
		logger.WithError(err).Fatal("could not connect to message broker")
	}
	defer ch.Close()

	a := api.New(cfg, st, ch, logger)
	e := api.NewEchoServer(cfg, logger)
	api.SetupRoutes(e, a, cfg)

	errCh := make(chan error, 1)
	go func() {
		errCh <- api.StartServer(e, cfg)
	}()
	logger.WithField("port", cfg.Server.Port).Info("http server listening")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		logger.WithError(err).Fatal("http server stopped")
	case sig := <-quit:
		logger.WithField("signal", sig.String()).Info("shutting down")
	}

	timeout, err := time.ParseDuration(cfg.Server.ShutdownTimeout)
	if err != nil {
		timeout = 10 * time.Second
	}
	if err := api.GracefulShutdown(e, timeout); err != nil {
		logger.WithError(err).Error("graceful shutdown failed")
	}
	logger.Info("stopped")
}
