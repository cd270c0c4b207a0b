package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"

	"recap/internal/config"
	"recap/internal/ipc"
	"recap/internal/logging"
	"recap/internal/watch"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("recapd: %v", err)
	}
}

// run owns the daemon lifecycle so deferred cleanup fires on every exit path.
func run() error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, configPath, found, err := config.Load("")
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("prepare directories: %w", err)
	}

	logger, err := logging.NewFromDir(cfg.Logging.Level, cfg.Logging.Format, cfg.Paths.LogDir)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	if found {
		logger.Info("configuration loaded", logging.String("path", configPath))
	} else {
		logger.Info("no configuration file found, using defaults", logging.String("path", configPath))
	}

	d, cleanup, err := buildDaemon(cfg, logger)
	if err != nil {
		return fmt.Errorf("assemble daemon: %w", err)
	}
	defer cleanup()
	defer d.Close()

	ipcServer, err := ipc.NewServer(ctx, cfg.SocketPath(), d, logger)
	if err != nil {
		return fmt.Errorf("start IPC server: %w", err)
	}
	defer ipcServer.Close()
	ipcServer.Serve()

	if err := d.Start(ctx); err != nil {
		return fmt.Errorf("start daemon: %w", err)
	}

	if cfg.Watch.Enabled {
		watcher, err := watch.FromConfig(cfg, d, logger)
		if err != nil {
			logger.Warn("watch folder disabled", logging.Error(err))
		} else if err := watcher.Start(ctx); err != nil {
			logger.Warn("watch folder disabled", logging.Error(err))
		} else {
			defer watcher.Close()
		}
	}

	<-ctx.Done()
	logger.Info("recapd shutting down")
	return nil
}
