package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"journeyagent/internal/config"
	"journeyagent/internal/httpapi"
	"journeyagent/internal/persona"
	"journeyagent/internal/runctl"
	"journeyagent/internal/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP control surface and accept runs over the network",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, watcher, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if serverAddr != "" {
		cfg.ServerAddr = serverAddr
	}

	lib, err := persona.LoadLibrary(cfg.PersonaLibraryPath)
	if err != nil {
		return fmt.Errorf("load persona library: %w", err)
	}
	defer lib.Close()

	runStore, err := store.New(cfg.ArtifactsDir)
	if err != nil {
		return fmt.Errorf("open run store: %w", err)
	}
	defer runStore.Close()

	ctl := runctl.NewController(cfg, lib, runStore)
	if watcher != nil {
		watcher.OnReload(func(reloaded *config.AppConfig) {
			logger.Info("config reloaded")
		})
	}
	lib.OnReload(func() {
		logger.Info("persona library reloaded")
	})

	srv := httpapi.NewServer(cfg, ctl, logger)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	logger.Info("journeyctl serving", zap.String("addr", cfg.ServerAddr))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case <-sigCh:
		logger.Info("shutdown requested")
		if ctl.IsActive() {
			_ = ctl.Stop()
		}
		return nil
	}
}
