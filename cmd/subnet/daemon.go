package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/subnetlabs/console/internal/controlplane"
	"github.com/subnetlabs/console/internal/simulator"
	"github.com/subnetlabs/console/internal/store"
)

var (
	listenAddr string
	dbPath     string
	noSimulate bool
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Start the mock control plane",
	Long: `Starts the mock control plane: a SQLite fixture store, the REST API with the live
overview stream, and a simulator that keeps executions moving.`,
	RunE: runDaemon,
}

func init() {
	daemonCmd.Flags().StringVar(&listenAddr, "listen", "", "Listen address for the API server (overrides listen)")
	daemonCmd.Flags().StringVar(&dbPath, "db", "", "Path to SQLite database (overrides db_path)")
	daemonCmd.Flags().BoolVar(&noSimulate, "no-simulate", false, "Serve fixtures without advancing them")
}

func runDaemon(cmd *cobra.Command, args []string) error {
	log := newLogger().WithComponent("daemon")
	if listenAddr != "" {
		cfg.Listen = listenAddr
	}
	if dbPath != "" {
		cfg.DBPath = dbPath
	}
	if noSimulate {
		cfg.Simulator.Enabled = false
	}

	log.Info("starting subnet daemon", "listen", cfg.Listen, "db", cfg.DBPath)

	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}
	s, err := store.New(cfg.DBPath)
	if err != nil {
		return err
	}

	seeded, err := s.Seed(cmd.Context(), time.Now())
	if err != nil {
		s.Close()
		return err
	}
	if seeded {
		log.Info("seeded fixture data")
	}

	service := controlplane.NewService(s, cfg.Timeline)
	server := controlplane.NewServer(service, s, cfg.Listen, log)

	sim := simulator.New(s, cfg.Simulator, log)
	server.SetSimulator(sim)
	sim.Start()

	// Set up signal handling for graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		err := server.Start()
		if err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case sig := <-sigCh:
		log.Info("received signal, shutting down", "signal", sig.String())
	case err := <-serverErr:
		if err != nil {
			log.WithError(err).Error("server error")
			sim.Stop()
			s.Close()
			return err
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	log.Info("shutting down HTTP server")
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("HTTP server shutdown error")
	}

	sim.Stop()
	log.Info("closing database connection")
	if err := s.Close(); err != nil {
		log.WithError(err).Error("database close error")
	}

	log.Info("shutdown complete")
	return nil
}
