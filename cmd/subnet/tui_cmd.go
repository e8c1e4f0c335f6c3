package main

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/subnetlabs/console/internal/controlplane"
	"github.com/subnetlabs/console/internal/simulator"
	"github.com/subnetlabs/console/internal/store"
	"github.com/subnetlabs/console/internal/tui"
	"github.com/subnetlabs/console/pkg/logger"
)

var offline bool

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch the interactive console",
	RunE:  runTUI,
}

func init() {
	tuiCmd.Flags().BoolVar(&offline, "offline", false, "Read the fixture store in-process instead of the API")
}

func runTUI(cmd *cobra.Command, args []string) error {
	log, closer, err := openConsoleLog()
	if err != nil {
		return err
	}
	defer closer.Close()

	opts := tui.Options{
		Timeline:       cfg.Timeline,
		SearchDebounce: cfg.Console.SearchDebounce,
		NowTick:        cfg.Console.NowTick,
		RefreshEvery:   cfg.Console.RefreshEvery,
		CellWidthPx:    cfg.Console.CellWidthPx,
		Logger:         log,
	}

	var src tui.Source
	if offline {
		service, cleanup, err := openOffline(cmd.Context(), log)
		if err != nil {
			return err
		}
		defer cleanup()
		src = service
		opts.SourceLabel = "offline " + cfg.DBPath
	} else {
		if !isDaemonRunning(cmd.Context()) {
			fmt.Println("⚡ subnet daemon not running. Starting background service...")
			if err := startDaemon(cmd.Context()); err != nil {
				return fmt.Errorf("failed to start daemon: %w", err)
			}
		}
		src = newClient()
		opts.SourceLabel = cfg.APIAddr
	}

	app := tui.New(src, opts)
	if err := app.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}

// openConsoleLog sends console logs to the configured file so they never
// reach the screen.
func openConsoleLog() (*logger.Logger, io.Closer, error) {
	level, _ := logger.ParseLevel(cfg.Log.Level)
	if cfg.Log.File == "" {
		return logger.Discard(), io.NopCloser(nil), nil
	}
	return logger.OpenFile(cfg.Log.File, level, cfg.Log.Format == "json")
}

// openOffline opens the fixture store directly and runs the simulator in
// process.
func openOffline(ctx context.Context, log *logger.Logger) (*controlplane.Service, func(), error) {
	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0755); err != nil {
		return nil, nil, fmt.Errorf("create data directory: %w", err)
	}
	s, err := store.New(cfg.DBPath)
	if err != nil {
		return nil, nil, err
	}
	if _, err := s.Seed(ctx, time.Now()); err != nil {
		s.Close()
		return nil, nil, err
	}
	sim := simulator.New(s, cfg.Simulator, log)
	sim.Start()
	cleanup := func() {
		sim.Stop()
		s.Close()
	}
	return controlplane.NewService(s, cfg.Timeline), cleanup, nil
}

func isDaemonRunning(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()
	h, err := newClient().Health(ctx)
	return err == nil && h.OK
}

func startDaemon(ctx context.Context) error {
	exe, err := os.Executable()
	if err != nil {
		return err
	}

	args := []string{"daemon", "--config", configPath}
	if u, err := url.Parse(cfg.APIAddr); err == nil && u.Host != "" {
		args = append(args, "--listen", u.Host)
	}
	daemon := exec.Command(exe, args...)
	// Detach process so it survives console exit
	configureDaemonProc(daemon)
	daemon.Stdin = nil
	daemon.Stdout = nil
	daemon.Stderr = nil

	if err := daemon.Start(); err != nil {
		return err
	}

	fmt.Print("   Waiting for daemon...")
	for i := 0; i < 20; i++ { // Wait up to 5 seconds
		if isDaemonRunning(ctx) {
			fmt.Println(" Done.")
			return nil
		}
		time.Sleep(250 * time.Millisecond)
		fmt.Print(".")
	}
	fmt.Println(" Timeout!")
	return fmt.Errorf("daemon started but API not reachable at %s", cfg.APIAddr)
}
