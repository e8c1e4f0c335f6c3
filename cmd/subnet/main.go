package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/subnetlabs/console/internal/client"
	"github.com/subnetlabs/console/internal/config"
	"github.com/subnetlabs/console/pkg/logger"
)

var rootCmd = &cobra.Command{
	Use:   "subnet",
	Short: "subnet - workflow platform console",
	Long: `subnet is a terminal console for a workflow execution platform: workflows, activities,
task queues and workers, with a zoomable execution timeline.`,
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
	// No RunE - defaults to showing help when no subcommand is provided
}

var (
	apiAddr    string
	configPath string
	logLevel   string

	cfg config.Config
)

func init() {
	rootCmd.PersistentFlags().StringVar(&apiAddr, "api", "", "API server address (overrides api_addr)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultPath(), "Path to config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")

	rootCmd.AddCommand(daemonCmd)
	rootCmd.AddCommand(tuiCmd)
	rootCmd.AddCommand(workflowCmd)
	rootCmd.AddCommand(activityCmd)
	rootCmd.AddCommand(queueCmd)
	rootCmd.AddCommand(workerCmd)
	rootCmd.AddCommand(versionCmd)
}

func loadConfig(cmd *cobra.Command, args []string) error {
	loaded, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if apiAddr != "" {
		loaded.APIAddr = apiAddr
	}
	if logLevel != "" {
		loaded.Log.Level = logLevel
	}
	if err := loaded.Validate(); err != nil {
		return err
	}
	cfg = loaded
	return nil
}

// newLogger builds a logger writing to stderr with the configured level.
func newLogger() *logger.Logger {
	level, _ := logger.ParseLevel(cfg.Log.Level)
	return logger.NewWithWriter(os.Stderr, level, cfg.Log.Format == "json")
}

func newClient() *client.Client {
	return client.New(cfg.APIAddr, client.WithCacheTTL(cfg.Console.CacheTTL))
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
