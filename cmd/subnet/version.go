package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/subnetlabs/console/internal/controlplane"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version of subnet",
	Run:   runVersion,
}

func runVersion(cmd *cobra.Command, args []string) {
	fmt.Printf("subnet version %s\n", controlplane.Version)
	fmt.Printf("  OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	fmt.Printf("  Go version: %s\n", runtime.Version())

	h, err := newClient().Health(cmd.Context())
	if err != nil {
		fmt.Printf("  API: %s (unreachable)\n", cfg.APIAddr)
		return
	}
	fmt.Printf("  API: %s (version %s, db %s)\n", cfg.APIAddr, h.Version, h.DB)
}
