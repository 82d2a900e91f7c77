package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dmgomes/nextup/internal/rpc"
)

// Version information, set at build time via ldflags.
var (
	Version = "0.1.0"
	Build   = "dev"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		if jsonOutput {
			info := map[string]string{
				"version": Version,
				"build":   Build,
			}
			if daemon := daemonVersion(); daemon != "" {
				info["daemon_version"] = daemon
			}
			outputJSON(info)
			return
		}

		fmt.Printf("nextup version %s (%s)\n", Version, Build)
		if daemon := daemonVersion(); daemon != "" && daemon != Version {
			fmt.Printf("daemon version %s (restart the daemon to update)\n", daemon)
		}
	},
}

// daemonVersion returns the running daemon's version, or "" when no
// daemon is reachable.
func daemonVersion() string {
	if socketPath == "" {
		return ""
	}
	client, err := rpc.TryConnect(socketPath)
	if err != nil || client == nil {
		return ""
	}
	defer func() { _ = client.Close() }()
	pong, err := client.Ping()
	if err != nil {
		return ""
	}
	return pong.Version
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
