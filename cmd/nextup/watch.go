package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/dmgomes/nextup/internal/notify"
	"github.com/dmgomes/nextup/internal/rpc"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Stream live queue and stats updates from the daemon",
	Long: `Subscribe to the daemon's notification stream and print events as
they arrive. Requires a running daemon. Use --topic to limit the stream
to stats-update or queue-update events.`,
	Run: func(cmd *cobra.Command, args []string) {
		topics, _ := cmd.Flags().GetStringSlice("topic")

		client, err := rpc.Connect(socketPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: cannot connect to daemon: %v\n", err)
			fmt.Fprintf(os.Stderr, "Hint: start one with 'nextup serve'\n")
			os.Exit(1)
		}
		defer func() { _ = client.Close() }()

		gray := color.New(color.FgHiBlack).SprintFunc()
		err = client.Subscribe(topics, func(event notify.Event) {
			if jsonOutput {
				outputJSON(event)
				return
			}
			fmt.Printf("%s %s\n", gray(event.Timestamp.Format("15:04:05")), event.Topic)
		})
		if err != nil {
			fatalf("subscription ended: %v", err)
		}
	},
}

func init() {
	watchCmd.Flags().StringSlice("topic", nil, "Topics to subscribe to (default: all)")
	rootCmd.AddCommand(watchCmd)
}
