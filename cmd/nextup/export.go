package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var queueExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the computed queue view to stdout or a file",
	Long: `Export the fully computed queue — ranked projects, scores, time
stats and selected todos — as YAML (default) or JSON, for piping into
other tools.`,
	Run: func(cmd *cobra.Command, args []string) {
		format, _ := cmd.Flags().GetString("format")
		outPath, _ := cmd.Flags().GetString("output")
		if format != "yaml" && format != "json" {
			fatalf("unknown format %q (yaml or json)", format)
		}

		client, err := newAPI()
		if err != nil {
			fatalf("%v", err)
		}
		defer func() { _ = client.Close() }()

		view, err := client.Queue(context.Background(), queueName(cmd))
		if err != nil {
			fatalf("failed to load queue: %v", err)
		}

		var data []byte
		var marshalErr error
		if format == "json" {
			data, marshalErr = json.MarshalIndent(view, "", "  ")
		} else {
			data, marshalErr = yaml.Marshal(view)
		}
		if marshalErr != nil {
			fatalf("failed to encode queue: %v", marshalErr)
		}

		if outPath == "" {
			fmt.Print(string(data))
			return
		}
		if err := os.WriteFile(outPath, data, 0600); err != nil {
			fatalf("failed to write %s: %v", outPath, err)
		}
		fmt.Fprintf(os.Stderr, "Exported queue %q to %s\n", view.Name, outPath)
	},
}

func init() {
	queueExportCmd.Flags().String("format", "yaml", "Output format (yaml, json)")
	queueExportCmd.Flags().StringP("output", "o", "", "Write to a file instead of stdout")
	queueCmd.AddCommand(queueExportCmd)
}
