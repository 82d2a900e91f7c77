package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dmgomes/nextup/internal/types"
)

var moodCmd = &cobra.Command{
	Use:   "mood <project-id>",
	Short: "Record how working on a project felt",
	Long: `Record an emotional check-in for a project. Each answer is 1 (no),
2 (somewhat) or 3 (yes):

  --calmer      did it leave you calmer?
  --progressed  did you make progress?
  --motivated   are you motivated to continue?

Only the flags you pass are recorded; the ranking substitutes a neutral
2 for unanswered indicators.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		var values []types.IndicatorValue
		for _, f := range []struct {
			flag      string
			indicator int
		}{
			{"calmer", types.IndicatorCalmer},
			{"progressed", types.IndicatorProgressed},
			{"motivated", types.IndicatorMotivated},
		} {
			if cmd.Flags().Changed(f.flag) {
				v, _ := cmd.Flags().GetInt(f.flag)
				values = append(values, types.IndicatorValue{Indicator: f.indicator, Value: v})
			}
		}
		if len(values) == 0 {
			fatalf("pass at least one of --calmer, --progressed, --motivated")
		}

		client, err := newAPI()
		if err != nil {
			fatalf("%v", err)
		}
		defer func() { _ = client.Close() }()

		projectID := parseID(args[0])
		if err := client.RecordMood(context.Background(), projectID, values); err != nil {
			fatalf("failed to record mood: %v", err)
		}
		if jsonOutput {
			outputJSON(map[string]interface{}{"project_id": projectID, "values": values})
			return
		}
		fmt.Printf("Recorded %d indicator(s) for project %d\n", len(values), projectID)
	},
}

func init() {
	moodCmd.Flags().Int("calmer", 0, "Calmer after working? (1-3)")
	moodCmd.Flags().Int("progressed", 0, "Made progress? (1-3)")
	moodCmd.Flags().Int("motivated", 0, "Motivated to continue? (1-3)")
	rootCmd.AddCommand(moodCmd)
}
