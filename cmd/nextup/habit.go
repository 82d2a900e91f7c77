package main

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var habitCmd = &cobra.Command{
	Use:   "habit",
	Short: "Track recurring habits",
}

var habitListCmd = &cobra.Command{
	Use:   "list",
	Short: "List habits with their current period progress",
	Long: `List recurring tasks. Without --project, habits from every active
project are shown in the configured project rotation order. Listing also
sweeps stale habits, so counters always reflect the current period.`,
	Run: func(cmd *cobra.Command, args []string) {
		projectID, _ := cmd.Flags().GetInt64("project")

		client, err := newAPI()
		if err != nil {
			fatalf("%v", err)
		}
		defer func() { _ = client.Close() }()

		habits, err := client.Habits(context.Background(), projectID)
		if err != nil {
			fatalf("failed to list habits: %v", err)
		}

		if jsonOutput {
			outputJSON(habits)
			return
		}
		if len(habits) == 0 {
			fmt.Println("No habits found")
			return
		}
		green := color.New(color.FgGreen).SprintFunc()
		gray := color.New(color.FgHiBlack).SprintFunc()
		for _, h := range habits {
			progress := fmt.Sprintf("%d/%d", h.Counter, h.Objective)
			if h.Done() {
				progress = green(progress)
			}
			fmt.Printf("%4d  %-40s %s %s\n", h.ID, h.Title, progress, gray(string(h.Recurrence)))
		}
	},
}

var habitDoneCmd = &cobra.Command{
	Use:   "done <id>",
	Short: "Record one habit completion",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		client, err := newAPI()
		if err != nil {
			fatalf("%v", err)
		}
		defer func() { _ = client.Close() }()

		task, err := client.IncrementHabit(context.Background(), parseID(args[0]))
		if err != nil {
			fatalf("failed to increment habit: %v", err)
		}

		if jsonOutput {
			outputJSON(task)
			return
		}
		green := color.New(color.FgGreen).SprintFunc()
		if task.Done() {
			fmt.Printf("%s %s: %d/%d — objective met for this %s period\n",
				green("✓"), task.Title, task.Counter, task.Objective, task.Recurrence)
		} else {
			fmt.Printf("%s: %d/%d\n", task.Title, task.Counter, task.Objective)
		}
	},
}

var habitReorderCmd = &cobra.Command{
	Use:   "reorder <id>...",
	Short: "Set the display order of a project's habits",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		projectID, _ := cmd.Flags().GetInt64("project")
		if projectID == 0 {
			fatalf("--project is required")
		}
		ids := make([]int64, len(args))
		for i, arg := range args {
			ids[i] = parseID(arg)
		}

		client, err := newAPI()
		if err != nil {
			fatalf("%v", err)
		}
		defer func() { _ = client.Close() }()

		if err := client.ReorderHabits(context.Background(), projectID, ids); err != nil {
			fatalf("failed to reorder habits: %v", err)
		}
		if jsonOutput {
			outputJSON(map[string]interface{}{"project_id": projectID, "task_ids": ids})
			return
		}
		fmt.Printf("Reordered %d habit(s)\n", len(ids))
	},
}

var habitProjectsCmd = &cobra.Command{
	Use:   "projects <project-id>...",
	Short: "Set the project rotation order for the all-projects habit list",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ids := make([]int64, len(args))
		for i, arg := range args {
			ids[i] = parseID(arg)
		}

		client, err := newAPI()
		if err != nil {
			fatalf("%v", err)
		}
		defer func() { _ = client.Close() }()

		if err := client.ReorderHabitProjects(context.Background(), ids); err != nil {
			fatalf("failed to reorder habit projects: %v", err)
		}
		if jsonOutput {
			outputJSON(map[string]interface{}{"project_ids": ids})
			return
		}
		fmt.Printf("Reordered %d project(s)\n", len(ids))
	},
}

var habitLogCmd = &cobra.Command{
	Use:   "log <task-id>",
	Short: "Show a habit's archived history",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		since, _ := cmd.Flags().GetString("since")

		client, err := newAPI()
		if err != nil {
			fatalf("%v", err)
		}
		defer func() { _ = client.Close() }()

		logs, err := client.HabitLogs(context.Background(), parseID(args[0]), since)
		if err != nil {
			fatalf("failed to load habit logs: %v", err)
		}

		if jsonOutput {
			outputJSON(logs)
			return
		}
		if len(logs) == 0 {
			fmt.Println("No history recorded")
			return
		}
		for _, entry := range logs {
			fmt.Printf("%s  %d/%d\n", entry.Date.Format("2006-01-02"), entry.CounterValue, entry.Objective)
		}
	},
}

func init() {
	habitListCmd.Flags().Int64P("project", "p", 0, "Limit to one project (default: all active projects)")
	habitReorderCmd.Flags().Int64P("project", "p", 0, "Project id (required)")
	habitLogCmd.Flags().String("since", "", "Only entries on or after this date (YYYY-MM-DD)")

	habitCmd.AddCommand(habitListCmd)
	habitCmd.AddCommand(habitDoneCmd)
	habitCmd.AddCommand(habitReorderCmd)
	habitCmd.AddCommand(habitProjectsCmd)
	habitCmd.AddCommand(habitLogCmd)
	rootCmd.AddCommand(habitCmd)
}
