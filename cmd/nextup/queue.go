package main

import (
	"context"
	"fmt"
	"sort"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/dmgomes/nextup/internal/config"
	"github.com/dmgomes/nextup/internal/scheduler"
)

var queueCmd = &cobra.Command{
	Use:   "queue",
	Short: "Show the ranked project queue",
	Long: `Show the project queue: active projects ordered by stored position,
each annotated with its computed rank, accumulated potential and the
next actionable task. Use "queue reorder" to re-sort the stored order
by potential.`,
	Run: func(cmd *cobra.Command, args []string) {
		name := queueName(cmd)

		client, err := newAPI()
		if err != nil {
			fatalf("%v", err)
		}
		defer func() { _ = client.Close() }()

		view, err := client.Queue(context.Background(), name)
		if err != nil {
			fatalf("failed to load queue: %v", err)
		}

		if jsonOutput {
			outputJSON(view)
			return
		}
		printQueue(view)
	},
}

var queueReorderCmd = &cobra.Command{
	Use:   "reorder",
	Short: "Re-sort the stored queue order by computed potential",
	Run: func(cmd *cobra.Command, args []string) {
		name := queueName(cmd)

		client, err := newAPI()
		if err != nil {
			fatalf("%v", err)
		}
		defer func() { _ = client.Close() }()

		ordered, err := client.ReorderQueue(context.Background(), name)
		if err != nil {
			fatalf("failed to reorder queue: %v", err)
		}
		if jsonOutput {
			outputJSON(map[string]interface{}{"name": name, "project_ids": ordered})
			return
		}
		fmt.Printf("Queue %q reordered: %v\n", name, ordered)
	},
}

var queueListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved queues",
	Run: func(cmd *cobra.Command, args []string) {
		client, err := newAPI()
		if err != nil {
			fatalf("%v", err)
		}
		defer func() { _ = client.Close() }()

		queues, err := client.ListQueues(context.Background())
		if err != nil {
			fatalf("failed to list queues: %v", err)
		}
		if jsonOutput {
			outputJSON(queues)
			return
		}
		if len(queues) == 0 {
			fmt.Println("No queues saved")
			return
		}
		for _, q := range queues {
			fmt.Printf("%-20s %d project(s)\n", q.Name, len(q.ProjectIDs))
		}
	},
}

var queueDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a saved queue ordering",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		client, err := newAPI()
		if err != nil {
			fatalf("%v", err)
		}
		defer func() { _ = client.Close() }()

		if err := client.DeleteQueue(context.Background(), args[0]); err != nil {
			fatalf("failed to delete queue: %v", err)
		}
		if jsonOutput {
			outputJSON(map[string]string{"deleted": args[0]})
			return
		}
		fmt.Printf("Deleted queue %q\n", args[0])
	},
}

// nextCmd is the short path to the single highest-potential todo.
var nextCmd = &cobra.Command{
	Use:   "next",
	Short: "Show the next task to work on",
	Run: func(cmd *cobra.Command, args []string) {
		client, err := newAPI()
		if err != nil {
			fatalf("%v", err)
		}
		defer func() { _ = client.Close() }()

		view, err := client.Queue(context.Background(), config.GetString("queue"))
		if err != nil {
			fatalf("failed to load queue: %v", err)
		}

		for _, entry := range rankedEntries(view) {
			if entry.Todo == nil {
				continue
			}
			if jsonOutput {
				outputJSON(map[string]interface{}{
					"project": entry.Project,
					"todo":    entry.Todo,
				})
				return
			}
			bold := color.New(color.Bold).SprintFunc()
			gray := color.New(color.FgHiBlack).SprintFunc()
			fmt.Printf("%s — %s\n", entry.Project.Name, bold(entry.Todo.Task.Title))
			if entry.Todo.Breadcrumb != "" {
				fmt.Printf("  %s\n", gray(entry.Todo.Breadcrumb))
			}
			return
		}

		if jsonOutput {
			outputJSON(map[string]interface{}{"todo": nil})
			return
		}
		fmt.Println("Nothing actionable — add tasks or reopen a project")
	},
}

// rankedEntries returns the queue's projects sorted by computed rank
// rather than stored queue position.
func rankedEntries(view *scheduler.QueueView) []*scheduler.ProjectEntry {
	entries := make([]*scheduler.ProjectEntry, len(view.Projects))
	copy(entries, view.Projects)
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Ranking.Rank < entries[j].Ranking.Rank
	})
	return entries
}

func printQueue(view *scheduler.QueueView) {
	if len(view.Projects) == 0 {
		fmt.Println("No active projects")
		return
	}
	bold := color.New(color.Bold).SprintFunc()
	gray := color.New(color.FgHiBlack).SprintFunc()
	cyan := color.New(color.FgCyan).SprintFunc()

	for _, entry := range view.Projects {
		r := entry.Ranking
		fmt.Printf("%s %s  %s\n",
			cyan(fmt.Sprintf("#%d", r.Rank)),
			bold(entry.Project.Name),
			gray(fmt.Sprintf("potential %.0f · idle %.0fh · %d%% done", r.Potential, r.IdleHours, entry.Tasks.Percent)))
		if entry.Time.Week > 0 {
			fmt.Printf("    %s\n", gray(fmt.Sprintf("%.1fh this week, %.1fh total", entry.Time.Week, entry.Time.Total)))
		}
		if entry.Todo != nil {
			fmt.Printf("    → %s", entry.Todo.Task.Title)
			if entry.Todo.Breadcrumb != "" {
				fmt.Printf("  %s", gray(entry.Todo.Breadcrumb))
			}
			fmt.Println()
		}
	}
}

func queueName(cmd *cobra.Command) string {
	name, _ := cmd.Flags().GetString("name")
	if name == "" {
		name = config.GetString("queue")
	}
	return name
}

func init() {
	queueCmd.PersistentFlags().String("name", "", "Queue name (default: configured queue)")

	queueCmd.AddCommand(queueReorderCmd)
	queueCmd.AddCommand(queueListCmd)
	queueCmd.AddCommand(queueDeleteCmd)
	rootCmd.AddCommand(queueCmd)
	rootCmd.AddCommand(nextCmd)
}
