package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/dmgomes/nextup/internal/rpc"
	"github.com/dmgomes/nextup/internal/types"
)

var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Manage tasks within a project",
}

var taskAddCmd = &cobra.Command{
	Use:   "add <title>",
	Short: "Create a task",
	Long: `Create a task in a project. Without --parent the task goes directly
under the project's root. With --recurring the task becomes a habit whose
counter resets every day, week or month.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		projectID, _ := cmd.Flags().GetInt64("project")
		parentID, _ := cmd.Flags().GetInt64("parent")
		kind, _ := cmd.Flags().GetString("type")
		recurring, _ := cmd.Flags().GetBool("recurring")
		recurrence, _ := cmd.Flags().GetString("every")
		objective, _ := cmd.Flags().GetInt("objective")

		if projectID == 0 {
			fatalf("--project is required")
		}
		createArgs := rpc.TaskCreateArgs{
			ProjectID:  projectID,
			Title:      args[0],
			Kind:       kind,
			Recurring:  recurring,
			Recurrence: recurrence,
			Objective:  objective,
		}
		if parentID != 0 {
			createArgs.ParentID = &parentID
		}

		client, err := newAPI()
		if err != nil {
			fatalf("%v", err)
		}
		defer func() { _ = client.Close() }()

		task, err := client.CreateTask(context.Background(), createArgs)
		if err != nil {
			fatalf("failed to create task: %v", err)
		}

		if jsonOutput {
			outputJSON(task)
			return
		}
		green := color.New(color.FgGreen).SprintFunc()
		label := "task"
		if task.Recurring {
			label = fmt.Sprintf("%s habit (objective %d)", task.Recurrence, task.Objective)
		}
		fmt.Printf("%s Created %s %d: %s\n", green("✓"), label, task.ID, task.Title)
	},
}

var taskDoneCmd = &cobra.Command{
	Use:   "done <id>",
	Short: "Mark a task completed",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		completed := true
		patchTask(parseID(args[0]), types.TaskPatch{Completed: &completed}, "Completed")
	},
}

var taskReopenCmd = &cobra.Command{
	Use:   "reopen <id>",
	Short: "Reopen a completed or closed task",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		completed := false
		state := types.TaskOpen
		patchTask(parseID(args[0]), types.TaskPatch{Completed: &completed, State: &state}, "Reopened")
	},
}

var taskUpdateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Update task fields",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		var patch types.TaskPatch
		if cmd.Flags().Changed("title") {
			title, _ := cmd.Flags().GetString("title")
			patch.Title = &title
		}
		if cmd.Flags().Changed("objective") {
			objective, _ := cmd.Flags().GetInt("objective")
			patch.Objective = &objective
		}
		if cmd.Flags().Changed("position") {
			position, _ := cmd.Flags().GetInt("position")
			patch.Position = &position
		}
		if cmd.Flags().Changed("type") {
			kindStr, _ := cmd.Flags().GetString("type")
			kind := types.TaskKind(kindStr)
			patch.Kind = &kind
		}
		if patch == (types.TaskPatch{}) {
			fatalf("nothing to update; pass --title, --objective, --position or --type")
		}
		patchTask(parseID(args[0]), patch, "Updated")
	},
}

var taskCloseCmd = &cobra.Command{
	Use:   "close <id>",
	Short: "Close a task and its whole subtree",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		client, err := newAPI()
		if err != nil {
			fatalf("%v", err)
		}
		defer func() { _ = client.Close() }()

		closed, err := client.CloseTask(context.Background(), parseID(args[0]))
		if err != nil {
			fatalf("failed to close task: %v", err)
		}
		if jsonOutput {
			outputJSON(map[string]int{"closed": closed})
			return
		}
		fmt.Printf("Closed %d task(s)\n", closed)
	},
}

var taskDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a task and its whole subtree",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		client, err := newAPI()
		if err != nil {
			fatalf("%v", err)
		}
		defer func() { _ = client.Close() }()

		deleted, err := client.DeleteTask(context.Background(), parseID(args[0]))
		if err != nil {
			fatalf("failed to delete task: %v", err)
		}
		if jsonOutput {
			outputJSON(rpc.DeleteResponse{DeletedIDs: deleted})
			return
		}
		fmt.Printf("Deleted %d task(s)\n", len(deleted))
	},
}

var taskMoveCmd = &cobra.Command{
	Use:   "move <id>",
	Short: "Move a task under a different parent",
	Long: `Move a task (and its subtree) under a new parent in the same project.
With --to-root the task is reattached directly under the project root.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		toRoot, _ := cmd.Flags().GetBool("to-root")
		parentID, _ := cmd.Flags().GetInt64("parent")
		if !toRoot && parentID == 0 {
			fatalf("pass --parent <id> or --to-root")
		}

		var newParent *int64
		if !toRoot {
			newParent = &parentID
		}

		client, err := newAPI()
		if err != nil {
			fatalf("%v", err)
		}
		defer func() { _ = client.Close() }()

		id := parseID(args[0])
		if err := client.ReparentTask(context.Background(), id, newParent); err != nil {
			fatalf("failed to move task: %v", err)
		}
		if jsonOutput {
			outputJSON(map[string]interface{}{"id": id, "new_parent_id": newParent})
			return
		}
		if toRoot {
			fmt.Printf("Moved task %d under the project root\n", id)
		} else {
			fmt.Printf("Moved task %d under task %d\n", id, parentID)
		}
	},
}

var taskTreeCmd = &cobra.Command{
	Use:   "tree",
	Short: "Show a project's task tree",
	Run: func(cmd *cobra.Command, args []string) {
		projectID, _ := cmd.Flags().GetInt64("project")
		rootTaskID, _ := cmd.Flags().GetInt64("root")
		if projectID == 0 {
			fatalf("--project is required")
		}

		client, err := newAPI()
		if err != nil {
			fatalf("%v", err)
		}
		defer func() { _ = client.Close() }()

		tree, err := client.TaskTree(context.Background(), projectID, rootTaskID)
		if err != nil {
			fatalf("failed to load task tree: %v", err)
		}

		if jsonOutput {
			outputJSON(tree)
			return
		}
		printTree(tree, 0)
	},
}

func printTree(node *types.TaskNode, depth int) {
	green := color.New(color.FgGreen).SprintFunc()
	gray := color.New(color.FgHiBlack).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()

	indent := strings.Repeat("  ", depth)
	marker := "·"
	if node.Done() {
		marker = green("✓")
	}
	suffix := ""
	switch {
	case node.Recurring:
		suffix = yellow(fmt.Sprintf(" [%s %d/%d]", node.Recurrence, node.Counter, node.Objective))
	case len(node.Subtasks) > 0:
		suffix = gray(fmt.Sprintf(" (%d%%)", node.PercentClosed))
	}
	fmt.Printf("%s%s %d %s%s\n", indent, marker, node.ID, node.Title, suffix)
	for _, child := range node.Subtasks {
		printTree(child, depth+1)
	}
}

func patchTask(id int64, patch types.TaskPatch, verb string) {
	client, err := newAPI()
	if err != nil {
		fatalf("%v", err)
	}
	defer func() { _ = client.Close() }()

	task, err := client.UpdateTask(context.Background(), id, patch)
	if err != nil {
		fatalf("failed to update task: %v", err)
	}
	if jsonOutput {
		outputJSON(task)
		return
	}
	fmt.Printf("%s task %d: %s\n", verb, task.ID, task.Title)
}

func init() {
	taskAddCmd.Flags().Int64P("project", "p", 0, "Project id (required)")
	taskAddCmd.Flags().Int64("parent", 0, "Parent task id (default: project root)")
	taskAddCmd.Flags().String("type", string(types.KindTask), "Task type (TASK, VISION, GOAL)")
	taskAddCmd.Flags().Bool("recurring", false, "Create a recurring habit")
	taskAddCmd.Flags().String("every", "", "Habit cadence (daily, weekly, monthly)")
	taskAddCmd.Flags().Int("objective", 0, "Habit completions required per period")

	taskUpdateCmd.Flags().String("title", "", "New title")
	taskUpdateCmd.Flags().Int("objective", 0, "New habit objective")
	taskUpdateCmd.Flags().Int("position", 0, "New sibling position")
	taskUpdateCmd.Flags().String("type", "", "New task type (TASK, VISION, GOAL)")

	taskMoveCmd.Flags().Int64("parent", 0, "New parent task id")
	taskMoveCmd.Flags().Bool("to-root", false, "Move directly under the project root")

	taskTreeCmd.Flags().Int64P("project", "p", 0, "Project id (required)")
	taskTreeCmd.Flags().Int64("root", 0, "Show only the subtree under this task")

	taskCmd.AddCommand(taskAddCmd)
	taskCmd.AddCommand(taskDoneCmd)
	taskCmd.AddCommand(taskReopenCmd)
	taskCmd.AddCommand(taskUpdateCmd)
	taskCmd.AddCommand(taskCloseCmd)
	taskCmd.AddCommand(taskDeleteCmd)
	taskCmd.AddCommand(taskMoveCmd)
	taskCmd.AddCommand(taskTreeCmd)
	rootCmd.AddCommand(taskCmd)
}
