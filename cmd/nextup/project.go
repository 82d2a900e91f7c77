package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/dmgomes/nextup/internal/types"
)

var projectCmd = &cobra.Command{
	Use:   "project",
	Short: "Manage projects",
}

var projectAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Create a new project",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		client, err := newAPI()
		if err != nil {
			fatalf("%v", err)
		}
		defer func() { _ = client.Close() }()

		project, err := client.CreateProject(context.Background(), args[0])
		if err != nil {
			fatalf("failed to create project: %v", err)
		}

		if jsonOutput {
			outputJSON(project)
			return
		}
		green := color.New(color.FgGreen).SprintFunc()
		fmt.Printf("%s Created project %d: %s\n", green("✓"), project.ID, project.Name)
	},
}

var projectListCmd = &cobra.Command{
	Use:   "list",
	Short: "List projects",
	Run: func(cmd *cobra.Command, args []string) {
		state, _ := cmd.Flags().GetString("state")
		all, _ := cmd.Flags().GetBool("all")
		if all {
			state = ""
		}

		client, err := newAPI()
		if err != nil {
			fatalf("%v", err)
		}
		defer func() { _ = client.Close() }()

		projects, err := client.ListProjects(context.Background(), state)
		if err != nil {
			fatalf("failed to list projects: %v", err)
		}

		if jsonOutput {
			outputJSON(projects)
			return
		}
		if len(projects) == 0 {
			fmt.Println("No projects found")
			return
		}
		gray := color.New(color.FgHiBlack).SprintFunc()
		for _, p := range projects {
			marker := ""
			if p.State == types.ProjectArchived {
				marker = gray(" (archived)")
			}
			fmt.Printf("%4d  %s%s\n", p.ID, p.Name, marker)
		}
	},
}

var projectRenameCmd = &cobra.Command{
	Use:   "rename <id> <name>",
	Short: "Rename a project",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		id := parseID(args[0])
		name := args[1]

		client, err := newAPI()
		if err != nil {
			fatalf("%v", err)
		}
		defer func() { _ = client.Close() }()

		if err := client.UpdateProject(context.Background(), id, &name, nil); err != nil {
			fatalf("failed to rename project: %v", err)
		}
		if jsonOutput {
			outputJSON(map[string]interface{}{"id": id, "name": name})
			return
		}
		fmt.Printf("Renamed project %d to %s\n", id, name)
	},
}

var projectArchiveCmd = &cobra.Command{
	Use:   "archive <id>",
	Short: "Archive a project, removing it from the queue and habit rotation",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		setProjectState(parseID(args[0]), string(types.ProjectArchived))
	},
}

var projectActivateCmd = &cobra.Command{
	Use:   "activate <id>",
	Short: "Bring an archived project back into rotation",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		setProjectState(parseID(args[0]), string(types.ProjectActive))
	},
}

var projectDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a project and everything under it",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		force, _ := cmd.Flags().GetBool("force")
		id := parseID(args[0])
		if !force {
			fatalf("deleting a project removes all its tasks, habits and history; re-run with --force to confirm")
		}

		client, err := newAPI()
		if err != nil {
			fatalf("%v", err)
		}
		defer func() { _ = client.Close() }()

		if err := client.DeleteProject(context.Background(), id); err != nil {
			fatalf("failed to delete project: %v", err)
		}
		if jsonOutput {
			outputJSON(map[string]int64{"deleted": id})
			return
		}
		fmt.Printf("Deleted project %d\n", id)
	},
}

func setProjectState(id int64, state string) {
	client, err := newAPI()
	if err != nil {
		fatalf("%v", err)
	}
	defer func() { _ = client.Close() }()

	if err := client.UpdateProject(context.Background(), id, nil, &state); err != nil {
		fatalf("failed to update project: %v", err)
	}
	if jsonOutput {
		outputJSON(map[string]interface{}{"id": id, "state": state})
		return
	}
	fmt.Printf("Project %d is now %s\n", id, state)
}

// parseID parses a numeric command-line argument, exiting on garbage.
func parseID(arg string) int64 {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		fatalf("invalid id %q", arg)
	}
	return id
}

func init() {
	projectListCmd.Flags().String("state", "active", "Filter by state (active, archived)")
	projectListCmd.Flags().Bool("all", false, "List projects in every state")
	projectDeleteCmd.Flags().Bool("force", false, "Skip the confirmation guard")

	projectCmd.AddCommand(projectAddCmd)
	projectCmd.AddCommand(projectListCmd)
	projectCmd.AddCommand(projectRenameCmd)
	projectCmd.AddCommand(projectArchiveCmd)
	projectCmd.AddCommand(projectActivateCmd)
	projectCmd.AddCommand(projectDeleteCmd)
	rootCmd.AddCommand(projectCmd)
}
