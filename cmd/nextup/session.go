package main

import (
	"context"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Track focus sessions on a project",
}

var sessionStartCmd = &cobra.Command{
	Use:   "start <project-id>",
	Short: "Start a focus session",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		client, err := newAPI()
		if err != nil {
			fatalf("%v", err)
		}
		defer func() { _ = client.Close() }()

		session, err := client.StartSession(context.Background(), parseID(args[0]))
		if err != nil {
			fatalf("failed to start session: %v", err)
		}

		if jsonOutput {
			outputJSON(session)
			return
		}
		green := color.New(color.FgGreen).SprintFunc()
		fmt.Printf("%s Session %s started\n", green("▶"), session.ID)
	},
}

var sessionStopCmd = &cobra.Command{
	Use:   "stop <session-id>",
	Short: "End a running session",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		projectID, _ := cmd.Flags().GetInt64("project")
		if projectID == 0 {
			fatalf("--project is required")
		}

		client, err := newAPI()
		if err != nil {
			fatalf("%v", err)
		}
		defer func() { _ = client.Close() }()

		if err := client.EndSession(context.Background(), args[0], projectID); err != nil {
			fatalf("failed to stop session: %v", err)
		}
		if jsonOutput {
			outputJSON(map[string]string{"stopped": args[0]})
			return
		}
		fmt.Printf("Session %s stopped\n", args[0])
	},
}

var sessionListCmd = &cobra.Command{
	Use:   "list <project-id>",
	Short: "List a project's sessions, newest first",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		client, err := newAPI()
		if err != nil {
			fatalf("%v", err)
		}
		defer func() { _ = client.Close() }()

		sessions, err := client.ListSessions(context.Background(), parseID(args[0]))
		if err != nil {
			fatalf("failed to list sessions: %v", err)
		}

		if jsonOutput {
			outputJSON(sessions)
			return
		}
		if len(sessions) == 0 {
			fmt.Println("No sessions recorded")
			return
		}
		yellow := color.New(color.FgYellow).SprintFunc()
		for _, s := range sessions {
			if s.EndedAt == nil {
				fmt.Printf("%s  started %s  %s\n",
					s.ID, s.StartedAt.Format(time.RFC3339), yellow("(running)"))
				continue
			}
			fmt.Printf("%s  %s  %.1fh\n",
				s.ID, s.StartedAt.Format("2006-01-02 15:04"), s.EndedAt.Sub(s.StartedAt).Hours())
		}
	},
}

func init() {
	sessionStopCmd.Flags().Int64P("project", "p", 0, "Project id (required)")

	sessionCmd.AddCommand(sessionStartCmd)
	sessionCmd.AddCommand(sessionStopCmd)
	sessionCmd.AddCommand(sessionListCmd)
	rootCmd.AddCommand(sessionCmd)
}
