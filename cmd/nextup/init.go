package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/dmgomes/nextup/internal/storage/sqlite"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the nextup database",
	Long: `Create the database at the configured path (see --db, NEXTUP_DB or
the config file). Safe to re-run: an existing database is left as is.`,
	Run: func(cmd *cobra.Command, args []string) {
		if dbPath == "" {
			fatalf("no database path configured")
		}

		existed := false
		if _, err := os.Stat(dbPath); err == nil {
			existed = true
		}

		store, err := sqlite.New(dbPath)
		if err != nil {
			fatalf("failed to initialize database: %v", err)
		}
		if err := store.Close(); err != nil {
			fatalf("failed to close database: %v", err)
		}

		if jsonOutput {
			outputJSON(map[string]interface{}{"db": dbPath, "created": !existed})
			return
		}
		green := color.New(color.FgGreen).SprintFunc()
		if existed {
			fmt.Printf("Database already initialized at %s\n", dbPath)
			return
		}
		fmt.Printf("%s Initialized database at %s\n", green("✓"), dbPath)
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
