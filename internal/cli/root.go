package cli

import (
	"context"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "wrkboard",
	Short: "Kanban boards with ordered columns and tasks",
	Long: `wrkboard manages kanban boards on a SQLite backend. Columns and tasks
keep dense 0-based positions; moves are applied optimistically and persisted
one write at a time, either directly or through a wrkboardd server.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().String("db", "", "Path to database file (overrides WRKBOARD_DB_PATH)")
	rootCmd.PersistentFlags().String("as", "", "User to act as (overrides WRKBOARD_USER)")
	rootCmd.PersistentFlags().String("remote", "", "wrkboardd URL to persist moves through (overrides WRKBOARD_REMOTE)")
	rootCmd.PersistentFlags().StringP("output", "o", "", "Output format: table, json or yaml")
}
