package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lherron/wrkboard/internal/cli/appctx"
	"github.com/lherron/wrkboard/internal/db"
	"github.com/lherron/wrkboard/internal/store"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize the wrkboard database",
	Long: `Initialize creates the SQLite database and runs migrations. With --board
it also seeds a first board owned by the acting user, with one column per
entry in --columns.`,
	RunE: runInit,
}

var (
	initBoard   string
	initColumns string
)

func init() {
	rootCmd.AddCommand(initCmd)

	initCmd.Flags().StringVar(&initBoard, "board", "", "Name of a board to create")
	initCmd.Flags().StringVar(&initColumns, "columns", "Todo,Doing,Done", "Comma-separated columns for --board")
}

func runInit(cmd *cobra.Command, args []string) error {
	app, err := appctx.Bootstrap(cmd, appctx.Options{NeedsUser: initBoard != ""})
	if err != nil {
		return exitError(1, err)
	}

	dbExists := false
	if _, err := os.Stat(app.Config.DBPath); err == nil {
		dbExists = true
	}

	database, err := db.Open(app.Config.DBPath)
	if err != nil {
		return exitError(1, fmt.Errorf("failed to open database: %w", err))
	}
	defer database.Close()

	applied, err := database.MigrateWithInfo()
	if err != nil {
		return exitError(1, fmt.Errorf("failed to run migrations: %w", err))
	}

	out := cmd.OutOrStdout()
	if dbExists {
		fmt.Fprintf(out, "Database at %s already exists (%d migration(s) applied)\n", app.Config.DBPath, len(applied))
	} else {
		fmt.Fprintf(out, "Initialized database at %s\n", app.Config.DBPath)
	}

	if initBoard == "" {
		return nil
	}

	s := store.New(database)
	board, err := seedBoard(s, app.User, initBoard, initColumns)
	if err != nil {
		return exitError(1, fmt.Errorf("failed to seed board: %w", err))
	}
	fmt.Fprintf(out, "Created board %s %q\n", board, initBoard)
	return nil
}

// seedBoard creates a board with the given comma-separated columns and
// returns its friendly ID.
func seedBoard(s *store.Store, user, name, columns string) (string, error) {
	board, err := s.Boards.Create(user, store.CreateBoardParams{Name: name})
	if err != nil {
		return "", err
	}
	for _, title := range strings.Split(columns, ",") {
		if title = strings.TrimSpace(title); title == "" {
			continue
		}
		if _, err := s.Columns.Create(user, board.UUID, title); err != nil {
			return "", err
		}
	}
	return board.ID, nil
}
