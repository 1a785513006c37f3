package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/lherron/wrkboard/internal/cli/appctx"
	"github.com/lherron/wrkboard/internal/db"
	"github.com/lherron/wrkboard/internal/domain"
	"github.com/lherron/wrkboard/internal/render"
	"github.com/lherron/wrkboard/internal/store"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor [board]",
	Short: "Check database health and board ordering",
	Long: `Doctor checks the database file, SQLite pragmas, schema and friendly-ID
sequences, then verifies that every board (or just the named one) has
contiguous column and task positions.

With --fix, position gaps and duplicates are renumbered in their current
relative order and drifted ID sequences are reset.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runDoctor,
}

var (
	doctorFix     bool
	doctorVerbose bool
)

type checkResult struct {
	Name    string   `json:"name" yaml:"name"`
	Status  string   `json:"status" yaml:"status"` // ok, warning, error
	Message string   `json:"message,omitempty" yaml:"message,omitempty"`
	Details []string `json:"details,omitempty" yaml:"details,omitempty"`
}

type doctorReport struct {
	Version       string        `json:"version" yaml:"version"`
	DBPath        string        `json:"db_path" yaml:"db_path"`
	Checks        []checkResult `json:"checks" yaml:"checks"`
	Fixed         []string      `json:"fixed,omitempty" yaml:"fixed,omitempty"`
	Warnings      int           `json:"warnings" yaml:"warnings"`
	Errors        int           `json:"errors" yaml:"errors"`
	OverallStatus string        `json:"overall_status" yaml:"overall_status"`
}

func init() {
	rootCmd.AddCommand(doctorCmd)
	doctorCmd.Flags().BoolVar(&doctorFix, "fix", false, "Repair position gaps and sequence drift")
	doctorCmd.Flags().BoolVar(&doctorVerbose, "verbose", false, "Show details for each check")
}

func runDoctor(cmd *cobra.Command, args []string) error {
	opts := appctx.Options{}
	if doctorFix {
		opts.NeedsUser = true
	}
	app, err := appctx.Bootstrap(cmd, opts)
	if err != nil {
		return exitError(1, err)
	}

	report := &doctorReport{
		Version:       Version,
		DBPath:        app.Config.DBPath,
		Checks:        []checkResult{},
		OverallStatus: "ok",
	}
	report.Checks = append(report.Checks, checkDatabaseFile(app.Config.DBPath)...)

	database, err := db.Open(app.Config.DBPath)
	if err != nil {
		report.Checks = append(report.Checks, checkResult{
			Name:    "database_open",
			Status:  "error",
			Message: fmt.Sprintf("Failed to open database: %v", err),
		})
	} else {
		defer database.Close()
		app.DB = database
		report.Checks = append(report.Checks, checkDatabasePragmas(database)...)
		report.Checks = append(report.Checks, checkSchema(database)...)
		if report.Checks[len(report.Checks)-1].Status == "ok" {
			if doctorFix {
				report.Fixed = append(report.Fixed, fixSequences(database)...)
			}
			report.Checks = append(report.Checks, checkSequences(database)...)
			boards, err := doctorBoards(app, database, args)
			if err != nil {
				return err
			}
			fixed, checks := checkBoards(app, boards)
			report.Fixed = append(report.Fixed, fixed...)
			report.Checks = append(report.Checks, checks...)
		}
	}

	for _, check := range report.Checks {
		switch check.Status {
		case "warning":
			report.Warnings++
		case "error":
			report.Errors++
			report.OverallStatus = "error"
		}
	}
	if report.Warnings > 0 && report.OverallStatus == "ok" {
		report.OverallStatus = "warning"
	}

	if app.Output != render.FormatTable {
		if err := renderer(app, cmd).Render(report, nil, nil); err != nil {
			return err
		}
	} else {
		printHumanReport(cmd.OutOrStdout(), report)
	}

	if report.Errors > 0 {
		return exitError(1, fmt.Errorf("doctor found %d error(s)", report.Errors))
	}
	return nil
}

func checkDatabaseFile(dbPath string) []checkResult {
	info, err := os.Stat(dbPath)
	if err != nil {
		return []checkResult{{
			Name:    "db_file_exists",
			Status:  "error",
			Message: fmt.Sprintf("Database file not found: %s", dbPath),
			Details: []string{"Run 'wrkboard init' to create it"},
		}}
	}

	results := []checkResult{{
		Name:    "db_file_exists",
		Status:  "ok",
		Message: fmt.Sprintf("Database file: %s (%.1f MB)", dbPath, float64(info.Size())/(1024*1024)),
	}}

	f, err := os.OpenFile(dbPath, os.O_RDWR, 0)
	if err != nil {
		return append(results, checkResult{
			Name:    "db_file_permissions",
			Status:  "error",
			Message: fmt.Sprintf("Database file not writable: %v", err),
		})
	}
	f.Close()
	return append(results, checkResult{
		Name:    "db_file_permissions",
		Status:  "ok",
		Message: "Database file is readable and writable",
	})
}

func checkDatabasePragmas(database *db.DB) []checkResult {
	var results []checkResult

	var journalMode string
	_ = database.QueryRow("PRAGMA journal_mode").Scan(&journalMode)
	if journalMode == "wal" {
		results = append(results, checkResult{Name: "wal_mode", Status: "ok", Message: "WAL mode enabled"})
	} else {
		results = append(results, checkResult{
			Name:    "wal_mode",
			Status:  "warning",
			Message: fmt.Sprintf("WAL mode not enabled (current: %s)", journalMode),
		})
	}

	var foreignKeys int
	_ = database.QueryRow("PRAGMA foreign_keys").Scan(&foreignKeys)
	if foreignKeys == 1 {
		results = append(results, checkResult{Name: "foreign_keys", Status: "ok", Message: "Foreign keys enabled"})
	} else {
		results = append(results, checkResult{
			Name:    "foreign_keys",
			Status:  "error",
			Message: "Foreign keys not enabled",
			Details: []string{"Deleting a board would leave orphaned columns and tasks"},
		})
	}

	var integrity string
	_ = database.QueryRow("PRAGMA integrity_check").Scan(&integrity)
	if integrity == "ok" {
		results = append(results, checkResult{Name: "integrity_check", Status: "ok", Message: "Database integrity check passed"})
	} else {
		results = append(results, checkResult{
			Name:    "integrity_check",
			Status:  "error",
			Message: fmt.Sprintf("Database integrity check failed: %s", integrity),
			Details: []string{"Restore from backup recommended"},
		})
	}
	return results
}

func checkSchema(database *db.DB) []checkResult {
	if err := database.RequiresMigrationError(); err != nil {
		return []checkResult{{
			Name:    "schema_tables",
			Status:  "error",
			Message: err.Error(),
			Details: []string{"Run 'wrkboard migrate'"},
		}}
	}

	required := []string{"boards", "columns", "tasks", "members", "event_log"}
	var missing []string
	for _, table := range required {
		var count int
		err := database.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&count)
		if err != nil || count == 0 {
			missing = append(missing, table)
		}
	}
	if len(missing) > 0 {
		return []checkResult{{
			Name:    "schema_tables",
			Status:  "error",
			Message: fmt.Sprintf("Missing tables: %v", missing),
		}}
	}
	return []checkResult{{
		Name:    "schema_tables",
		Status:  "ok",
		Message: fmt.Sprintf("All required tables present (%d/%d)", len(required), len(required)),
	}}
}

func checkSequences(database *db.DB) []checkResult {
	drifts, err := db.SequenceDrifts(database, db.DefaultSequenceSpecs())
	if err != nil {
		return []checkResult{{Name: "id_sequences", Status: "error", Message: err.Error()}}
	}
	if len(drifts) == 0 {
		return []checkResult{{Name: "id_sequences", Status: "ok", Message: "Friendly-ID sequences in sync"}}
	}
	details := make([]string, 0, len(drifts))
	for _, d := range drifts {
		details = append(details, fmt.Sprintf("%s: sequence %d < max %s id %d", d.SeqTable, d.SeqValue, d.EntityTable, d.MaxID))
	}
	return []checkResult{{
		Name:    "id_sequences",
		Status:  "warning",
		Message: fmt.Sprintf("%d friendly-ID sequence(s) behind existing rows", len(drifts)),
		Details: details,
	}}
}

func fixSequences(database *db.DB) []string {
	fixed, err := db.FixSequenceDrifts(database, db.DefaultSequenceSpecs())
	if err != nil {
		return []string{fmt.Sprintf("sequence repair failed: %v", err)}
	}
	out := make([]string, 0, len(fixed))
	for _, d := range fixed {
		out = append(out, fmt.Sprintf("reset %s to %d", d.SeqTable, d.MaxID))
	}
	return out
}

func doctorBoards(app *appctx.App, database *db.DB, args []string) ([]domain.Board, error) {
	app.Store = store.New(database)
	if len(args) == 1 {
		boardUUID, err := resolveBoard(app, args[0])
		if err != nil {
			return nil, err
		}
		board, err := app.Store.Boards.Get(boardUUID)
		if err != nil {
			return nil, err
		}
		return []domain.Board{*board}, nil
	}
	return app.Store.Boards.List("")
}

func checkBoards(app *appctx.App, boards []domain.Board) ([]string, []checkResult) {
	var fixed []string
	var results []checkResult
	for _, board := range boards {
		violations, err := app.Store.CheckOrder(board.UUID)
		if err != nil {
			results = append(results, checkResult{Name: "board_order", Status: "error", Message: fmt.Sprintf("%s: %v", board.ID, err)})
			continue
		}
		if len(violations) > 0 && doctorFix {
			n, err := app.Store.Renumber(app.User, board.UUID)
			if err != nil {
				results = append(results, checkResult{Name: "board_order", Status: "error", Message: fmt.Sprintf("%s: renumber failed: %v", board.ID, err)})
				continue
			}
			fixed = append(fixed, fmt.Sprintf("renumbered %d row(s) on %s", n, board.ID))
			violations, err = app.Store.CheckOrder(board.UUID)
			if err != nil {
				results = append(results, checkResult{Name: "board_order", Status: "error", Message: fmt.Sprintf("%s: %v", board.ID, err)})
				continue
			}
		}
		if len(violations) == 0 {
			results = append(results, checkResult{Name: "board_order", Status: "ok", Message: fmt.Sprintf("%s %s: positions contiguous", board.ID, board.Name)})
			continue
		}
		details := make([]string, 0, len(violations))
		for _, v := range violations {
			details = append(details, v.String())
		}
		results = append(results, checkResult{
			Name:    "board_order",
			Status:  "warning",
			Message: fmt.Sprintf("%s %s: %d ordering problem(s), run with --fix", board.ID, board.Name, len(violations)),
			Details: details,
		})
	}
	if len(boards) == 0 {
		results = append(results, checkResult{Name: "board_order", Status: "ok", Message: "No boards"})
	}
	return fixed, results
}

func printHumanReport(out io.Writer, report *doctorReport) {
	fmt.Fprintf(out, "wrkboard doctor %s\n\n", report.Version)
	fmt.Fprintf(out, "Database: %s\n\n", report.DBPath)

	categories := map[string][]checkResult{}
	for _, check := range report.Checks {
		var category string
		switch check.Name {
		case "db_file_exists", "db_file_permissions", "database_open":
			category = "Database File"
		case "wal_mode", "foreign_keys", "integrity_check":
			category = "Database Health"
		case "schema_tables", "id_sequences":
			category = "Schema"
		default:
			category = "Board Order"
		}
		categories[category] = append(categories[category], check)
	}

	for _, category := range []string{"Database File", "Database Health", "Schema", "Board Order"} {
		checks := categories[category]
		if len(checks) == 0 {
			continue
		}
		fmt.Fprintln(out, category)
		for _, check := range checks {
			icon := "✓"
			switch check.Status {
			case "warning":
				icon = "⚠"
			case "error":
				icon = "✗"
			}
			fmt.Fprintf(out, "  %s %s\n", icon, check.Message)
			if doctorVerbose {
				for _, detail := range check.Details {
					fmt.Fprintf(out, "      %s\n", detail)
				}
			}
		}
		fmt.Fprintln(out)
	}

	for _, f := range report.Fixed {
		fmt.Fprintf(out, "Fixed: %s\n", f)
	}
	if len(report.Fixed) > 0 {
		fmt.Fprintln(out)
	}

	switch {
	case report.Errors > 0:
		fmt.Fprintf(out, "Summary: %d error(s), %d warning(s)\n", report.Errors, report.Warnings)
	case report.Warnings > 0:
		fmt.Fprintf(out, "Summary: %d warning(s)\n", report.Warnings)
	default:
		fmt.Fprintln(out, "Summary: All checks passed ✓")
	}
	if (report.Warnings > 0 || report.Errors > 0) && !doctorVerbose {
		fmt.Fprintln(out, "\nRun with --verbose for detailed information")
	}
}
