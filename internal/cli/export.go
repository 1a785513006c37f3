package cli

import (
	"github.com/spf13/cobra"

	"github.com/lherron/wrkboard/internal/cli/appctx"
	"github.com/lherron/wrkboard/internal/render"
)

var exportCmd = &cobra.Command{
	Use:   "export <board>",
	Short: "Write a board with its columns and tasks as JSON or YAML",
	Long: `Export writes the full ordered state of a board: the board itself, its
columns in position order, and each column's tasks in position order. The
default format is JSON; use -o yaml for YAML.`,
	Args: cobra.ExactArgs(1),
	RunE: appctx.WithApp(appctx.DefaultOptions(), runExport),
}

func init() {
	rootCmd.AddCommand(exportCmd)
}

func runExport(app *appctx.App, cmd *cobra.Command, args []string) error {
	boardUUID, err := resolveBoard(app, args[0])
	if err != nil {
		return err
	}
	snap, err := app.Store.Snapshot(boardUUID)
	if err != nil {
		return err
	}

	format := app.Output
	if format == render.FormatTable {
		format = render.FormatJSON
	}
	r := render.NewRenderer(cmd.OutOrStdout(), render.Options{Format: format})
	return r.Render(snap, nil, nil)
}
