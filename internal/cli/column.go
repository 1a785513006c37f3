package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/lherron/wrkboard/internal/cli/appctx"
	"github.com/lherron/wrkboard/internal/domain"
)

var columnCmd = &cobra.Command{
	Use:     "column",
	Aliases: []string{"col"},
	Short:   "Manage the columns of a board",
}

var columnAddCmd = &cobra.Command{
	Use:   "add <board> <title>",
	Short: "Append a column to a board",
	Args:  cobra.ExactArgs(2),
	RunE:  appctx.WithApp(appctx.WithUser(), runColumnAdd),
}

var columnLsCmd = &cobra.Command{
	Use:   "ls <board>",
	Short: "List a board's columns in order",
	Args:  cobra.ExactArgs(1),
	RunE:  appctx.WithApp(appctx.DefaultOptions(), runColumnLs),
}

var columnRenameCmd = &cobra.Command{
	Use:   "rename <column> <title>",
	Short: "Rename a column",
	Args:  cobra.ExactArgs(2),
	RunE:  appctx.WithApp(appctx.WithUser(), runColumnRename),
}

var columnRmCmd = &cobra.Command{
	Use:   "rm <column>",
	Short: "Delete a column and its tasks",
	Long: `Delete a column together with all of its tasks. Columns after it move
up one position so the board stays contiguous.`,
	Args: cobra.ExactArgs(1),
	RunE: appctx.WithApp(appctx.WithUser(), runColumnRm),
}

var (
	columnBoard   string
	columnIfMatch int64
)

func init() {
	rootCmd.AddCommand(columnCmd)
	columnCmd.AddCommand(columnAddCmd, columnLsCmd, columnRenameCmd, columnRmCmd)

	columnRenameCmd.Flags().StringVarP(&columnBoard, "board", "b", "", "Board to resolve column titles in")
	columnRenameCmd.Flags().Int64Var(&columnIfMatch, "if-match", 0, "Only rename if the column etag matches")
	columnRmCmd.Flags().StringVarP(&columnBoard, "board", "b", "", "Board to resolve column titles in")
	columnRmCmd.Flags().Int64Var(&columnIfMatch, "if-match", 0, "Only delete if the column etag matches")
}

func runColumnAdd(app *appctx.App, cmd *cobra.Command, args []string) error {
	boardUUID, err := resolveBoard(app, args[0])
	if err != nil {
		return err
	}
	column, err := app.Store.Columns.Create(app.User, boardUUID, args[1])
	if err != nil {
		return err
	}
	return renderColumns(app, cmd, column, []domain.Column{*column})
}

func runColumnLs(app *appctx.App, cmd *cobra.Command, args []string) error {
	boardUUID, err := resolveBoard(app, args[0])
	if err != nil {
		return err
	}
	columns, err := app.Store.Columns.ListByBoard(boardUUID)
	if err != nil {
		return err
	}
	if columns == nil {
		columns = []domain.Column{}
	}
	return renderColumns(app, cmd, columns, columns)
}

func renderColumns(app *appctx.App, cmd *cobra.Command, data any, columns []domain.Column) error {
	rows := make([][]string, 0, len(columns))
	for _, c := range columns {
		rows = append(rows, []string{strconv.Itoa(c.Position), c.ID, c.Title, strconv.Itoa(len(c.Tasks)), strconv.FormatInt(c.ETag, 10)})
	}
	return renderer(app, cmd).Render(data, []string{"POS", "ID", "TITLE", "TASKS", "ETAG"}, rows)
}

func runColumnRename(app *appctx.App, cmd *cobra.Command, args []string) error {
	boardUUID, err := optionalBoard(app, columnBoard)
	if err != nil {
		return err
	}
	columnUUID, err := resolveColumn(app, boardUUID, args[0])
	if err != nil {
		return err
	}
	column, err := app.Store.Columns.Rename(app.User, columnUUID, args[1], columnIfMatch)
	if err != nil {
		return err
	}
	return renderColumns(app, cmd, column, []domain.Column{*column})
}

func runColumnRm(app *appctx.App, cmd *cobra.Command, args []string) error {
	boardUUID, err := optionalBoard(app, columnBoard)
	if err != nil {
		return err
	}
	columnUUID, err := resolveColumn(app, boardUUID, args[0])
	if err != nil {
		return err
	}
	if err := app.Store.Columns.Delete(app.User, columnUUID, columnIfMatch); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted column %s\n", args[0])
	return nil
}

func optionalBoard(app *appctx.App, selector string) (string, error) {
	if selector == "" {
		return "", nil
	}
	return resolveBoard(app, selector)
}
