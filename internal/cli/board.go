package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/lherron/wrkboard/internal/cli/appctx"
	"github.com/lherron/wrkboard/internal/domain"
	"github.com/lherron/wrkboard/internal/render"
	"github.com/lherron/wrkboard/internal/store"
)

var boardCmd = &cobra.Command{
	Use:   "board",
	Short: "Manage boards",
}

var boardCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a board owned by the acting user",
	Args:  cobra.ExactArgs(1),
	RunE:  appctx.WithApp(appctx.WithUser(), runBoardCreate),
}

var boardLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List boards",
	Long:  `List boards. With --mine only boards the acting user is a member of are shown.`,
	Args:  cobra.NoArgs,
	RunE:  appctx.WithApp(appctx.DefaultOptions(), runBoardLs),
}

var boardShowCmd = &cobra.Command{
	Use:   "show <board>",
	Short: "Show a board with its columns and tasks",
	Args:  cobra.ExactArgs(1),
	RunE:  appctx.WithApp(appctx.DefaultOptions(), runBoardShow),
}

var boardEditCmd = &cobra.Command{
	Use:   "edit <board>",
	Short: "Rename a board or change its description",
	Args:  cobra.ExactArgs(1),
	RunE:  appctx.WithApp(appctx.WithUser(), runBoardEdit),
}

var boardRmCmd = &cobra.Command{
	Use:   "rm <board>",
	Short: "Delete a board with all of its columns and tasks",
	Args:  cobra.ExactArgs(1),
	RunE:  appctx.WithApp(appctx.WithUser(), runBoardRm),
}

var (
	boardDescription string
	boardOwner       string
	boardMine        bool
	boardName        string
	boardIfMatch     int64
)

func init() {
	rootCmd.AddCommand(boardCmd)
	boardCmd.AddCommand(boardCreateCmd, boardLsCmd, boardShowCmd, boardEditCmd, boardRmCmd)

	boardCreateCmd.Flags().StringVarP(&boardDescription, "description", "d", "", "Board description")
	boardCreateCmd.Flags().StringVar(&boardOwner, "owner", "", "Owner user (defaults to the acting user)")

	boardLsCmd.Flags().BoolVar(&boardMine, "mine", false, "Only boards the acting user belongs to")

	boardEditCmd.Flags().StringVar(&boardName, "name", "", "New board name")
	boardEditCmd.Flags().StringVarP(&boardDescription, "description", "d", "", "New board description")
	boardEditCmd.Flags().Int64Var(&boardIfMatch, "if-match", 0, "Only update if the board etag matches")

	boardRmCmd.Flags().Int64Var(&boardIfMatch, "if-match", 0, "Only delete if the board etag matches")
}

func runBoardCreate(app *appctx.App, cmd *cobra.Command, args []string) error {
	board, err := app.Store.Boards.Create(app.User, store.CreateBoardParams{
		Name:        args[0],
		Description: boardDescription,
		OwnerUserID: boardOwner,
	})
	if err != nil {
		return err
	}
	return renderBoards(app, cmd, board, []domain.Board{*board})
}

func runBoardLs(app *appctx.App, cmd *cobra.Command, args []string) error {
	user := ""
	if boardMine {
		user = app.Config.User()
		if v := cmd.Flag("as"); v != nil && v.Value.String() != "" {
			user = v.Value.String()
		}
	}
	boards, err := app.Store.Boards.List(user)
	if err != nil {
		return err
	}
	if boards == nil {
		boards = []domain.Board{}
	}
	return renderBoards(app, cmd, boards, boards)
}

func renderBoards(app *appctx.App, cmd *cobra.Command, data any, boards []domain.Board) error {
	rows := make([][]string, 0, len(boards))
	for _, b := range boards {
		rows = append(rows, []string{b.ID, b.Name, b.OwnerUserID, strconv.FormatInt(b.ETag, 10), b.UpdatedAt.Format("2006-01-02 15:04")})
	}
	return renderer(app, cmd).Render(data, []string{"ID", "NAME", "OWNER", "ETAG", "UPDATED"}, rows)
}

func runBoardShow(app *appctx.App, cmd *cobra.Command, args []string) error {
	boardUUID, err := resolveBoard(app, args[0])
	if err != nil {
		return err
	}
	snap, err := app.Store.Snapshot(boardUUID)
	if err != nil {
		return err
	}
	r := renderer(app, cmd)
	if app.Output != render.FormatTable {
		return r.Render(snap, nil, nil)
	}
	return r.RenderBoard(snap)
}

func runBoardEdit(app *appctx.App, cmd *cobra.Command, args []string) error {
	boardUUID, err := resolveBoard(app, args[0])
	if err != nil {
		return err
	}

	var patch store.BoardPatch
	if cmd.Flags().Changed("name") {
		patch.Name = &boardName
	}
	if cmd.Flags().Changed("description") {
		patch.Description = &boardDescription
	}
	if patch.Name == nil && patch.Description == nil {
		return exitError(2, fmt.Errorf("nothing to change (use --name or --description)"))
	}

	board, err := app.Store.Boards.Update(app.User, boardUUID, patch, boardIfMatch)
	if err != nil {
		return err
	}
	return renderBoards(app, cmd, board, []domain.Board{*board})
}

func runBoardRm(app *appctx.App, cmd *cobra.Command, args []string) error {
	boardUUID, err := resolveBoard(app, args[0])
	if err != nil {
		return err
	}
	if err := app.Store.Boards.Delete(app.User, boardUUID, boardIfMatch); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted board %s\n", args[0])
	return nil
}
