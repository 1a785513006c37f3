package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
	"github.com/spf13/cobra"

	"github.com/lherron/wrkboard/internal/cli/appctx"
	"github.com/lherron/wrkboard/internal/domain"
	"github.com/lherron/wrkboard/internal/order"
	"github.com/lherron/wrkboard/internal/reconcile"
	"github.com/lherron/wrkboard/internal/remote"
	"github.com/lherron/wrkboard/internal/render"
	"github.com/lherron/wrkboard/internal/webhooks"
)

var mvCmd = &cobra.Command{
	Use:   "mv",
	Short: "Reorder columns or move tasks between columns",
	Long: `Move a column to a new position on its board, or move a task within its
column or into another column.

Every affected item is renumbered so positions stay 0..n-1. The new order is
written one item at a time; if any write fails the board is reloaded from
the store and the command exits non-zero.

With --remote (or WRKBOARD_REMOTE) the move goes through a wrkboardd server
instead of the local database.`,
}

var mvColumnCmd = &cobra.Command{
	Use:   "column <column> <index>",
	Short: "Move a column to index on its board",
	Args:  cobra.ExactArgs(2),
	RunE:  appctx.WithApp(moveOptions(), runMvColumn),
}

var mvTaskCmd = &cobra.Command{
	Use:   "task <task> <column> [index]",
	Short: "Move a task to index in column (default: the end)",
	Example: `  wrkboard mv task T-00003 Doing 0
  wrkboard mv task T-00003 C-00002
  wrkboard mv task T-00003 Done --dry-run`,
	Args: cobra.RangeArgs(2, 3),
	RunE: appctx.WithApp(moveOptions(), runMvTask),
}

var (
	mvBoard   string
	mvDryRun  bool
	mvPersist string
)

func init() {
	rootCmd.AddCommand(mvCmd)
	mvCmd.AddCommand(mvColumnCmd, mvTaskCmd)

	mvCmd.PersistentFlags().StringVarP(&mvBoard, "board", "b", "", "Board to resolve column titles in")
	mvCmd.PersistentFlags().BoolVar(&mvDryRun, "dry-run", false, "Show the new layout and planned writes without persisting")
	mvCmd.PersistentFlags().StringVar(&mvPersist, "persist", "", "Which items to write: all or changed (default from config)")
}

func moveOptions() appctx.Options {
	return appctx.Options{NeedsDB: true, NeedsUser: true, RemoteOK: true}
}

// moveBackend is the store a move is loaded from and persisted to.
type moveBackend interface {
	reconcile.Remote
	ResolveBoard(ctx context.Context, selector string) (*domain.Board, error)
	FetchColumn(ctx context.Context, columnUUID string) (*domain.Column, error)
	FetchTask(ctx context.Context, taskUUID string) (*domain.Task, error)
}

type moveResult struct {
	Outcome string           `json:"outcome" yaml:"outcome"`
	Event   domain.MoveEvent `json:"event" yaml:"event"`
	Writes  []order.Write    `json:"writes" yaml:"writes"`
	Board   order.Snapshot   `json:"board" yaml:"board"`
}

func newMoveBackend(app *appctx.App) moveBackend {
	if url := app.Remote(); url != "" {
		return remote.NewClient(url, app.Config.Token, app.User)
	}
	return remote.NewLocal(app.Store, app.User)
}

// itemRef turns a selector into something the backend can look up. Local
// selectors are resolved against the database; a server resolves its own.
func itemRef(app *appctx.App, selector string, resolve func() (string, error)) (string, error) {
	if app.Remote() != "" {
		return selector, nil
	}
	return resolve()
}

// newMoveEngine builds the engine for one command. The returned func closes
// it and waits for pending webhook deliveries.
func newMoveEngine(app *appctx.App, backend moveBackend) (*reconcile.Engine, func(), error) {
	policy := app.Config.Persist
	if mvPersist != "" {
		policy = mvPersist
	}
	persist, err := order.ParsePersistPolicy(policy)
	if err != nil {
		return nil, nil, exitError(2, err)
	}
	queue, err := reconcile.ParseQueuePolicy(app.Config.Queue)
	if err != nil {
		return nil, nil, exitError(2, err)
	}
	var notifier reconcile.Notifier = reconcile.LogNotifier{Logger: app.Logger}
	var hooks *webhooks.Notifier
	if len(app.Config.Webhooks) > 0 {
		hooks = webhooks.New(app.Config.Webhooks, webhooks.WithLogger(app.Logger))
		notifier = webhooks.Chain(notifier, hooks)
	}
	engine := reconcile.New(backend,
		reconcile.WithLogger(app.Logger),
		reconcile.WithNotifier(notifier),
		reconcile.WithPersistPolicy(persist),
		reconcile.WithQueuePolicy(queue),
	)
	return engine, func() {
		engine.Close()
		if hooks != nil {
			hooks.Wait()
		}
	}, nil
}

func runMvColumn(app *appctx.App, cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)
	backend := newMoveBackend(app)

	index, err := parseIndex(args[1])
	if err != nil {
		return err
	}
	boardUUID, ref, err := moveColumnBoard(ctx, app, backend, args[0])
	if err != nil {
		return err
	}

	engine, done, err := newMoveEngine(app, backend)
	if err != nil {
		return err
	}
	defer done()
	if err := engine.Load(ctx, boardUUID); err != nil {
		return err
	}

	snap := engine.Snapshot()
	column, ok := findColumnByRef(snap, ref)
	if !ok {
		return exitError(1, domain.NotFound("column", args[0]))
	}
	from := snap.ColumnIndex(column.UUID)
	ev := domain.MoveEvent{
		Kind:        domain.ItemKindColumn,
		ItemUUID:    column.UUID,
		Source:      domain.Location{ContainerUUID: snap.Board.UUID, Index: from},
		Destination: &domain.Location{ContainerUUID: snap.Board.UUID, Index: index},
	}
	return executeMove(app, cmd, engine, snap, ev)
}

func runMvTask(app *appctx.App, cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)
	backend := newMoveBackend(app)

	ref, err := itemRef(app, args[0], func() (string, error) {
		return resolveTask(app, args[0])
	})
	if err != nil {
		return err
	}
	task, err := backend.FetchTask(ctx, ref)
	if err != nil {
		return fmt.Errorf("failed to fetch task: %w", err)
	}

	engine, done, err := newMoveEngine(app, backend)
	if err != nil {
		return err
	}
	defer done()
	if err := engine.Load(ctx, task.BoardUUID); err != nil {
		return err
	}

	snap := engine.Snapshot()
	_, srcCol, from, ok := snap.FindTask(task.UUID)
	if !ok {
		return fmt.Errorf("task %s is not on board %s", task.ID, snap.Board.ID)
	}
	dest, ok := findColumnByRef(snap, args[1])
	if !ok {
		return exitError(1, domain.NotFound("column", args[1]))
	}

	index := len(dest.Tasks)
	if dest.UUID == snap.Columns[srcCol].UUID {
		index--
	}
	if len(args) == 3 {
		if index, err = parseIndex(args[2]); err != nil {
			return err
		}
	}

	ev := domain.MoveEvent{
		Kind:        domain.ItemKindTask,
		ItemUUID:    task.UUID,
		Source:      domain.Location{ContainerUUID: snap.Columns[srcCol].UUID, Index: from},
		Destination: &domain.Location{ContainerUUID: dest.UUID, Index: index},
	}
	return executeMove(app, cmd, engine, snap, ev)
}

// moveColumnBoard returns the board a column selector belongs to and the
// reference to match the column by in that board's snapshot. With --board
// the board is resolved first and the selector is matched as given, so a
// column title works against a server too.
func moveColumnBoard(ctx context.Context, app *appctx.App, backend moveBackend, selector string) (string, string, error) {
	if mvBoard != "" {
		board, err := backend.ResolveBoard(ctx, mvBoard)
		if err != nil {
			return "", "", fmt.Errorf("failed to resolve board: %w", err)
		}
		return board.UUID, selector, nil
	}
	ref, err := itemRef(app, selector, func() (string, error) {
		return resolveColumn(app, "", selector)
	})
	if err != nil {
		return "", "", err
	}
	column, err := backend.FetchColumn(ctx, ref)
	if err != nil {
		return "", "", fmt.Errorf("failed to fetch column: %w", err)
	}
	return column.BoardUUID, column.UUID, nil
}

// findColumnByRef matches a column by UUID, friendly ID or title.
func findColumnByRef(snap order.Snapshot, ref string) (domain.Column, bool) {
	if col, ok := snap.FindColumn(ref); ok {
		return col, true
	}
	for _, col := range snap.Columns {
		if strings.EqualFold(col.Title, ref) {
			return col, true
		}
	}
	return domain.Column{}, false
}

func parseIndex(s string) (int, error) {
	index, err := strconv.Atoi(s)
	if err != nil {
		return 0, exitError(2, fmt.Errorf("invalid index %q: must be an integer", s))
	}
	return index, nil
}

func executeMove(app *appctx.App, cmd *cobra.Command, engine *reconcile.Engine, before order.Snapshot, ev domain.MoveEvent) error {
	if mvDryRun {
		return previewMove(app, cmd, before, ev)
	}

	ctx := commandContext(cmd)
	receipt, err := engine.HandleMove(ctx, ev)
	if err != nil {
		return exitError(1, err)
	}
	outcome, err := receipt.Wait(ctx)
	if err != nil && outcome == reconcile.Pending {
		return err
	}

	result := moveResult{
		Outcome: outcome.String(),
		Event:   ev,
		Writes:  receipt.Writes,
		Board:   engine.Snapshot(),
	}
	if result.Writes == nil {
		result.Writes = []order.Write{}
	}
	if app.Output != render.FormatTable {
		if rerr := renderer(app, cmd).Render(result, nil, nil); rerr != nil {
			return rerr
		}
	} else {
		out := cmd.OutOrStdout()
		switch outcome {
		case reconcile.NoOp:
			fmt.Fprintln(out, "Nothing to move.")
		case reconcile.Applied:
			fmt.Fprintf(out, "Moved %s %s (%d write(s))\n", ev.Kind, itemLabel(before, ev), len(receipt.Writes))
			if rerr := renderer(app, cmd).RenderBoard(result.Board); rerr != nil {
				return rerr
			}
		}
	}

	if outcome == reconcile.RolledBack || outcome == reconcile.Discarded {
		return exitError(1, fmt.Errorf("move %s: %w", outcome, err))
	}
	return nil
}

func previewMove(app *appctx.App, cmd *cobra.Command, before order.Snapshot, ev domain.MoveEvent) error {
	policy := app.Config.Persist
	if mvPersist != "" {
		policy = mvPersist
	}
	persist, err := order.ParsePersistPolicy(policy)
	if err != nil {
		return exitError(2, err)
	}
	m, err := before.Apply(ev)
	if err != nil {
		return exitError(1, err)
	}
	writes := m.Plan(persist)
	if writes == nil {
		writes = []order.Write{}
	}

	if app.Output != render.FormatTable {
		outcome := "dry_run"
		if m.Noop {
			outcome = reconcile.NoOp.String()
		}
		return renderer(app, cmd).Render(moveResult{Outcome: outcome, Event: ev, Writes: writes, Board: m.Next}, nil, nil)
	}

	out := cmd.OutOrStdout()
	if m.Noop {
		fmt.Fprintln(out, "Nothing to move.")
		return nil
	}
	diff := difflib.UnifiedDiff{
		A:        difflib.SplitLines(render.Layout(before)),
		B:        difflib.SplitLines(render.Layout(m.Next)),
		FromFile: "current",
		ToFile:   "after move",
		Context:  3,
	}
	text, err := difflib.GetUnifiedDiffString(diff)
	if err != nil {
		return err
	}
	fmt.Fprint(out, text)
	fmt.Fprintf(out, "\nWould write %d item(s):\n", len(writes))
	for _, w := range writes {
		fmt.Fprintf(out, "  %s\n", w)
	}
	return nil
}

func itemLabel(snap order.Snapshot, ev domain.MoveEvent) string {
	if ev.Kind == domain.ItemKindColumn {
		if col, ok := snap.FindColumn(ev.ItemUUID); ok {
			return col.ID
		}
		return ev.ItemUUID
	}
	if task, _, _, ok := snap.FindTask(ev.ItemUUID); ok {
		return task.ID
	}
	return ev.ItemUUID
}
