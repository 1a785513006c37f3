package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/lherron/wrkboard/internal/cli/appctx"
	"github.com/lherron/wrkboard/internal/domain"
	"github.com/lherron/wrkboard/internal/events"
	"github.com/lherron/wrkboard/internal/render"
)

var logCmd = &cobra.Command{
	Use:   "log <board>",
	Short: "Show change history for a board",
	Long: `Show the board's event log, newest first.

Examples:
  wrkboard log B-00001             # Last 50 events
  wrkboard log Roadmap --limit 0   # Everything
  wrkboard log B-00001 --oneline   # Compact format
`,
	Args: cobra.ExactArgs(1),
	RunE: appctx.WithApp(appctx.DefaultOptions(), runLog),
}

var (
	logLimit   int
	logOneline bool
)

func init() {
	rootCmd.AddCommand(logCmd)

	logCmd.Flags().IntVar(&logLimit, "limit", 50, "Limit number of events (0 = unlimited)")
	logCmd.Flags().BoolVar(&logOneline, "oneline", false, "Compact one-line format")
}

func runLog(app *appctx.App, cmd *cobra.Command, args []string) error {
	boardUUID, err := resolveBoard(app, args[0])
	if err != nil {
		return err
	}
	list, err := events.ListByBoard(app.DB.DB, boardUUID, logLimit)
	if err != nil {
		return fmt.Errorf("failed to query event log: %w", err)
	}
	if list == nil {
		list = []domain.Event{}
	}

	if app.Output != render.FormatTable {
		return renderer(app, cmd).Render(list, nil, nil)
	}
	out := cmd.OutOrStdout()
	for _, e := range list {
		if logOneline {
			printEventOneline(out, e)
		} else {
			printEvent(out, e)
		}
	}
	return nil
}

func printEventOneline(out io.Writer, e domain.Event) {
	fmt.Fprintf(out, "%d %s %s %s\n", e.ID, e.Timestamp.Format("2006-01-02 15:04"), e.EventType, eventActor(e))
}

func printEvent(out io.Writer, e domain.Event) {
	fmt.Fprintf(out, "event %d\n", e.ID)
	fmt.Fprintf(out, "Type:   %s\n", e.EventType)
	fmt.Fprintf(out, "Actor:  %s\n", eventActor(e))
	fmt.Fprintf(out, "Date:   %s\n", e.Timestamp.Format("2006-01-02 15:04:05"))
	if e.ResourceUUID != nil {
		fmt.Fprintf(out, "Target: %s %s\n", e.ResourceType, *e.ResourceUUID)
	}
	if e.ETag != nil {
		fmt.Fprintf(out, "ETag:   %d\n", *e.ETag)
	}
	if e.Payload != nil {
		fmt.Fprintf(out, "\n    %s\n", *e.Payload)
	}
	fmt.Fprintln(out)
}

func eventActor(e domain.Event) string {
	if e.UserID == nil {
		return "(system)"
	}
	return *e.UserID
}
