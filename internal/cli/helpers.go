package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lherron/wrkboard/internal/cli/appctx"
	"github.com/lherron/wrkboard/internal/render"
	"github.com/lherron/wrkboard/internal/selectors"
)

// exitError returns an error that will cause the CLI to exit with the given code
func exitError(code int, err error) error {
	return &ExitError{Code: code, Err: err}
}

// ExitError carries a process exit code.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string { return e.Err.Error() }

func (e *ExitError) Unwrap() error { return e.Err }

func renderer(app *appctx.App, cmd *cobra.Command) *render.Renderer {
	return render.NewRenderer(cmd.OutOrStdout(), render.Options{Format: app.Output})
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func resolveBoard(app *appctx.App, selector string) (string, error) {
	r, err := selectors.ResolveBoard(app.DB, selector)
	if err != nil {
		return "", fmt.Errorf("failed to resolve board: %w", err)
	}
	return r.UUID, nil
}

func resolveColumn(app *appctx.App, boardUUID, selector string) (string, error) {
	r, err := selectors.ResolveColumn(app.DB, boardUUID, selector)
	if err != nil {
		return "", fmt.Errorf("failed to resolve column: %w", err)
	}
	return r.UUID, nil
}

func resolveTask(app *appctx.App, selector string) (string, error) {
	r, err := selectors.ResolveTask(app.DB, selector)
	if err != nil {
		return "", fmt.Errorf("failed to resolve task: %w", err)
	}
	return r.UUID, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
