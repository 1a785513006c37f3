// Package appctx provides a shared bootstrap helper for CLI commands.
// It centralizes config loading, database opening, logger setup and user
// resolution to reduce boilerplate across commands.
package appctx

import (
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/lherron/wrkboard/internal/config"
	"github.com/lherron/wrkboard/internal/db"
	"github.com/lherron/wrkboard/internal/render"
	"github.com/lherron/wrkboard/internal/store"
)

// App holds the shared application context for commands.
type App struct {
	// Config is the loaded configuration
	Config *config.Config

	// DB is the opened database connection (nil if NeedsDB is false or the
	// command runs against a remote server)
	DB *db.DB

	// Store wraps DB (nil whenever DB is nil)
	Store *store.Store

	// User is the acting user (empty if NeedsUser is false)
	User string

	// Output is the requested output format
	Output render.Format

	// Logger writes diagnostics to stderr at the configured level
	Logger *log.Logger
}

// Close releases resources held by the App.
// Safe to call multiple times.
func (a *App) Close() {
	if a.DB != nil {
		a.DB.Close()
		a.DB = nil
		a.Store = nil
	}
}

// Remote returns the wrkboardd URL commands should talk to, if any.
func (a *App) Remote() string {
	return a.Config.Remote
}

// Options configures the bootstrap behavior.
type Options struct {
	// NeedsDB indicates whether to open the database.
	NeedsDB bool

	// NeedsUser indicates whether an acting user is required.
	NeedsUser bool

	// RemoteOK skips opening the database when a remote server is
	// configured; the command talks to the server instead.
	RemoteOK bool
}

// DefaultOptions returns default options (DB required, no user).
func DefaultOptions() Options {
	return Options{NeedsDB: true}
}

// WithUser returns options that require both DB and an acting user.
func WithUser() Options {
	return Options{NeedsDB: true, NeedsUser: true}
}

// RunFunc is the signature for command run functions.
type RunFunc func(app *App, cmd *cobra.Command, args []string) error

// WithApp wraps a command's run function with shared bootstrap logic.
// The database is closed automatically when the wrapped function returns.
func WithApp(opts Options, fn RunFunc) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		app, err := Bootstrap(cmd, opts)
		if err != nil {
			return err
		}
		defer app.Close()

		return fn(app, cmd, args)
	}
}

// Bootstrap initializes the App according to the given options.
// Callers are responsible for calling App.Close() when done.
func Bootstrap(cmd *cobra.Command, opts Options) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	app := &App{Config: cfg}

	if v := flagValue(cmd, "db"); v != "" {
		cfg.DBPath = v
	}
	if v := flagValue(cmd, "remote"); v != "" {
		cfg.Remote = v
	}
	if v := flagValue(cmd, "output"); v != "" {
		cfg.Output = v
	}

	app.Output, err = render.ParseFormat(cfg.Output)
	if err != nil {
		return nil, err
	}

	app.Logger = log.New()
	app.Logger.SetOutput(os.Stderr)
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.LogLevel, err)
	}
	app.Logger.SetLevel(level)

	if opts.NeedsUser {
		app.User = flagValue(cmd, "as")
		if app.User == "" {
			app.User = cfg.User()
		}
		if app.User == "" {
			return nil, fmt.Errorf("no user configured (set WRKBOARD_USER or use --as flag)")
		}
	}

	if opts.NeedsDB && !(opts.RemoteOK && cfg.Remote != "") {
		database, err := db.Open(cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		if err := database.RequiresMigrationError(); err != nil {
			database.Close()
			return nil, err
		}
		app.DB = database
		app.Store = store.New(database)
	}

	return app, nil
}

func flagValue(cmd *cobra.Command, name string) string {
	if f := cmd.Flag(name); f != nil {
		return f.Value.String()
	}
	return ""
}
