package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"github.com/lherron/wrkboard/internal/api"
	"github.com/lherron/wrkboard/internal/config"
	"github.com/lherron/wrkboard/internal/db"
	"github.com/lherron/wrkboard/internal/store"
)

// DaemonOptions configures the wrkboardd daemon. Empty fields fall back to
// the loaded configuration.
type DaemonOptions struct {
	Addr     string
	Unix     string
	Token    string
	DBPath   string
	RedisURL string
}

// ServeDaemon runs wrkboardd until ctx is cancelled.
func ServeDaemon(ctx context.Context, opts DaemonOptions) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if opts.DBPath != "" {
		cfg.DBPath = opts.DBPath
	}
	if opts.Addr != "" {
		cfg.Addr = opts.Addr
	}
	if opts.Token != "" {
		cfg.Token = opts.Token
	}
	if opts.RedisURL != "" {
		cfg.RedisURL = opts.RedisURL
	}

	logger := log.New()
	if level, err := log.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(level)
	}
	logger.SetFormatter(&log.TextFormatter{FullTimestamp: true})

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer database.Close()
	if err := database.RequiresMigrationError(); err != nil {
		return err
	}

	var rdb *redis.Client
	if cfg.RedisURL != "" {
		redisOpts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("invalid redis url: %w", err)
		}
		rdb = redis.NewClient(redisOpts)
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.WithError(err).Warn("redis unreachable; serving columns uncached until it recovers")
		}
	}

	handler := api.New(store.New(database), api.Options{
		Token:       cfg.Token,
		DefaultUser: cfg.DefaultUser,
		Redis:       rdb,
		CacheTTL:    cfg.CacheTTL,
		Logger:      logger,
	})
	httpServer := &http.Server{
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	var listener net.Listener
	if opts.Unix != "" {
		_ = os.Remove(opts.Unix)
		listener, err = net.Listen("unix", opts.Unix)
	} else {
		listener, err = net.Listen("tcp", cfg.Addr)
	}
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}

	logger.WithFields(log.Fields{
		"addr":  listener.Addr().String(),
		"db":    database.Path(),
		"redis": rdb != nil,
		"auth":  cfg.Token != "",
	}).Info("wrkboardd listening")

	errCh := make(chan error, 1)
	go func() { errCh <- httpServer.Serve(listener) }()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}
