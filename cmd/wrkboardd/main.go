package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/lherron/wrkboard/internal/cli"
)

func main() {
	addr := flag.String("addr", os.Getenv("WRKBOARD_ADDR"), "Listen address (default 127.0.0.1:7272)")
	unixPath := flag.String("unix", os.Getenv("WRKBOARD_UNIX"), "Listen on unix socket path")
	token := flag.String("token", "", "Shared token for auth (default WRKBOARD_TOKEN)")
	dbPath := flag.String("db", "", "Database path override (defaults to config)")
	redisURL := flag.String("redis", "", "Redis URL for the columns cache (default WRKBOARD_REDIS_URL)")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := cli.DaemonOptions{
		Addr:     *addr,
		Unix:     *unixPath,
		Token:    *token,
		DBPath:   *dbPath,
		RedisURL: *redisURL,
	}
	if err := cli.ServeDaemon(ctx, opts); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
