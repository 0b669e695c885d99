// Command localedb creates the LocaleDB schema and loads its datasets.
//
//	localedb [<host> <port> <user> <password> <dbname>] <command> [args]
//
// Without the positional connection parameters the database comes from
// DATABASE_URL. Every setting is read from the environment (and .env).
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/momacs/localedb/internal/config"
	"github.com/momacs/localedb/internal/logging"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

// run returns the process exit code: 0 on success, 1 on a usage error or
// a failed load.
func run(args []string) int {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Debug("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "localedb: %v\n", err)
		return 1
	}
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Debug("configuration loaded", "config", cfg.String())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a := newApp(cfg, os.Stdout)
	defer a.close()

	root := newRootCmd(a)
	conn, rest, err := splitConnArgs(args, commandNames(root))
	if err != nil {
		fmt.Fprintf(os.Stderr, "localedb: %v\nRun 'localedb --help' for usage.\n", err)
		return 1
	}
	if conn != nil {
		cfg.ApplyConn(*conn)
	}
	root.SetArgs(rest)

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "localedb: %s\n", describeError(err))
		return 1
	}
	return 0
}
