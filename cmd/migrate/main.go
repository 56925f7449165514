package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-grading-api/pkg/config"
	"github.com/noah-isme/sma-grading-api/pkg/database"
	"github.com/noah-isme/sma-grading-api/pkg/logger"
)

const usage = `usage: migrate <command> [args]

commands:
  up             apply all pending migrations
  down [steps]   roll back migrations (default 1)
  version        print the applied schema version
  force <v>      record version v without running migrations`

func main() {
	flag.Usage = func() { fmt.Fprintln(os.Stderr, usage) }
	flag.Parse()
	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Errorf("failed to load config: %w", err))
	}

	logr, err := logger.New(cfg)
	if err != nil {
		panic(fmt.Errorf("failed to init logger: %w", err))
	}
	defer func() { _ = logr.Sync() }()

	if err := run(cfg, flag.Args(), logr); err != nil {
		logr.Fatal("migration failed", zap.Error(err))
	}
}

func run(cfg *config.Config, args []string, logr *zap.Logger) error {
	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer db.Close() //nolint:errcheck

	migrator, err := database.NewMigrator(db.DB, cfg.Database.MigrationsDir)
	if err != nil {
		return err
	}

	switch args[0] {
	case "up":
		if err := migrator.Up(); err != nil {
			return err
		}
	case "down":
		steps := 1
		if len(args) > 1 {
			if steps, err = strconv.Atoi(args[1]); err != nil {
				return fmt.Errorf("invalid steps %q", args[1])
			}
		}
		if err := migrator.Down(steps); err != nil {
			return err
		}
	case "version":
	case "force":
		if len(args) < 2 {
			return fmt.Errorf("force requires a version")
		}
		v, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid version %q", args[1])
		}
		if err := migrator.Force(v); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown command %q", args[0])
	}

	version, dirty, err := migrator.Version()
	if err != nil {
		return err
	}
	logr.Info("schema version", zap.Uint("version", version), zap.Bool("dirty", dirty))
	return nil
}
