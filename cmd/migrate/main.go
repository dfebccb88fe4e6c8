package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/glowup/internal/storage/postgres"
)

const (
	defaultTimeout = 30 * time.Second
	envPostgresDSN = "GLOWUP_POSTGRES_DSN"
)

// migrator управляет схемой KV-таблицы.
type migrator interface {
	MigrateUp(ctx context.Context, steps int) error
	MigrateDown(ctx context.Context, steps int) error
	MigrationStatus(ctx context.Context) (int64, int, error)
	Close() error
}

type options struct {
	direction string
	steps     int
	dsn       string
}

func parseOptions(args []string, lookup func(string) (string, bool)) (options, error) {
	var opts options
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&opts.direction, "direction", "up", "migration direction: up|down|status")
	fs.IntVar(&opts.steps, "steps", 0, "number of migrations to apply/rollback (0=all for up, 1 for down)")
	fs.StringVar(&opts.dsn, "dsn", "", "PostgreSQL DSN (fallback: "+envPostgresDSN+")")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}

	opts.direction = strings.ToLower(strings.TrimSpace(opts.direction))
	switch opts.direction {
	case "up", "down", "status":
	default:
		return options{}, fmt.Errorf("unsupported direction: %s (use up|down|status)", opts.direction)
	}

	opts.dsn = strings.TrimSpace(opts.dsn)
	if opts.dsn == "" {
		if v, ok := lookup(envPostgresDSN); ok {
			opts.dsn = strings.TrimSpace(v)
		}
	}
	if opts.dsn == "" {
		return options{}, errors.New(envPostgresDSN + " (or -dsn) is required")
	}
	if opts.direction == "down" && opts.steps <= 0 {
		opts.steps = 1
	}
	return opts, nil
}

// run применяет миграции и возвращает итоговую версию схемы.
func run(ctx context.Context, m migrator, opts options) (int64, int, error) {
	switch opts.direction {
	case "up":
		if err := m.MigrateUp(ctx, opts.steps); err != nil {
			return 0, 0, fmt.Errorf("migrate up: %w", err)
		}
	case "down":
		if err := m.MigrateDown(ctx, opts.steps); err != nil {
			return 0, 0, fmt.Errorf("migrate down: %w", err)
		}
	}

	version, count, err := m.MigrationStatus(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("migration status: %w", err)
	}
	return version, count, nil
}

func main() {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})

	opts, err := parseOptions(os.Args[1:], os.LookupEnv)
	if err != nil {
		log.WithError(err).Fatal("invalid arguments")
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	store, err := postgres.Open(ctx, opts.dsn)
	if err != nil {
		log.WithError(err).Fatal("open postgres store")
	}
	defer store.Close()

	version, count, err := run(ctx, store, opts)
	if err != nil {
		store.Close()
		log.WithError(err).Fatal("migration failed")
	}

	log.WithFields(log.Fields{
		"direction": opts.direction,
		"version":   version,
		"applied":   count,
	}).Info("migration finished")
}
