package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/nerrad567/tsbuffer/internal/buffer"
	"github.com/nerrad567/tsbuffer/internal/infrastructure/config"
	"github.com/nerrad567/tsbuffer/internal/infrastructure/database"
	"github.com/nerrad567/tsbuffer/internal/infrastructure/influxdb"
	"github.com/nerrad567/tsbuffer/internal/infrastructure/logging"
	"github.com/nerrad567/tsbuffer/internal/journal"
	"github.com/nerrad567/tsbuffer/internal/query"
	"github.com/nerrad567/tsbuffer/internal/transport"
	"github.com/nerrad567/tsbuffer/migrations"
)

// app holds what every command needs: configuration and a logger.
type app struct {
	cfg *config.Config
	log *logging.Logger
}

// loadApp reads configuration and builds the logger.
func loadApp(configPath string) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	log := logging.New(cfg.Logging, version)
	log.Debug("configuration loaded",
		"path", configPath,
		"backend", cfg.Target.Backend,
	)

	return &app{cfg: cfg, log: log}, nil
}

// Close releases the logger.
func (a *app) Close() {
	_ = a.log.Close() //nolint:errcheck // Nothing useful to do on exit
}

// openJournal opens the journal database and applies migrations.
func (a *app) openJournal(ctx context.Context) (*database.DB, error) {
	db, err := database.Open(ctx, a.cfg.Journal)
	if err != nil {
		return nil, fmt.Errorf("opening journal: %w", err)
	}
	if err := db.Migrate(ctx, migrations.FS); err != nil {
		db.Close() //nolint:errcheck // Best effort cleanup on error path
		return nil, fmt.Errorf("running journal migrations: %w", err)
	}
	return db, nil
}

// healthCheck verifies every connection a command is about to use.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - tr: Transport to check (connectionless backends always pass; may be nil)
//   - db: Journal database to check (may be nil if disabled)
//   - influxClient: Query client to check (may be nil)
//
// Returns:
//   - error: First health check failure, or nil if all healthy
func healthCheck(ctx context.Context, tr transport.Transport, db *database.DB, influxClient *influxdb.Client) error {
	if tr != nil {
		if err := transport.HealthCheck(ctx, tr); err != nil {
			return fmt.Errorf("transport: %w", err)
		}
	}

	if db != nil {
		if err := db.HealthCheck(ctx); err != nil {
			return fmt.Errorf("journal: %w", err)
		}
	}

	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	return nil
}

// pipeline is a buffer wired to its transport and, optionally, the journal.
type pipeline struct {
	buf    *buffer.Buffer
	db     *database.DB
	record func(buffer.Result, error)
}

// newPipeline builds the configured transport and a buffer on top of it.
// Flush errors from the scheduler are logged; when the journal is enabled
// every flush is recorded.
func (a *app) newPipeline(ctx context.Context) (*pipeline, error) {
	opts, err := buffer.OptionsFromConfig(a.cfg, a.log)
	if err != nil {
		return nil, err
	}

	tr, err := transport.FromConfig(ctx, a.cfg, a.log)
	if err != nil {
		return nil, fmt.Errorf("creating %s transport: %w", a.cfg.Target.Backend, err)
	}

	buf, err := buffer.New(tr, opts)
	if err != nil {
		tr.Close() //nolint:errcheck // Best effort cleanup on error path
		return nil, fmt.Errorf("creating buffer: %w", err)
	}

	p := &pipeline{buf: buf}

	buf.SetOnError(func(err error) {
		a.log.Error("scheduled flush failed", "error", err)
	})

	if a.cfg.Journal.Enabled {
		db, err := a.openJournal(ctx)
		if err != nil {
			buf.Close(ctx) //nolint:errcheck // Best effort cleanup on error path
			return nil, err
		}
		p.db = db
		p.record = journal.Recorder(journal.NewSQLiteRepository(db.DB), a.log, a.cfg.GetWriteTimeout())
		p.OnFlush(nil)
		a.log.Info("flush journal enabled", "path", db.Path())
	}

	if err := healthCheck(ctx, tr, p.db, nil); err != nil {
		p.Close(ctx) //nolint:errcheck // Best effort cleanup on error path
		return nil, fmt.Errorf("health check failed: %w", err)
	}

	a.log.Info("buffer ready",
		"backend", a.cfg.Target.Backend,
		"batch_size", opts.BatchSize,
		"flush_interval", opts.FlushInterval.String(),
		"failure_policy", opts.FailurePolicy.String(),
		"precision", string(opts.Precision),
	)

	return p, nil
}

// OnFlush installs a flush callback, keeping the journal recorder first
// when the journal is enabled. A nil callback leaves only the recorder.
func (p *pipeline) OnFlush(callback func(buffer.Result, error)) {
	record := p.record
	switch {
	case record == nil:
		p.buf.SetOnFlush(callback)
	case callback == nil:
		p.buf.SetOnFlush(record)
	default:
		p.buf.SetOnFlush(func(res buffer.Result, err error) {
			record(res, err)
			callback(res, err)
		})
	}
}

// Close performs the final flush, then closes the transport and journal.
func (p *pipeline) Close(ctx context.Context) error {
	err := p.buf.Close(ctx)
	if p.db != nil {
		if dbErr := p.db.Close(); dbErr != nil {
			err = errors.Join(err, dbErr)
		}
	}
	return err
}

// newQueryRunner connects an InfluxDB client for Flux queries.
// The caller closes the returned client.
func (a *app) newQueryRunner(ctx context.Context) (*query.Runner, *influxdb.Client, error) {
	if a.cfg.Target.Org == "" {
		return nil, nil, errors.New("target.org is required for queries")
	}
	client, err := influxdb.Connect(ctx, a.cfg.Target)
	if err != nil {
		return nil, nil, err
	}
	return query.NewRunner(client), client, nil
}
