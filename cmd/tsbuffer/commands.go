package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync/atomic"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/nerrad567/tsbuffer/internal/buffer"
	"github.com/nerrad567/tsbuffer/internal/demo"
	"github.com/nerrad567/tsbuffer/internal/infrastructure/database"
	"github.com/nerrad567/tsbuffer/internal/infrastructure/influxdb"
	"github.com/nerrad567/tsbuffer/internal/journal"
	"github.com/nerrad567/tsbuffer/internal/lineproto"
	"github.com/nerrad567/tsbuffer/internal/query"
	"github.com/nerrad567/tsbuffer/internal/transport"
	"github.com/nerrad567/tsbuffer/migrations"
)

// closeTimeout bounds the final flush on exit. It is independent of the
// command context so a cancelled run still delivers what it buffered.
const closeTimeout = 30 * time.Second

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "tsbuffer",
		Short:         "Buffered line protocol writer for InfluxDB-compatible servers",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to the configuration file (or TSBUFFER_CONFIG)")

	load := func() (*app, error) {
		return loadApp(getConfigPath(configPath))
	}

	root.AddCommand(
		newDemoCmd(load),
		newWriteCmd(load),
		newQueryCmd(load),
		newJournalCmd(load),
		newHealthCmd(load),
		newVersionCmd(),
	)

	return root
}

type loader func() (*app, error)

func newDemoCmd(load loader) *cobra.Command {
	return &cobra.Command{
		Use:   "demo",
		Short: "Write demo points one interval apart, flush, then run an aggregate query",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) (err error) {
			a, err := load()
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()

			runner, client, err := a.newQueryRunner(ctx)
			if err != nil {
				return err
			}
			defer client.Close() //nolint:errcheck // Best effort on exit

			p, err := a.newPipeline(ctx)
			if err != nil {
				return err
			}
			defer func() {
				closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), closeTimeout)
				defer cancel()
				if closeErr := p.Close(closeCtx); closeErr != nil && err == nil {
					err = fmt.Errorf("closing buffer: %w", closeErr)
				}
			}()

			report, err := demo.Run(ctx, p.buf, runner, a.cfg, cmd.OutOrStdout())
			a.log.Info("demo finished",
				"submitted", report.Submitted,
				"flushed", report.Flush.Points,
				"rows", report.Rows,
			)
			return err
		},
	}
}

func newWriteCmd(load loader) *cobra.Command {
	var files []string

	cmd := &cobra.Command{
		Use:   "write --file FILE [--file FILE...]",
		Short: "Decode line protocol files and send them through the buffer",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) (err error) {
			a, err := load()
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()
			p, err := a.newPipeline(ctx)
			if err != nil {
				return err
			}

			var flushed, failed atomic.Int64
			p.OnFlush(func(res buffer.Result, flushErr error) {
				if flushErr != nil {
					failed.Add(int64(res.Points))
					return
				}
				flushed.Add(int64(res.Points))
			})

			submitted, writeErr := submitFiles(ctx, p.buf, files, a.cfg.Target.Precision)

			closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), closeTimeout)
			defer cancel()
			closeErr := p.Close(closeCtx)

			fmt.Fprintf(cmd.OutOrStdout(), "submitted %d points from %d files, sent %d, failed %d\n",
				submitted, len(files), flushed.Load(), failed.Load())

			if writeErr != nil {
				return writeErr
			}
			if closeErr != nil {
				return fmt.Errorf("final flush: %w", closeErr)
			}
			return nil
		},
	}

	cmd.Flags().StringArrayVarP(&files, "file", "f", nil, "line protocol file to send (repeatable)")
	_ = cmd.MarkFlagRequired("file") //nolint:errcheck // Flag is defined above

	return cmd
}

// submitFiles decodes each file concurrently and submits its points.
// Each file is submitted with a single all-or-nothing WritePoints call.
func submitFiles(ctx context.Context, buf *buffer.Buffer, files []string, precision string) (int64, error) {
	prec, err := lineproto.ParsePrecision(precision)
	if err != nil {
		return 0, err
	}

	var submitted atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	for _, file := range files {
		file := file
		g.Go(func() error {
			data, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("reading %s: %w", file, err)
			}
			if err := gctx.Err(); err != nil {
				return err
			}

			points, err := lineproto.Decode(data, prec)
			if err != nil {
				return fmt.Errorf("%s: %w", file, err)
			}
			if err := buf.WritePoints(points...); err != nil {
				return fmt.Errorf("%s: %w", file, err)
			}
			submitted.Add(int64(len(points)))
			return nil
		})
	}

	err = g.Wait()
	return submitted.Load(), err
}

func newQueryCmd(load loader) *cobra.Command {
	return &cobra.Command{
		Use:   "query FLUX",
		Short: "Run a Flux query and print each row as a JSON line",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := load()
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()
			runner, client, err := a.newQueryRunner(ctx)
			if err != nil {
				return err
			}
			defer client.Close() //nolint:errcheck // Best effort on exit

			enc := json.NewEncoder(cmd.OutOrStdout())
			return runner.Run(ctx, args[0], query.Observer{
				OnRow: func(row query.Row) error {
					return enc.Encode(row.Values)
				},
			})
		},
	}
}

func newJournalCmd(load loader) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "journal",
		Short: "Show recent flushes recorded in the journal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := load()
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()
			db, err := a.openJournal(ctx)
			if err != nil {
				return err
			}
			defer db.Close() //nolint:errcheck // Read-only use

			entries, err := journal.NewSQLiteRepository(db.DB).List(ctx, limit)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "TIME\tBATCH\tOUTCOME\tPOINTS\tBYTES\tDURATION\tERROR")
			for _, e := range entries {
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%dms\t%s\n",
					e.CreatedAt.Format(time.RFC3339),
					e.BatchID,
					e.Outcome,
					e.Points,
					e.Bytes,
					e.DurationMS,
					e.Error,
				)
			}
			return w.Flush()
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", journal.DefaultLimit, "number of entries to show (max 200)")
	cmd.AddCommand(newJournalRollbackCmd(load))

	return cmd
}

func newJournalRollbackCmd(load loader) *cobra.Command {
	return &cobra.Command{
		Use:   "rollback",
		Short: "Roll back the most recent journal migration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := load()
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()
			db, err := database.Open(ctx, a.cfg.Journal)
			if err != nil {
				return fmt.Errorf("opening journal: %w", err)
			}
			defer db.Close() //nolint:errcheck // Best effort on exit

			if err := db.MigrateDown(ctx, migrations.FS); err != nil {
				return fmt.Errorf("rolling back journal migration: %w", err)
			}

			applied, pending, err := db.GetMigrationStatus(ctx, migrations.FS)
			if err != nil {
				return err
			}
			a.log.Info("journal migration rolled back", "path", db.Path())
			fmt.Fprintf(cmd.OutOrStdout(), "rolled back: %d applied, %d pending\n", len(applied), len(pending))
			return nil
		},
	}
}

func newHealthCmd(load loader) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check the transport, the journal and the query connection",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := load()
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			var failed []error

			report := func(name string, err error) {
				if err != nil {
					fmt.Fprintf(out, "%s: %v\n", name, err)
					failed = append(failed, fmt.Errorf("%s: %w", name, err))
					return
				}
				fmt.Fprintf(out, "%s: ok\n", name)
			}

			name := "transport " + a.cfg.Target.Backend
			tr, err := transport.FromConfig(ctx, a.cfg, a.log)
			if err == nil {
				err = healthCheck(ctx, tr, nil, nil)
				tr.Close() //nolint:errcheck // Checked only
			}
			report(name, err)

			if a.cfg.Journal.Enabled {
				db, err := a.openJournal(ctx)
				if err == nil {
					err = healthCheck(ctx, nil, db, nil)
					db.Close() //nolint:errcheck // Checked only
				}
				report("journal", err)
			}

			if a.cfg.Target.Org != "" {
				client, err := influxdb.Connect(ctx, a.cfg.Target)
				name := fmt.Sprintf("query (org %q, bucket %q)", a.cfg.Target.Org, a.cfg.Target.Bucket)
				if err == nil {
					name = fmt.Sprintf("query (org %q, bucket %q)", client.Org(), client.Bucket())
					err = healthCheck(ctx, nil, nil, client)
					client.Close() //nolint:errcheck // Checked only
				}
				report(name, err)
			}

			return errors.Join(failed...)
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "tsbuffer %s (commit %s, built %s)\n", version, commit, date)
		},
	}
}
