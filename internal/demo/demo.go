// Package demo runs the write-then-query scenario behind "tsbuffer demo":
// a handful of points spaced on a ticker, one flush after the last, then an
// aggregate Flux query whose rows are printed.
package demo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/nerrad567/tsbuffer/internal/buffer"
	"github.com/nerrad567/tsbuffer/internal/infrastructure/config"
	"github.com/nerrad567/tsbuffer/internal/lineproto"
	"github.com/nerrad567/tsbuffer/internal/query"
)

// Sink accepts points and flushes them on demand. *buffer.Buffer satisfies it.
type Sink interface {
	WritePoint(p *lineproto.Point) error
	Flush(ctx context.Context) (buffer.Result, error)
}

// QueryRunner streams query rows. *query.Runner satisfies it.
type QueryRunner interface {
	Run(ctx context.Context, flux string, obs query.Observer) error
}

// Report summarises a demo run.
type Report struct {
	Submitted int
	Flush     buffer.Result
	Rows      int
}

// AggregateQuery builds the mean-over-ten-minutes query for a measurement.
func AggregateQuery(bucket, measurement string) string {
	return fmt.Sprintf(`from(bucket: %q)
 |> range(start: -10m)
 |> filter(fn: (r) => r._measurement == %q)
 |> mean()`, bucket, measurement)
}

// Run executes the scenario.
//
// Point i carries field value i and is stamped with its submission time. The
// first point is submitted immediately and each following one on the next
// tick of cfg.Demo.Interval. Cancelling ctx stops the ticker and returns
// ctx.Err() without flushing.
//
// Parameters:
//   - ctx: Cancels submissions, the flush and the query
//   - sink: Buffer receiving the points
//   - runner: Query collaborator for the aggregate query
//   - cfg: Demo settings plus the target bucket
//   - out: Where rows and the final status line are printed
//
// Returns:
//   - Report: What was submitted, flushed and read back
//   - error: Submission, flush or query failure
func Run(ctx context.Context, sink Sink, runner QueryRunner, cfg *config.Config, out io.Writer) (Report, error) {
	var report Report
	demo := cfg.Demo

	if err := submit(ctx, sink, demo, cfg.GetDemoInterval(), &report); err != nil {
		return report, err
	}

	res, err := sink.Flush(ctx)
	report.Flush = res
	if err != nil {
		fmt.Fprintf(out, "\nError %v\n", err)
		return report, fmt.Errorf("flushing demo points: %w", err)
	}

	flux := demo.Query
	if flux == "" {
		flux = AggregateQuery(cfg.Target.Bucket, demo.Measurement)
	}

	err = runner.Run(ctx, flux, query.Observer{
		OnRow: func(row query.Row) error {
			report.Rows++
			return printRow(out, row)
		},
		OnError: func(err error) {
			fmt.Fprintf(out, "\nError %v\n", err)
		},
		OnComplete: func() {
			fmt.Fprintln(out, "\nSuccess")
		},
	})
	if err != nil {
		return report, fmt.Errorf("running demo query: %w", err)
	}

	return report, nil
}

func submit(ctx context.Context, sink Sink, demo config.DemoConfig, interval time.Duration, report *Report) error {
	if demo.Points <= 0 {
		return nil
	}

	var tick <-chan time.Time
	if interval > 0 {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for i := 0; i < demo.Points; i++ {
		if i > 0 && tick != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-tick:
			}
		} else if err := ctx.Err(); err != nil {
			return err
		}

		p := lineproto.NewPoint(demo.Measurement).
			AddTag(demo.TagKey, demo.TagValue).
			IntField(demo.Field, int64(i)).
			SetTime(time.Now())
		if err := sink.WritePoint(p); err != nil {
			return fmt.Errorf("submitting demo point %d: %w", i, err)
		}
		report.Submitted++
	}

	return nil
}

// printRow writes the row's columns as one JSON object, like the table
// objects the query API hands back.
func printRow(out io.Writer, row query.Row) error {
	b, err := json.Marshal(row.Values)
	if err != nil {
		return fmt.Errorf("encoding row: %w", err)
	}
	_, err = fmt.Fprintln(out, string(b))
	return err
}
