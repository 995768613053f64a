package query

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api"
	fluxquery "github.com/influxdata/influxdb-client-go/v2/api/query"
)

var (
	// ErrEmptyQuery indicates a blank query string.
	ErrEmptyQuery = errors.New("query: empty query")

	// ErrStopped wraps the error an OnRow callback used to stop iteration.
	ErrStopped = errors.New("query: stopped by row handler")
)

// Source executes Flux queries. *influxdb.Client implements it.
type Source interface {
	Query(ctx context.Context, flux string) (*api.QueryTableResult, error)
}

// Row is one record of a query result.
type Row struct {
	// Table is the index of the result table the row belongs to.
	Table       int
	Time        time.Time
	Measurement string
	Field       string
	Value       interface{}

	// Values holds every column of the row by name.
	Values map[string]interface{}
}

// Observer receives the rows of one query. Nil callbacks are skipped.
type Observer struct {
	// OnRow is called per row. Returning an error stops the query and
	// delivers the error to OnError.
	OnRow      func(row Row) error
	OnError    func(err error)
	OnComplete func()
}

// Runner runs queries against a Source.
type Runner struct {
	source Source
}

// NewRunner creates a Runner.
func NewRunner(source Source) *Runner {
	return &Runner{source: source}
}

// Run executes flux and pushes the results to obs.
//
// Exactly one of OnError or OnComplete is called, and Run returns the same
// error that was passed to OnError (nil after OnComplete).
func (r *Runner) Run(ctx context.Context, flux string, obs Observer) error {
	err := r.run(ctx, flux, obs.OnRow)
	if err != nil {
		if obs.OnError != nil {
			obs.OnError(err)
		}
		return err
	}
	if obs.OnComplete != nil {
		obs.OnComplete()
	}
	return nil
}

func (r *Runner) run(ctx context.Context, flux string, onRow func(Row) error) error {
	if strings.TrimSpace(flux) == "" {
		return ErrEmptyQuery
	}

	result, err := r.source.Query(ctx, flux)
	if err != nil {
		return err
	}
	defer result.Close()

	for result.Next() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if onRow == nil {
			continue
		}
		if err := onRow(rowFromRecord(result.Record())); err != nil {
			return fmt.Errorf("%w: %w", ErrStopped, err)
		}
	}

	if err := result.Err(); err != nil {
		return fmt.Errorf("query: reading result: %w", err)
	}
	return nil
}

// Collect runs flux and returns all rows.
func (r *Runner) Collect(ctx context.Context, flux string) ([]Row, error) {
	var rows []Row
	err := r.Run(ctx, flux, Observer{
		OnRow: func(row Row) error {
			rows = append(rows, row)
			return nil
		},
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func rowFromRecord(rec *fluxquery.FluxRecord) Row {
	return Row{
		Table:       rec.Table(),
		Time:        rec.Time(),
		Measurement: rec.Measurement(),
		Field:       rec.Field(),
		Value:       rec.Value(),
		Values:      rec.Values(),
	}
}
