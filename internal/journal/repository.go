// Package journal records flush outcomes in the flush_journal table so
// operators can see what the buffer sent, requeued or dropped.
//
// Only batch metadata is stored. Points themselves are never persisted.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/tsbuffer/internal/buffer"
	"github.com/nerrad567/tsbuffer/internal/infrastructure/logging"
)

// List limits.
const (
	DefaultLimit = 50
	MaxLimit     = 200

	defaultRecordTimeout = 5 * time.Second

	// createdAtLayout is fixed-width so created_at sorts as text.
	createdAtLayout = "2006-01-02T15:04:05.000000000Z"
)

// Entry is one recorded flush.
type Entry struct {
	ID         string         `json:"id"`
	BatchID    string         `json:"batch_id"`
	Outcome    buffer.Outcome `json:"outcome"`
	Points     int            `json:"points"`
	Bytes      int            `json:"bytes"`
	DurationMS int64          `json:"duration_ms"`
	Error      string         `json:"error,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}

// Repository stores and lists flush journal entries.
type Repository interface {
	Create(ctx context.Context, entry *Entry) error
	List(ctx context.Context, limit int) ([]Entry, error)
}

// SQLiteRepository persists entries in SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new journal repository.
// The flush_journal migration must already be applied.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// EntryFromResult builds an entry from a flush result and its error.
func EntryFromResult(res buffer.Result, flushErr error) *Entry {
	e := &Entry{
		BatchID:    res.BatchID,
		Outcome:    res.Outcome,
		Points:     res.Points,
		Bytes:      res.Bytes,
		DurationMS: res.Duration.Milliseconds(),
	}
	if flushErr != nil {
		e.Error = flushErr.Error()
	}
	return e
}

// Create inserts an entry. The ID and CreatedAt are generated if empty.
func (r *SQLiteRepository) Create(ctx context.Context, entry *Entry) error {
	if entry.ID == "" {
		entry.ID = "jrn-" + uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO flush_journal (id, batch_id, outcome, points, bytes, duration_ms, error, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.BatchID, string(entry.Outcome),
		entry.Points, entry.Bytes, entry.DurationMS,
		nullableString(entry.Error),
		entry.CreatedAt.UTC().Format(createdAtLayout),
	)
	if err != nil {
		return fmt.Errorf("inserting journal entry: %w", err)
	}

	return nil
}

// nullableString maps "" to SQL NULL.
func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// List returns up to limit entries, most recent first.
// A non-positive limit means DefaultLimit; limits above MaxLimit are clamped.
func (r *SQLiteRepository) List(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, batch_id, outcome, points, bytes, duration_ms, error, created_at
		 FROM flush_journal ORDER BY created_at DESC, rowid DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying journal: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var e Entry
		var outcome, createdAt string
		var errText sql.NullString

		if err := rows.Scan(&e.ID, &e.BatchID, &outcome, &e.Points, &e.Bytes,
			&e.DurationMS, &errText, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning journal entry: %w", err)
		}

		e.Outcome = buffer.Outcome(outcome)
		if errText.Valid {
			e.Error = errText.String
		}

		t, err := time.Parse(createdAtLayout, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parsing journal timestamp %q: %w", createdAt, err)
		}
		e.CreatedAt = t

		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating journal: %w", err)
	}

	return entries, nil
}

// Recorder returns a buffer.SetOnFlush callback that journals every flush.
// Recording failures are logged and never reach the buffer.
func Recorder(repo Repository, logger *logging.Logger, timeout time.Duration) func(buffer.Result, error) {
	if logger == nil {
		logger = logging.Discard()
	}
	if timeout <= 0 {
		timeout = defaultRecordTimeout
	}
	return func(res buffer.Result, flushErr error) {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		if err := repo.Create(ctx, EntryFromResult(res, flushErr)); err != nil {
			logger.Warn("recording flush in journal failed",
				"batch_id", res.BatchID,
				"error", err,
			)
		}
	}
}
