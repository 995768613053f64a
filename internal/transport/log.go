package transport

import (
	"bytes"
	"context"

	"github.com/nerrad567/tsbuffer/internal/infrastructure/logging"
)

// Log writes every line to the logger instead of a server.
type Log struct {
	logger *logging.Logger
}

// NewLog creates a dry-run transport.
func NewLog(logger *logging.Logger) *Log {
	return &Log{logger: logger.With("component", "transport.log")}
}

// Write implements Transport.
func (t *Log) Write(ctx context.Context, payload []byte) error {
	for _, line := range bytes.Split(payload, []byte("\n")) {
		if len(line) == 0 {
			continue
		}
		t.logger.InfoContext(ctx, "line protocol", "line", string(line))
	}
	return nil
}

// Close implements Transport.
func (t *Log) Close() error {
	return nil
}
