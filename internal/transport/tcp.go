package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"
)

// TCP writes each batch over a fresh TCP connection, newline-terminated, as
// Telegraf's socket_listener expects.
type TCP struct {
	addr   string
	dialer net.Dialer
}

// NewTCP creates a TCP transport for host:port. A "tcp://" prefix is accepted.
func NewTCP(endpoint string, timeout time.Duration) (*TCP, error) {
	addr := strings.TrimPrefix(endpoint, "tcp://")
	if _, _, err := net.SplitHostPort(addr); err != nil {
		return nil, fmt.Errorf("tcp transport: invalid endpoint %q: %w", endpoint, err)
	}
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}
	return &TCP{addr: addr, dialer: net.Dialer{Timeout: timeout}}, nil
}

// Write implements Transport.
func (t *TCP) Write(ctx context.Context, payload []byte) (err error) {
	conn, err := t.dialer.DialContext(ctx, "tcp", t.addr)
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	defer func() {
		if cerr := conn.Close(); cerr != nil {
			err = errors.Join(err, fmt.Errorf("failed to close: %w", cerr))
		}
	}()

	if deadline, ok := ctx.Deadline(); ok {
		if err := conn.SetWriteDeadline(deadline); err != nil {
			return fmt.Errorf("failed to set deadline: %w", err)
		}
	}

	buf := make([]byte, 0, len(payload)+1)
	buf = append(append(buf, payload...), '\n')
	if _, err := conn.Write(buf); err != nil {
		return fmt.Errorf("failed to write: %w", err)
	}
	return nil
}

// Close implements Transport. Connections are per-write, so there is nothing to release.
func (t *TCP) Close() error {
	return nil
}
