package influxdb

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"

	"github.com/nerrad567/tsbuffer/internal/infrastructure/config"
	"github.com/nerrad567/tsbuffer/internal/lineproto"
)

// Default timeouts for InfluxDB operations.
const (
	defaultConnectTimeout = 10 * time.Second
	defaultPingTimeout    = 5 * time.Second
	defaultRequestTimeout = 5
)

// Client wraps the InfluxDB v2 client for tsbuffer.
//
// It provides connection management, blocking line protocol writes, Flux
// queries and health monitoring. Batching is done by the write buffer, so
// the client's own batching is left disabled and every WriteLines call is
// one HTTP request.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
type Client struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	queryAPI api.QueryAPI
	cfg      config.TargetConfig

	// connected tracks current connection state.
	connected bool
	mu        sync.RWMutex
}

// Connect establishes a connection to the InfluxDB server.
//
// It performs the following setup:
//  1. Creates the client with token authentication, precision and gzip settings
//  2. Verifies connectivity with a ping
//  3. Creates the blocking write API for org/bucket and the query API for org
//
// Parameters:
//   - ctx: Context for cancellation (used for the ping)
//   - cfg: Target configuration
//
// Returns:
//   - *Client: Connected client ready for use
//   - error: ErrConnectionFailed if the server cannot be reached
func Connect(ctx context.Context, cfg config.TargetConfig) (*Client, error) {
	precision, err := lineproto.ParsePrecision(cfg.Precision)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}

	// #nosec G115 -- timeout validated above to be positive
	client := influxdb2.NewClientWithOptions(
		strings.TrimRight(cfg.URL, "/"),
		cfg.Token,
		influxdb2.DefaultOptions().
			SetPrecision(precision.Duration()).
			SetUseGZip(cfg.GZip).
			SetHTTPRequestTimeout(uint(timeout)),
	)

	// Verify connectivity
	pingCtx, cancel := context.WithTimeout(ctx, defaultConnectTimeout)
	defer cancel()

	healthy, err := client.Ping(pingCtx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: ping failed: %w", ErrConnectionFailed, err)
	}
	if !healthy {
		client.Close()
		return nil, fmt.Errorf("%w: server not healthy", ErrConnectionFailed)
	}

	return &Client{
		client:    client,
		writeAPI:  client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
		queryAPI:  client.QueryAPI(cfg.Org),
		cfg:       cfg,
		connected: true,
	}, nil
}

// Close shuts down the InfluxDB client. Safe to call more than once.
//
// Returns:
//   - error: nil (InfluxDB client Close doesn't return errors)
func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}

	c.mu.Lock()
	wasConnected := c.connected
	c.connected = false
	c.mu.Unlock()

	if wasConnected {
		c.client.Close()
	}
	return nil
}

// HealthCheck verifies the InfluxDB connection is alive and functioning.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//
// Returns:
//   - error: nil if healthy, error describing the issue otherwise
func (c *Client) HealthCheck(ctx context.Context) error {
	if !c.IsConnected() {
		return ErrNotConnected
	}

	checkCtx, cancel := context.WithTimeout(ctx, defaultPingTimeout)
	defer cancel()

	healthy, err := c.client.Ping(checkCtx)
	if err != nil {
		return fmt.Errorf("influxdb health check failed: %w", err)
	}
	if !healthy {
		return fmt.Errorf("influxdb health check failed: server not healthy")
	}

	return nil
}

// IsConnected returns the current connection state.
//
// Note: This reflects the last known state. For reliability,
// use HealthCheck which performs an active ping.
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}

// Org returns the organisation queries and writes are scoped to.
func (c *Client) Org() string {
	return c.cfg.Org
}

// Bucket returns the bucket writes go to.
func (c *Client) Bucket() string {
	return c.cfg.Bucket
}

// WriteLines sends a newline-separated line protocol payload in one request.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - payload: Encoded batch, without a trailing newline
//
// Returns:
//   - error: ErrNotConnected after Close, ErrWriteFailed wrapping the
//     server error (an *http.Error from the client library) otherwise
func (c *Client) WriteLines(ctx context.Context, payload []byte) error {
	if !c.IsConnected() {
		return ErrNotConnected
	}
	if len(payload) == 0 {
		return nil
	}

	if err := c.writeAPI.WriteRecord(ctx, string(payload)); err != nil {
		return fmt.Errorf("%w: %w", ErrWriteFailed, err)
	}
	return nil
}

// Query runs a Flux query against the configured org.
//
// The caller must iterate or Close the returned result.
func (c *Client) Query(ctx context.Context, flux string) (*api.QueryTableResult, error) {
	if !c.IsConnected() {
		return nil, ErrNotConnected
	}

	result, err := c.queryAPI.Query(ctx, flux)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrQueryFailed, err)
	}
	return result, nil
}
