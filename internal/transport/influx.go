package transport

import (
	"context"

	"github.com/nerrad567/tsbuffer/internal/infrastructure/influxdb"
)

// InfluxDB writes batches through the InfluxDB v2 client, one request each.
type InfluxDB struct {
	client *influxdb.Client
}

// NewInfluxDB wraps a connected client. Close closes the client.
func NewInfluxDB(client *influxdb.Client) *InfluxDB {
	return &InfluxDB{client: client}
}

// Write implements Transport.
func (t *InfluxDB) Write(ctx context.Context, payload []byte) error {
	return t.client.WriteLines(ctx, payload)
}

// HealthCheck pings the server.
func (t *InfluxDB) HealthCheck(ctx context.Context) error {
	return t.client.HealthCheck(ctx)
}

// Close implements Transport.
func (t *InfluxDB) Close() error {
	return t.client.Close()
}
