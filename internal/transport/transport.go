// Package transport delivers encoded line protocol batches to a time-series
// backend.
//
// Every backend sends one flushed batch per Write call:
//
//	influxdb  InfluxDB v2 write API through influxdb-client-go
//	http      raw POST to /api/v2/write or the v1 /write endpoint
//	tcp       one TCP connection per batch (Telegraf socket_listener)
//	mqtt      one MQTT message per batch
//	log       one log record per line (dry run)
//
// FromConfig selects a backend from target.backend.
package transport

import (
	"context"
	"errors"
)

// Transport sends a newline-separated line protocol payload.
//
// Write must not retry; retry policy belongs to the caller. Close releases
// connections and is called once.
type Transport interface {
	Write(ctx context.Context, payload []byte) error
	Close() error
}

// ErrUnknownBackend indicates target.backend names no transport.
var ErrUnknownBackend = errors.New("transport: unknown backend")

// HealthChecker is implemented by transports that hold a connection.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// HealthCheck checks t if it holds a connection. Connectionless transports
// (http, tcp, log) are always healthy here; their first Write reports errors.
func HealthCheck(ctx context.Context, t Transport) error {
	if hc, ok := t.(HealthChecker); ok {
		return hc.HealthCheck(ctx)
	}
	return nil
}
