// Package influxdb provides InfluxDB v2 connectivity for tsbuffer.
//
// It wraps the official influxdb-client-go v2 library with connection
// management, blocking line protocol writes, Flux queries and health
// monitoring.
//
// # Usage
//
//	client, err := influxdb.Connect(ctx, cfg.Target)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	err = client.WriteLines(ctx, []byte("cpu load=0.5"))
//
//	result, err := client.Query(ctx, `from(bucket: "b") |> range(start: -1h)`)
//
// # Thread Safety
//
// All methods are safe for concurrent use from multiple goroutines.
//
// # Error Handling
//
// Write and query errors are returned directly, wrapped in ErrWriteFailed or
// ErrQueryFailed. The server's status code is available through the wrapped
// *http.Error from github.com/influxdata/influxdb-client-go/v2/api/http.
package influxdb
