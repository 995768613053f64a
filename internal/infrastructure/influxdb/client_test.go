package influxdb_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	http2 "github.com/influxdata/influxdb-client-go/v2/api/http"

	"github.com/nerrad567/tsbuffer/internal/infrastructure/config"
	"github.com/nerrad567/tsbuffer/internal/infrastructure/influxdb"
)

const queryCSV = "#datatype,string,long,dateTime:RFC3339,double,string,string\r\n" +
	"#group,false,false,false,false,true,true\r\n" +
	"#default,_result,,,,,\r\n" +
	",result,table,_time,_value,_field,_measurement\r\n" +
	",,0,2024-01-01T00:00:00Z,2,field1,measurement1\r\n" +
	"\r\n"

type writeRequest struct {
	query    url.Values
	body     string
	encoding string
	auth     string
}

// fakeServer answers the InfluxDB v2 ping, write and query endpoints.
type fakeServer struct {
	mu          sync.Mutex
	writes      []writeRequest
	writeStatus int
}

func newFakeServer(t *testing.T) (*fakeServer, *httptest.Server) {
	t.Helper()
	fs := &fakeServer{writeStatus: http.StatusNoContent}

	mux := http.NewServeMux()
	mux.HandleFunc("/ping", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("/api/v2/write", func(w http.ResponseWriter, r *http.Request) {
		var body io.Reader = r.Body
		if r.Header.Get("Content-Encoding") == "gzip" {
			zr, err := gzip.NewReader(r.Body)
			if err != nil {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			body = zr
		}
		data, _ := io.ReadAll(body)

		fs.mu.Lock()
		fs.writes = append(fs.writes, writeRequest{
			query:    r.URL.Query(),
			body:     string(data),
			encoding: r.Header.Get("Content-Encoding"),
			auth:     r.Header.Get("Authorization"),
		})
		status := fs.writeStatus
		fs.mu.Unlock()

		if status != http.StatusNoContent {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(status)
			_, _ = io.WriteString(w, `{"code":"invalid","message":"unable to parse points"}`)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("/api/v2/query", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		_, _ = io.WriteString(w, queryCSV)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return fs, srv
}

func (fs *fakeServer) recorded() []writeRequest {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return append([]writeRequest(nil), fs.writes...)
}

func targetConfig(url string) config.TargetConfig {
	return config.TargetConfig{
		Backend:   config.BackendInfluxDB,
		URL:       url,
		Token:     "my-token",
		Org:       "Enserv Power",
		Bucket:    "test_with_Go",
		Precision: "ms",
		Timeout:   2,
	}
}

// =============================================================================
// Connection Tests
// =============================================================================

func TestConnect(t *testing.T) {
	_, srv := newFakeServer(t)

	client, err := influxdb.Connect(context.Background(), targetConfig(srv.URL))
	require.NoError(t, err)
	defer client.Close()

	assert.True(t, client.IsConnected())
	assert.Equal(t, "Enserv Power", client.Org())
	assert.Equal(t, "test_with_Go", client.Bucket())
	assert.NoError(t, client.HealthCheck(context.Background()))
}

func TestConnect_Unreachable(t *testing.T) {
	_, srv := newFakeServer(t)
	srv.Close()

	_, err := influxdb.Connect(context.Background(), targetConfig(srv.URL))
	assert.ErrorIs(t, err, influxdb.ErrConnectionFailed)
}

func TestConnect_InvalidPrecision(t *testing.T) {
	cfg := targetConfig("http://127.0.0.1:1")
	cfg.Precision = "h"

	_, err := influxdb.Connect(context.Background(), cfg)
	assert.ErrorIs(t, err, influxdb.ErrConnectionFailed)
}

func TestClose_Idempotent(t *testing.T) {
	_, srv := newFakeServer(t)

	client, err := influxdb.Connect(context.Background(), targetConfig(srv.URL))
	require.NoError(t, err)

	assert.NoError(t, client.Close())
	assert.NoError(t, client.Close())
	assert.False(t, client.IsConnected())
	assert.ErrorIs(t, client.HealthCheck(context.Background()), influxdb.ErrNotConnected)
	assert.ErrorIs(t, client.WriteLines(context.Background(), []byte("m f=1i")), influxdb.ErrNotConnected)
}

// =============================================================================
// Write Tests
// =============================================================================

func TestWriteLines(t *testing.T) {
	fs, srv := newFakeServer(t)

	client, err := influxdb.Connect(context.Background(), targetConfig(srv.URL))
	require.NoError(t, err)
	defer client.Close()

	payload := "measurement1,tagname1=tagvalue1 field1=0i 1700000000000\nmeasurement1,tagname1=tagvalue1 field1=1i 1700000001000"
	require.NoError(t, client.WriteLines(context.Background(), []byte(payload)))

	writes := fs.recorded()
	require.Len(t, writes, 1, "one request per payload")
	assert.Equal(t, payload, writes[0].body)
	assert.Equal(t, "Enserv Power", writes[0].query.Get("org"))
	assert.Equal(t, "test_with_Go", writes[0].query.Get("bucket"))
	assert.Equal(t, "ms", writes[0].query.Get("precision"))
	assert.Equal(t, "Token my-token", writes[0].auth)
}

func TestWriteLines_GZip(t *testing.T) {
	fs, srv := newFakeServer(t)
	cfg := targetConfig(srv.URL)
	cfg.GZip = true

	client, err := influxdb.Connect(context.Background(), cfg)
	require.NoError(t, err)
	defer client.Close()

	require.NoError(t, client.WriteLines(context.Background(), []byte("m f=1i")))

	writes := fs.recorded()
	require.Len(t, writes, 1)
	assert.Equal(t, "gzip", writes[0].encoding)
	assert.Equal(t, "m f=1i", writes[0].body)
}

func TestWriteLines_Empty(t *testing.T) {
	fs, srv := newFakeServer(t)

	client, err := influxdb.Connect(context.Background(), targetConfig(srv.URL))
	require.NoError(t, err)
	defer client.Close()

	require.NoError(t, client.WriteLines(context.Background(), nil))
	assert.Empty(t, fs.recorded())
}

func TestWriteLines_ServerError(t *testing.T) {
	fs, srv := newFakeServer(t)
	fs.writeStatus = http.StatusBadRequest

	client, err := influxdb.Connect(context.Background(), targetConfig(srv.URL))
	require.NoError(t, err)
	defer client.Close()

	err = client.WriteLines(context.Background(), []byte("m f=1i"))
	require.Error(t, err)
	assert.ErrorIs(t, err, influxdb.ErrWriteFailed)

	var httpErr *http2.Error
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, http.StatusBadRequest, httpErr.StatusCode)
}

// =============================================================================
// Query Tests
// =============================================================================

func TestQuery(t *testing.T) {
	_, srv := newFakeServer(t)

	client, err := influxdb.Connect(context.Background(), targetConfig(srv.URL))
	require.NoError(t, err)
	defer client.Close()

	result, err := client.Query(context.Background(), `from(bucket: "test_with_Go") |> range(start: -10m) |> mean()`)
	require.NoError(t, err)
	defer result.Close()

	require.True(t, result.Next())
	record := result.Record()
	assert.Equal(t, "measurement1", record.Measurement())
	assert.Equal(t, "field1", record.Field())
	assert.Equal(t, 2.0, record.Value())
	assert.False(t, result.Next())
	assert.NoError(t, result.Err())
}
