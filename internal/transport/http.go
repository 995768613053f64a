package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"

	"github.com/nerrad567/tsbuffer/internal/infrastructure/config"
	"github.com/nerrad567/tsbuffer/internal/lineproto"
)

const (
	defaultHTTPTimeout = 5 * time.Second

	// maxErrorBody caps how much of an error response is kept.
	maxErrorBody = 1024
)

// StatusError is returned when the server answers a write with a non-2xx status.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("http write: status %d", e.StatusCode)
	}
	return fmt.Sprintf("http write: status %d: %s", e.StatusCode, e.Body)
}

// HTTP posts raw line protocol to an InfluxDB-compatible write endpoint.
//
// With an org configured it targets the v2 API (/api/v2/write?org&bucket);
// otherwise the v1 API (/write?db=bucket), which VictoriaMetrics also serves.
type HTTP struct {
	writeURL   string
	token      string
	gzip       bool
	httpClient *http.Client
}

// NewHTTP builds the write URL from the target config.
func NewHTTP(cfg config.TargetConfig) (*HTTP, error) {
	precision, err := lineproto.ParsePrecision(cfg.Precision)
	if err != nil {
		return nil, err
	}

	base := strings.TrimRight(cfg.URL, "/")
	if _, err := url.ParseRequestURI(base); err != nil {
		return nil, fmt.Errorf("http transport: invalid url %q: %w", cfg.URL, err)
	}

	params := url.Values{}
	var writeURL string
	if cfg.Org != "" {
		params.Set("org", cfg.Org)
		params.Set("bucket", cfg.Bucket)
		params.Set("precision", precision.String())
		writeURL = base + "/api/v2/write?" + params.Encode()
	} else {
		if cfg.Bucket != "" {
			params.Set("db", cfg.Bucket)
		}
		params.Set("precision", v1Precision(precision))
		writeURL = base + "/write?" + params.Encode()
	}

	timeout := time.Duration(cfg.Timeout) * time.Second
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}

	return &HTTP{
		writeURL:   writeURL,
		token:      cfg.Token,
		gzip:       cfg.GZip,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

// v1Precision maps a precision to the v1 write API's spelling.
func v1Precision(p lineproto.Precision) string {
	if p == lineproto.Microsecond {
		return "u"
	}
	return p.String()
}

// Write implements Transport.
func (t *HTTP) Write(ctx context.Context, payload []byte) error {
	body, err := t.encodeBody(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.writeURL, body)
	if err != nil {
		return fmt.Errorf("http write: %w", err)
	}
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if t.token != "" {
		req.Header.Set("Authorization", "Token "+t.token)
	}
	if t.gzip {
		req.Header.Set("Content-Encoding", "gzip")
	}

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http write: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(msg))}
	}

	// Drain body to allow connection reuse
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func (t *HTTP) encodeBody(payload []byte) (io.Reader, error) {
	if !t.gzip {
		return bytes.NewReader(payload), nil
	}

	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(payload); err != nil {
		return nil, fmt.Errorf("http write: compressing payload: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("http write: compressing payload: %w", err)
	}
	return &buf, nil
}

// Close implements Transport.
func (t *HTTP) Close() error {
	t.httpClient.CloseIdleConnections()
	return nil
}
