// tsbuffer - buffered line protocol writer for InfluxDB-compatible servers.
//
// Points are buffered in memory and flushed in batches, on a size threshold,
// on a timer, or on demand, to one of several transports (InfluxDB client,
// raw HTTP, TCP, MQTT or the log). Flush outcomes can be journalled to
// SQLite for later inspection.
//
// Commands:
//
//	tsbuffer demo                  write a few points, then run an aggregate query
//	tsbuffer write --file a.lp     buffer and send line protocol files
//	tsbuffer query '<flux>'        stream Flux query rows as JSON lines
//	tsbuffer journal --limit 20    show recent flushes
//	tsbuffer journal rollback      roll back the latest journal migration
//	tsbuffer health                check transport, journal and query connections
//	tsbuffer version               print build information
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

func main() {
	// Cancel on Ctrl+C / SIGTERM so in-flight work can finish its final flush
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run executes the CLI with the given arguments, separated from main for
// testability.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//   - args: Command-line arguments without the program name
//
// Returns:
//   - error: nil on success, or error describing failure
func run(ctx context.Context, args []string) error {
	root := newRootCmd()
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

// getConfigPath returns the configuration file path.
// The --config flag wins, then TSBUFFER_CONFIG. Empty means defaults plus
// environment only.
func getConfigPath(flag string) string {
	if flag != "" {
		return flag
	}
	return os.Getenv("TSBUFFER_CONFIG")
}
