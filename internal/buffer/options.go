package buffer

import (
	"fmt"
	"time"

	"github.com/nerrad567/tsbuffer/internal/infrastructure/config"
	"github.com/nerrad567/tsbuffer/internal/infrastructure/logging"
	"github.com/nerrad567/tsbuffer/internal/lineproto"
)

// Defaults applied by New for zero-valued options.
const (
	DefaultBatchSize    = 1000
	DefaultFlushTimeout = 5 * time.Second
)

// FailurePolicy decides what happens to a batch the transport rejected.
type FailurePolicy int

const (
	// RequeueOnFailure returns the batch to the head of the queue.
	RequeueOnFailure FailurePolicy = iota

	// DropOnFailure discards the batch.
	DropOnFailure
)

// ParseFailurePolicy converts a config value to a FailurePolicy.
// Empty means RequeueOnFailure.
func ParseFailurePolicy(s string) (FailurePolicy, error) {
	switch s {
	case "", config.PolicyRequeue:
		return RequeueOnFailure, nil
	case config.PolicyDrop:
		return DropOnFailure, nil
	default:
		return RequeueOnFailure, fmt.Errorf("%w: %q", ErrPolicy, s)
	}
}

// String implements fmt.Stringer.
func (p FailurePolicy) String() string {
	if p == DropOnFailure {
		return config.PolicyDrop
	}
	return config.PolicyRequeue
}

// Options configures a Buffer.
type Options struct {
	// BatchSize is the pending count that triggers a flush.
	BatchSize int

	// FlushInterval is the scheduled flush period. Zero disables the timer.
	FlushInterval time.Duration

	// FlushTimeout bounds each scheduled flush.
	FlushTimeout time.Duration

	FailurePolicy FailurePolicy
	Precision     lineproto.Precision
	Logger        *logging.Logger
}

// OptionsFromConfig builds Options from the write and target sections.
func OptionsFromConfig(cfg *config.Config, logger *logging.Logger) (Options, error) {
	policy, err := ParseFailurePolicy(cfg.Write.FailurePolicy)
	if err != nil {
		return Options{}, err
	}
	precision, err := lineproto.ParsePrecision(cfg.Target.Precision)
	if err != nil {
		return Options{}, err
	}

	return Options{
		BatchSize:     cfg.Write.BatchSize,
		FlushInterval: cfg.GetFlushInterval(),
		FlushTimeout:  cfg.GetWriteTimeout(),
		FailurePolicy: policy,
		Precision:     precision,
		Logger:        logger,
	}, nil
}

func (o Options) withDefaults() Options {
	if o.BatchSize <= 0 {
		o.BatchSize = DefaultBatchSize
	}
	if o.FlushInterval < 0 {
		o.FlushInterval = 0
	}
	if o.FlushTimeout <= 0 {
		o.FlushTimeout = DefaultFlushTimeout
	}
	if o.Precision == "" {
		o.Precision = lineproto.Nanosecond
	}
	if o.Logger == nil {
		o.Logger = logging.Default()
	}
	return o
}
