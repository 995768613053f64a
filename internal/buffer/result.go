package buffer

import "time"

// Outcome is what happened to a flushed batch.
type Outcome string

// Flush outcomes.
const (
	OutcomeSent     Outcome = "sent"
	OutcomeRequeued Outcome = "requeued"
	OutcomeDropped  Outcome = "dropped"
)

// Result describes one flush attempt. An empty flush yields the zero Result.
type Result struct {
	BatchID  string
	Points   int
	Bytes    int
	Duration time.Duration
	Outcome  Outcome
}

// Empty reports whether the flush had nothing to send.
func (r Result) Empty() bool {
	return r.Points == 0
}
