// Package buffer accumulates time-series points in memory and delivers them
// to a transport in batches.
//
// # Purpose
//
// Callers submit points with WritePoint without ever waiting on the network.
// Pending points are flushed as one line protocol payload when:
//   - the pending count reaches the batch size (size trigger),
//   - the flush interval elapses (scheduled trigger),
//   - the caller invokes Flush, or
//   - the buffer is closed (final flush).
//
// # Usage
//
//	buf, err := buffer.New(tr, buffer.Options{
//	    BatchSize:     1000,
//	    FlushInterval: 5 * time.Second,
//	    Precision:     lineproto.Nanosecond,
//	})
//	if err != nil {
//	    return err
//	}
//	defer buf.Close(ctx)
//
//	err = buf.WritePoint(lineproto.NewPoint("cpu").FloatField("load", 0.42))
//
// # Failure Policy
//
// RequeueOnFailure (the default) puts a failed batch back at the head of the
// queue, so delivery is at-least-once and order is preserved. DropOnFailure
// discards it, so delivery is at-most-once. Either way the transport error is
// returned from Flush, or delivered to the OnError callback for scheduled
// flushes. A batch that fails to encode is always dropped.
//
// # Thread Safety
//
// All methods are safe for concurrent use. At most one flush is in flight at a
// time: a second trigger waits for it and then flushes whatever is pending at
// that moment, which is a no-op if nothing is. Close waits for an in-flight
// flush and for the scheduler goroutine before its own final flush, so no
// network operation outlives Close.
package buffer
