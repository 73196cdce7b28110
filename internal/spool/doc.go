// Package spool implements the buffered, retrying write path between
// the item bus and InfluxDB.
//
// It has two parts:
//
//   - Queue: a bounded FIFO buffer of pending points. Enqueue never
//     blocks and never errors; at capacity the oldest entries are
//     dropped (time-series freshness over completeness) and counted.
//   - Flusher: a ticker-driven worker that drains the queue in batches,
//     writes each batch to the backend in one call, and requeues failed
//     batches at the head so retried writes stay chronologically
//     ordered relative to newer arrivals.
//
// # Retry model
//
// There is no exponential backoff and no retry limit. A failed batch
// simply waits for the next tick. Points die only by capacity eviction
// under sustained overflow, or at process shutdown after the final
// best-effort flush.
//
// # Thread Safety
//
// Queue methods are safe for concurrent use; item bus deliveries call
// Enqueue concurrently with the flusher's Drain/Requeue. One mutex
// serialises them.
package spool
