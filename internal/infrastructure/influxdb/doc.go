// Package influxdb provides the time-series backend client for the bridge.
//
// It wraps the official influxdb-client-go v2 library, configured for
// InfluxDB 1.8+ v1 compatibility mode: the config file's user/passwd
// pair becomes the API token and the database name becomes the bucket.
//
// # Write path
//
// WriteBatch is deliberately synchronous (WriteAPIBlocking): the spool
// package owns buffering and retry, so this client must report write
// failures to its caller instead of batching internally. One flush
// tick equals one WriteBatch call.
//
// # Read path
//
// QueryWindow and LastValue issue Flux queries. InfluxQL-style
// windowed aggregation (select min/mean/max ... group by time(w)) maps
// to aggregateWindow with the requested function.
//
// # Measurements
//
// Items are stored under "smarthome.{item}" with a single "value"
// field at millisecond precision, so databases written by Smarthome.py
// installations read back unchanged.
//
// # Thread Safety
//
// All methods are safe for concurrent use from multiple goroutines.
package influxdb
