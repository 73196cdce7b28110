package influxdb

import "errors"

// Sentinel errors for InfluxDB operations.
//
// These errors can be checked using errors.Is() for specific handling:
//
//	if errors.Is(err, influxdb.ErrEmptyResult) {
//	    // Series has no data yet
//	}
var (
	// ErrNotConnected indicates the client is not connected to InfluxDB.
	ErrNotConnected = errors.New("influxdb: not connected")

	// ErrConnectionFailed indicates the initial connection attempt failed.
	// At startup this is fatal: the bridge refuses to run without its backend.
	ErrConnectionFailed = errors.New("influxdb: connection failed")

	// ErrWriteFailed indicates a batch write was rejected or never reached
	// the server. The spool requeues the batch and retries next cycle.
	ErrWriteFailed = errors.New("influxdb: write failed")

	// ErrQueryFailed indicates a read query could not be executed.
	ErrQueryFailed = errors.New("influxdb: query failed")

	// ErrEmptyResult indicates a query matched no data.
	ErrEmptyResult = errors.New("influxdb: empty result")
)
