package influxdb

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Aggregation functions accepted by QueryWindow. They map directly to
// Flux aggregate functions.
const (
	AggMean = "mean"
	AggMin  = "min"
	AggMax  = "max"
)

// Row is one aggregated sample returned by a query.
type Row struct {
	Time  time.Time
	Value float64
}

// QueryWindow returns windowed aggregates of an item's series.
//
// It issues one Flux query per call: range start..end, filtered to the
// item's measurement and value field, aggregated with the given
// function over fixed windows. Empty windows are omitted, matching the
// sparse series the visualization layer expects.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - item: Item identifier (measurement is derived from it)
//   - start, end: Query time range
//   - window: Aggregation window size
//   - fn: One of AggMean, AggMin, AggMax
//
// Returns:
//   - []Row: Aggregated samples in ascending time order (may be empty)
//   - error: Wrapped ErrQueryFailed on any query problem
func (c *Client) QueryWindow(ctx context.Context, item string, start, end time.Time, window time.Duration, fn string) ([]Row, error) {
	if !c.IsConnected() {
		return nil, ErrNotConnected
	}
	switch fn {
	case AggMean, AggMin, AggMax:
	default:
		return nil, fmt.Errorf("%w: unknown aggregation %q", ErrQueryFailed, fn)
	}
	if !end.After(start) {
		return nil, fmt.Errorf("%w: end must be after start", ErrQueryFailed)
	}
	if window <= 0 {
		return nil, fmt.Errorf("%w: window must be positive", ErrQueryFailed)
	}

	flux := fmt.Sprintf(`from(bucket: %q)
  |> range(start: %s, stop: %s)
  |> filter(fn: (r) => r._measurement == %q and r._field == "value")
  |> aggregateWindow(every: %ds, fn: %s, createEmpty: false)`,
		c.cfg.Database,
		start.UTC().Format(time.RFC3339),
		end.UTC().Format(time.RFC3339),
		Measurement(sanitizeItem(item)),
		int(window.Seconds()),
		fn,
	)

	return c.queryRows(ctx, flux)
}

// LastValue returns the most recent stored sample for an item.
//
// Used at startup to restore an item's last known value onto the bus.
// A series with no data returns ErrEmptyResult.
func (c *Client) LastValue(ctx context.Context, item string) (Row, error) {
	if !c.IsConnected() {
		return Row{}, ErrNotConnected
	}

	flux := fmt.Sprintf(`from(bucket: %q)
  |> range(start: 0)
  |> filter(fn: (r) => r._measurement == %q and r._field == "value")
  |> last()`,
		c.cfg.Database,
		Measurement(sanitizeItem(item)),
	)

	rows, err := c.queryRows(ctx, flux)
	if err != nil {
		return Row{}, err
	}
	if len(rows) == 0 {
		return Row{}, ErrEmptyResult
	}
	return rows[len(rows)-1], nil
}

// queryRows executes a Flux query and collects numeric rows.
func (c *Client) queryRows(ctx context.Context, flux string) ([]Row, error) {
	queryCtx, cancel := context.WithTimeout(ctx, defaultQueryTimeout)
	defer cancel()

	result, err := c.queryAPI.Query(queryCtx, flux)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrQueryFailed, err)
	}
	defer result.Close()

	var rows []Row
	for result.Next() {
		record := result.Record()
		value, ok := toFloat(record.Value())
		if !ok {
			continue
		}
		rows = append(rows, Row{
			Time:  record.Time(),
			Value: value,
		})
	}
	if err := result.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrQueryFailed, err)
	}

	return rows, nil
}

// toFloat widens the numeric types the backend may return.
func toFloat(v interface{}) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case int64:
		return float64(val), true
	case uint64:
		return float64(val), true
	case bool:
		if val {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}

// sanitizeItem strips characters that would break out of a Flux string
// literal. Item names come from config and the bus, not from trusted
// code.
func sanitizeItem(item string) string {
	item = strings.ReplaceAll(item, `\`, "")
	item = strings.ReplaceAll(item, `"`, "")
	item = strings.ReplaceAll(item, "\n", "")
	item = strings.ReplaceAll(item, "\r", "")
	return item
}
