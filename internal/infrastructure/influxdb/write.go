package influxdb

import (
	"context"
	"fmt"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/aakso/smarthome-influxdb/internal/spool"
)

// WriteBatch writes a batch of spooled points to InfluxDB in a single
// synchronous call.
//
// The call blocks until the server accepts the batch or the context
// expires. A nil error means the whole batch was written; any error
// means none of it should be considered written and the caller is
// expected to requeue.
//
// Parameters:
//   - ctx: Context bounding the write (the flusher passes its write timeout)
//   - points: Drained batch, in chronological order
//
// Returns:
//   - error: nil on success, otherwise a wrapped ErrWriteFailed
func (c *Client) WriteBatch(ctx context.Context, points []spool.Point) error {
	if !c.IsConnected() {
		return ErrNotConnected
	}
	if len(points) == 0 {
		return nil
	}

	pts := make([]*write.Point, len(points))
	for i, p := range points {
		pts[i] = write.NewPoint(
			Measurement(p.Item),
			p.Tags,
			map[string]interface{}{
				"value": p.Value,
			},
			p.Time,
		)
	}

	if err := c.writeAPI.WritePoint(ctx, pts...); err != nil {
		return fmt.Errorf("%w: %w", ErrWriteFailed, err)
	}

	return nil
}
