package influxdb

import (
	"context"
	"fmt"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WritePoints writes all points in a single blocking request.
//
// The call returns once the server has accepted or rejected the batch.
// Nothing is retried; a failure leaves it to the caller to report.
//
// Example:
//
//	err := client.WritePoints(ctx, record.Points()...)
func (c *Client) WritePoints(ctx context.Context, points ...*write.Point) error {
	if c.isClosed() {
		return ErrClosed
	}
	if len(points) == 0 {
		return nil
	}

	if err := c.writeAPI.WritePoint(ctx, points...); err != nil {
		return fmt.Errorf("%w: %w", ErrWriteFailed, err)
	}

	return nil
}
