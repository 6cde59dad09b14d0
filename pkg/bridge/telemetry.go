package bridge

import (
	"context"
	"time"

	"github.com/chamburr/soccer/pkg/protocol"
)

// RunTelemetry publishes status every interval until ctx is done. Publish
// failures are logged and do not stop the loop.
func (b *Bridge) RunTelemetry(ctx context.Context, status func() protocol.StatusData, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var failures int
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if !b.client.IsConnected() {
				continue
			}
			if err := b.PublishStatus(status()); err != nil {
				failures++
				// Only the first of a run of failures is worth a warning.
				if failures == 1 {
					b.logger.Warn("telemetry publish failed", "error", err)
				}
				continue
			}
			failures = 0
		}
	}
}
