package service

import (
	"context"
	"time"

	"github.com/wricardo/spellground/game/engine"
)

// RunFrameLoop ticks svc every interval until ctx is done.
// A non-positive interval uses engine.FrameDuration.
func RunFrameLoop(ctx context.Context, svc GameService, interval time.Duration) error {
	if interval <= 0 {
		interval = engine.FrameDuration
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			dt := now.Sub(last)
			last = now
			// cap long stalls so animations do not jump
			if dt > 4*interval {
				dt = 4 * interval
			}
			svc.Tick(ctx, dt)
		}
	}
}
