package timex

import (
	"context"
	"time"
)

// Sleep waits for d or until ctx is done. It reports false when ctx ended.
// A non-positive d only checks ctx.
func Sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		select {
		case <-ctx.Done():
			return false
		default:
			return true
		}
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
