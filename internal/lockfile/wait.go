package lockfile

import (
	"context"
	"time"
)

const (
	pollInitialInterval = 10 * time.Millisecond
	pollMaxInterval     = 100 * time.Millisecond
)

// waitLock polls try until it reports success, the timeout elapses, or ctx
// is done. A timeout of zero waits on ctx alone. The interval starts small
// and doubles up to a cap, so short contentions resolve quickly without
// hammering the kernel during long ones.
//
// The false/nil return means the timeout elapsed; cancellation surfaces as
// ctx.Err(). Nothing is left running after waitLock returns.
func waitLock(ctx context.Context, timeout time.Duration, try func() (bool, error)) (bool, error) {
	var deadline <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		deadline = timer.C
	}

	interval := pollInitialInterval
	poll := time.NewTimer(interval)
	defer poll.Stop()

	for {
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-deadline:
			return false, nil
		case <-poll.C:
			ok, err := try()
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
			interval *= 2
			if interval > pollMaxInterval {
				interval = pollMaxInterval
			}
			poll.Reset(interval)
		}
	}
}
