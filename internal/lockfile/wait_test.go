package lockfile

import (
	"context"
	"testing"
	"time"

	"github.com/pbrit/mamba/internal/errors"
)

func TestWaitLock_ImmediateSuccess(t *testing.T) {
	calls := 0
	ok, err := waitLock(context.Background(), time.Second, func() (bool, error) {
		calls++
		return true, nil
	})
	if err != nil {
		t.Fatalf("waitLock() error: %v", err)
	}
	if !ok {
		t.Fatal("waitLock() = false, want true")
	}
	if calls != 1 {
		t.Errorf("try called %d times, want 1", calls)
	}
}

func TestWaitLock_EventualSuccess(t *testing.T) {
	calls := 0
	ok, err := waitLock(context.Background(), 5*time.Second, func() (bool, error) {
		calls++
		return calls >= 3, nil
	})
	if err != nil {
		t.Fatalf("waitLock() error: %v", err)
	}
	if !ok {
		t.Fatal("waitLock() = false, want true")
	}
	if calls != 3 {
		t.Errorf("try called %d times, want 3", calls)
	}
}

func TestWaitLock_TimeoutElapses(t *testing.T) {
	calls := 0
	start := time.Now()
	ok, err := waitLock(context.Background(), 80*time.Millisecond, func() (bool, error) {
		calls++
		return false, nil
	})
	elapsed := time.Since(start)

	if err != nil {
		t.Fatalf("waitLock() error: %v, want nil on plain timeout", err)
	}
	if ok {
		t.Fatal("waitLock() = true, want false")
	}
	if calls == 0 {
		t.Error("try was never attempted before the timeout")
	}
	if elapsed < 70*time.Millisecond {
		t.Errorf("returned after %v, before the timeout", elapsed)
	}
	if elapsed > 3*time.Second {
		t.Errorf("returned after %v, way past the timeout", elapsed)
	}
}

func TestWaitLock_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(40 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	// Zero timeout: the context is the only way out
	ok, err := waitLock(ctx, 0, func() (bool, error) {
		return false, nil
	})
	elapsed := time.Since(start)

	if ok {
		t.Fatal("waitLock() = true, want false")
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("waitLock() error = %v, want context.Canceled", err)
	}
	if elapsed > 3*time.Second {
		t.Errorf("cancellation took %v to unwind", elapsed)
	}
}

func TestWaitLock_TryErrorPropagates(t *testing.T) {
	boom := errors.New("descriptor went away")
	ok, err := waitLock(context.Background(), time.Second, func() (bool, error) {
		return false, boom
	})
	if ok {
		t.Fatal("waitLock() = true, want false")
	}
	if !errors.Is(err, boom) {
		t.Errorf("waitLock() error = %v, want %v", err, boom)
	}
}

func TestWaitLock_CanceledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ok, err := waitLock(ctx, time.Second, func() (bool, error) {
		return true, nil
	})
	if ok {
		t.Fatal("waitLock() = true for a dead context")
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("waitLock() error = %v, want context.Canceled", err)
	}
}
