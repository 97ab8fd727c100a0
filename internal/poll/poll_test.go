package poll

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
)

func TestUntilStopsOnDone(t *testing.T) {
	calls := 0
	done, err := Until(context.Background(), clock.New(), time.Millisecond, 10, func() (bool, error) {
		calls++
		return calls == 3, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !done {
		t.Fatal("expected done")
	}
	if calls != 3 {
		t.Fatalf("fn called %d times, want 3", calls)
	}
}

func TestUntilExhaustsBound(t *testing.T) {
	calls := 0
	done, err := Until(context.Background(), clock.New(), time.Microsecond, 5, func() (bool, error) {
		calls++
		return false, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if done {
		t.Fatal("expected bound exhaustion")
	}
	if calls != 5 {
		t.Fatalf("fn called %d times, want 5", calls)
	}
}

func TestUntilPropagatesError(t *testing.T) {
	boom := errors.New("boom")
	calls := 0
	done, err := Until(context.Background(), clock.New(), time.Millisecond, 10, func() (bool, error) {
		calls++
		return false, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("error = %v, want %v", err, boom)
	}
	if done {
		t.Fatal("done should be false on error")
	}
	if calls != 1 {
		t.Fatalf("fn called %d times, want 1", calls)
	}
}

func TestUntilZeroIterations(t *testing.T) {
	done, err := Until(context.Background(), clock.New(), time.Millisecond, 0, func() (bool, error) {
		t.Fatal("fn should never run")
		return true, nil
	})
	if err != nil || done {
		t.Fatalf("got (%v, %v), want (false, nil)", done, err)
	}
}

func TestUntilContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Until(ctx, clock.New(), time.Millisecond, 3, func() (bool, error) {
		return false, nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
}

func TestUntilCancelDuringSleep(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	_, err := Until(ctx, clock.New(), time.Minute, 3, func() (bool, error) {
		calls++
		return false, nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
	if calls != 1 {
		t.Fatalf("fn called %d times, want 1", calls)
	}
}

func TestUntilSleepsBetweenAttemptsOnly(t *testing.T) {
	mock := clock.NewMock()
	calls := 0
	doneCh := make(chan struct{})

	go func() {
		defer close(doneCh)
		done, err := Until(context.Background(), mock, time.Second, 3, func() (bool, error) {
			calls++
			return false, nil
		})
		if err != nil || done {
			t.Errorf("got (%v, %v), want (false, nil)", done, err)
		}
	}()

	// Two sleeps separate the three attempts; no sleep after the last.
	for i := 0; i < 2; i++ {
		time.Sleep(time.Millisecond)
		mock.Add(time.Second)
	}

	select {
	case <-doneCh:
	case <-time.After(2 * time.Second):
		t.Fatal("loop did not finish; it slept after the final attempt")
	}
	if calls != 3 {
		t.Fatalf("fn called %d times, want 3", calls)
	}
}
