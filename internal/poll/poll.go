// Package poll provides the bounded polling primitive shared by every
// timeout-limited loop in the tool (sample streaming, durable-state
// capture, mutual-discovery wait, response wait). Exposing the interval and
// iteration bound as parameters keeps each timeout visible and testable.
package poll

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"
)

// Until invokes fn up to maxIters times, sleeping interval between
// attempts. It returns (true, nil) as soon as fn reports done, and
// (false, nil) when the bound is exhausted first. An error from fn or a
// cancelled context stops the loop immediately.
func Until(ctx context.Context, clk clock.Clock, interval time.Duration, maxIters int, fn func() (bool, error)) (bool, error) {
	if clk == nil {
		clk = clock.New()
	}
	for i := 0; i < maxIters; i++ {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		done, err := fn()
		if err != nil {
			return false, err
		}
		if done {
			return true, nil
		}
		if i == maxIters-1 {
			break
		}
		t := clk.Timer(interval)
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
			return false, ctx.Err()
		}
	}
	return false, nil
}
