package app

import (
	"context"

	"go.uber.org/zap"

	"ddspy/internal/bus"
	"ddspy/internal/command"
	"ddspy/internal/distlog"
)

// SetVerbosity sends a verbosity-change command to target and waits for the
// correlated acknowledgment. On an accepted command the target's state
// session (when open) is restarted so the view reflects the new filter
// level.
func (c *Console) SetVerbosity(ctx context.Context, target bus.Identity, level distlog.Level) (command.Result, error) {
	res, err := c.correlator.SetFilterLevel(ctx, target, level)
	if err != nil {
		return res, err
	}
	if !res.OK() {
		return res, nil
	}
	if s, ok := c.StateSession(); ok && s.Target() == target {
		if _, err := c.OpenState(ctx, target); err != nil {
			c.log.Warn("state re-read after command", zap.Error(err))
		}
	}
	return res, nil
}
