package app

import (
	"context"
	"errors"

	"ddspy/internal/bus"
	"ddspy/internal/monitor"
	"ddspy/internal/session"
)

// OpenLog starts (or restarts) the filtered log-stream session for target.
// Any session belonging to a previously selected target is torn down first.
func (c *Console) OpenLog(target bus.Identity) (*monitor.Session, error) {
	return c.sessions.Open(session.KindLog, target, func() (*monitor.Session, error) {
		return monitor.Open(monitor.Options{
			Conn:             c.conn,
			Cache:            c.cache,
			Topic:            c.cfg.LogTopic,
			CompositeIDField: c.cfg.CompositeIDField,
			BufferSize:       c.cfg.StreamBufferSize,
			Log:              c.log,
		}, target)
	})
}

// OpenState starts the administrative-state session for target and runs the
// repeated capture passes that absorb the durable snapshot.
func (c *Console) OpenState(ctx context.Context, target bus.Identity) (*monitor.Session, error) {
	s, err := c.sessions.Open(session.KindState, target, func() (*monitor.Session, error) {
		return monitor.Open(monitor.Options{
			Conn:             c.conn,
			Cache:            c.cache,
			Topic:            c.cfg.StateTopic,
			CompositeIDField: c.cfg.CompositeIDField,
			BufferSize:       c.cfg.StreamBufferSize,
			Log:              c.log,
		}, target)
	})
	if err != nil {
		return nil, err
	}
	if err := s.CaptureState(ctx, c.clk, c.cfg.StateCapturePasses, c.cfg.StateCaptureDelay); err != nil {
		return s, err
	}
	return s, nil
}

// LogSession returns the live log session, if one is open.
func (c *Console) LogSession() (*monitor.Session, bool) {
	return c.sessions.Get(session.KindLog)
}

// StateSession returns the live state session, if one is open.
func (c *Console) StateSession() (*monitor.Session, bool) {
	return c.sessions.Get(session.KindState)
}

// PollViews drains newly arrived records into every open session's display
// buffer.
func (c *Console) PollViews() error {
	var errs []error
	if s, ok := c.LogSession(); ok {
		if err := s.Poll(); err != nil {
			errs = append(errs, err)
		}
	}
	if s, ok := c.StateSession(); ok {
		if err := s.Poll(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
