// Package monitor owns the lifecycle of one filtered subscription to a
// peer's log or administrative-state stream: endpoint resolution, filter and
// QoS-compatible subscription construction, bounded polling into a capped
// display buffer, and exactly-once teardown.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"ddspy/internal/bus"
	"ddspy/internal/discovery"
	"ddspy/internal/distlog"
	"ddspy/internal/filter"
	"ddspy/internal/poll"
	"ddspy/internal/qos"
)

// State of a monitoring session.
type State int

const (
	StateIdle State = iota
	StateResolvingEndpoint
	StateBuildingFilter
	StateSubscribing
	StateStreaming
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateResolvingEndpoint:
		return "resolving-endpoint"
	case StateBuildingFilter:
		return "building-filter"
	case StateSubscribing:
		return "subscribing"
	case StateStreaming:
		return "streaming"
	case StateError:
		return "error"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// DefaultBufferSize caps the display buffer: most recent records win.
const DefaultBufferSize = 20

// Options configures a monitoring session.
type Options struct {
	Conn  bus.Connection
	Cache *discovery.Cache

	// Topic is the stream to monitor (log or state).
	Topic string

	// CompositeIDField is the record field carrying the origin identity,
	// used both for the content filter and for display rendering.
	CompositeIDField string

	// BufferSize bounds retained display lines; DefaultBufferSize when 0.
	BufferSize int

	// Render turns an accepted record into a display line. The default
	// flattens all non-identity fields.
	Render func(bus.Record) string

	Log *zap.Logger
}

// Session is a live filtered subscription to one target's stream.
type Session struct {
	opts   Options
	target bus.Identity

	mu     sync.Mutex
	state  State
	err    error
	sub    bus.Subscriber
	reader bus.Reader
	lines  []string
	closed bool
}

// Open drives the session through endpoint resolution, filter construction,
// and subscription. On any failure the partially created resources are
// released and the returned session is in the error state.
func Open(opts Options, target bus.Identity) (*Session, error) {
	if opts.Log == nil {
		opts.Log = zap.NewNop()
	}
	if opts.BufferSize <= 0 {
		opts.BufferSize = DefaultBufferSize
	}
	if opts.Render == nil {
		field := opts.CompositeIDField
		opts.Render = func(rec bus.Record) string {
			return renderFields(rec, field)
		}
	}
	s := &Session{opts: opts, target: target}

	s.setState(StateResolvingEndpoint)
	ep, ok := opts.Cache.FindEndpoint(target, opts.Topic, bus.DirectionWriter)
	if !ok {
		return s, s.fail(fmt.Errorf("participant %s has no writer for topic %q", target, opts.Topic))
	}
	if ep.Type == nil {
		return s, s.fail(fmt.Errorf("topic %q from %s was discovered without type information", opts.Topic, target))
	}

	s.setState(StateBuildingFilter)
	expr, params := filter.Expression(opts.CompositeIDField, target)
	base, err := opts.Conn.CreateTopic(opts.Topic, ep.Type)
	if err != nil {
		return s, s.fail(fmt.Errorf("create topic %q: %w", opts.Topic, err))
	}
	filtered, err := opts.Conn.CreateFilteredTopic(base, filter.TopicName(opts.Topic, target), expr, params)
	if err != nil {
		return s, s.fail(fmt.Errorf("create filtered topic: %w", err))
	}

	s.setState(StateSubscribing)
	sub, err := opts.Conn.CreateSubscriber(qos.SubscriberQoSFor(ep))
	if err != nil {
		return s, s.fail(fmt.Errorf("create subscriber: %w", err))
	}
	reader, err := sub.CreateReader(filtered, qos.ReaderQoSFor(ep))
	if err != nil {
		sub.Close()
		return s, s.fail(fmt.Errorf("create reader: %w", err))
	}

	s.mu.Lock()
	s.sub = sub
	s.reader = reader
	s.state = StateStreaming
	s.mu.Unlock()

	opts.Log.Info("monitoring session open",
		zap.String("target", target.String()),
		zap.String("topic", opts.Topic))
	return s, nil
}

// Poll takes newly available records and appends their rendered lines to
// the display buffer, evicting the oldest beyond the cap. A malformed
// record is logged and skipped; it never stops the stream.
func (s *Session) Poll() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateStreaming {
		return fmt.Errorf("session is %s, not streaming", s.state)
	}
	samples, err := s.reader.Take()
	if err != nil {
		return fmt.Errorf("take records: %w", err)
	}
	for _, sample := range samples {
		if !sample.Valid || sample.Record == nil {
			continue
		}
		line := func() (line string) {
			defer func() {
				if r := recover(); r != nil {
					s.opts.Log.Warn("skipping malformed record", zap.Any("panic", r))
					line = ""
				}
			}()
			return s.opts.Render(sample.Record)
		}()
		if line == "" {
			continue
		}
		s.lines = append(s.lines, line)
		if len(s.lines) > s.opts.BufferSize {
			s.lines = s.lines[len(s.lines)-s.opts.BufferSize:]
		}
	}
	return nil
}

// CaptureState performs a fixed number of spaced poll passes. Durable
// streams deliver their retained snapshot shortly after subscription, not
// necessarily before the first poll, so a single pass is unreliable.
func (s *Session) CaptureState(ctx context.Context, clk clock.Clock, passes int, delay time.Duration) error {
	_, err := poll.Until(ctx, clk, delay, passes, func() (bool, error) {
		if err := s.Poll(); err != nil {
			return false, err
		}
		return false, nil
	})
	return err
}

// Lines returns the retained display lines in arrival order.
func (s *Session) Lines() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.lines...)
}

// State returns the session's current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Err returns the absorbed error when the session is in the error state.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Target returns the monitored peer identity.
func (s *Session) Target() bus.Identity { return s.target }

// Topic returns the monitored stream topic.
func (s *Session) Topic() string { return s.opts.Topic }

// Close releases the owned reader and subscriber (never the shared topic).
// It is idempotent and safe mid-poll.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	var errs []error
	if s.reader != nil {
		if err := s.reader.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close reader: %w", err))
		}
		s.reader = nil
	}
	if s.sub != nil {
		if err := s.sub.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close subscriber: %w", err))
		}
		s.sub = nil
	}
	if s.state == StateStreaming {
		s.state = StateIdle
	}
	return errors.Join(errs...)
}

func (s *Session) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

func renderFields(rec bus.Record, identityField string) string {
	return distlog.RenderRecord(rec, identityField)
}

func (s *Session) fail(err error) error {
	s.mu.Lock()
	s.state = StateError
	s.err = err
	s.mu.Unlock()
	s.opts.Log.Warn("monitoring session failed",
		zap.String("target", s.target.String()),
		zap.String("topic", s.opts.Topic),
		zap.Error(err))
	return err
}
