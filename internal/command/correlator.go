// Package command sends administrative verbosity-change requests to a peer
// and correlates the asynchronous reply by originator identity and
// invocation id.
package command

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"ddspy/internal/bus"
	"ddspy/internal/discovery"
	"ddspy/internal/distlog"
	"ddspy/internal/poll"
	"ddspy/internal/qos"
)

// Failure taxonomy. Discovery timeout and response timeout are reported
// distinctly: the first means the request was never sent, the second that
// it was sent but no correlated reply was observed. The protocol cannot
// distinguish a rejected command from a lost response, so neither can we.
var (
	// ErrUnresolvedTarget guards against addressing the (0,0) sentinel.
	ErrUnresolvedTarget = errors.New("target identity is not resolved yet")

	// ErrNoCommandPeer is the mutual-discovery timeout.
	ErrNoCommandPeer = errors.New("no command subscriber/publisher found")

	// ErrNoResponse is the response-wait timeout.
	ErrNoResponse = errors.New("no response to command")
)

// originator marks requests issued by this tool.
var originator = bus.Identity{}

// Result is the decoded acknowledgment of an accepted reply.
type Result struct {
	Code    int64
	Message string
}

// OK reports whether the peer accepted the command.
func (r Result) OK() bool { return r.Code == 0 }

// Options configures a Correlator. Zero interval/bound fields fall back to
// the protocol defaults (100 ms polls, 50 discovery / 300 response
// iterations).
type Options struct {
	Conn  bus.Connection
	Cache *discovery.Cache
	Clock clock.Clock
	Log   *zap.Logger

	RequestTopic  string
	ResponseTopic string

	DiscoveryInterval time.Duration
	DiscoveryPolls    int
	ResponseInterval  time.Duration
	ResponsePolls     int
}

// Correlator performs one administrative exchange at a time.
type Correlator struct {
	opts Options
}

// New fills option defaults and returns a ready correlator.
func New(opts Options) *Correlator {
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}
	if opts.Log == nil {
		opts.Log = zap.NewNop()
	}
	if opts.RequestTopic == "" {
		opts.RequestTopic = distlog.DefaultCommandRequestTopic
	}
	if opts.ResponseTopic == "" {
		opts.ResponseTopic = distlog.DefaultCommandResponseTopic
	}
	if opts.DiscoveryInterval <= 0 {
		opts.DiscoveryInterval = 100 * time.Millisecond
	}
	if opts.DiscoveryPolls <= 0 {
		opts.DiscoveryPolls = 50
	}
	if opts.ResponseInterval <= 0 {
		opts.ResponseInterval = 100 * time.Millisecond
	}
	if opts.ResponsePolls <= 0 {
		opts.ResponsePolls = 300
	}
	return &Correlator{opts: opts}
}

// SetFilterLevel asks the target peer to change its logging verbosity and
// waits for the correlated acknowledgment. All entities created for the
// exchange are released before returning, on every path.
func (c *Correlator) SetFilterLevel(ctx context.Context, target bus.Identity, level distlog.Level) (Result, error) {
	if target.IsZero() {
		return Result{}, ErrUnresolvedTarget
	}

	// The peer reads requests and writes responses; we need the inverse
	// pair, QoS-matched against what it discovered with.
	reqEp, ok := c.opts.Cache.FindEndpoint(target, c.opts.RequestTopic, bus.DirectionReader)
	if !ok {
		return Result{}, fmt.Errorf("participant %s has no command request reader", target)
	}
	respEp, ok := c.opts.Cache.FindEndpoint(target, c.opts.ResponseTopic, bus.DirectionWriter)
	if !ok {
		return Result{}, fmt.Errorf("participant %s has no command response writer", target)
	}
	if reqEp.Type == nil || respEp.Type == nil {
		return Result{}, fmt.Errorf("command channel of %s was discovered without type information", target)
	}

	reqTopic, err := c.opts.Conn.CreateTopic(c.opts.RequestTopic, reqEp.Type)
	if err != nil {
		return Result{}, fmt.Errorf("create request topic: %w", err)
	}
	respTopic, err := c.opts.Conn.CreateTopic(c.opts.ResponseTopic, respEp.Type)
	if err != nil {
		return Result{}, fmt.Errorf("create response topic: %w", err)
	}

	pub, err := c.opts.Conn.CreatePublisher(qos.PublisherQoSFor(reqEp))
	if err != nil {
		return Result{}, fmt.Errorf("create publisher: %w", err)
	}
	defer pub.Close()
	writer, err := pub.CreateWriter(reqTopic, qos.WriterQoSFor(reqEp))
	if err != nil {
		return Result{}, fmt.Errorf("create request writer: %w", err)
	}
	defer writer.Close()

	sub, err := c.opts.Conn.CreateSubscriber(responseSubscriberQoS(respEp))
	if err != nil {
		return Result{}, fmt.Errorf("create subscriber: %w", err)
	}
	defer sub.Close()
	reader, err := sub.CreateReader(respTopic, responseReaderQoS(respEp))
	if err != nil {
		return Result{}, fmt.Errorf("create response reader: %w", err)
	}
	defer reader.Close()

	req, err := c.opts.Conn.NewRecord(reqEp.Type)
	if err != nil {
		return Result{}, fmt.Errorf("build request record: %w", err)
	}
	invocation := c.opts.Clock.Now().Unix()
	if err := distlog.SetRecordIdentity(req, distlog.PathTargetID, target); err != nil {
		return Result{}, fmt.Errorf("build request record: %w", err)
	}
	if err := distlog.SetRecordIdentity(req, distlog.PathOriginatorID, originator); err != nil {
		return Result{}, fmt.Errorf("build request record: %w", err)
	}
	if err := req.SetInt64(distlog.PathInvocation, invocation); err != nil {
		return Result{}, fmt.Errorf("build request record: %w", err)
	}
	if err := req.SetInt64(distlog.PathFilterLevel, int64(level)); err != nil {
		return Result{}, fmt.Errorf("build request record: %w", err)
	}

	// The request must not be published until both sides of the exchange
	// are mutually discovered, or the reply could be lost before the
	// response reader exists.
	found, err := poll.Until(ctx, c.opts.Clock, c.opts.DiscoveryInterval, c.opts.DiscoveryPolls, func() (bool, error) {
		return writer.MatchedReaders() > 0 && reader.MatchedWriters() > 0, nil
	})
	if err != nil {
		return Result{}, err
	}
	if !found {
		return Result{}, fmt.Errorf("%w for %s", ErrNoCommandPeer, target)
	}

	if err := writer.Write(req); err != nil {
		return Result{}, fmt.Errorf("publish request: %w", err)
	}
	c.opts.Log.Info("command published",
		zap.String("target", target.String()),
		zap.Stringer("level", level),
		zap.Int64("invocation", invocation))

	var result Result
	got, err := poll.Until(ctx, c.opts.Clock, c.opts.ResponseInterval, c.opts.ResponsePolls, func() (bool, error) {
		samples, err := reader.Take()
		if err != nil {
			return false, fmt.Errorf("take responses: %w", err)
		}
		for _, sample := range samples {
			if !sample.Valid || sample.Record == nil {
				continue
			}
			rec := sample.Record
			orig, err := distlog.RecordIdentity(rec, distlog.PathOriginatorID)
			if err != nil {
				c.opts.Log.Warn("skipping malformed response", zap.Error(err))
				continue
			}
			if orig != originator {
				// Reply to some other requester.
				continue
			}
			inv, err := rec.Int64(distlog.PathInvocation)
			if err != nil {
				c.opts.Log.Warn("skipping malformed response", zap.Error(err))
				continue
			}
			if inv != invocation {
				// Stale exchange.
				continue
			}
			code, err := rec.Int64(distlog.PathResult)
			if err != nil {
				return false, fmt.Errorf("decode result code: %w", err)
			}
			msg, err := rec.String(distlog.PathMessage)
			if err != nil {
				msg = ""
			}
			result = Result{Code: code, Message: msg}
			return true, nil
		}
		return false, nil
	})
	if err != nil {
		return Result{}, err
	}
	if !got {
		return Result{}, fmt.Errorf("%w %d from %s", ErrNoResponse, invocation, target)
	}
	return result, nil
}

// responseReaderQoS restricts the QoS copy to the policies relevant to the
// request/response exchange.
func responseReaderQoS(ep bus.EndpointInfo) bus.ReaderQoS {
	var q bus.ReaderQoS
	if r := ep.QoS.Reliability; r != nil {
		cp := *r
		q.Reliability = &cp
	}
	if d := ep.QoS.Durability; d != nil {
		cp := *d
		q.Durability = &cp
	}
	return q
}

func responseSubscriberQoS(ep bus.EndpointInfo) bus.SubscriberQoS {
	var q bus.SubscriberQoS
	if p := ep.QoS.Partition; p != nil {
		cp := bus.Partition{Names: append([]string(nil), p.Names...)}
		q.Partition = &cp
	}
	return q
}
