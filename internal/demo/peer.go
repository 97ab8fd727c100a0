// Package demo hosts simulated peer applications on the in-process bus:
// each peer publishes a log stream and a durable administrative state, and
// answers verbosity-change commands. They give the console live traffic
// without a native bus binding, and the tests a real counterparty.
package demo

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"ddspy/internal/bus"
	"ddspy/internal/distlog"
	"ddspy/internal/simbus"
)

// LogMessageType mirrors the distributed logger's log record layout.
func LogMessageType() *simbus.Type {
	return simbus.NewType("com.rti.dl.LogMessage",
		simbus.FieldSpec{Path: distlog.HostIDPath(distlog.DefaultCompositeIDField), Kind: simbus.Int64Field},
		simbus.FieldSpec{Path: distlog.AppIDPath(distlog.DefaultCompositeIDField), Kind: simbus.Int64Field},
		simbus.FieldSpec{Path: "severity", Kind: simbus.Int64Field},
		simbus.FieldSpec{Path: "text", Kind: simbus.StringField},
	)
}

// StateType mirrors the administrative state record layout.
func StateType() *simbus.Type {
	return simbus.NewType("com.rti.dl.admin.State",
		simbus.FieldSpec{Path: distlog.HostIDPath(distlog.DefaultCompositeIDField), Kind: simbus.Int64Field},
		simbus.FieldSpec{Path: distlog.AppIDPath(distlog.DefaultCompositeIDField), Kind: simbus.Int64Field},
		simbus.FieldSpec{Path: distlog.PathFilterLevel, Kind: simbus.Int64Field},
		simbus.FieldSpec{Path: "state", Kind: simbus.StringField},
	)
}

// CommandRequestType mirrors the verbosity-change request layout.
func CommandRequestType() *simbus.Type {
	return simbus.NewType("com.rti.dl.admin.CommandRequest",
		simbus.FieldSpec{Path: distlog.HostIDPath(distlog.PathTargetID), Kind: simbus.Int64Field},
		simbus.FieldSpec{Path: distlog.AppIDPath(distlog.PathTargetID), Kind: simbus.Int64Field},
		simbus.FieldSpec{Path: distlog.HostIDPath(distlog.PathOriginatorID), Kind: simbus.Int64Field},
		simbus.FieldSpec{Path: distlog.AppIDPath(distlog.PathOriginatorID), Kind: simbus.Int64Field},
		simbus.FieldSpec{Path: distlog.PathInvocation, Kind: simbus.Int64Field},
		simbus.FieldSpec{Path: distlog.PathFilterLevel, Kind: simbus.Int64Field},
	)
}

// CommandResponseType mirrors the acknowledgment layout.
func CommandResponseType() *simbus.Type {
	return simbus.NewType("com.rti.dl.admin.CommandResponse",
		simbus.FieldSpec{Path: distlog.HostIDPath(distlog.PathOriginatorID), Kind: simbus.Int64Field},
		simbus.FieldSpec{Path: distlog.AppIDPath(distlog.PathOriginatorID), Kind: simbus.Int64Field},
		simbus.FieldSpec{Path: distlog.PathInvocation, Kind: simbus.Int64Field},
		simbus.FieldSpec{Path: distlog.PathResult, Kind: simbus.Int64Field},
		simbus.FieldSpec{Path: distlog.PathMessage, Kind: simbus.StringField},
	)
}

// Topics names the four streams a peer serves.
type Topics struct {
	Log             string
	State           string
	CommandRequest  string
	CommandResponse string
}

// DefaultTopics returns the well-known administration topic names.
func DefaultTopics() Topics {
	return Topics{
		Log:             distlog.DefaultLogTopic,
		State:           distlog.DefaultStateTopic,
		CommandRequest:  distlog.DefaultCommandRequestTopic,
		CommandResponse: distlog.DefaultCommandResponseTopic,
	}
}

// PeerOptions configures a simulated peer.
type PeerOptions struct {
	Hub      *simbus.Hub
	Domain   int
	Identity bus.Identity
	Name     string
	Address  string

	// Level is the initial logging verbosity threshold.
	Level distlog.Level

	// Topics override the well-known stream names; zero fields keep the
	// defaults.
	Topics Topics

	Log *zap.Logger
}

// Peer is one simulated application attached to the bus.
type Peer struct {
	conn   *simbus.Conn
	id     bus.Identity
	topics Topics
	log    *zap.Logger

	mu          sync.Mutex
	level       distlog.Level
	seq         int
	logWriter   bus.Writer
	stateWriter bus.Writer
	reqReader   bus.Reader
	respWriter  bus.Writer
	closed      bool
}

// NewPeer attaches the peer to the hub and brings up its four endpoints,
// publishing the initial state so late-joining monitors see it.
func NewPeer(opts PeerOptions) (*Peer, error) {
	if opts.Log == nil {
		opts.Log = zap.NewNop()
	}
	topics := opts.Topics
	defaults := DefaultTopics()
	if topics.Log == "" {
		topics.Log = defaults.Log
	}
	if topics.State == "" {
		topics.State = defaults.State
	}
	if topics.CommandRequest == "" {
		topics.CommandRequest = defaults.CommandRequest
	}
	if topics.CommandResponse == "" {
		topics.CommandResponse = defaults.CommandResponse
	}

	conn := opts.Hub.Connect(opts.Domain, simbus.ParticipantConfig{
		Name:     opts.Name,
		Address:  opts.Address,
		Identity: opts.Identity,
	})
	p := &Peer{conn: conn, id: opts.Identity, topics: topics, level: opts.Level, log: opts.Log}

	reliable := &bus.Reliability{Kind: bus.Reliable, MaxBlockingTime: 100 * time.Millisecond}
	durable := &bus.Durability{Kind: bus.TransientLocal}

	pub, err := conn.CreatePublisher(bus.PublisherQoS{})
	if err != nil {
		return nil, p.abort(err)
	}
	sub, err := conn.CreateSubscriber(bus.SubscriberQoS{})
	if err != nil {
		return nil, p.abort(err)
	}

	logTopic, err := conn.CreateTopic(topics.Log, LogMessageType())
	if err != nil {
		return nil, p.abort(err)
	}
	if p.logWriter, err = pub.CreateWriter(logTopic, bus.WriterQoS{Reliability: reliable}); err != nil {
		return nil, p.abort(err)
	}

	stateTopic, err := conn.CreateTopic(topics.State, StateType())
	if err != nil {
		return nil, p.abort(err)
	}
	if p.stateWriter, err = pub.CreateWriter(stateTopic, bus.WriterQoS{Reliability: reliable, Durability: durable}); err != nil {
		return nil, p.abort(err)
	}

	reqTopic, err := conn.CreateTopic(topics.CommandRequest, CommandRequestType())
	if err != nil {
		return nil, p.abort(err)
	}
	if p.reqReader, err = sub.CreateReader(reqTopic, bus.ReaderQoS{Reliability: reliable}); err != nil {
		return nil, p.abort(err)
	}

	respTopic, err := conn.CreateTopic(topics.CommandResponse, CommandResponseType())
	if err != nil {
		return nil, p.abort(err)
	}
	if p.respWriter, err = pub.CreateWriter(respTopic, bus.WriterQoS{Reliability: reliable}); err != nil {
		return nil, p.abort(err)
	}

	if err := p.publishState(); err != nil {
		return nil, p.abort(err)
	}
	return p, nil
}

// Identity returns the peer's (host, app) pair.
func (p *Peer) Identity() bus.Identity { return p.id }

// Level returns the current verbosity threshold.
func (p *Peer) Level() distlog.Level {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.level
}

// EmitLog publishes a log record unless the peer's current verbosity
// threshold filters it out.
func (p *Peer) EmitLog(severity distlog.Level, text string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	if severity > p.level {
		return nil
	}
	rec, err := p.conn.NewRecord(LogMessageType())
	if err != nil {
		return err
	}
	if err := distlog.SetRecordIdentity(rec, distlog.DefaultCompositeIDField, p.id); err != nil {
		return err
	}
	if err := rec.SetInt64("severity", int64(severity)); err != nil {
		return err
	}
	if err := rec.SetString("text", text); err != nil {
		return err
	}
	return p.logWriter.Write(rec)
}

// Pump answers every pending command request addressed to this peer.
// Requests for other targets are left alone.
func (p *Peer) Pump() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	samples, err := p.reqReader.Take()
	if err != nil {
		return err
	}
	for _, sample := range samples {
		if !sample.Valid || sample.Record == nil {
			continue
		}
		req := sample.Record
		target, err := distlog.RecordIdentity(req, distlog.PathTargetID)
		if err != nil || target != p.id {
			continue
		}
		orig, err := distlog.RecordIdentity(req, distlog.PathOriginatorID)
		if err != nil {
			continue
		}
		invocation, err := req.Int64(distlog.PathInvocation)
		if err != nil {
			continue
		}
		levelVal, err := req.Int64(distlog.PathFilterLevel)
		if err != nil {
			continue
		}

		code := int64(0)
		msg := ""
		if lvl := distlog.Level(levelVal); validLevel(lvl) {
			p.level = lvl
			msg = fmt.Sprintf("filter level set to %s", lvl)
			p.log.Info("verbosity changed", zap.Stringer("level", lvl), zap.Int64("invocation", invocation))
		} else {
			code = 1
			msg = fmt.Sprintf("unsupported filter level %d", levelVal)
		}

		if err := p.respond(orig, invocation, code, msg); err != nil {
			return err
		}
		if code == 0 {
			if err := p.publishState(); err != nil {
				return err
			}
		}
	}
	return nil
}

// Run services commands and emits a heartbeat log record on each tick
// until the context ends.
func (p *Peer) Run(ctx context.Context, clk clock.Clock, interval time.Duration) {
	if clk == nil {
		clk = clock.New()
	}
	ticker := clk.Ticker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := p.Pump(); err != nil {
				p.log.Warn("command pump failed", zap.Error(err))
			}
			p.mu.Lock()
			p.seq++
			n := p.seq
			p.mu.Unlock()
			if err := p.EmitLog(distlog.Info, fmt.Sprintf("heartbeat %d", n)); err != nil {
				p.log.Warn("heartbeat publish failed", zap.Error(err))
			}
		}
	}
}

// Close detaches the peer from the bus.
func (p *Peer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	return p.conn.Close()
}

func (p *Peer) abort(err error) error {
	p.conn.Close()
	return err
}

func (p *Peer) respond(orig bus.Identity, invocation, code int64, msg string) error {
	rec, err := p.conn.NewRecord(CommandResponseType())
	if err != nil {
		return err
	}
	if err := distlog.SetRecordIdentity(rec, distlog.PathOriginatorID, orig); err != nil {
		return err
	}
	if err := rec.SetInt64(distlog.PathInvocation, invocation); err != nil {
		return err
	}
	if err := rec.SetInt64(distlog.PathResult, code); err != nil {
		return err
	}
	if err := rec.SetString(distlog.PathMessage, msg); err != nil {
		return err
	}
	return p.respWriter.Write(rec)
}

func (p *Peer) publishState() error {
	rec, err := p.conn.NewRecord(StateType())
	if err != nil {
		return err
	}
	if err := distlog.SetRecordIdentity(rec, distlog.DefaultCompositeIDField, p.id); err != nil {
		return err
	}
	if err := rec.SetInt64(distlog.PathFilterLevel, int64(p.level)); err != nil {
		return err
	}
	if err := rec.SetString("state", "enabled"); err != nil {
		return err
	}
	return p.stateWriter.Write(rec)
}

func validLevel(l distlog.Level) bool {
	for _, v := range distlog.Levels {
		if v == l {
			return true
		}
	}
	return false
}
