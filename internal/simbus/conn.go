package simbus

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"ddspy/internal/bus"
)

// Conn is one simulated participant's attachment to the hub.
type Conn struct {
	hub    *Hub
	domain int
	info   bus.ParticipantInfo

	// All mutable state below is guarded by hub.mu.
	listener    bus.DiscoveryListener
	subscribers []*Subscriber
	publishers  []*Publisher
	readers     []*Reader
	writers     []*Writer
	closed      bool
}

var _ bus.Connection = (*Conn)(nil)

var errConnClosed = errors.New("connection is closed")

// Domain implements bus.Connection.
func (c *Conn) Domain() int { return c.domain }

// Info returns the participant's own discovery record.
func (c *Conn) Info() bus.ParticipantInfo { return c.info }

// SetDiscoveryListener implements bus.Connection.
func (c *Conn) SetDiscoveryListener(l bus.DiscoveryListener) {
	c.hub.mu.Lock()
	c.listener = l
	c.hub.mu.Unlock()
}

// RefreshDiscovery implements bus.Connection: it replays the domain's full
// participant and endpoint set to this connection's listener. Replays repeat
// earlier notifications, so consumers must insert idempotently.
func (c *Conn) RefreshDiscovery() error {
	c.hub.mu.Lock()
	if c.closed {
		c.hub.mu.Unlock()
		return errConnClosed
	}
	l := c.listener
	var participants []bus.ParticipantInfo
	var endpoints []bus.EndpointInfo
	if l != nil {
		for _, peer := range c.hub.domains[c.domain] {
			if peer.closed {
				continue
			}
			participants = append(participants, peer.info)
			for _, w := range peer.writers {
				if !w.closed {
					endpoints = append(endpoints, w.info)
				}
			}
			for _, r := range peer.readers {
				if !r.closed {
					endpoints = append(endpoints, r.info)
				}
			}
		}
	}
	c.hub.mu.Unlock()

	if l == nil {
		return nil
	}
	for _, p := range participants {
		l.OnParticipant(p)
	}
	for _, e := range endpoints {
		l.OnEndpoint(e)
	}
	return nil
}

// NewRecord implements bus.Connection.
func (c *Conn) NewRecord(t bus.TypeDescriptor) (bus.Record, error) {
	st, err := introspect(t)
	if err != nil {
		return nil, err
	}
	return st.NewRecord(), nil
}

// CreateTopic implements bus.Connection.
func (c *Conn) CreateTopic(name string, t bus.TypeDescriptor) (bus.Topic, error) {
	st, err := introspect(t)
	if err != nil {
		return nil, err
	}
	return &topic{name: name, base: name, typ: st}, nil
}

// CreateFilteredTopic implements bus.Connection.
func (c *Conn) CreateFilteredTopic(base bus.Topic, name, expression string, params []string) (bus.Topic, error) {
	bt, ok := base.(*topic)
	if !ok || bt.filter != nil {
		return nil, errors.New("base must be a plain topic of this transport")
	}
	clauses, err := parseFilter(expression, params)
	if err != nil {
		return nil, fmt.Errorf("filtered topic %s: %w", name, err)
	}
	return &topic{name: name, base: bt.name, typ: bt.typ, filter: clauses}, nil
}

// CreateSubscriber implements bus.Connection.
func (c *Conn) CreateSubscriber(q bus.SubscriberQoS) (bus.Subscriber, error) {
	c.hub.mu.Lock()
	defer c.hub.mu.Unlock()
	if c.closed {
		return nil, errConnClosed
	}
	s := &Subscriber{conn: c, qos: q}
	c.subscribers = append(c.subscribers, s)
	return s, nil
}

// CreatePublisher implements bus.Connection.
func (c *Conn) CreatePublisher(q bus.PublisherQoS) (bus.Publisher, error) {
	c.hub.mu.Lock()
	defer c.hub.mu.Unlock()
	if c.closed {
		return nil, errConnClosed
	}
	p := &Publisher{conn: c, qos: q}
	c.publishers = append(c.publishers, p)
	return p, nil
}

// Close implements bus.Connection; closing twice is a no-op.
func (c *Conn) Close() error {
	c.hub.mu.Lock()
	defer c.hub.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	c.listener = nil
	for _, r := range c.readers {
		r.closed = true
	}
	for _, w := range c.writers {
		w.closed = true
	}
	for _, s := range c.subscribers {
		s.closed = true
	}
	for _, p := range c.publishers {
		p.closed = true
	}
	return nil
}

func introspect(t bus.TypeDescriptor) (*Type, error) {
	if t == nil {
		return nil, errors.New("no type information available")
	}
	st, ok := t.(*Type)
	if !ok {
		return nil, fmt.Errorf("type %s is not introspectable by this transport", t.Name())
	}
	return st, nil
}

// topic is a (possibly content-filtered) named channel. Base topics are
// shared handles; closing one does not affect live readers or writers.
type topic struct {
	name   string
	base   string
	typ    *Type
	filter []clause
}

func (t *topic) Name() string             { return t.name }
func (t *topic) Type() bus.TypeDescriptor { return t.typ }
func (t *topic) Close() error             { return nil }

// Subscriber groups readers under one partition/presentation QoS.
type Subscriber struct {
	conn    *Conn
	qos     bus.SubscriberQoS
	readers []*Reader
	closed  bool
}

func (s *Subscriber) partitionNames() []string {
	if s.qos.Partition != nil && len(s.qos.Partition.Names) > 0 {
		return s.qos.Partition.Names
	}
	return []string{""}
}

// CreateReader implements bus.Subscriber. Newly matched transient-local
// writers deliver their retained history to the reader immediately.
func (s *Subscriber) CreateReader(t bus.Topic, q bus.ReaderQoS) (bus.Reader, error) {
	st, ok := t.(*topic)
	if !ok {
		return nil, errors.New("topic does not belong to this transport")
	}
	h := s.conn.hub
	h.mu.Lock()
	if s.closed || s.conn.closed {
		h.mu.Unlock()
		return nil, errors.New("subscriber is closed")
	}
	r := &Reader{conn: s.conn, sub: s, top: st, qos: q}
	r.info = bus.EndpointInfo{
		Key:            uuid.NewString(),
		Direction:      bus.DirectionReader,
		Topic:          st.base,
		Type:           st.typ,
		ParticipantKey: s.conn.info.Key,
		Participant:    s.conn.info.Identity,
		QoS: bus.QoS{
			Reliability:  q.Reliability,
			Durability:   q.Durability,
			Deadline:     q.Deadline,
			Ownership:    q.Ownership,
			Partition:    s.qos.Partition,
			Presentation: s.qos.Presentation,
		},
	}
	s.readers = append(s.readers, r)
	s.conn.readers = append(s.conn.readers, r)

	// Late-joiner delivery from durable writers.
	for _, peer := range h.domains[s.conn.domain] {
		for _, w := range peer.writers {
			if writerDurability(w.qos) != bus.TransientLocal || !matched(w, r) {
				continue
			}
			for _, rec := range w.history {
				if filterAccepts(st.filter, rec) {
					r.queue = append(r.queue, bus.Sample{Record: rec.clone(), Valid: true})
				}
			}
		}
	}
	info := r.info
	domain := s.conn.domain
	h.mu.Unlock()

	h.announceEndpoint(domain, info)
	return r, nil
}

// Close implements bus.Subscriber; contained readers are closed with it.
func (s *Subscriber) Close() error {
	s.conn.hub.mu.Lock()
	defer s.conn.hub.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	for _, r := range s.readers {
		r.closed = true
	}
	return nil
}

// Publisher groups writers under one partition QoS.
type Publisher struct {
	conn    *Conn
	qos     bus.PublisherQoS
	writers []*Writer
	closed  bool
}

func (p *Publisher) partitionNames() []string {
	if p.qos.Partition != nil && len(p.qos.Partition.Names) > 0 {
		return p.qos.Partition.Names
	}
	return []string{""}
}

// CreateWriter implements bus.Publisher.
func (p *Publisher) CreateWriter(t bus.Topic, q bus.WriterQoS) (bus.Writer, error) {
	st, ok := t.(*topic)
	if !ok {
		return nil, errors.New("topic does not belong to this transport")
	}
	if st.filter != nil {
		return nil, errors.New("cannot write to a content-filtered topic")
	}
	h := p.conn.hub
	h.mu.Lock()
	if p.closed || p.conn.closed {
		h.mu.Unlock()
		return nil, errors.New("publisher is closed")
	}
	w := &Writer{conn: p.conn, pub: p, top: st, qos: q}
	w.info = bus.EndpointInfo{
		Key:            uuid.NewString(),
		Direction:      bus.DirectionWriter,
		Topic:          st.name,
		Type:           st.typ,
		ParticipantKey: p.conn.info.Key,
		Participant:    p.conn.info.Identity,
		QoS: bus.QoS{
			Reliability: q.Reliability,
			Durability:  q.Durability,
			Partition:   p.qos.Partition,
		},
	}
	p.writers = append(p.writers, w)
	p.conn.writers = append(p.conn.writers, w)
	info := w.info
	domain := p.conn.domain
	h.mu.Unlock()

	h.announceEndpoint(domain, info)
	return w, nil
}

// Close implements bus.Publisher; contained writers are closed with it.
func (p *Publisher) Close() error {
	p.conn.hub.mu.Lock()
	defer p.conn.hub.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	for _, w := range p.writers {
		w.closed = true
	}
	return nil
}

// Reader consumes records delivered by matched writers.
type Reader struct {
	conn   *Conn
	sub    *Subscriber
	top    *topic
	qos    bus.ReaderQoS
	info   bus.EndpointInfo
	queue  []bus.Sample
	closed bool
}

// Take implements bus.Reader: drains everything currently queued.
func (r *Reader) Take() ([]bus.Sample, error) {
	r.conn.hub.mu.Lock()
	defer r.conn.hub.mu.Unlock()
	if r.closed {
		return nil, errors.New("reader is closed")
	}
	out := r.queue
	r.queue = nil
	return out, nil
}

// MatchedWriters implements bus.Reader.
func (r *Reader) MatchedWriters() int {
	h := r.conn.hub
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, peer := range h.domains[r.conn.domain] {
		for _, w := range peer.writers {
			if matched(w, r) {
				n++
			}
		}
	}
	return n
}

// Close implements bus.Reader; closing twice is a no-op.
func (r *Reader) Close() error {
	r.conn.hub.mu.Lock()
	defer r.conn.hub.mu.Unlock()
	r.closed = true
	return nil
}

// Writer publishes records to matched readers.
type Writer struct {
	conn    *Conn
	pub     *Publisher
	top     *topic
	qos     bus.WriterQoS
	info    bus.EndpointInfo
	history []*Record
	closed  bool
}

// transientLocalDepth bounds the history retained for late joiners.
const transientLocalDepth = 1

// Write implements bus.Writer: delivers a copy to every matched reader
// whose filter accepts the record, retaining history when transient-local.
func (w *Writer) Write(rec bus.Record) error {
	sr, ok := rec.(*Record)
	if !ok {
		return errors.New("record does not belong to this transport")
	}
	if sr.t.Name() != w.top.typ.Name() {
		return fmt.Errorf("record type %s does not match topic type %s", sr.t.Name(), w.top.typ.Name())
	}
	h := w.conn.hub
	h.mu.Lock()
	defer h.mu.Unlock()
	if w.closed {
		return errors.New("writer is closed")
	}
	if writerDurability(w.qos) == bus.TransientLocal {
		w.history = append(w.history, sr.clone())
		if len(w.history) > transientLocalDepth {
			w.history = w.history[len(w.history)-transientLocalDepth:]
		}
	}
	for _, peer := range h.domains[w.conn.domain] {
		for _, r := range peer.readers {
			if !matched(w, r) {
				continue
			}
			if !filterAccepts(r.top.filter, sr) {
				continue
			}
			r.queue = append(r.queue, bus.Sample{Record: sr.clone(), Valid: true})
		}
	}
	return nil
}

// MatchedReaders implements bus.Writer.
func (w *Writer) MatchedReaders() int {
	h := w.conn.hub
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, peer := range h.domains[w.conn.domain] {
		for _, r := range peer.readers {
			if matched(w, r) {
				n++
			}
		}
	}
	return n
}

// Close implements bus.Writer; closing twice is a no-op.
func (w *Writer) Close() error {
	w.conn.hub.mu.Lock()
	defer w.conn.hub.mu.Unlock()
	w.closed = true
	return nil
}
