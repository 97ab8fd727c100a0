// Package simbus is an in-process transport implementing the bus capability
// interface: domain-scoped discovery, QoS-checked matching, partition
// scoping, transient-local history for late joiners, and content-filtered
// delivery. It stands in for a native bus binding so the console, the demo
// peers, and the tests can exchange live traffic inside one process.
package simbus

import (
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"ddspy/internal/bus"
)

// Hub connects simulated participants. Participants on different domains
// never discover each other or exchange data.
type Hub struct {
	mu      sync.Mutex
	domains map[int][]*Conn
}

// NewHub returns an empty hub.
func NewHub() *Hub {
	return &Hub{domains: make(map[int][]*Conn)}
}

// ParticipantConfig names a joining participant.
type ParticipantConfig struct {
	Name     string
	Address  string
	Identity bus.Identity
}

// Connect attaches a new participant to the given domain.
func (h *Hub) Connect(domain int, cfg ParticipantConfig) *Conn {
	c := &Conn{
		hub:    h,
		domain: domain,
		info: bus.ParticipantInfo{
			Key:      uuid.NewString(),
			Identity: cfg.Identity,
			Name:     cfg.Name,
			Address:  cfg.Address,
		},
	}
	h.mu.Lock()
	h.domains[domain] = append(h.domains[domain], c)
	listeners := h.listenersLocked(domain)
	h.mu.Unlock()

	for _, l := range listeners {
		l.OnParticipant(c.info)
	}
	return c
}

// OpenReaders counts live readers on a domain. Test/diagnostic helper.
func (h *Hub) OpenReaders(domain int) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, c := range h.domains[domain] {
		for _, r := range c.readers {
			if !r.closed {
				n++
			}
		}
	}
	return n
}

// OpenSubscribers counts live subscriber groups on a domain.
func (h *Hub) OpenSubscribers(domain int) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, c := range h.domains[domain] {
		for _, s := range c.subscribers {
			if !s.closed {
				n++
			}
		}
	}
	return n
}

// OpenWriters counts live writers on a domain.
func (h *Hub) OpenWriters(domain int) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, c := range h.domains[domain] {
		for _, w := range c.writers {
			if !w.closed {
				n++
			}
		}
	}
	return n
}

func (h *Hub) listenersLocked(domain int) []bus.DiscoveryListener {
	var out []bus.DiscoveryListener
	for _, c := range h.domains[domain] {
		if !c.closed && c.listener != nil {
			out = append(out, c.listener)
		}
	}
	return out
}

// announceEndpoint pushes a fresh endpoint to every listener on the domain.
func (h *Hub) announceEndpoint(domain int, info bus.EndpointInfo) {
	h.mu.Lock()
	listeners := h.listenersLocked(domain)
	h.mu.Unlock()
	for _, l := range listeners {
		l.OnEndpoint(info)
	}
}

// matched applies the matching rules between a live writer and reader.
func matched(w *Writer, r *Reader) bool {
	if w.closed || r.closed || w.conn.closed || r.conn.closed {
		return false
	}
	if w.top.name != r.top.base {
		return false
	}
	if w.top.typ.Name() != r.top.typ.Name() {
		return false
	}
	if !partitionsOverlap(w.pub.partitionNames(), r.sub.partitionNames()) {
		return false
	}
	// Requested-offered checks: a reader may not request a stronger policy
	// than the writer offers.
	if readerReliability(r.qos) == bus.Reliable && writerReliability(w.qos) == bus.BestEffort {
		return false
	}
	if readerDurability(r.qos) == bus.TransientLocal && writerDurability(w.qos) == bus.Volatile {
		return false
	}
	// Writers in this transport always offer shared ownership; an
	// exclusive-ownership reader therefore never matches.
	if readerOwnership(r.qos) != bus.SharedOwnership {
		return false
	}
	return true
}

func partitionsOverlap(a, b []string) bool {
	for _, x := range a {
		for _, y := range b {
			if x == y {
				return true
			}
		}
	}
	return false
}

// Transport defaults mirror the usual DDS defaults: writers offer reliable
// delivery, readers request best-effort; everything is volatile and shared.
func writerReliability(q bus.WriterQoS) bus.ReliabilityKind {
	if q.Reliability != nil {
		return q.Reliability.Kind
	}
	return bus.Reliable
}

func readerReliability(q bus.ReaderQoS) bus.ReliabilityKind {
	if q.Reliability != nil {
		return q.Reliability.Kind
	}
	return bus.BestEffort
}

func writerDurability(q bus.WriterQoS) bus.DurabilityKind {
	if q.Durability != nil {
		return q.Durability.Kind
	}
	return bus.Volatile
}

func readerDurability(q bus.ReaderQoS) bus.DurabilityKind {
	if q.Durability != nil {
		return q.Durability.Kind
	}
	return bus.Volatile
}

func readerOwnership(q bus.ReaderQoS) bus.OwnershipKind {
	if q.Ownership != nil {
		return q.Ownership.Kind
	}
	return bus.SharedOwnership
}

// clause is one "path = %N" term of a content filter, with its parameter
// already substituted.
type clause struct {
	path  string
	value string
}

func parseFilter(expression string, params []string) ([]clause, error) {
	terms := strings.Split(expression, " AND ")
	out := make([]clause, 0, len(terms))
	for _, term := range terms {
		parts := strings.SplitN(strings.TrimSpace(term), "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("malformed filter term %q", term)
		}
		path := strings.TrimSpace(parts[0])
		ref := strings.TrimSpace(parts[1])
		if !strings.HasPrefix(ref, "%") {
			return nil, fmt.Errorf("filter term %q: only positional parameters are supported", term)
		}
		idx := 0
		if _, err := fmt.Sscanf(ref, "%%%d", &idx); err != nil {
			return nil, fmt.Errorf("filter term %q: bad parameter reference", term)
		}
		if idx < 0 || idx >= len(params) {
			return nil, fmt.Errorf("filter term %q references parameter %d, have %d", term, idx, len(params))
		}
		out = append(out, clause{path: path, value: params[idx]})
	}
	return out, nil
}

func (c clause) matches(rec *Record) bool {
	v, ok := rec.values[c.path]
	if !ok {
		return false
	}
	return fmt.Sprint(v) == c.value
}

func filterAccepts(filter []clause, rec *Record) bool {
	for _, c := range filter {
		if !c.matches(rec) {
			return false
		}
	}
	return true
}
