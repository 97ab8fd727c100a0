// Package bus defines the capability surface this tool consumes from the
// underlying publish-subscribe transport: discovery notifications, dynamic
// record construction from discovered type descriptors, filtered topics,
// per-entity QoS, matched-peer counters, and non-blocking takes. The
// transport's own wire protocol and delivery semantics live behind these
// interfaces and are never reimplemented here.
package bus

import "fmt"

// Identity is the addressing unit for a discovered peer application.
// The zero value is a sentinel meaning "unknown" (and, on outbound
// administrative requests, "this tool").
type Identity struct {
	HostID uint32
	AppID  uint32
}

// IsZero reports whether the identity is the unresolved/originator sentinel.
func (id Identity) IsZero() bool {
	return id.HostID == 0 && id.AppID == 0
}

func (id Identity) String() string {
	return fmt.Sprintf("%d.%d", id.HostID, id.AppID)
}

// Direction tells whether a discovered endpoint produces or consumes data.
type Direction int

const (
	DirectionReader Direction = iota + 1
	DirectionWriter
)

func (d Direction) String() string {
	switch d {
	case DirectionReader:
		return "reader"
	case DirectionWriter:
		return "writer"
	default:
		return fmt.Sprintf("direction(%d)", int(d))
	}
}

// ParticipantInfo is one discovered peer. Key is the transport's system-wide
// unique key; Identity is the (host, app) pair extracted from it.
type ParticipantInfo struct {
	Key      string
	Identity Identity
	Name     string
	Address  string
}

// EndpointInfo is one discovered reader or writer. Type may be nil when the
// transport discovered the endpoint without a usable type descriptor.
type EndpointInfo struct {
	Key            string
	Direction      Direction
	Topic          string
	Type           TypeDescriptor
	ParticipantKey string
	Participant    Identity
	QoS            QoS
}

// DiscoveryListener receives asynchronous discovery notifications.
// Notifications may repeat; consumers must treat them as idempotent.
type DiscoveryListener interface {
	OnParticipant(ParticipantInfo)
	OnEndpoint(EndpointInfo)
}

// TypeDescriptor is an opaque runtime type discovered from the bus.
type TypeDescriptor interface {
	Name() string
}

// Field is one leaf value of a record, addressed by its dotted path.
type Field struct {
	Name  string
	Value any
}

// Record is a dynamically typed data sample. Field access uses dotted paths
// ("hostAndAppId.rtps_host_id"); unknown paths return an error rather than a
// zero value so decode problems surface per record.
type Record interface {
	TypeName() string
	Int64(path string) (int64, error)
	String(path string) (string, error)
	SetInt64(path string, v int64) error
	SetString(path string, v string) error
	// Fields lists every leaf field in declared order.
	Fields() []Field
}

// Sample pairs a decoded record with its validity flag. Invalid samples
// carry metadata only (e.g. disposal notices) and must be skipped.
type Sample struct {
	Record Record
	Valid  bool
}

// Connection is an attachment to one bus domain.
type Connection interface {
	Domain() int

	// SetDiscoveryListener registers the listener fed by the transport's
	// discovery stream. Passing nil detaches the current listener.
	SetDiscoveryListener(DiscoveryListener)

	// RefreshDiscovery re-delivers the currently known participant and
	// endpoint set to the registered listener.
	RefreshDiscovery() error

	// NewRecord builds a writable record from a discovered type descriptor.
	// Fails when the descriptor is absent or not introspectable.
	NewRecord(t TypeDescriptor) (Record, error)

	CreateTopic(name string, t TypeDescriptor) (Topic, error)

	// CreateFilteredTopic derives a content-filtered view of base. The
	// expression uses positional parameters ("%0", "%1", ...) bound to
	// params.
	CreateFilteredTopic(base Topic, name, expression string, params []string) (Topic, error)

	CreateSubscriber(q SubscriberQoS) (Subscriber, error)
	CreatePublisher(q PublisherQoS) (Publisher, error)

	Close() error
}

// Topic is a named, typed data channel (plain or content-filtered).
type Topic interface {
	Name() string
	Type() TypeDescriptor
	Close() error
}

// Subscriber groups readers under shared partition/presentation QoS.
type Subscriber interface {
	CreateReader(t Topic, q ReaderQoS) (Reader, error)
	Close() error
}

// Publisher groups writers under shared partition QoS.
type Publisher interface {
	CreateWriter(t Topic, q WriterQoS) (Writer, error)
	Close() error
}

// Reader consumes records. Take is non-blocking and returns whatever is
// currently available, in reception order.
type Reader interface {
	Take() ([]Sample, error)
	MatchedWriters() int
	Close() error
}

// Writer publishes records.
type Writer interface {
	Write(Record) error
	MatchedReaders() int
	Close() error
}
