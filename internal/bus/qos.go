package bus

import (
	"strings"
	"time"
)

// ReliabilityKind selects between best-effort and acknowledged delivery.
type ReliabilityKind int

const (
	BestEffort ReliabilityKind = iota
	Reliable
)

func (k ReliabilityKind) String() string {
	if k == Reliable {
		return "reliable"
	}
	return "best-effort"
}

// Reliability carries the delivery contract of an endpoint.
type Reliability struct {
	Kind            ReliabilityKind
	MaxBlockingTime time.Duration
}

// DurabilityKind controls whether late-joining readers receive history.
type DurabilityKind int

const (
	Volatile DurabilityKind = iota
	TransientLocal
)

func (k DurabilityKind) String() string {
	if k == TransientLocal {
		return "transient-local"
	}
	return "volatile"
}

type Durability struct {
	Kind DurabilityKind
}

// Deadline is the maximum expected period between consecutive samples.
type Deadline struct {
	Period time.Duration
}

// OwnershipKind must match exactly between writer and reader.
type OwnershipKind int

const (
	SharedOwnership OwnershipKind = iota
	ExclusiveOwnership
)

func (k OwnershipKind) String() string {
	if k == ExclusiveOwnership {
		return "exclusive"
	}
	return "shared"
}

type Ownership struct {
	Kind OwnershipKind
}

// Partition scopes matching: entities in disjoint partition sets never
// exchange data. An empty name set means the default partition.
type Partition struct {
	Names []string
}

func (p Partition) String() string {
	return strings.Join(p.Names, ",")
}

// AccessScope of the Presentation policy.
type AccessScope int

const (
	InstanceScope AccessScope = iota
	TopicScope
	GroupScope
)

func (s AccessScope) String() string {
	switch s {
	case TopicScope:
		return "topic"
	case GroupScope:
		return "group"
	default:
		return "instance"
	}
}

type Presentation struct {
	AccessScope    AccessScope
	CoherentAccess bool
	OrderedAccess  bool
}

// QoS is the policy snapshot captured from a discovered endpoint. Each
// policy is independently optional; nil means the endpoint did not declare
// it and the transport default applies.
type QoS struct {
	Reliability  *Reliability
	Durability   *Durability
	Deadline     *Deadline
	Ownership    *Ownership
	Partition    *Partition
	Presentation *Presentation
}

// ReaderQoS configures a locally constructed reader. Nil fields keep the
// transport defaults.
type ReaderQoS struct {
	Reliability *Reliability
	Durability  *Durability
	Deadline    *Deadline
	Ownership   *Ownership
}

// WriterQoS configures a locally constructed writer.
type WriterQoS struct {
	Reliability *Reliability
	Durability  *Durability
}

// SubscriberQoS configures a locally constructed subscriber group.
type SubscriberQoS struct {
	Partition    *Partition
	Presentation *Presentation
}

// PublisherQoS configures a locally constructed publisher group.
type PublisherQoS struct {
	Partition *Partition
}
