package qos

import (
	"testing"
	"time"

	"ddspy/internal/bus"
)

func fullEndpoint() bus.EndpointInfo {
	return bus.EndpointInfo{
		QoS: bus.QoS{
			Reliability:  &bus.Reliability{Kind: bus.Reliable},
			Durability:   &bus.Durability{Kind: bus.TransientLocal},
			Deadline:     &bus.Deadline{Period: 2 * time.Second},
			Ownership:    &bus.Ownership{Kind: bus.ExclusiveOwnership},
			Partition:    &bus.Partition{Names: []string{"A", "B"}},
			Presentation: &bus.Presentation{AccessScope: bus.TopicScope},
		},
	}
}

func TestReaderQoSForCopiesAllFour(t *testing.T) {
	q := ReaderQoSFor(fullEndpoint())

	if q.Reliability == nil || q.Reliability.Kind != bus.Reliable {
		t.Error("reliability not copied")
	}
	if q.Durability == nil || q.Durability.Kind != bus.TransientLocal {
		t.Error("durability not copied")
	}
	if q.Deadline == nil || q.Deadline.Period != 2*time.Second {
		t.Error("deadline not copied")
	}
	if q.Ownership == nil || q.Ownership.Kind != bus.ExclusiveOwnership {
		t.Error("ownership not copied")
	}
}

func TestReaderQoSForLeavesUndeclaredUnset(t *testing.T) {
	ep := bus.EndpointInfo{QoS: bus.QoS{Durability: &bus.Durability{Kind: bus.TransientLocal}}}
	q := ReaderQoSFor(ep)

	if q.Reliability != nil {
		t.Error("reliability should stay at the transport default")
	}
	if q.Durability == nil {
		t.Error("declared durability was dropped")
	}
	if q.Deadline != nil || q.Ownership != nil {
		t.Error("undeclared policies should stay unset")
	}
}

func TestReaderQoSForCopiesNotAliases(t *testing.T) {
	ep := fullEndpoint()
	q := ReaderQoSFor(ep)

	q.Reliability.Kind = bus.BestEffort
	if ep.QoS.Reliability.Kind != bus.Reliable {
		t.Fatal("derived QoS aliases the discovered snapshot")
	}
}

func TestWriterQoSForRestricted(t *testing.T) {
	q := WriterQoSFor(fullEndpoint())

	if q.Reliability == nil || q.Reliability.Kind != bus.Reliable {
		t.Error("reliability not copied")
	}
	if q.Durability == nil || q.Durability.Kind != bus.TransientLocal {
		t.Error("durability not copied")
	}
}

func TestSubscriberQoSFor(t *testing.T) {
	ep := fullEndpoint()
	q := SubscriberQoSFor(ep)

	if q.Partition == nil || len(q.Partition.Names) != 2 {
		t.Fatal("partition not copied")
	}
	q.Partition.Names[0] = "mutated"
	if ep.QoS.Partition.Names[0] != "A" {
		t.Fatal("partition names alias the discovered snapshot")
	}
	if q.Presentation == nil || q.Presentation.AccessScope != bus.TopicScope {
		t.Error("presentation not copied")
	}
}

func TestPublisherQoSFor(t *testing.T) {
	q := PublisherQoSFor(fullEndpoint())
	if q.Partition == nil || len(q.Partition.Names) != 2 {
		t.Fatal("partition not copied")
	}

	empty := PublisherQoSFor(bus.EndpointInfo{})
	if empty.Partition != nil {
		t.Fatal("undeclared partition should stay unset")
	}
}
