// Package qos derives locally compatible entity QoS from a discovered
// endpoint's policy snapshot. Copying the discovered policies verbatim is
// sufficient: equal reliability always matches, an equal reader deadline
// satisfies the >= rule, and ownership must match exactly anyway. Policies
// the endpoint did not declare stay at the transport default.
package qos

import "ddspy/internal/bus"

// ReaderQoSFor builds reader QoS compatible with the discovered writer.
func ReaderQoSFor(ep bus.EndpointInfo) bus.ReaderQoS {
	var q bus.ReaderQoS
	if r := ep.QoS.Reliability; r != nil {
		cp := *r
		q.Reliability = &cp
	}
	if d := ep.QoS.Durability; d != nil {
		cp := *d
		q.Durability = &cp
	}
	if d := ep.QoS.Deadline; d != nil {
		cp := *d
		q.Deadline = &cp
	}
	if o := ep.QoS.Ownership; o != nil {
		cp := *o
		q.Ownership = &cp
	}
	return q
}

// WriterQoSFor builds writer QoS compatible with the discovered reader,
// restricted to the policies relevant to request/response exchange.
func WriterQoSFor(ep bus.EndpointInfo) bus.WriterQoS {
	var q bus.WriterQoS
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

// SubscriberQoSFor builds subscriber QoS from the discovered endpoint's
// partition and presentation. Partition lives on the subscriber group, not
// the reader: entities in disjoint partitions never communicate regardless
// of the other policies.
func SubscriberQoSFor(ep bus.EndpointInfo) bus.SubscriberQoS {
	var q bus.SubscriberQoS
	if p := ep.QoS.Partition; p != nil {
		cp := bus.Partition{Names: append([]string(nil), p.Names...)}
		q.Partition = &cp
	}
	if pr := ep.QoS.Presentation; pr != nil {
		cp := *pr
		q.Presentation = &cp
	}
	return q
}

// PublisherQoSFor builds publisher QoS mirroring the discovered endpoint's
// partition.
func PublisherQoSFor(ep bus.EndpointInfo) bus.PublisherQoS {
	var q bus.PublisherQoS
	if p := ep.QoS.Partition; p != nil {
		cp := bus.Partition{Names: append([]string(nil), p.Names...)}
		q.Partition = &cp
	}
	return q
}
