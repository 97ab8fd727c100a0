package app

import (
	"fmt"
	"strings"

	"ddspy/internal/bus"
)

// ParticipantRow is the display projection of a discovered participant.
type ParticipantRow struct {
	Identity  bus.Identity
	Name      string
	Address   string
	Endpoints int
}

// EndpointRow is the display projection of a discovered endpoint.
type EndpointRow struct {
	Key       string
	Topic     string
	Direction bus.Direction
	TypeName  string
	QoS       string
}

func endpointRow(ep bus.EndpointInfo) EndpointRow {
	typeName := "<no type>"
	if ep.Type != nil {
		typeName = ep.Type.Name()
	}
	return EndpointRow{
		Key:       ep.Key,
		Topic:     ep.Topic,
		Direction: ep.Direction,
		TypeName:  typeName,
		QoS:       qosSummary(ep.QoS),
	}
}

// qosSummary formats the declared policies of an endpoint for the detail
// view; undeclared policies are omitted rather than shown as defaults.
func qosSummary(q bus.QoS) string {
	var parts []string
	if q.Reliability != nil {
		parts = append(parts, fmt.Sprintf("reliability=%s", q.Reliability.Kind))
	}
	if q.Durability != nil {
		parts = append(parts, fmt.Sprintf("durability=%s", q.Durability.Kind))
	}
	if q.Deadline != nil {
		parts = append(parts, fmt.Sprintf("deadline=%s", q.Deadline.Period))
	}
	if q.Ownership != nil {
		parts = append(parts, fmt.Sprintf("ownership=%s", q.Ownership.Kind))
	}
	if q.Partition != nil && len(q.Partition.Names) > 0 {
		parts = append(parts, fmt.Sprintf("partition=[%s]", q.Partition))
	}
	if q.Presentation != nil {
		parts = append(parts, fmt.Sprintf("presentation=%s", q.Presentation.AccessScope))
	}
	if len(parts) == 0 {
		return "default"
	}
	return strings.Join(parts, " ")
}
