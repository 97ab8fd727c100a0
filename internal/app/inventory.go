package app

import "ddspy/internal/bus"

// Participants returns every discovered participant in stable display
// order, with its endpoint count.
func (c *Console) Participants() []ParticipantRow {
	infos := c.cache.Participants()
	rows := make([]ParticipantRow, 0, len(infos))
	for _, p := range infos {
		rows = append(rows, ParticipantRow{
			Identity:  p.Identity,
			Name:      p.Name,
			Address:   p.Address,
			Endpoints: len(c.cache.EndpointsFor(p.Identity)),
		})
	}
	return rows
}

// Endpoints returns the discovered endpoints owned by target, in discovery
// order.
func (c *Console) Endpoints(target bus.Identity) []EndpointRow {
	eps := c.cache.EndpointsFor(target)
	rows := make([]EndpointRow, 0, len(eps))
	for _, ep := range eps {
		rows = append(rows, endpointRow(ep))
	}
	return rows
}

// Counts reports the cache population, for the status line.
func (c *Console) Counts() (participants, endpoints int) {
	return c.cache.Counts()
}
