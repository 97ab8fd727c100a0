// Package discovery keeps the latest known set of bus participants and
// endpoints, fed by discovery notifications. Entries are retained for the
// process lifetime; the discovery stream in scope never retracts them.
package discovery

import (
	"sort"
	"sync"

	"ddspy/internal/bus"
)

// Cache is a threadsafe in-memory catalog of discovered participants and
// endpoints. Inserts are idempotent: the first-discovered payload for a key
// wins and later notifications for the same key are no-ops.
type Cache struct {
	mu           sync.RWMutex
	participants map[string]*bus.ParticipantInfo
	endpoints    map[string]*bus.EndpointInfo
	// Endpoint keys grouped by owning participant identity, for cheap
	// per-target queries. Insertion order is preserved per participant.
	byParticipant map[bus.Identity][]string
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{
		participants:  make(map[string]*bus.ParticipantInfo),
		endpoints:     make(map[string]*bus.EndpointInfo),
		byParticipant: make(map[bus.Identity][]string),
	}
}

// UpsertParticipant records a discovered participant. Returns true when the
// participant was new.
func (c *Cache) UpsertParticipant(info bus.ParticipantInfo) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.participants[info.Key]; ok {
		return false
	}
	cp := info
	c.participants[info.Key] = &cp
	return true
}

// UpsertEndpoint records a discovered endpoint. Returns true when the
// endpoint was new.
func (c *Cache) UpsertEndpoint(info bus.EndpointInfo) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.endpoints[info.Key]; ok {
		return false
	}
	cp := info
	c.endpoints[info.Key] = &cp
	c.byParticipant[info.Participant] = append(c.byParticipant[info.Participant], info.Key)
	return true
}

// Participant looks up a participant by identity.
func (c *Cache) Participant(id bus.Identity) (bus.ParticipantInfo, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, p := range c.participants {
		if p.Identity == id {
			return *p, true
		}
	}
	return bus.ParticipantInfo{}, false
}

// Participants returns every known participant, sorted by identity so the
// display order is stable across refreshes.
func (c *Cache) Participants() []bus.ParticipantInfo {
	c.mu.RLock()
	out := make([]bus.ParticipantInfo, 0, len(c.participants))
	for _, p := range c.participants {
		out = append(out, *p)
	}
	c.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].Identity, out[j].Identity
		if a.HostID != b.HostID {
			return a.HostID < b.HostID
		}
		return a.AppID < b.AppID
	})
	return out
}

// EndpointsFor returns all endpoints owned by the given participant, in
// discovery order.
func (c *Cache) EndpointsFor(id bus.Identity) []bus.EndpointInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()
	keys := c.byParticipant[id]
	out := make([]bus.EndpointInfo, 0, len(keys))
	for _, k := range keys {
		if e := c.endpoints[k]; e != nil {
			out = append(out, *e)
		}
	}
	return out
}

// FindEndpoint returns the first endpoint of the participant bound to the
// given topic with the given direction.
func (c *Cache) FindEndpoint(id bus.Identity, topic string, dir bus.Direction) (bus.EndpointInfo, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, k := range c.byParticipant[id] {
		e := c.endpoints[k]
		if e != nil && e.Topic == topic && e.Direction == dir {
			return *e, true
		}
	}
	return bus.EndpointInfo{}, false
}

// Counts reports the number of known participants and endpoints.
func (c *Cache) Counts() (participants, endpoints int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.participants), len(c.endpoints)
}
