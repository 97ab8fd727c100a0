package discovery

import (
	"testing"

	"ddspy/internal/bus"
)

func participant(key string, host, app uint32) bus.ParticipantInfo {
	return bus.ParticipantInfo{
		Key:      key,
		Identity: bus.Identity{HostID: host, AppID: app},
		Name:     "peer-" + key,
	}
}

func endpoint(key, topic string, dir bus.Direction, owner bus.Identity) bus.EndpointInfo {
	return bus.EndpointInfo{
		Key:         key,
		Direction:   dir,
		Topic:       topic,
		Participant: owner,
	}
}

func TestUpsertParticipantIdempotent(t *testing.T) {
	c := NewCache()

	if !c.UpsertParticipant(participant("p1", 1, 10)) {
		t.Fatal("first insert should report new")
	}
	if c.UpsertParticipant(participant("p1", 1, 10)) {
		t.Fatal("repeated insert should be a no-op")
	}

	// First-discovered payload wins for a repeated key.
	later := participant("p1", 1, 10)
	later.Name = "renamed"
	c.UpsertParticipant(later)

	got, ok := c.Participant(bus.Identity{HostID: 1, AppID: 10})
	if !ok {
		t.Fatal("participant not found")
	}
	if got.Name != "peer-p1" {
		t.Fatalf("name = %q, want the original %q", got.Name, "peer-p1")
	}
}

func TestParticipantsSortedByIdentity(t *testing.T) {
	c := NewCache()
	c.UpsertParticipant(participant("b", 2, 1))
	c.UpsertParticipant(participant("c", 1, 9))
	c.UpsertParticipant(participant("a", 1, 3))

	got := c.Participants()
	if len(got) != 3 {
		t.Fatalf("expected 3 participants, got %d", len(got))
	}
	wantOrder := []bus.Identity{{HostID: 1, AppID: 3}, {HostID: 1, AppID: 9}, {HostID: 2, AppID: 1}}
	for i, want := range wantOrder {
		if got[i].Identity != want {
			t.Errorf("position %d: identity = %s, want %s", i, got[i].Identity, want)
		}
	}
}

func TestEndpointsForPreservesDiscoveryOrder(t *testing.T) {
	c := NewCache()
	owner := bus.Identity{HostID: 5, AppID: 50}
	other := bus.Identity{HostID: 6, AppID: 60}

	c.UpsertEndpoint(endpoint("e1", "rti/distlog", bus.DirectionWriter, owner))
	c.UpsertEndpoint(endpoint("e2", "other", bus.DirectionReader, other))
	c.UpsertEndpoint(endpoint("e3", "rti/distlog/administration/state", bus.DirectionWriter, owner))
	c.UpsertEndpoint(endpoint("e1", "ignored", bus.DirectionReader, owner)) // duplicate key

	got := c.EndpointsFor(owner)
	if len(got) != 2 {
		t.Fatalf("expected 2 endpoints, got %d", len(got))
	}
	if got[0].Key != "e1" || got[1].Key != "e3" {
		t.Fatalf("order = [%s %s], want [e1 e3]", got[0].Key, got[1].Key)
	}
}

func TestFindEndpoint(t *testing.T) {
	c := NewCache()
	owner := bus.Identity{HostID: 7, AppID: 70}

	c.UpsertEndpoint(endpoint("r", "cmd", bus.DirectionReader, owner))
	c.UpsertEndpoint(endpoint("w", "cmd", bus.DirectionWriter, owner))

	ep, ok := c.FindEndpoint(owner, "cmd", bus.DirectionWriter)
	if !ok {
		t.Fatal("writer endpoint not found")
	}
	if ep.Key != "w" {
		t.Fatalf("found %q, want %q", ep.Key, "w")
	}

	if _, ok := c.FindEndpoint(owner, "missing", bus.DirectionWriter); ok {
		t.Fatal("unexpected hit for unknown topic")
	}
	if _, ok := c.FindEndpoint(bus.Identity{HostID: 9, AppID: 9}, "cmd", bus.DirectionReader); ok {
		t.Fatal("unexpected hit for unknown participant")
	}
}

func TestCounts(t *testing.T) {
	c := NewCache()
	l := NewListener(c, nil)

	l.OnParticipant(participant("p1", 1, 1))
	l.OnParticipant(participant("p1", 1, 1))
	l.OnEndpoint(endpoint("e1", "t", bus.DirectionWriter, bus.Identity{HostID: 1, AppID: 1}))

	p, e := c.Counts()
	if p != 1 || e != 1 {
		t.Fatalf("counts = (%d, %d), want (1, 1)", p, e)
	}
}
