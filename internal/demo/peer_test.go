package demo

import (
	"testing"

	"ddspy/internal/bus"
	"ddspy/internal/discovery"
	"ddspy/internal/distlog"
	"ddspy/internal/simbus"
)

var (
	peerID     = bus.Identity{HostID: 10, AppID: 20}
	requester  = bus.Identity{}
	invocation = int64(1234567890)
)

func startPeer(t *testing.T, h *simbus.Hub, level distlog.Level) *Peer {
	t.Helper()
	p, err := NewPeer(PeerOptions{
		Hub:      h,
		Domain:   1,
		Identity: peerID,
		Name:     "peer",
		Address:  "10.0.0.1",
		Level:    level,
	})
	if err != nil {
		t.Fatalf("start peer: %v", err)
	}
	t.Cleanup(func() { p.Close() })
	return p
}

func observe(t *testing.T, h *simbus.Hub) (*simbus.Conn, *discovery.Cache) {
	t.Helper()
	conn := h.Connect(1, simbus.ParticipantConfig{Name: "observer"})
	cache := discovery.NewCache()
	conn.SetDiscoveryListener(discovery.NewListener(cache, nil))
	if err := conn.RefreshDiscovery(); err != nil {
		t.Fatalf("refresh discovery: %v", err)
	}
	return conn, cache
}

func TestPeerAnnouncesItsEndpoints(t *testing.T) {
	h := simbus.NewHub()
	startPeer(t, h, distlog.Warning)
	_, cache := observe(t, h)

	eps := cache.EndpointsFor(peerID)
	if len(eps) != 4 {
		t.Fatalf("peer announced %d endpoints, want 4", len(eps))
	}

	checks := []struct {
		topic string
		dir   bus.Direction
	}{
		{distlog.DefaultLogTopic, bus.DirectionWriter},
		{distlog.DefaultStateTopic, bus.DirectionWriter},
		{distlog.DefaultCommandRequestTopic, bus.DirectionReader},
		{distlog.DefaultCommandResponseTopic, bus.DirectionWriter},
	}
	for _, c := range checks {
		if _, ok := cache.FindEndpoint(peerID, c.topic, c.dir); !ok {
			t.Errorf("missing %s %s", c.topic, c.dir)
		}
	}
}

func TestEmitLogHonorsThreshold(t *testing.T) {
	h := simbus.NewHub()
	p := startPeer(t, h, distlog.Warning)
	conn, _ := observe(t, h)

	top, err := conn.CreateTopic(distlog.DefaultLogTopic, LogMessageType())
	if err != nil {
		t.Fatalf("create topic: %v", err)
	}
	sub, _ := conn.CreateSubscriber(bus.SubscriberQoS{})
	r, err := sub.CreateReader(top, bus.ReaderQoS{})
	if err != nil {
		t.Fatalf("create reader: %v", err)
	}

	if err := p.EmitLog(distlog.Debug, "too detailed"); err != nil {
		t.Fatalf("emit: %v", err)
	}
	if err := p.EmitLog(distlog.Error, "boom"); err != nil {
		t.Fatalf("emit: %v", err)
	}

	samples, err := r.Take()
	if err != nil {
		t.Fatalf("take: %v", err)
	}
	if len(samples) != 1 {
		t.Fatalf("got %d records, want 1 (threshold should drop DEBUG)", len(samples))
	}
	text, _ := samples[0].Record.String("text")
	if text != "boom" {
		t.Fatalf("text = %q", text)
	}
	sev, _ := samples[0].Record.Int64("severity")
	if sev != int64(distlog.Error) {
		t.Fatalf("severity = %d, want %d", sev, int64(distlog.Error))
	}
}

// sendRequest publishes one command request from the observer connection.
func sendRequest(t *testing.T, conn *simbus.Conn, target bus.Identity, level int64) bus.Reader {
	t.Helper()
	reqTop, err := conn.CreateTopic(distlog.DefaultCommandRequestTopic, CommandRequestType())
	if err != nil {
		t.Fatalf("create request topic: %v", err)
	}
	respTop, err := conn.CreateTopic(distlog.DefaultCommandResponseTopic, CommandResponseType())
	if err != nil {
		t.Fatalf("create response topic: %v", err)
	}

	sub, _ := conn.CreateSubscriber(bus.SubscriberQoS{})
	respReader, err := sub.CreateReader(respTop, bus.ReaderQoS{})
	if err != nil {
		t.Fatalf("create response reader: %v", err)
	}

	pub, _ := conn.CreatePublisher(bus.PublisherQoS{})
	w, err := pub.CreateWriter(reqTop, bus.WriterQoS{})
	if err != nil {
		t.Fatalf("create request writer: %v", err)
	}

	req, err := conn.NewRecord(CommandRequestType())
	if err != nil {
		t.Fatalf("new record: %v", err)
	}
	distlog.SetRecordIdentity(req, distlog.PathTargetID, target)
	distlog.SetRecordIdentity(req, distlog.PathOriginatorID, requester)
	req.SetInt64(distlog.PathInvocation, invocation)
	req.SetInt64(distlog.PathFilterLevel, level)
	if err := w.Write(req); err != nil {
		t.Fatalf("write request: %v", err)
	}
	return respReader
}

func TestPumpAppliesValidLevelAndResponds(t *testing.T) {
	h := simbus.NewHub()
	p := startPeer(t, h, distlog.Warning)
	conn, _ := observe(t, h)

	respReader := sendRequest(t, conn, peerID, int64(distlog.Trace))
	if err := p.Pump(); err != nil {
		t.Fatalf("pump: %v", err)
	}

	if got := p.Level(); got != distlog.Trace {
		t.Fatalf("level = %s, want TRACE", got)
	}

	samples, err := respReader.Take()
	if err != nil {
		t.Fatalf("take responses: %v", err)
	}
	if len(samples) != 1 {
		t.Fatalf("got %d responses, want 1", len(samples))
	}
	resp := samples[0].Record

	orig, err := distlog.RecordIdentity(resp, distlog.PathOriginatorID)
	if err != nil || orig != requester {
		t.Fatalf("originator = %v (err %v), want the requester's", orig, err)
	}
	if inv, _ := resp.Int64(distlog.PathInvocation); inv != invocation {
		t.Fatalf("invocation = %d, want %d", inv, invocation)
	}
	if code, _ := resp.Int64(distlog.PathResult); code != 0 {
		t.Fatalf("result = %d, want 0", code)
	}
}

func TestPumpRejectsInvalidLevel(t *testing.T) {
	h := simbus.NewHub()
	p := startPeer(t, h, distlog.Warning)
	conn, _ := observe(t, h)

	respReader := sendRequest(t, conn, peerID, 450)
	if err := p.Pump(); err != nil {
		t.Fatalf("pump: %v", err)
	}

	if got := p.Level(); got != distlog.Warning {
		t.Fatalf("level changed to %s on an invalid request", got)
	}
	samples, _ := respReader.Take()
	if len(samples) != 1 {
		t.Fatalf("got %d responses, want 1", len(samples))
	}
	if code, _ := samples[0].Record.Int64(distlog.PathResult); code == 0 {
		t.Fatal("expected a non-zero result code")
	}
}

func TestPumpIgnoresRequestsForOtherTargets(t *testing.T) {
	h := simbus.NewHub()
	p := startPeer(t, h, distlog.Warning)
	conn, _ := observe(t, h)

	respReader := sendRequest(t, conn, bus.Identity{HostID: 99, AppID: 99}, int64(distlog.Info))
	if err := p.Pump(); err != nil {
		t.Fatalf("pump: %v", err)
	}

	if got := p.Level(); got != distlog.Warning {
		t.Fatalf("level changed to %s by a foreign request", got)
	}
	if samples, _ := respReader.Take(); len(samples) != 0 {
		t.Fatalf("peer answered a request addressed elsewhere (%d responses)", len(samples))
	}
}

func TestStateRepublishedAfterAcceptedCommand(t *testing.T) {
	h := simbus.NewHub()
	p := startPeer(t, h, distlog.Warning)
	conn, _ := observe(t, h)

	respReader := sendRequest(t, conn, peerID, int64(distlog.Debug))
	if err := p.Pump(); err != nil {
		t.Fatalf("pump: %v", err)
	}
	if samples, _ := respReader.Take(); len(samples) != 1 {
		t.Fatal("missing acknowledgment")
	}

	// A late-joining durable reader must see the updated state snapshot.
	top, _ := conn.CreateTopic(distlog.DefaultStateTopic, StateType())
	sub, _ := conn.CreateSubscriber(bus.SubscriberQoS{})
	r, err := sub.CreateReader(top, bus.ReaderQoS{
		Reliability: &bus.Reliability{Kind: bus.Reliable},
		Durability:  &bus.Durability{Kind: bus.TransientLocal},
	})
	if err != nil {
		t.Fatalf("create state reader: %v", err)
	}
	samples, err := r.Take()
	if err != nil {
		t.Fatalf("take state: %v", err)
	}
	if len(samples) != 1 {
		t.Fatalf("got %d state records, want the retained snapshot", len(samples))
	}
	lvl, _ := samples[0].Record.Int64(distlog.PathFilterLevel)
	if lvl != int64(distlog.Debug) {
		t.Fatalf("retained filter level = %d, want %d", lvl, int64(distlog.Debug))
	}
}
