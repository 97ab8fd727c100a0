package discovery

import (
	"go.uber.org/zap"

	"ddspy/internal/bus"
)

// Listener adapts bus discovery notifications into cache inserts. It is the
// only write path into the cache.
type Listener struct {
	cache *Cache
	log   *zap.Logger
}

// NewListener wires a cache behind the bus discovery stream.
func NewListener(cache *Cache, log *zap.Logger) *Listener {
	if log == nil {
		log = zap.NewNop()
	}
	return &Listener{cache: cache, log: log}
}

// OnParticipant implements bus.DiscoveryListener.
func (l *Listener) OnParticipant(info bus.ParticipantInfo) {
	if l.cache.UpsertParticipant(info) {
		l.log.Info("discovered participant",
			zap.String("identity", info.Identity.String()),
			zap.String("name", info.Name),
			zap.String("address", info.Address))
	}
}

// OnEndpoint implements bus.DiscoveryListener.
func (l *Listener) OnEndpoint(info bus.EndpointInfo) {
	if l.cache.UpsertEndpoint(info) {
		l.log.Info("discovered endpoint",
			zap.String("topic", info.Topic),
			zap.Stringer("direction", info.Direction),
			zap.String("participant", info.Participant.String()))
	}
}
