package app

import (
	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"ddspy/internal/bus"
	"ddspy/internal/command"
	"ddspy/internal/config"
	"ddspy/internal/discovery"
	"ddspy/internal/session"
)

// Options configures the top-level console controller.
type Options struct {
	Config config.Config

	// Conn is the attachment to the bus domain under inspection.
	Conn bus.Connection

	Clock clock.Clock
	Log   *zap.Logger
}

// Console exposes the high-level operations the CLI/TUI reuse: discovery
// refresh, participant/endpoint inventory, per-target monitoring sessions,
// and administrative verbosity commands.
type Console struct {
	cfg        config.Config
	conn       bus.Connection
	cache      *discovery.Cache
	sessions   *session.Manager
	correlator *command.Correlator
	clk        clock.Clock
	log        *zap.Logger
}

// New wires the discovery cache behind the connection's discovery stream
// and returns the shared controller facade.
func New(opts Options) *Console {
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}
	if opts.Log == nil {
		opts.Log = zap.NewNop()
	}
	cache := discovery.NewCache()
	opts.Conn.SetDiscoveryListener(discovery.NewListener(cache, opts.Log))

	c := &Console{
		cfg:      opts.Config,
		conn:     opts.Conn,
		cache:    cache,
		sessions: session.NewManager(opts.Log),
		clk:      opts.Clock,
		log:      opts.Log,
	}
	c.correlator = command.New(command.Options{
		Conn:              opts.Conn,
		Cache:             cache,
		Clock:             opts.Clock,
		Log:               opts.Log,
		RequestTopic:      opts.Config.CommandRequestTopic,
		ResponseTopic:     opts.Config.CommandResponseTopic,
		DiscoveryInterval: opts.Config.PollInterval,
		DiscoveryPolls:    opts.Config.DiscoveryWaitPolls,
		ResponseInterval:  opts.Config.PollInterval,
		ResponsePolls:     opts.Config.ResponseWaitPolls,
	})
	return c
}

// Config returns the effective configuration.
func (c *Console) Config() config.Config { return c.cfg }

// Refresh replays the bus's current discovery knowledge into the cache.
func (c *Console) Refresh() error {
	return c.conn.RefreshDiscovery()
}

// CloseViews tears down every open monitoring session.
func (c *Console) CloseViews() error {
	return c.sessions.CloseAll()
}

// Close releases all sessions and the bus attachment.
func (c *Console) Close() error {
	if err := c.sessions.CloseAll(); err != nil {
		c.log.Warn("closing sessions", zap.Error(err))
	}
	return c.conn.Close()
}
