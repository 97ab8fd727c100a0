package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"ddspy/internal/distlog"
)

const (
	defaultDomain          = 1
	defaultRefreshInterval = 10 * time.Second
	defaultPollInterval    = 100 * time.Millisecond
	defaultBufferSize      = 20
	defaultStatePasses     = 4
	defaultStateDelay      = 500 * time.Millisecond
	defaultDiscoveryPolls  = 50
	defaultResponsePolls   = 300

	envDomain          = "DDSPY_DOMAIN"
	envRefreshInterval = "DDSPY_REFRESH_INTERVAL"
	envPollInterval    = "DDSPY_POLL_INTERVAL"
	envLogFile         = "DDSPY_LOG_FILE"
)

// Config aggregates the tunable topics, intervals, and bounds of the
// console. The interval/bound pairs are the visible parameters of every
// timeout-limited loop.
type Config struct {
	// Domain selects the bus domain to attach to.
	Domain int

	// RefreshInterval paces the periodic discovery refresh.
	RefreshInterval time.Duration

	// PollInterval paces sample and response polling loops.
	PollInterval time.Duration

	// StreamBufferSize caps retained display records per monitor.
	StreamBufferSize int

	// StateCapturePasses/StateCaptureDelay pace the repeated polls that
	// absorb a durable state snapshot after subscribing.
	StateCapturePasses int
	StateCaptureDelay  time.Duration

	// DiscoveryWaitPolls bounds the mutual-discovery wait of a command
	// exchange; ResponseWaitPolls bounds the reply wait. Both use
	// PollInterval steps.
	DiscoveryWaitPolls int
	ResponseWaitPolls  int

	LogTopic             string
	StateTopic           string
	CommandRequestTopic  string
	CommandResponseTopic string
	CompositeIDField     string

	// LogFile receives structured diagnostics; empty disables them (the
	// TUI owns the terminal, so there is no sensible default sink).
	LogFile string
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Domain:               defaultDomain,
		RefreshInterval:      defaultRefreshInterval,
		PollInterval:         defaultPollInterval,
		StreamBufferSize:     defaultBufferSize,
		StateCapturePasses:   defaultStatePasses,
		StateCaptureDelay:    defaultStateDelay,
		DiscoveryWaitPolls:   defaultDiscoveryPolls,
		ResponseWaitPolls:    defaultResponsePolls,
		LogTopic:             distlog.DefaultLogTopic,
		StateTopic:           distlog.DefaultStateTopic,
		CommandRequestTopic:  distlog.DefaultCommandRequestTopic,
		CommandResponseTopic: distlog.DefaultCommandResponseTopic,
		CompositeIDField:     distlog.DefaultCompositeIDField,
	}
}

// Load builds a Config from an optional JSON file path plus environment
// overrides.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		if err := applyFile(&cfg, path); err != nil {
			return cfg, fmt.Errorf("load config %s: %w", path, err)
		}
	}

	applyEnvOverrides(&cfg)
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv(envDomain); v != "" {
		var d int
		if _, err := fmt.Sscanf(v, "%d", &d); err == nil && d >= 0 {
			cfg.Domain = d
		} else {
			log.Printf("invalid %s value %q", envDomain, v)
		}
	}

	if v := os.Getenv(envRefreshInterval); v != "" {
		if dur, err := time.ParseDuration(v); err == nil && dur > 0 {
			cfg.RefreshInterval = dur
		} else {
			log.Printf("invalid %s value %q", envRefreshInterval, v)
		}
	}

	if v := os.Getenv(envPollInterval); v != "" {
		if dur, err := time.ParseDuration(v); err == nil && dur > 0 {
			cfg.PollInterval = dur
		} else {
			log.Printf("invalid %s value %q", envPollInterval, v)
		}
	}

	if v := os.Getenv(envLogFile); v != "" {
		cfg.LogFile = v
	}
}

type fileConfig struct {
	Domain               *int   `json:"domain"`
	RefreshInterval      string `json:"refresh_interval"`
	PollInterval         string `json:"poll_interval"`
	StreamBufferSize     *int   `json:"stream_buffer_size"`
	StateCapturePasses   *int   `json:"state_capture_passes"`
	StateCaptureDelay    string `json:"state_capture_delay"`
	DiscoveryWaitPolls   *int   `json:"discovery_wait_polls"`
	ResponseWaitPolls    *int   `json:"response_wait_polls"`
	LogTopic             string `json:"log_topic"`
	StateTopic           string `json:"state_topic"`
	CommandRequestTopic  string `json:"command_request_topic"`
	CommandResponseTopic string `json:"command_response_topic"`
	CompositeIDField     string `json:"composite_id_field"`
	LogFile              string `json:"log_file"`
}

func applyFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var raw fileConfig
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	if raw.Domain != nil {
		if *raw.Domain < 0 {
			return errors.New("domain must be >= 0")
		}
		cfg.Domain = *raw.Domain
	}
	if err := applyDuration(&cfg.RefreshInterval, raw.RefreshInterval, "refresh_interval"); err != nil {
		return err
	}
	if err := applyDuration(&cfg.PollInterval, raw.PollInterval, "poll_interval"); err != nil {
		return err
	}
	if err := applyDuration(&cfg.StateCaptureDelay, raw.StateCaptureDelay, "state_capture_delay"); err != nil {
		return err
	}
	if raw.StreamBufferSize != nil && *raw.StreamBufferSize > 0 {
		cfg.StreamBufferSize = *raw.StreamBufferSize
	}
	if raw.StateCapturePasses != nil && *raw.StateCapturePasses > 0 {
		cfg.StateCapturePasses = *raw.StateCapturePasses
	}
	if raw.DiscoveryWaitPolls != nil && *raw.DiscoveryWaitPolls > 0 {
		cfg.DiscoveryWaitPolls = *raw.DiscoveryWaitPolls
	}
	if raw.ResponseWaitPolls != nil && *raw.ResponseWaitPolls > 0 {
		cfg.ResponseWaitPolls = *raw.ResponseWaitPolls
	}
	if raw.LogTopic != "" {
		cfg.LogTopic = raw.LogTopic
	}
	if raw.StateTopic != "" {
		cfg.StateTopic = raw.StateTopic
	}
	if raw.CommandRequestTopic != "" {
		cfg.CommandRequestTopic = raw.CommandRequestTopic
	}
	if raw.CommandResponseTopic != "" {
		cfg.CommandResponseTopic = raw.CommandResponseTopic
	}
	if raw.CompositeIDField != "" {
		cfg.CompositeIDField = raw.CompositeIDField
	}
	if raw.LogFile != "" {
		cfg.LogFile = raw.LogFile
	}
	return nil
}

func applyDuration(dst *time.Duration, raw, name string) error {
	if raw == "" {
		return nil
	}
	dur, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	if dur <= 0 {
		return fmt.Errorf("%s must be positive", name)
	}
	*dst = dur
	return nil
}
