package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"ddspy/internal/distlog"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Domain != 1 {
		t.Errorf("Domain = %d, want 1", cfg.Domain)
	}
	if cfg.RefreshInterval != 10*time.Second {
		t.Errorf("RefreshInterval = %s, want 10s", cfg.RefreshInterval)
	}
	if cfg.PollInterval != 100*time.Millisecond {
		t.Errorf("PollInterval = %s, want 100ms", cfg.PollInterval)
	}
	if cfg.StreamBufferSize != 20 {
		t.Errorf("StreamBufferSize = %d, want 20", cfg.StreamBufferSize)
	}
	if cfg.StateCapturePasses != 4 || cfg.StateCaptureDelay != 500*time.Millisecond {
		t.Errorf("state capture = (%d, %s), want (4, 500ms)", cfg.StateCapturePasses, cfg.StateCaptureDelay)
	}
	if cfg.DiscoveryWaitPolls != 50 || cfg.ResponseWaitPolls != 300 {
		t.Errorf("wait polls = (%d, %d), want (50, 300)", cfg.DiscoveryWaitPolls, cfg.ResponseWaitPolls)
	}
	if cfg.LogTopic != distlog.DefaultLogTopic {
		t.Errorf("LogTopic = %q", cfg.LogTopic)
	}
	if cfg.CompositeIDField != distlog.DefaultCompositeIDField {
		t.Errorf("CompositeIDField = %q", cfg.CompositeIDField)
	}
	if cfg.LogFile != "" {
		t.Errorf("LogFile = %q, want empty", cfg.LogFile)
	}
}

func TestLoadEmptyPathUsesDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg != Default() {
		t.Fatalf("Load(\"\") = %+v, want defaults", cfg)
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	data := `{
		"domain": 7,
		"refresh_interval": "3s",
		"poll_interval": "50ms",
		"stream_buffer_size": 40,
		"log_topic": "custom/log",
		"composite_id_field": "sourceId",
		"log_file": "/tmp/ddspy.log"
	}`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Domain != 7 {
		t.Errorf("Domain = %d, want 7", cfg.Domain)
	}
	if cfg.RefreshInterval != 3*time.Second {
		t.Errorf("RefreshInterval = %s, want 3s", cfg.RefreshInterval)
	}
	if cfg.PollInterval != 50*time.Millisecond {
		t.Errorf("PollInterval = %s, want 50ms", cfg.PollInterval)
	}
	if cfg.StreamBufferSize != 40 {
		t.Errorf("StreamBufferSize = %d, want 40", cfg.StreamBufferSize)
	}
	if cfg.LogTopic != "custom/log" {
		t.Errorf("LogTopic = %q", cfg.LogTopic)
	}
	if cfg.CompositeIDField != "sourceId" {
		t.Errorf("CompositeIDField = %q", cfg.CompositeIDField)
	}
	if cfg.LogFile != "/tmp/ddspy.log" {
		t.Errorf("LogFile = %q", cfg.LogFile)
	}
	// Untouched fields keep their defaults.
	if cfg.StateTopic != distlog.DefaultStateTopic {
		t.Errorf("StateTopic = %q, want default", cfg.StateTopic)
	}
}

func TestLoadRejectsBadFile(t *testing.T) {
	dir := t.TempDir()

	if _, err := Load(filepath.Join(dir, "missing.json")); err == nil {
		t.Error("expected error for missing file")
	}

	bad := filepath.Join(dir, "bad.json")
	os.WriteFile(bad, []byte("{not json"), 0o644)
	if _, err := Load(bad); err == nil {
		t.Error("expected error for malformed JSON")
	}

	negative := filepath.Join(dir, "negative.json")
	os.WriteFile(negative, []byte(`{"domain": -1}`), 0o644)
	if _, err := Load(negative); err == nil {
		t.Error("expected error for negative domain")
	}

	zeroDur := filepath.Join(dir, "zero.json")
	os.WriteFile(zeroDur, []byte(`{"refresh_interval": "0s"}`), 0o644)
	if _, err := Load(zeroDur); err == nil {
		t.Error("expected error for non-positive interval")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("DDSPY_DOMAIN", "9")
	t.Setenv("DDSPY_REFRESH_INTERVAL", "2s")
	t.Setenv("DDSPY_POLL_INTERVAL", "10ms")
	t.Setenv("DDSPY_LOG_FILE", "/tmp/diag.log")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Domain != 9 {
		t.Errorf("Domain = %d, want 9", cfg.Domain)
	}
	if cfg.RefreshInterval != 2*time.Second {
		t.Errorf("RefreshInterval = %s, want 2s", cfg.RefreshInterval)
	}
	if cfg.PollInterval != 10*time.Millisecond {
		t.Errorf("PollInterval = %s, want 10ms", cfg.PollInterval)
	}
	if cfg.LogFile != "/tmp/diag.log" {
		t.Errorf("LogFile = %q", cfg.LogFile)
	}
}

func TestEnvInvalidValuesIgnored(t *testing.T) {
	t.Setenv("DDSPY_DOMAIN", "lots")
	t.Setenv("DDSPY_REFRESH_INTERVAL", "-3s")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Domain != 1 {
		t.Errorf("Domain = %d, want the default after an invalid override", cfg.Domain)
	}
	if cfg.RefreshInterval != 10*time.Second {
		t.Errorf("RefreshInterval = %s, want the default after an invalid override", cfg.RefreshInterval)
	}
}

func TestEnvOverridesWinOverFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	os.WriteFile(path, []byte(`{"domain": 4}`), 0o644)
	t.Setenv("DDSPY_DOMAIN", "6")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Domain != 6 {
		t.Fatalf("Domain = %d, want the env value 6", cfg.Domain)
	}
}
