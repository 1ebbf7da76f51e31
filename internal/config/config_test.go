package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "RECORD_SUBSET_BOUND", "EVENT_CHANNEL", "TITLE_SWEEP_MINUTES"} {
		t.Setenv(key, "")
	}

	cfg := Load()

	if cfg.Port != "8080" {
		t.Errorf("Port: got %q, want 8080", cfg.Port)
	}
	if cfg.SubsetBound != 8 {
		t.Errorf("SubsetBound: got %d, want 8", cfg.SubsetBound)
	}
	if cfg.EventChannel != "domain_events" {
		t.Errorf("EventChannel: got %q, want domain_events", cfg.EventChannel)
	}
	if cfg.TitleSweepMinutes != 60 {
		t.Errorf("TitleSweepMinutes: got %d, want 60", cfg.TitleSweepMinutes)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("RECORD_SUBSET_BOUND", "4")
	t.Setenv("EVENT_CHANNEL", "squid_events")

	cfg := Load()
	if cfg.Port != "9090" {
		t.Errorf("Port: got %q, want 9090", cfg.Port)
	}
	if cfg.SubsetBound != 4 {
		t.Errorf("SubsetBound: got %d, want 4", cfg.SubsetBound)
	}
	if cfg.EventChannel != "squid_events" {
		t.Errorf("EventChannel: got %q, want squid_events", cfg.EventChannel)
	}
}

func TestGetEnvIntBadValue(t *testing.T) {
	t.Setenv("RECORD_SUBSET_BOUND", "not-a-number")

	if cfg := Load(); cfg.SubsetBound != 8 {
		t.Errorf("SubsetBound: got %d, want fallback 8", cfg.SubsetBound)
	}
}
