package config

import (
	"path/filepath"
	"testing"
)

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("Default() is invalid: %v", err)
	}
}

func TestValidateAggregatesAllViolations(t *testing.T) {
	cfg := Config{TickThreshold: 0, ThrottleMicros: -1, EngineQueueHint: -1}
	err := cfg.Validate()
	if err == nil {
		t.Fatalf("expected error")
	}
	// multierr joins the messages with "; "; a naive single-error implementation
	// would only ever report one of the three violations.
	msg := err.Error()
	for _, want := range []string{"tick_threshold", "throttle_micros", "engine_queue_hint"} {
		if !contains(msg, want) {
			t.Fatalf("Validate() error missing %q: %s", want, msg)
		}
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, FileName)

	cfg := Config{TickThreshold: 42, ThrottleMicros: 5_000, EngineQueueHint: 128, Debug: true}
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got != cfg {
		t.Fatalf("round-tripped config = %+v, want %+v", got, cfg)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Fatalf("Load(missing file) did not error")
	}
}

func contains(s, sub string) bool {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return true
		}
	}
	return false
}
