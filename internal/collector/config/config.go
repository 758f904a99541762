// Package config loads and validates the tuning knobs for the cyclic
// collector: how aggressively the trigger policy throttles collections, and
// how large the engine should size its scratch buffers up front.
//
// Grounded on the teacher's internal/pkg/config.go: a small TOML-backed
// struct, unmarshalled with github.com/pelletier/go-toml/v2, with a
// hand-written "generate a commented default file" helper for first-run
// bootstrapping.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"go.uber.org/multierr"
)

// FileName is the conventional name of a collector tuning file, analogous to
// the teacher's sola.toml.
const FileName = "cyclicgc.toml"

// Config holds the tuning knobs described in SPEC_FULL.md §10.
type Config struct {
	// TickThreshold is the number of rendezvous ticks the trigger lets pass
	// before it is willing to pay for a wall-clock read (spec.md §4.4 step
	// 3's "10").
	TickThreshold uint32 `toml:"tick_threshold"`

	// ThrottleMicros is the minimum wall-clock gap, in microseconds, between
	// two trigger-initiated collections (spec.md §4.4 step 4's "10 ms").
	// Explicit Schedule() calls bypass this throttle entirely.
	ThrottleMicros int64 `toml:"throttle_micros"`

	// EngineQueueHint sizes the engine's closure-walk color map (its visited
	// set) up front. Pure performance knob, no behavioral effect.
	EngineQueueHint int `toml:"engine_queue_hint"`

	// Debug records whether a development (human-readable, Debug-level) zap
	// logger is wanted. The collector itself does not read it: New uses
	// whatever logger it is given, and a nil logger becomes a no-op one.
	Debug bool `toml:"debug"`
}

// Default returns the collector's out-of-the-box tuning.
func Default() Config {
	return Config{
		TickThreshold:   10,
		ThrottleMicros:  10_000,
		EngineQueueHint: 64,
		Debug:           false,
	}
}

// Validate reports every out-of-range field at once (rather than failing on
// the first one found), using go.uber.org/multierr so a host fixing a
// misconfigured tuning file sees the whole list in one pass.
func (c Config) Validate() error {
	var errs error
	if c.TickThreshold == 0 {
		errs = multierr.Append(errs, fmt.Errorf("tick_threshold must be > 0"))
	}
	if c.ThrottleMicros < 0 {
		errs = multierr.Append(errs, fmt.Errorf("throttle_micros must be >= 0"))
	}
	if c.EngineQueueHint < 0 {
		errs = multierr.Append(errs, fmt.Errorf("engine_queue_hint must be >= 0"))
	}
	return errs
}

// Load reads and parses a tuning file at path, falling back to Default() for
// any field the caller wants to keep unvalidated-but-sane: callers should
// still call Validate() on the result.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config file: %w", err)
	}
	return cfg, nil
}

// Save writes cfg to path as a commented TOML file.
func (c Config) Save(path string) error {
	return os.WriteFile(path, []byte(c.render()), 0o644)
}

func (c Config) render() string {
	var sb strings.Builder
	sb.WriteString("# tick_threshold: ticks the trigger lets pass before reading the wall clock\n")
	sb.WriteString(fmt.Sprintf("tick_threshold = %d\n\n", c.TickThreshold))
	sb.WriteString("# throttle_micros: minimum microseconds between trigger-initiated collections\n")
	sb.WriteString(fmt.Sprintf("throttle_micros = %d\n\n", c.ThrottleMicros))
	sb.WriteString("# engine_queue_hint: initial capacity for the closure-walk scratch buffers\n")
	sb.WriteString(fmt.Sprintf("engine_queue_hint = %d\n\n", c.EngineQueueHint))
	sb.WriteString("# debug: use a development (human-readable) logger\n")
	sb.WriteString(fmt.Sprintf("debug = %t\n", c.Debug))
	return sb.String()
}
