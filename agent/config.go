package agent

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/loomhq/loom/sandbox"
)

// Config holds the tunable limits of the loop.
type Config struct {
	// MaxIterations caps model-decide-dispatch cycles per request. Hitting
	// the cap produces a warning completion, not an error.
	MaxIterations int

	// MaxParseAttempts caps model calls per malformed-decision recovery
	// chain, counting the original call as attempt one.
	MaxParseAttempts int

	// HistoryWindow is the number of recent turns sent to the model.
	HistoryWindow int

	// LoopWindow is the number of recent actions checked for repetition.
	LoopWindow int

	// SandboxTimeout bounds a single run_code execution.
	SandboxTimeout time.Duration

	// EventBuffer is the emitter channel capacity.
	EventBuffer int
}

// fileConfig is the YAML shape of a config file. Durations are written as
// strings like "5s" or "250ms".
type fileConfig struct {
	MaxIterations    int    `yaml:"max_iterations"`
	MaxParseAttempts int    `yaml:"max_parse_attempts"`
	HistoryWindow    int    `yaml:"history_window"`
	LoopWindow       int    `yaml:"loop_window"`
	SandboxTimeout   string `yaml:"sandbox_timeout"`
	EventBuffer      int    `yaml:"event_buffer"`
}

// DefaultConfig returns the standard limits.
func DefaultConfig() Config {
	return Config{
		MaxIterations:    10,
		MaxParseAttempts: 5,
		HistoryWindow:    50,
		LoopWindow:       defaultLoopWindow,
		SandboxTimeout:   5 * time.Second,
		EventBuffer:      256,
	}
}

// LoadConfig reads a YAML config file, filling unset fields from the
// defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config %s: %w", path, err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if fc.MaxIterations > 0 {
		cfg.MaxIterations = fc.MaxIterations
	}
	if fc.MaxParseAttempts > 0 {
		cfg.MaxParseAttempts = fc.MaxParseAttempts
	}
	if fc.HistoryWindow > 0 {
		cfg.HistoryWindow = fc.HistoryWindow
	}
	if fc.LoopWindow > 0 {
		cfg.LoopWindow = fc.LoopWindow
	}
	if fc.SandboxTimeout != "" {
		d, err := time.ParseDuration(fc.SandboxTimeout)
		if err != nil {
			return cfg, fmt.Errorf("parsing config %s: invalid sandbox_timeout: %w", path, err)
		}
		cfg.SandboxTimeout = d
	}
	if fc.EventBuffer > 0 {
		cfg.EventBuffer = fc.EventBuffer
	}
	return cfg, nil
}

// NewSandbox builds a sandbox honoring the configured timeout.
func (c Config) NewSandbox() *sandbox.Sandbox {
	return sandbox.NewWithTimeout(c.SandboxTimeout)
}

// NewEmitter builds an event emitter with the configured buffer.
func (c Config) NewEmitter(conversationID string) *EventEmitter {
	return NewEventEmitter(conversationID, c.EventBuffer)
}

func (c Config) normalized() Config {
	d := DefaultConfig()
	if c.MaxIterations <= 0 {
		c.MaxIterations = d.MaxIterations
	}
	if c.MaxParseAttempts <= 0 {
		c.MaxParseAttempts = d.MaxParseAttempts
	}
	if c.HistoryWindow <= 0 {
		c.HistoryWindow = d.HistoryWindow
	}
	if c.LoopWindow <= 0 {
		c.LoopWindow = d.LoopWindow
	}
	if c.SandboxTimeout <= 0 {
		c.SandboxTimeout = d.SandboxTimeout
	}
	if c.EventBuffer <= 0 {
		c.EventBuffer = d.EventBuffer
	}
	return c
}
