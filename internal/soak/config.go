// Package soak runs a left-right instance under concurrent load and checks
// that readers only ever observe published, internally consistent states.
package soak

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/llxisdsh/leftright"
)

// LogCfg configures the soak tool's logger.
type LogCfg struct {
	Level  string `yaml:"level"`  // panic | fatal | error | warn | info | debug | trace
	Format string `yaml:"format"` // text | json
}

// Config describes one soak run.
type Config struct {
	Readers      int           `yaml:"readers"`      // concurrent read handles
	Keys         int           `yaml:"keys"`         // key space of the table
	Writes       int           `yaml:"writes"`       // total ops appended by the writer
	Batch        int           `yaml:"batch"`        // ops per publish
	PublishRate  float64       `yaml:"publishRate"`  // publishes per second, <=0 means unpaced
	WaitStrategy string        `yaml:"waitStrategy"` // backoff | spin | park
	StallWarn    time.Duration `yaml:"stallWarn"`    // log when a publish waits longer, 0 disables
	HoldGuard    time.Duration `yaml:"holdGuard"`    // time each reader keeps a guard
	Seed         uint64        `yaml:"seed"`         // op stream seed
	Log          LogCfg        `yaml:"log"`
}

// Default returns a configuration that finishes in about a second.
func Default() *Config {
	return &Config{
		Readers:      4,
		Keys:         256,
		Writes:       100_000,
		Batch:        64,
		WaitStrategy: leftright.WaitBackoff.String(),
		StallWarn:    100 * time.Millisecond,
		Seed:         1,
		Log: LogCfg{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads a YAML configuration, expanding ${VAR} references from the
// environment. Fields absent from the file keep their Default values.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	expanded := os.ExpandEnv(string(b))
	c := Default()
	if err := yaml.Unmarshal([]byte(expanded), c); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return c, nil
}

// Validate reports the first invalid field.
func (c *Config) Validate() error {
	switch {
	case c.Readers < 0:
		return fmt.Errorf("readers must be >= 0, got %d", c.Readers)
	case c.Keys <= 0:
		return fmt.Errorf("keys must be > 0, got %d", c.Keys)
	case c.Writes < 0:
		return fmt.Errorf("writes must be >= 0, got %d", c.Writes)
	case c.Batch <= 0:
		return fmt.Errorf("batch must be > 0, got %d", c.Batch)
	case c.StallWarn < 0:
		return fmt.Errorf("stallWarn must be >= 0, got %v", c.StallWarn)
	case c.HoldGuard < 0:
		return fmt.Errorf("holdGuard must be >= 0, got %v", c.HoldGuard)
	}
	if _, ok := leftright.ParseWaitStrategy(c.WaitStrategy); !ok {
		return fmt.Errorf("unknown waitStrategy %q", c.WaitStrategy)
	}
	return nil
}

// Strategy returns the parsed wait strategy. Call Validate first.
func (c *Config) Strategy() leftright.WaitStrategy {
	s, _ := leftright.ParseWaitStrategy(c.WaitStrategy)
	return s
}
