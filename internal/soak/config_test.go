package soak

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestLoadKeepsDefaultsAndExpandsEnv(t *testing.T) {
	t.Setenv("SOAK_READERS", "12")

	path := filepath.Join(t.TempDir(), "soak.yaml")
	data := []byte(`
readers: ${SOAK_READERS}
batch: 8
waitStrategy: park
stallWarn: 250ms
holdGuard: 2ms
log:
  format: json
`)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write temp config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	want := Default()
	want.Readers = 12
	want.Batch = 8
	want.WaitStrategy = "park"
	want.StallWarn = 250 * time.Millisecond
	want.HoldGuard = 2 * time.Millisecond
	want.Log.Format = "json"
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Fatalf("config mismatch (-want +got):\n%s", diff)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("readers: [1, 2"), 0o644); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"negative readers", func(c *Config) { c.Readers = -1 }, "readers"},
		{"zero keys", func(c *Config) { c.Keys = 0 }, "keys"},
		{"zero batch", func(c *Config) { c.Batch = 0 }, "batch"},
		{"negative stall", func(c *Config) { c.StallWarn = -time.Second }, "stallWarn"},
		{"bad strategy", func(c *Config) { c.WaitStrategy = "sleepy" }, "waitStrategy"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			tt.mutate(c)
			err := c.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("Validate() = %v, want error mentioning %q", err, tt.want)
			}
		})
	}
	if err := Default().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}
