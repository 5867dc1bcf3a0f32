package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/subcommands"

	"github.com/llxisdsh/leftright/internal/soak"
)

// Soak implements subcommands.Command for the "soak" command.
type Soak struct {
	configPath string
	flags      soak.Config
}

// Name implements subcommands.Command.Name.
func (*Soak) Name() string {
	return "soak"
}

// Synopsis implements subcommands.Command.Synopsis.
func (*Soak) Synopsis() string {
	return "run readers against a publishing writer and verify what they see"
}

// Usage implements subcommands.Command.Usage.
func (*Soak) Usage() string {
	return `soak [flags]

Flags override values loaded with -config, which override the defaults
printed by "lrsoak config".
`
}

// SetFlags implements subcommands.Command.SetFlags.
func (s *Soak) SetFlags(f *flag.FlagSet) {
	d := soak.Default()
	f.StringVar(&s.configPath, "config", "", "YAML configuration file")
	f.IntVar(&s.flags.Readers, "readers", d.Readers, "number of concurrent read handles")
	f.IntVar(&s.flags.Keys, "keys", d.Keys, "size of the table key space")
	f.IntVar(&s.flags.Writes, "writes", d.Writes, "total ops appended by the writer")
	f.IntVar(&s.flags.Batch, "batch", d.Batch, "ops per publish")
	f.Float64Var(&s.flags.PublishRate, "rate", d.PublishRate, "publishes per second, 0 for unpaced")
	f.StringVar(&s.flags.WaitStrategy, "wait", d.WaitStrategy, "quiescence wait strategy: backoff, spin or park")
	f.DurationVar(&s.flags.StallWarn, "stall-warn", d.StallWarn, "warn when a publish waits on readers longer than this, 0 disables")
	f.DurationVar(&s.flags.HoldGuard, "hold", d.HoldGuard, "how long readers keep each guard")
	f.Uint64Var(&s.flags.Seed, "seed", d.Seed, "seed of the op stream")
	f.StringVar(&s.flags.Log.Level, "log-level", d.Log.Level, "log level")
	f.StringVar(&s.flags.Log.Format, "log-format", d.Log.Format, "log format: text or json")
}

// Execute implements subcommands.Command.Execute.
func (s *Soak) Execute(ctx context.Context, f *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	if f.NArg() != 0 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	cfg, err := s.config(f)
	if err != nil {
		fmt.Fprintf(os.Stderr, "lrsoak: %v\n", err)
		return subcommands.ExitUsageError
	}
	logger, err := soak.NewLogger(cfg.Log, os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "lrsoak: %v\n", err)
		return subcommands.ExitUsageError
	}
	log := logger.WithField("cmd", s.Name())

	report, err := soak.Run(ctx, cfg, log)
	if err != nil {
		log.WithError(err).Error("soak failed")
		return subcommands.ExitFailure
	}
	log.WithFields(report.Fields()).
		WithField("reads/s", float64(report.Reads)/max(report.Elapsed.Seconds(), time.Millisecond.Seconds())).
		Info("soak passed")
	return subcommands.ExitSuccess
}

// config layers explicitly set flags over the file (or the defaults).
func (s *Soak) config(f *flag.FlagSet) (*soak.Config, error) {
	cfg := soak.Default()
	if s.configPath != "" {
		var err error
		if cfg, err = soak.Load(s.configPath); err != nil {
			return nil, err
		}
	}
	f.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "readers":
			cfg.Readers = s.flags.Readers
		case "keys":
			cfg.Keys = s.flags.Keys
		case "writes":
			cfg.Writes = s.flags.Writes
		case "batch":
			cfg.Batch = s.flags.Batch
		case "rate":
			cfg.PublishRate = s.flags.PublishRate
		case "wait":
			cfg.WaitStrategy = s.flags.WaitStrategy
		case "stall-warn":
			cfg.StallWarn = s.flags.StallWarn
		case "hold":
			cfg.HoldGuard = s.flags.HoldGuard
		case "seed":
			cfg.Seed = s.flags.Seed
		case "log-level":
			cfg.Log.Level = s.flags.Log.Level
		case "log-format":
			cfg.Log.Format = s.flags.Log.Format
		}
	})
	return cfg, cfg.Validate()
}
