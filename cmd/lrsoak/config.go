package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"
	"gopkg.in/yaml.v3"

	"github.com/llxisdsh/leftright/internal/soak"
)

// ConfigCmd implements subcommands.Command for the "config" command.
type ConfigCmd struct {
	from string
}

// Name implements subcommands.Command.Name.
func (*ConfigCmd) Name() string {
	return "config"
}

// Synopsis implements subcommands.Command.Synopsis.
func (*ConfigCmd) Synopsis() string {
	return "print the soak configuration as YAML"
}

// Usage implements subcommands.Command.Usage.
func (*ConfigCmd) Usage() string {
	return `config [-from file.yaml]

Prints the default configuration, or the effective one after loading -from.
`
}

// SetFlags implements subcommands.Command.SetFlags.
func (c *ConfigCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.from, "from", "", "load and validate this file instead of printing defaults")
}

// Execute implements subcommands.Command.Execute.
func (c *ConfigCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	if f.NArg() != 0 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	cfg := soak.Default()
	if c.from != "" {
		var err error
		if cfg, err = soak.Load(c.from); err != nil {
			fmt.Fprintf(os.Stderr, "lrsoak: %v\n", err)
			return subcommands.ExitFailure
		}
		if err := cfg.Validate(); err != nil {
			fmt.Fprintf(os.Stderr, "lrsoak: %s: %v\n", c.from, err)
			return subcommands.ExitFailure
		}
	}
	enc := yaml.NewEncoder(os.Stdout)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "lrsoak: %v\n", err)
		return subcommands.ExitFailure
	}
	if err := enc.Close(); err != nil {
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
