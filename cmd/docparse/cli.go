package main

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/fwojciec/docparse"
	"github.com/fwojciec/docparse/batch"
)

// Dependencies holds all services and configuration for command execution.
type Dependencies struct {
	Ctx          context.Context
	Stdout       io.Writer
	Stderr       io.Writer
	Logger       *slog.Logger
	Credentials  docparse.Credentials
	Runs         docparse.RunService
	Runner       *batch.Runner
	TokenCounter docparse.TokenCounter

	// NewBackend returns the ready-to-use backend for a provider.
	NewBackend func(provider docparse.Provider) (docparse.Backend, error)

	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time
}

func (d *Dependencies) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

// CLI defines the command-line interface structure for Kong.
type CLI struct {
	Verbose bool   `short:"v" help:"Enable debug logging"`
	Config  string `type:"path" help:"YAML file with per-provider settings"`

	Run      RunCmd      `cmd:"" help:"Extract documents with a backend and write markdown"`
	Runs     RunsCmd     `cmd:"" help:"List recorded runs or show one run's outcomes"`
	Backends BackendsCmd `cmd:"" help:"List backends and their required credentials"`
}

// RunCmd is the "run" subcommand.
type RunCmd struct {
	Path        string        `arg:"" type:"path" help:"Input file or directory"`
	Backend     string        `short:"b" default:"azure" enum:"azure,textract,mistral,llamaparse,unstructured,gemini" help:"Backend to use (${enum})"`
	Output      string        `short:"o" default:"output" type:"path" help:"Output directory"`
	Concurrency int           `short:"c" default:"1" help:"Documents processed at once"`
	Rate        float64       `default:"0" help:"Requests per second per provider (0 for unlimited)"`
	Timeout     time.Duration `default:"0" help:"Overall run timeout (0 for none)"`
	Ext         []string      `name:"ext" help:"File extensions picked up in directory mode (repeatable, default .pdf)"`
	DryRun      bool          `short:"n" name:"dry-run" help:"List documents without processing them"`
	CountTokens bool          `name:"count-tokens" help:"Report tokens in the extracted text"`
}

// RunsCmd is the "runs" subcommand.
type RunsCmd struct {
	ID       string `arg:"" optional:"" help:"Run ID to show"`
	Backend  string `short:"b" help:"Only list runs of this backend"`
	Limit    int    `short:"l" default:"20" help:"Maximum runs to list"`
	Failures bool   `short:"f" help:"Show only failed outcomes"`
}

// BackendsCmd is the "backends" subcommand.
type BackendsCmd struct{}
