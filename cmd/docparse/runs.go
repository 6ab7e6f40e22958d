package main

import (
	"fmt"
	"time"

	"github.com/fwojciec/docparse"
)

const timeFormat = "2006-01-02 15:04:05"

// Run executes the runs command.
func (c *RunsCmd) Run(deps *Dependencies) error {
	if c.ID != "" {
		return c.show(deps)
	}

	filter := docparse.RunFilter{Limit: c.Limit}
	if c.Backend != "" {
		provider := docparse.Provider(c.Backend)
		filter.Provider = &provider
	}

	runs, err := deps.Runs.FindRuns(deps.Ctx, filter)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", docparse.ErrorMessage(err))
		return err
	}

	if len(runs) == 0 {
		fmt.Fprintln(deps.Stdout, "No runs found. Use 'docparse run' to process documents.")
		return nil
	}

	for _, r := range runs {
		fmt.Fprintf(deps.Stdout, "%s  %s  %-12s  %d succeeded, %d failed  %s\n",
			r.ID, r.StartedAt.Local().Format(timeFormat), r.Provider, r.Succeeded, r.Failed, r.InputPath)
	}

	return nil
}

// show prints one run with its outcomes.
func (c *RunsCmd) show(deps *Dependencies) error {
	run, err := deps.Runs.FindRunByID(deps.Ctx, c.ID)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", docparse.ErrorMessage(err))
		return err
	}

	fmt.Fprintf(deps.Stdout, "Run %s (%s)\n", run.ID, run.Provider)
	fmt.Fprintf(deps.Stdout, "  input:    %s\n", run.InputPath)
	fmt.Fprintf(deps.Stdout, "  output:   %s\n", run.OutputDir)
	fmt.Fprintf(deps.Stdout, "  started:  %s\n", run.StartedAt.Local().Format(timeFormat))
	fmt.Fprintf(deps.Stdout, "  duration: %s\n", run.FinishedAt.Sub(run.StartedAt).Round(10*time.Millisecond))
	fmt.Fprintf(deps.Stdout, "  %d succeeded, %d failed\n", run.Succeeded, run.Failed)

	for _, o := range run.Outcomes {
		if o.Code != "" {
			fmt.Fprintf(deps.Stdout, "  fail %s: %s (%s)\n", o.FileName, o.Message, o.Code)
			continue
		}
		if c.Failures {
			continue
		}
		fmt.Fprintf(deps.Stdout, "  ok   %s -> %s (%d pages, %s)\n", o.FileName, o.OutputPath, o.Pages, o.ContentHash)
	}

	return nil
}
