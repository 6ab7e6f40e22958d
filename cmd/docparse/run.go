package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/fwojciec/docparse"
	"github.com/fwojciec/docparse/batch"
	"github.com/fwojciec/docparse/fs"
)

// Run executes the run command.
func (c *RunCmd) Run(deps *Dependencies) error {
	docs, err := fs.ListSources(c.Path, c.Ext)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", docparse.ErrorMessage(err))
		return err
	}

	if len(docs) == 0 {
		fmt.Fprintf(deps.Stdout, "No documents found in %s\n", c.Path)
		return nil
	}

	// Dry run: list documents without processing them
	if c.DryRun {
		for _, doc := range docs {
			fmt.Fprintln(deps.Stdout, doc.Path)
		}
		fmt.Fprintf(deps.Stdout, "%d documents would be processed with %s\n", len(docs), c.Backend)
		return nil
	}

	provider := docparse.Provider(c.Backend)
	backend, err := deps.NewBackend(provider)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", docparse.ErrorMessage(err))
		return err
	}

	ctx := deps.Ctx
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	runner := deps.Runner
	if c.Concurrency > 0 {
		runner.Concurrency = c.Concurrency
	}
	runner.Progress = func(event batch.ProgressEvent) {
		switch event.Type {
		case batch.ProgressStarted:
			fmt.Fprintf(deps.Stdout, "Processing %d documents with %s\n", event.Total, provider)
		case batch.ProgressFailed:
			fmt.Fprintf(deps.Stderr, "  fail %s: %s\n", event.FileName, docparse.ErrorMessage(event.Error))
		case batch.ProgressCompleted:
			fmt.Fprintf(deps.Stdout, "  [%d/%d] %s\n", event.Completed, event.Total, event.FileName)
		case batch.ProgressFinished:
			// Summary printed after the run completes
		}
	}

	startedAt := deps.now()
	result, runErr := runner.Run(ctx, docs, docparse.StaticSelector(backend), c.Output)
	if runErr != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", docparse.ErrorMessage(runErr))
	}

	for _, s := range result.Successes {
		fmt.Fprintf(deps.Stdout, "  wrote %s (%d pages)\n", s.OutputPath, len(s.Document.Pages))
	}
	for _, f := range result.Failures {
		fmt.Fprintf(deps.Stdout, "  failed %s: %s (%s)\n", f.FileName, f.Message, f.Code)
	}

	if c.CountTokens && deps.TokenCounter != nil && len(result.Successes) > 0 {
		tokens, err := countTokens(deps.Ctx, deps.TokenCounter, result.Successes)
		if err != nil {
			fmt.Fprintf(deps.Stderr, "warning: count tokens: %s\n", docparse.ErrorMessage(err))
		} else {
			fmt.Fprintf(deps.Stdout, "  %s\n", formatTokens(tokens))
		}
	}

	if deps.Runs != nil {
		run := docparse.NewRun(provider, c.Path, c.Output, startedAt, deps.now(), result)
		if err := deps.Runs.CreateRun(deps.Ctx, run); err != nil {
			fmt.Fprintf(deps.Stderr, "warning: record run: %s\n", docparse.ErrorMessage(err))
		} else {
			fmt.Fprintf(deps.Stdout, "Recorded run %s\n", run.ID)
		}
	}

	fmt.Fprintf(deps.Stdout, "%d succeeded, %d failed\n", len(result.Successes), len(result.Failures))

	if runErr != nil {
		return runErr
	}
	if len(result.Failures) > 0 {
		return fmt.Errorf("%d of %d documents failed", len(result.Failures), result.Total())
	}
	return nil
}

// countTokens sums the tokens of every successful document's page text.
func countTokens(ctx context.Context, counter docparse.TokenCounter, successes []docparse.Success) (int, error) {
	total := 0
	for _, s := range successes {
		texts := make([]string, 0, len(s.Document.Pages))
		for _, p := range s.Document.Pages {
			texts = append(texts, p.Text)
		}
		n, err := counter.CountTokens(ctx, strings.Join(texts, "\n"))
		if err != nil {
			return 0, err
		}
		total += n
	}
	return total, nil
}

// formatTokens formats a token count in human-readable form.
func formatTokens(n int) string {
	if n < 1000 {
		return fmt.Sprintf("%d tokens", n)
	}
	return fmt.Sprintf("~%dk tokens", (n+500)/1000)
}
