package mock

import (
	"context"

	"github.com/fwojciec/docparse"
)

var _ docparse.ResultWriter = (*ResultWriter)(nil)

// ResultWriter is a mock implementation of docparse.ResultWriter.
type ResultWriter struct {
	WriteResultFn func(ctx context.Context, result *docparse.DocumentResult, outputDir string) (string, error)
}

func (w *ResultWriter) WriteResult(ctx context.Context, result *docparse.DocumentResult, outputDir string) (string, error) {
	return w.WriteResultFn(ctx, result, outputDir)
}
