package slog

import (
	"context"
	"log/slog"
	"time"

	"github.com/fwojciec/docparse"
)

// Ensure LoggingWriter implements docparse.ResultWriter.
var _ docparse.ResultWriter = (*LoggingWriter)(nil)

// LoggingWriter wraps a ResultWriter with logging of each written artifact.
type LoggingWriter struct {
	next   docparse.ResultWriter
	logger *slog.Logger
}

// NewLoggingWriter creates a new LoggingWriter.
func NewLoggingWriter(next docparse.ResultWriter, logger *slog.Logger) *LoggingWriter {
	return &LoggingWriter{next: next, logger: logger}
}

// WriteResult delegates to the wrapped writer and logs the artifact.
func (w *LoggingWriter) WriteResult(ctx context.Context, result *docparse.DocumentResult, outputDir string) (path string, err error) {
	defer func(begin time.Time) {
		w.logger.Info("write result",
			"file", result.FileName,
			"pages", len(result.Pages),
			"path", path,
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return w.next.WriteResult(ctx, result, outputDir)
}
