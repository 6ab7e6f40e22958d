package slog

import (
	"log/slog"
	"time"

	"github.com/fwojciec/docparse"
)

// Ensure LoggingNormalizer implements docparse.Normalizer.
var _ docparse.Normalizer = (*LoggingNormalizer)(nil)

// LoggingNormalizer wraps a Normalizer with debug logging.
type LoggingNormalizer struct {
	next   docparse.Normalizer
	logger *slog.Logger
}

// NewLoggingNormalizer creates a new LoggingNormalizer.
func NewLoggingNormalizer(next docparse.Normalizer, logger *slog.Logger) *LoggingNormalizer {
	return &LoggingNormalizer{next: next, logger: logger}
}

// Normalize delegates to the wrapped normalizer and logs the page count.
func (n *LoggingNormalizer) Normalize(raw *docparse.RawResponse, doc docparse.SourceDocument, processedAt time.Time) (result *docparse.DocumentResult, err error) {
	defer func() {
		pages := 0
		if result != nil {
			pages = len(result.Pages)
		}
		n.logger.Debug("normalize",
			"file", doc.DisplayName,
			"pages", pages,
			"err", err,
		)
	}()
	return n.next.Normalize(raw, doc, processedAt)
}
