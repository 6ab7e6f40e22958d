package docparse

import (
	"context"
	"time"
)

// TableCell is one cell of a table extracted from a page.
// Row and column indices are copied verbatim from the provider, so their base
// (0 or 1) depends on the provider.
type TableCell struct {
	Table       int    `json:"table"` // position of the table on its page, from 0
	RowIndex    int    `json:"rowIndex"`
	ColumnIndex int    `json:"columnIndex"`
	Content     string `json:"content"`
}

// PageResult holds the normalized output for one page or chunk.
type PageResult struct {
	PageNumber int         `json:"pageNumber"`
	Text       string      `json:"text"`
	Tables     []TableCell `json:"tables,omitempty"`

	// Annotations keeps provider-specific metadata that has no place in the
	// common schema (bounding boxes, confidences, selection marks).
	Annotations map[string]any `json:"annotations,omitempty"`
}

// DocumentResult is the canonical extraction result for one document.
// It is built once by a Normalizer and never modified afterwards.
type DocumentResult struct {
	FileName    string       `json:"fileName"`
	ProcessedAt time.Time    `json:"processedAt"`
	Provider    Provider     `json:"provider"`
	Pages       []PageResult `json:"pages"`
}

// Validate returns an error if the result contains invalid fields.
// Page numbers must start at 1 or above and be strictly increasing.
func (r *DocumentResult) Validate() error {
	if r.FileName == "" {
		return Errorf(EINVALID, "document result file name required")
	}
	if r.ProcessedAt.IsZero() {
		return Errorf(EINVALID, "document result processed-at time required")
	}
	prev := 0
	for _, p := range r.Pages {
		if p.PageNumber < 1 {
			return Errorf(ENORMALIZE, "%s: page number %d must be >= 1", r.Provider, p.PageNumber)
		}
		if p.PageNumber <= prev {
			return Errorf(ENORMALIZE, "%s: page %d follows page %d", r.Provider, p.PageNumber, prev)
		}
		prev = p.PageNumber
	}
	return nil
}

// Success records a document that was extracted and written.
type Success struct {
	Document   *DocumentResult `json:"document"`
	OutputPath string          `json:"outputPath"`
}

// Failure records a document that could not be processed.
type Failure struct {
	FileName string `json:"fileName"`
	Code     string `json:"code"`
	Message  string `json:"message"`
}

// NewFailure builds a Failure from an error, keeping the application error
// code when there is one.
func NewFailure(fileName string, err error) Failure {
	msg := ErrorMessage(err)
	if ErrorCode(err) == EINTERNAL && err != nil {
		msg = err.Error()
	}
	return Failure{
		FileName: fileName,
		Code:     ErrorCode(err),
		Message:  msg,
	}
}

// BatchResult aggregates the outcome of a batch run.
// Entries are appended in source path order.
type BatchResult struct {
	Successes []Success `json:"successes"`
	Failures  []Failure `json:"failures"`
}

// Total returns the number of documents accounted for in the result.
func (b *BatchResult) Total() int {
	return len(b.Successes) + len(b.Failures)
}

// ResultWriter persists document results.
type ResultWriter interface {
	// WriteResult writes result into outputDir and returns the path of the
	// written artifact. Returns EIO if the artifact could not be written; no
	// partial artifact is left at the returned path in that case.
	WriteResult(ctx context.Context, result *DocumentResult, outputDir string) (string, error)
}
