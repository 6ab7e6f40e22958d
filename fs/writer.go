// Package fs provides file-based input enumeration and markdown output for
// document results.
package fs

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fwojciec/docparse"
)

// TimestampLayout is the layout of the timestamp in output file names.
const TimestampLayout = "20060102_150405"

// OutputName returns the artifact name for a result:
// {basename}_{YYYYMMDD_HHMMSS}.md. The extension stays in the name so that
// report.pdf and report.docx never share an artifact.
//
// Two results for the same file processed within the same second share a
// name; the later write replaces the earlier artifact. Callers that need
// strict uniqueness must disambiguate the file name themselves.
func OutputName(result *docparse.DocumentResult) string {
	return filepath.Base(result.FileName) + "_" + result.ProcessedAt.Format(TimestampLayout) + ".md"
}

// artifactMode is the permission of written artifacts.
const artifactMode = 0o644

// TempFile is the subset of *os.File used while writing an artifact.
type TempFile interface {
	io.Writer
	Name() string
	Chmod(mode os.FileMode) error
	Sync() error
	Close() error
}

// Ensure Writer implements docparse.ResultWriter at compile time.
var _ docparse.ResultWriter = (*Writer)(nil)

// Writer writes document results as markdown files.
// Content is rendered in memory, written to a temporary file in the output
// directory and renamed into place, so a failed write never leaves a file at
// the final path.
type Writer struct {
	createTemp func(dir, pattern string) (TempFile, error)
}

// Option configures a Writer.
type Option func(*Writer)

// WithTempFileFunc overrides how temporary files are created.
func WithTempFileFunc(fn func(dir, pattern string) (TempFile, error)) Option {
	return func(w *Writer) {
		w.createTemp = fn
	}
}

// NewWriter creates a new Writer.
func NewWriter(opts ...Option) *Writer {
	w := &Writer{
		createTemp: func(dir, pattern string) (TempFile, error) {
			return os.CreateTemp(dir, pattern)
		},
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// WriteResult writes result to outputDir and returns the artifact path.
func (w *Writer) WriteResult(ctx context.Context, result *docparse.DocumentResult, outputDir string) (string, error) {
	if err := result.Validate(); err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", docparse.Errorf(docparse.ECANCELED, "write %s: %v", result.FileName, err)
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return "", docparse.Errorf(docparse.EIO, "create output directory: %v", err)
	}

	name := OutputName(result)
	finalPath := filepath.Join(outputDir, name)
	content := FormatDocumentResult(result)

	f, err := w.createTemp(outputDir, "."+name+".*.tmp")
	if err != nil {
		return "", docparse.Errorf(docparse.EIO, "create temp file for %s: %v", name, err)
	}
	tmpPath := f.Name()

	if err := writeAndClose(f, content); err != nil {
		_ = os.Remove(tmpPath)
		return "", docparse.Errorf(docparse.EIO, "write %s: %v", name, err)
	}

	if err := os.Rename(tmpPath, finalPath); err != nil {
		_ = os.Remove(tmpPath)
		return "", docparse.Errorf(docparse.EIO, "rename %s: %v", name, err)
	}

	return finalPath, nil
}

func writeAndClose(f TempFile, content string) error {
	if _, err := f.Write([]byte(content)); err != nil {
		_ = f.Close()
		return err
	}
	// CreateTemp opens files as 0600.
	if err := f.Chmod(artifactMode); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// FormatDocumentResult renders a result in the markdown artifact format.
func FormatDocumentResult(result *docparse.DocumentResult) string {
	var b strings.Builder
	b.WriteString(headerPrefix)
	b.WriteString(result.FileName)
	b.WriteString("\n")
	b.WriteString(processedPrefix)
	b.WriteString(result.ProcessedAt.Format(timeLayout))
	b.WriteString("\n\n")

	for _, page := range result.Pages {
		fmt.Fprintf(&b, "%s%d\n", pagePrefix, page.PageNumber)
		b.WriteString(page.Text)
		b.WriteString("\n")
		if len(page.Tables) > 0 {
			b.WriteString(separator)
			for _, cell := range page.Tables {
				fmt.Fprintf(&b, "Row %d, Col %d: %s\n", cell.RowIndex, cell.ColumnIndex, flatten(cell.Content))
			}
		}
		b.WriteString(separator)
		b.WriteString("\n")
	}

	return b.String()
}

// flatten keeps each table row on a single line.
func flatten(s string) string {
	s = strings.ReplaceAll(s, "\r\n", " ")
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.ReplaceAll(s, "\r", " ")
}
