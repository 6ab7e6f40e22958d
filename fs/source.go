package fs

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/fwojciec/docparse"
)

// DefaultExtensions are the file extensions picked up in directory mode.
var DefaultExtensions = []string{".pdf"}

// ListSources returns the documents at path. A file yields a single document
// regardless of its extension; a directory yields its regular files whose
// extension matches one of exts (case-insensitive), without descending into
// subdirectories. Documents are sorted lexicographically by path.
// Returns ENOTFOUND if path does not exist.
func ListSources(path string, exts []string) ([]docparse.SourceDocument, error) {
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, docparse.Errorf(docparse.ENOTFOUND, "input path %q not found", path)
	} else if err != nil {
		return nil, docparse.Errorf(docparse.EIO, "stat %q: %v", path, err)
	}

	if !info.IsDir() {
		return []docparse.SourceDocument{docparse.NewSourceDocument(path)}, nil
	}

	if len(exts) == 0 {
		exts = DefaultExtensions
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, docparse.Errorf(docparse.EIO, "read directory %q: %v", path, err)
	}

	var docs []docparse.SourceDocument
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		if !matchExt(entry.Name(), exts) {
			continue
		}
		docs = append(docs, docparse.NewSourceDocument(filepath.Join(path, entry.Name())))
	}

	return docparse.SortSources(docs), nil
}

func matchExt(name string, exts []string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range exts {
		e = strings.ToLower(e)
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		if ext == e {
			return true
		}
	}
	return false
}

// ReadSource reads the content of a source document.
// Returns ENOTFOUND if the file does not exist.
func ReadSource(doc docparse.SourceDocument) ([]byte, error) {
	data, err := os.ReadFile(doc.Path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, docparse.Errorf(docparse.ENOTFOUND, "source document %q not found", doc.Path)
	} else if err != nil {
		return nil, docparse.Errorf(docparse.EIO, "read %q: %v", doc.Path, err)
	}
	return data, nil
}
