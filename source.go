package docparse

import (
	"path/filepath"
	"sort"
)

// SourceDocument identifies an input file.
type SourceDocument struct {
	Path        string `json:"path"`
	DisplayName string `json:"displayName"`
}

// NewSourceDocument returns a SourceDocument for the file at path.
// The display name is the base name of the path.
func NewSourceDocument(path string) SourceDocument {
	return SourceDocument{
		Path:        path,
		DisplayName: filepath.Base(path),
	}
}

// Validate returns an error if the source document contains invalid fields.
func (d SourceDocument) Validate() error {
	if d.Path == "" {
		return Errorf(EINVALID, "source document path required")
	}
	return nil
}

// SortSources returns a copy of docs ordered lexicographically by path.
func SortSources(docs []SourceDocument) []SourceDocument {
	sorted := make([]SourceDocument, len(docs))
	copy(sorted, docs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Path < sorted[j].Path
	})
	return sorted
}
