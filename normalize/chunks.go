package normalize

import (
	"github.com/fwojciec/docparse"
)

// Chunks converts a chunk sequence. Chunks carry no page numbers, so they are
// numbered in emission order starting at 1.
func Chunks(raw *docparse.RawResponse) ([]docparse.PageResult, error) {
	resp := raw.Chunks
	if resp == nil {
		return nil, missing(raw.Provider, "chunks")
	}

	pages := make([]docparse.PageResult, 0, len(resp.Chunks))
	for i, c := range resp.Chunks {
		page := docparse.PageResult{
			PageNumber: i + 1,
			Text:       c.Text,
		}
		if resp.JobID != "" {
			page.Annotations = map[string]any{"jobId": resp.JobID}
		}
		pages = append(pages, page)
	}
	return pages, nil
}
