package normalize

import (
	"fmt"

	"github.com/fwojciec/docparse"
)

// OCR converts a page-indexed OCR response. The provider indexes pages from 0,
// so the page number is index+1.
func OCR(raw *docparse.RawResponse) ([]docparse.PageResult, error) {
	const provider = docparse.ProviderMistral
	resp := raw.OCR
	if resp == nil {
		return nil, missing(provider, "pages")
	}

	pages := make([]docparse.PageResult, 0, len(resp.Pages))
	for i, p := range resp.Pages {
		if p.Index == nil {
			return nil, missing(provider, fmt.Sprintf("pages[%d].index", i))
		}

		var annotations map[string]any
		if p.Dimensions != nil || len(p.Images) > 0 {
			annotations = make(map[string]any)
		}
		if d := p.Dimensions; d != nil {
			annotations["dpi"] = d.DPI
			annotations["width"] = d.Width
			annotations["height"] = d.Height
		}
		if len(p.Images) > 0 {
			ids := make([]string, 0, len(p.Images))
			for _, img := range p.Images {
				ids = append(ids, img.ID)
			}
			annotations["images"] = ids
		}

		pages = append(pages, docparse.PageResult{
			PageNumber:  *p.Index + 1,
			Text:        p.Markdown,
			Annotations: annotations,
		})
	}
	return pages, nil
}
