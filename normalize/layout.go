package normalize

import (
	"fmt"
	"strings"

	"github.com/fwojciec/docparse"
)

// Layout converts a layout-analysis response. Lines are joined with newlines;
// tables are attached to the page of their first bounding region.
func Layout(raw *docparse.RawResponse) ([]docparse.PageResult, error) {
	const provider = docparse.ProviderAzure
	layout := raw.Layout
	if layout == nil {
		return nil, missing(provider, "analyzeResult")
	}

	pages := make([]docparse.PageResult, 0, len(layout.Pages))
	index := make(map[int]int, len(layout.Pages))
	for i, p := range layout.Pages {
		if p.PageNumber == 0 {
			return nil, missing(provider, fmt.Sprintf("pages[%d].pageNumber", i))
		}

		lines := make([]string, 0, len(p.Lines))
		polygons := make([][]float64, 0, len(p.Lines))
		for _, l := range p.Lines {
			lines = append(lines, l.Content)
			polygons = append(polygons, l.Polygon)
		}

		annotations := map[string]any{
			"width":  p.Width,
			"height": p.Height,
			"unit":   p.Unit,
		}
		if len(polygons) > 0 {
			annotations["linePolygons"] = polygons
		}
		if len(p.SelectionMarks) > 0 {
			marks := make([]map[string]any, 0, len(p.SelectionMarks))
			for _, m := range p.SelectionMarks {
				marks = append(marks, map[string]any{
					"state":      m.State,
					"confidence": m.Confidence,
					"polygon":    m.Polygon,
				})
			}
			annotations["selectionMarks"] = marks
		}

		index[p.PageNumber] = len(pages)
		pages = append(pages, docparse.PageResult{
			PageNumber:  p.PageNumber,
			Text:        strings.Join(lines, "\n"),
			Annotations: annotations,
		})
	}

	tablesOnPage := make(map[int]int)
	for i, t := range layout.Tables {
		if len(t.BoundingRegions) == 0 {
			return nil, missing(provider, fmt.Sprintf("tables[%d].boundingRegions", i))
		}
		pageNumber := t.BoundingRegions[0].PageNumber
		pos, ok := index[pageNumber]
		if !ok {
			return nil, docparse.Errorf(docparse.ENORMALIZE, "%s: tables[%d] references unknown page %d", provider, i, pageNumber)
		}

		n := tablesOnPage[pageNumber]
		tablesOnPage[pageNumber]++
		for _, c := range t.Cells {
			pages[pos].Tables = append(pages[pos].Tables, docparse.TableCell{
				Table:       n,
				RowIndex:    c.RowIndex,
				ColumnIndex: c.ColumnIndex,
				Content:     c.Content,
			})
		}
	}

	return pages, nil
}
