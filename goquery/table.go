// Package goquery parses HTML tables returned by providers into cells.
package goquery

import (
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/fwojciec/docparse"
)

// Ensure TableParser implements docparse.TableParser at compile time.
var _ docparse.TableParser = (*TableParser)(nil)

// TableParser extracts cells from HTML tables.
type TableParser struct{}

// NewTableParser creates a new TableParser.
func NewTableParser() *TableParser {
	return &TableParser{}
}

// ParseTable returns the cells of every top-level table in html, in document
// order. Row and column indices start at 0; a cell spanning several columns
// advances the column index by its colspan.
func (p *TableParser) ParseTable(html string) ([]docparse.TableCell, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, docparse.Errorf(docparse.EINVALID, "failed to parse HTML: %v", err)
	}

	var cells []docparse.TableCell
	doc.Find("table").Not("table table").Each(func(tableIdx int, table *goquery.Selection) {
		row := 0
		table.Find("tr").Each(func(_ int, tr *goquery.Selection) {
			// Skip rows that belong to a nested table.
			if !tr.Closest("table").IsSelection(table) {
				return
			}
			col := 0
			tr.ChildrenFiltered("th, td").Each(func(_ int, cell *goquery.Selection) {
				cells = append(cells, docparse.TableCell{
					Table:       tableIdx,
					RowIndex:    row,
					ColumnIndex: col,
					Content:     strings.Join(strings.Fields(cell.Text()), " "),
				})
				col += span(cell)
			})
			row++
		})
	})

	return cells, nil
}

func span(cell *goquery.Selection) int {
	v, ok := cell.Attr("colspan")
	if !ok {
		return 1
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || n < 1 {
		return 1
	}
	return n
}
