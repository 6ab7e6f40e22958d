package normalize

import (
	"strings"

	"github.com/fwojciec/docparse"
)

const elementTable = "Table"

// elements converts partitioned elements. It holds the HTML helpers used for
// table elements.
type elements struct {
	converter docparse.Converter
	tables    docparse.TableParser
}

// convert groups elements by page. An element without a page number belongs
// to the current page (page 1 before any numbered element); a page number
// lower than the current one is an error.
func (e *elements) convert(raw *docparse.RawResponse) ([]docparse.PageResult, error) {
	const provider = docparse.ProviderUnstructured
	resp := raw.Elements
	if resp == nil {
		return nil, missing(provider, "elements")
	}

	var pages []docparse.PageResult
	var texts []string
	var meta []map[string]any
	tables := 0
	flush := func() {
		if len(pages) == 0 {
			return
		}
		last := &pages[len(pages)-1]
		last.Text = strings.Join(texts, "\n")
		if len(meta) > 0 {
			last.Annotations = map[string]any{"elements": meta}
		}
	}

	current := 0
	for _, el := range resp.Elements {
		n := el.Metadata.PageNumber
		if n == 0 {
			n = max(current, 1)
		}
		if n < current {
			return nil, docparse.Errorf(docparse.ENORMALIZE, "%s: element %s on page %d follows page %d", provider, el.ElementID, n, current)
		}
		if n > current {
			flush()
			pages = append(pages, docparse.PageResult{PageNumber: n})
			texts, meta, tables = nil, nil, 0
			current = n
		}

		text := el.Text
		if el.Type == elementTable && el.Metadata.TextAsHTML != "" {
			page := &pages[len(pages)-1]
			var (
				consumed int
				err      error
			)
			text, consumed, err = e.table(el, page, tables)
			if err != nil {
				return nil, err
			}
			tables += consumed
		}
		texts = append(texts, text)

		m := map[string]any{"id": el.ElementID, "type": el.Type}
		if c := el.Metadata.Coordinates; c != nil {
			m["points"] = c.Points
			m["system"] = c.System
		}
		meta = append(meta, m)
	}
	flush()

	return pages, nil
}

// table records the cells of a table element on page, numbering its tables
// from n. It returns the text that represents the element and the number of
// tables it held.
func (e *elements) table(el docparse.Element, page *docparse.PageResult, n int) (string, int, error) {
	const provider = docparse.ProviderUnstructured
	consumed := 1
	if e.tables != nil {
		cells, err := e.tables.ParseTable(el.Metadata.TextAsHTML)
		if err != nil {
			return "", 0, docparse.Errorf(docparse.ENORMALIZE, "%s: element %s text_as_html: %s", provider, el.ElementID, docparse.ErrorMessage(err))
		}
		for _, c := range cells {
			consumed = max(consumed, c.Table+1)
			c.Table += n
			page.Tables = append(page.Tables, c)
		}
	}
	if e.converter == nil {
		return el.Text, consumed, nil
	}
	md, err := e.converter.Convert(el.Metadata.TextAsHTML)
	if err != nil {
		return "", 0, docparse.Errorf(docparse.ENORMALIZE, "%s: element %s text_as_html: %s", provider, el.ElementID, docparse.ErrorMessage(err))
	}
	return md, consumed, nil
}
