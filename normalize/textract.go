package normalize

import (
	"strings"

	"github.com/fwojciec/docparse"
)

// Textract block types used during conversion.
const (
	blockPage      = "PAGE"
	blockLine      = "LINE"
	blockWord      = "WORD"
	blockTable     = "TABLE"
	blockCell      = "CELL"
	blockSelection = "SELECTION_ELEMENT"
)

// Textract converts a block graph. Pages appear in the order the graph first
// mentions them; LINE blocks make up the text and TABLE blocks contribute
// their CELL children, whose content is the text of their WORD children.
func Textract(raw *docparse.RawResponse) ([]docparse.PageResult, error) {
	const provider = docparse.ProviderTextract
	resp := raw.Textract
	if resp == nil {
		return nil, missing(provider, "blocks")
	}

	byID := make(map[string]*docparse.TextractBlock, len(resp.Blocks))
	for i := range resp.Blocks {
		b := &resp.Blocks[i]
		if b.ID != "" {
			byID[b.ID] = b
		}
	}

	var pages []*textractPage
	index := make(map[int]*textractPage)
	pageFor := func(b *docparse.TextractBlock) *textractPage {
		n := b.Page
		if n == 0 {
			n = 1
		}
		if p, ok := index[n]; ok {
			return p
		}
		p := &textractPage{number: n}
		index[n] = p
		pages = append(pages, p)
		return p
	}

	for i := range resp.Blocks {
		b := &resp.Blocks[i]
		switch b.BlockType {
		case blockPage:
			pageFor(b)
		case blockLine:
			p := pageFor(b)
			p.lines = append(p.lines, b.Text)
			p.confidences = append(p.confidences, b.Confidence)
			if b.BoundingBox != nil {
				p.boxes = append(p.boxes, *b.BoundingBox)
			}
		case blockSelection:
			p := pageFor(b)
			mark := map[string]any{
				"status":     b.SelectionStatus,
				"confidence": b.Confidence,
			}
			if b.BoundingBox != nil {
				mark["boundingBox"] = *b.BoundingBox
			}
			p.selections = append(p.selections, mark)
		case blockTable:
			p := pageFor(b)
			cells, err := tableCells(byID, b, p.tables)
			if err != nil {
				return nil, err
			}
			p.cells = append(p.cells, cells...)
			p.tables++
		}
	}

	result := make([]docparse.PageResult, 0, len(pages))
	for _, p := range pages {
		result = append(result, p.result())
	}
	return result, nil
}

type textractPage struct {
	number      int
	lines       []string
	confidences []float64
	boxes       []docparse.BoundingBox
	selections  []map[string]any
	cells       []docparse.TableCell
	tables      int
}

func (p *textractPage) result() docparse.PageResult {
	annotations := make(map[string]any)
	if len(p.confidences) > 0 {
		annotations["lineConfidences"] = p.confidences
	}
	if len(p.boxes) > 0 {
		annotations["lineBoundingBoxes"] = p.boxes
	}
	if len(p.selections) > 0 {
		annotations["selectionElements"] = p.selections
	}
	if len(annotations) == 0 {
		annotations = nil
	}
	return docparse.PageResult{
		PageNumber:  p.number,
		Text:        strings.Join(p.lines, "\n"),
		Tables:      p.cells,
		Annotations: annotations,
	}
}

func tableCells(byID map[string]*docparse.TextractBlock, table *docparse.TextractBlock, n int) ([]docparse.TableCell, error) {
	var cells []docparse.TableCell
	for _, id := range table.ChildIDs {
		cell, ok := byID[id]
		if !ok {
			return nil, docparse.Errorf(docparse.ENORMALIZE, "%s: block %s references missing block %s", docparse.ProviderTextract, table.ID, id)
		}
		if cell.BlockType != blockCell {
			continue
		}

		var words []string
		for _, wid := range cell.ChildIDs {
			word, ok := byID[wid]
			if !ok {
				return nil, docparse.Errorf(docparse.ENORMALIZE, "%s: block %s references missing block %s", docparse.ProviderTextract, cell.ID, wid)
			}
			switch word.BlockType {
			case blockWord:
				words = append(words, word.Text)
			case blockSelection:
				words = append(words, word.SelectionStatus)
			}
		}

		cells = append(cells, docparse.TableCell{
			Table:       n,
			RowIndex:    cell.RowIndex,
			ColumnIndex: cell.ColumnIndex,
			Content:     strings.Join(words, " "),
		})
	}
	return cells, nil
}
