package fs

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/fwojciec/docparse"
)

const (
	headerPrefix    = "# Parsing Results for "
	processedPrefix = "Processed at: "
	pagePrefix      = "## Page "
	separator       = "---\n"
	timeLayout      = time.RFC3339Nano
)

var rowRe = regexp.MustCompile(`^Row (-?\d+), Col (-?\d+): (.*)$`)

// ParseDocumentResult reads an artifact produced by FormatDocumentResult.
// It recovers the file name, timestamp, page numbers, page texts and table
// rows. Table positions are not stored in the artifact, so every parsed cell
// has Table 0.
//
// Page text containing a "---" line followed by a blank line and a
// "## Page" heading cannot be told apart from a page boundary. Likewise,
// text of a page without tables that ends in a "---" line followed only by
// lines of the form "Row r, Col c: ..." is read back as table rows, and the
// page text stops before that "---" line.
func ParseDocumentResult(content string) (*docparse.DocumentResult, error) {
	line, rest, ok := strings.Cut(content, "\n")
	if !ok || !strings.HasPrefix(line, headerPrefix) {
		return nil, docparse.Errorf(docparse.EINVALID, "missing results header")
	}
	result := &docparse.DocumentResult{FileName: strings.TrimPrefix(line, headerPrefix)}

	line, rest, ok = strings.Cut(rest, "\n")
	if !ok || !strings.HasPrefix(line, processedPrefix) {
		return nil, docparse.Errorf(docparse.EINVALID, "missing processed-at line")
	}
	ts, err := time.Parse(timeLayout, strings.TrimPrefix(line, processedPrefix))
	if err != nil {
		return nil, docparse.Errorf(docparse.EINVALID, "invalid processed-at timestamp: %v", err)
	}
	result.ProcessedAt = ts

	rest, ok = strings.CutPrefix(rest, "\n")
	if !ok {
		return nil, docparse.Errorf(docparse.EINVALID, "missing blank line after header")
	}

	for rest != "" {
		page, remaining, err := parsePage(rest)
		if err != nil {
			return nil, err
		}
		result.Pages = append(result.Pages, page)
		rest = remaining
	}

	return result, nil
}

func parsePage(s string) (docparse.PageResult, string, error) {
	var page docparse.PageResult

	line, rest, ok := strings.Cut(s, "\n")
	if !ok || !strings.HasPrefix(line, pagePrefix) {
		return page, "", docparse.Errorf(docparse.EINVALID, "expected page heading, got %q", line)
	}
	n, err := strconv.Atoi(strings.TrimPrefix(line, pagePrefix))
	if err != nil {
		return page, "", docparse.Errorf(docparse.EINVALID, "invalid page number in %q", line)
	}
	page.PageNumber = n

	const terminator = "\n" + separator + "\n"
	end := -1
	for pos := 0; pos < len(rest); {
		i := strings.Index(rest[pos:], terminator)
		if i < 0 {
			break
		}
		k := pos + i
		after := rest[k+len(terminator):]
		if after == "" || strings.HasPrefix(after, pagePrefix) {
			end = k
			break
		}
		pos = k + 1
	}
	if end < 0 {
		return page, "", docparse.Errorf(docparse.EINVALID, "page %d is not terminated", n)
	}

	body := rest[:end]
	page.Text = body
	if j := strings.LastIndex(body, "\n"+separator); j >= 0 {
		if cells, ok := parseRows(body[j+len(separator)+1:]); ok {
			page.Text = body[:j]
			page.Tables = cells
		}
	}

	return page, rest[end+len(terminator):], nil
}

func parseRows(s string) ([]docparse.TableCell, bool) {
	if s == "" {
		return nil, false
	}
	var cells []docparse.TableCell
	for _, line := range strings.Split(s, "\n") {
		m := rowRe.FindStringSubmatch(line)
		if m == nil {
			return nil, false
		}
		row, _ := strconv.Atoi(m[1])
		col, _ := strconv.Atoi(m[2])
		cells = append(cells, docparse.TableCell{RowIndex: row, ColumnIndex: col, Content: m[3]})
	}
	return cells, true
}
