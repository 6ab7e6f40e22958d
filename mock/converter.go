package mock

import "github.com/fwojciec/docparse"

var _ docparse.Converter = (*Converter)(nil)

// Converter is a mock implementation of docparse.Converter.
type Converter struct {
	ConvertFn func(html string) (string, error)
}

func (c *Converter) Convert(html string) (string, error) {
	return c.ConvertFn(html)
}

var _ docparse.TableParser = (*TableParser)(nil)

// TableParser is a mock implementation of docparse.TableParser.
type TableParser struct {
	ParseTableFn func(html string) ([]docparse.TableCell, error)
}

func (p *TableParser) ParseTable(html string) ([]docparse.TableCell, error) {
	return p.ParseTableFn(html)
}
