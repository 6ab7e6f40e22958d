package docparse

// RawResponse is an unmodified provider response, tagged by provider.
// Exactly one of the shape fields is set; only a Normalizer inspects them.
type RawResponse struct {
	Provider Provider

	Layout   *LayoutResponse   // azure
	Textract *TextractResponse // textract
	OCR      *OCRResponse      // mistral
	Chunks   *ChunkResponse    // llamaparse, gemini
	Elements *ElementsResponse // unstructured
}

// BoundingBox is an axis-aligned box in page-relative coordinates.
type BoundingBox struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// LayoutResponse is the analyzeResult of a layout-analysis service.
type LayoutResponse struct {
	ModelID string        `json:"modelId"`
	Pages   []LayoutPage  `json:"pages"`
	Tables  []LayoutTable `json:"tables"`
}

// LayoutPage is one analyzed page with its lines and selection marks.
type LayoutPage struct {
	PageNumber     int                   `json:"pageNumber"`
	Width          float64               `json:"width"`
	Height         float64               `json:"height"`
	Unit           string                `json:"unit"`
	Lines          []LayoutLine          `json:"lines"`
	SelectionMarks []LayoutSelectionMark `json:"selectionMarks"`
}

// LayoutLine is a line of text with its polygon.
type LayoutLine struct {
	Content string    `json:"content"`
	Polygon []float64 `json:"polygon"`
}

// LayoutSelectionMark is a checkbox or radio button.
type LayoutSelectionMark struct {
	State      string    `json:"state"`
	Polygon    []float64 `json:"polygon"`
	Confidence float64   `json:"confidence"`
}

// LayoutTable is a table with cell-level structure.
type LayoutTable struct {
	RowCount        int            `json:"rowCount"`
	ColumnCount     int            `json:"columnCount"`
	Cells           []LayoutCell   `json:"cells"`
	BoundingRegions []LayoutRegion `json:"boundingRegions"`
}

// LayoutCell is one table cell.
type LayoutCell struct {
	Kind        string `json:"kind"`
	RowIndex    int    `json:"rowIndex"`
	ColumnIndex int    `json:"columnIndex"`
	RowSpan     int    `json:"rowSpan"`
	ColumnSpan  int    `json:"columnSpan"`
	Content     string `json:"content"`
}

// LayoutRegion locates an element on a page.
type LayoutRegion struct {
	PageNumber int       `json:"pageNumber"`
	Polygon    []float64 `json:"polygon"`
}

// TextractResponse is a block graph returned by document analysis.
type TextractResponse struct {
	DocumentPages int             `json:"documentPages"`
	Blocks        []TextractBlock `json:"blocks"`
}

// TextractBlock is one node of the block graph (PAGE, LINE, WORD, TABLE,
// CELL, SELECTION_ELEMENT, ...).
type TextractBlock struct {
	ID              string       `json:"id"`
	BlockType       string       `json:"blockType"`
	Text            string       `json:"text,omitempty"`
	Page            int          `json:"page,omitempty"`
	RowIndex        int          `json:"rowIndex,omitempty"`
	ColumnIndex     int          `json:"columnIndex,omitempty"`
	Confidence      float64      `json:"confidence,omitempty"`
	SelectionStatus string       `json:"selectionStatus,omitempty"`
	BoundingBox     *BoundingBox `json:"boundingBox,omitempty"`
	ChildIDs        []string     `json:"childIds,omitempty"`
}

// OCRResponse is a page-indexed OCR result.
type OCRResponse struct {
	Model string    `json:"model"`
	Pages []OCRPage `json:"pages"`
}

// OCRPage is one page of OCR output. Index is nil when the provider omitted it.
type OCRPage struct {
	Index      *int           `json:"index"`
	Markdown   string         `json:"markdown"`
	Images     []OCRImage     `json:"images"`
	Dimensions *OCRDimensions `json:"dimensions"`
}

// OCRImage is an image region detected on an OCR page.
type OCRImage struct {
	ID           string `json:"id"`
	TopLeftX     int    `json:"top_left_x"`
	TopLeftY     int    `json:"top_left_y"`
	BottomRightX int    `json:"bottom_right_x"`
	BottomRightY int    `json:"bottom_right_y"`
}

// OCRDimensions describes the rendered page.
type OCRDimensions struct {
	DPI    int `json:"dpi"`
	Height int `json:"height"`
	Width  int `json:"width"`
}

// ChunkResponse is a sequence of markdown chunks without page numbers.
type ChunkResponse struct {
	JobID  string  `json:"jobId,omitempty"`
	Chunks []Chunk `json:"chunks"`
}

// Chunk is a provider-defined unit of extracted text.
type Chunk struct {
	Text string `json:"text"`
}

// ElementsResponse is a list of typed elements from a partitioning service.
type ElementsResponse struct {
	Elements []Element `json:"elements"`
}

// Element is one partitioned element (Title, NarrativeText, Table, ...).
type Element struct {
	Type      string          `json:"type"`
	ElementID string          `json:"element_id"`
	Text      string          `json:"text"`
	Metadata  ElementMetadata `json:"metadata"`
}

// ElementMetadata carries the element's location and extras.
type ElementMetadata struct {
	PageNumber  int                 `json:"page_number,omitempty"`
	Filename    string              `json:"filename,omitempty"`
	TextAsHTML  string              `json:"text_as_html,omitempty"`
	Coordinates *ElementCoordinates `json:"coordinates,omitempty"`
}

// ElementCoordinates is the element's polygon in the given coordinate system.
type ElementCoordinates struct {
	Points [][]float64 `json:"points"`
	System string      `json:"system"`
}
