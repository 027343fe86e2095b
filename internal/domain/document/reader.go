// Package document provides the PDF text-layer reading shared by the
// charge-line and income extraction pipelines. Positioned text runs are
// grouped into lines by vertical position and split into cells on horizontal
// gaps, which recovers the tabular structure of the regulatory forms well
// enough for marker-driven row extraction.
package document

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"
)

// ErrUnreadable indicates the file could not be opened or has no text layer.
var ErrUnreadable = errors.New("document is unreadable or has no text layer")

// Row is one table row as a sequence of cell texts.
type Row []string

// Text returns the row's cells joined by single spaces.
func (r Row) Text() string {
	return strings.Join(r, " ")
}

// Blank reports whether every cell is empty or whitespace.
func (r Row) Blank() bool {
	for _, c := range r {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// Page holds the extracted content of one PDF page.
type Page struct {
	Number int
	// Text is the page's full text layer, one line per row.
	Text string
	// Rows are the table rows reconstructed from positioned text runs,
	// in top-to-bottom reading order. Blank rows are already dropped.
	Rows []Row
}

// Lines splits the page text into individual lines.
func (p Page) Lines() []string {
	return strings.Split(p.Text, "\n")
}

// Document is a fully read PDF.
type Document struct {
	Pages []Page
}

// Reader loads a PDF from disk into a Document.
type Reader interface {
	Read(path string) (*Document, error)
}

const (
	// lineTolerance is the max vertical distance (pt) between runs on the
	// same visual line.
	lineTolerance = 2.0
	// cellGap is the min horizontal gap (pt) that separates two cells.
	cellGap = 10.0
)

// PDFReader reads PDFs through their embedded text layer.
type PDFReader struct {
	logger *slog.Logger
}

// NewPDFReader creates a text-layer PDF reader.
func NewPDFReader(logger *slog.Logger) *PDFReader {
	return &PDFReader{logger: logger}
}

// Read extracts every page of the PDF at path.
func (r *PDFReader) Read(path string) (doc *Document, err error) {
	// The pdf library panics on some malformed files.
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("panic while reading pdf",
				slog.String("path", path), slog.Any("panic", rec))
			doc = nil
			err = fmt.Errorf("%w: %v", ErrUnreadable, rec)
		}
	}()

	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadable, err)
	}
	defer f.Close()

	doc = &Document{}
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		texts := page.Content().Text
		rows := assembleRows(texts)

		lines := make([]string, 0, len(rows))
		kept := make([]Row, 0, len(rows))
		for _, row := range rows {
			lines = append(lines, row.Text())
			if !row.Blank() {
				kept = append(kept, row)
			}
		}

		doc.Pages = append(doc.Pages, Page{
			Number: i,
			Text:   strings.Join(lines, "\n"),
			Rows:   kept,
		})
	}

	if len(doc.Pages) == 0 {
		return nil, ErrUnreadable
	}

	r.logger.Debug("pdf read", slog.String("path", path), slog.Int("pages", len(doc.Pages)))
	return doc, nil
}

// run is a positioned fragment of text on a page.
type run struct {
	x, y, w float64
	s       string
}

// assembleRows groups positioned text runs into rows of cells. Runs whose Y
// coordinates are within lineTolerance belong to the same row; inside a row a
// horizontal gap larger than cellGap starts a new cell.
func assembleRows(texts []pdf.Text) []Row {
	if len(texts) == 0 {
		return nil
	}

	runs := make([]run, 0, len(texts))
	for _, t := range texts {
		runs = append(runs, run{x: t.X, y: t.Y, w: t.W, s: t.S})
	}

	// PDF Y grows upward, so descending Y is top-to-bottom reading order.
	sort.SliceStable(runs, func(i, j int) bool {
		if runs[i].y != runs[j].y {
			return runs[i].y > runs[j].y
		}
		return runs[i].x < runs[j].x
	})

	var rows []Row
	var line []run
	flush := func() {
		if len(line) > 0 {
			rows = append(rows, splitCells(line))
			line = nil
		}
	}

	for _, r := range runs {
		if len(line) > 0 && line[0].y-r.y > lineTolerance {
			flush()
		}
		line = append(line, r)
	}
	flush()

	return rows
}

// splitCells merges a line of runs into cells, breaking on horizontal gaps.
func splitCells(line []run) Row {
	sort.SliceStable(line, func(i, j int) bool { return line[i].x < line[j].x })

	var cells Row
	var cell strings.Builder
	prevEnd := line[0].x

	for i, r := range line {
		if i > 0 && r.x-prevEnd > cellGap {
			cells = append(cells, strings.TrimSpace(cell.String()))
			cell.Reset()
		}
		cell.WriteString(r.s)
		prevEnd = r.x + r.w
	}
	cells = append(cells, strings.TrimSpace(cell.String()))

	return cells
}
