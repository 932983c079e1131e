// Package pdfexport renders compliance records as branded, paginated PDFs.
//
// Rendering is split in two phases. During content flow a Session opens pages
// on demand, drawing the running header and a placeholder footer on each.
// Finalize then revisits every page and rewrites the footer with the known
// total page count.
package pdfexport

import "io"

// Color is an RGB triple.
type Color struct {
	R, G, B int
}

// Font styles accepted by Canvas.SetFont.
const (
	StyleRegular = ""
	StyleBold    = "B"
	StyleItalic  = "I"
)

// Rect styles accepted by Canvas.Rect.
const (
	RectFill     = "F"
	RectDraw     = "D"
	RectFillDraw = "FD"
)

// Canvas is the page-description surface a Session draws on. Coordinates are
// millimetres from the top-left corner; Text places the baseline at y.
type Canvas interface {
	AddPage()
	SetPage(n int)
	PageCount() int

	SetFont(style string, size float64)
	SetTextColor(c Color)
	SetFillColor(c Color)
	SetDrawColor(c Color)
	SetLineWidth(w float64)

	Rect(x, y, w, h float64, style string)
	Line(x1, y1, x2, y2 float64)
	Text(x, y float64, s string)
	// TextWidth measures s in the current font.
	TextWidth(s string) float64

	RegisterImage(name string, data []byte) error
	Image(name string, x, y, w, h float64)

	Output(w io.Writer) error
	Err() error
}

// Metadata is written into the document information dictionary.
type Metadata struct {
	Title   string
	Author  string
	Subject string
	Creator string
}
