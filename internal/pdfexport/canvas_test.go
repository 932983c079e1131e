package pdfexport

import (
	"errors"
	"fmt"
	"io"
	"strings"
)

// drawOp is one recorded canvas call.
type drawOp struct {
	kind string
	x, y float64
	size float64
	text string
}

// recordingCanvas records drawing per page and measures text as if every
// rune were 0.2 mm per point wide.
type recordingCanvas struct {
	pages      [][]drawOp
	current    int
	size       float64
	adds       int
	images     map[string]bool
	rejectLogo bool
}

func newRecordingCanvas(Geometry, Metadata) Canvas {
	return &recordingCanvas{size: 10, images: map[string]bool{}}
}

func (c *recordingCanvas) record(op drawOp) {
	c.pages[c.current-1] = append(c.pages[c.current-1], op)
}

func (c *recordingCanvas) AddPage() {
	c.pages = append(c.pages, nil)
	c.current = len(c.pages)
	c.adds++
}

func (c *recordingCanvas) SetPage(n int) {
	if n >= 1 && n <= len(c.pages) {
		c.current = n
	}
}

func (c *recordingCanvas) PageCount() int { return len(c.pages) }

func (c *recordingCanvas) SetFont(_ string, size float64) { c.size = size }
func (c *recordingCanvas) SetTextColor(Color)             {}
func (c *recordingCanvas) SetFillColor(Color)             {}
func (c *recordingCanvas) SetDrawColor(Color)             {}
func (c *recordingCanvas) SetLineWidth(float64)           {}

func (c *recordingCanvas) Rect(x, y, w, h float64, style string) {
	c.record(drawOp{kind: "rect", x: x, y: y, text: style})
}

func (c *recordingCanvas) Line(x1, y1, x2, y2 float64) {
	c.record(drawOp{kind: "line", x: x1, y: y1})
}

func (c *recordingCanvas) Text(x, y float64, s string) {
	c.record(drawOp{kind: "text", x: x, y: y, size: c.size, text: s})
}

func (c *recordingCanvas) TextWidth(s string) float64 {
	return float64(len([]rune(s))) * c.size * 0.2
}

func (c *recordingCanvas) RegisterImage(name string, data []byte) error {
	if c.rejectLogo || len(data) == 0 {
		return errors.New("bad image")
	}
	c.images[name] = true
	return nil
}

func (c *recordingCanvas) Image(name string, x, y, w, h float64) {
	if c.images[name] {
		c.record(drawOp{kind: "image", x: x, y: y, text: name})
	}
}

func (c *recordingCanvas) Output(w io.Writer) error {
	_, err := fmt.Fprintf(w, "%%RECORDED %d pages", len(c.pages))
	return err
}

func (c *recordingCanvas) Err() error { return nil }

// texts returns the text drawn on page p (1-based).
func (c *recordingCanvas) texts(p int) []string {
	var out []string
	for _, op := range c.pages[p-1] {
		if op.kind == "text" {
			out = append(out, op.text)
		}
	}
	return out
}

// headerTitle joins the header title lines of page p.
func (c *recordingCanvas) headerTitle(p int) string {
	var parts []string
	for _, op := range c.pages[p-1] {
		if op.kind == "text" && op.size == headerTitleSize {
			parts = append(parts, op.text)
		}
	}
	return strings.Join(parts, " ")
}

// lastWith returns the last text on page p containing sub.
func (c *recordingCanvas) lastWith(p int, sub string) string {
	found := ""
	for _, t := range c.texts(p) {
		if strings.Contains(t, sub) {
			found = t
		}
	}
	return found
}

// contentTexts returns the text drawn inside the content area of page p, in
// order, which identifies what content landed on that page.
func (c *recordingCanvas) contentTexts(p int, g Geometry) []string {
	var out []string
	for _, op := range c.pages[p-1] {
		if op.kind == "text" && op.y > g.ContentTop() && op.y <= g.ContentBottom() {
			out = append(out, op.text)
		}
	}
	return out
}
