package pdfexport

import (
	"fmt"
	"strings"
)

// Layout constants in mm unless noted.
const (
	headingHeight  = 11.0
	fieldHeight    = 6.0
	fieldLabelW    = 48.0
	tableRowHeight = 7.0
	paragraphGap   = 2.5
	blockGap       = 4.0
	calloutPadding = 3.0
	calloutLabelH  = 5.0

	// MaxCellRunes is the longest table cell printed before truncation.
	MaxCellRunes = 40
	// DefaultTextSize is the body font size in points.
	DefaultTextSize = 9.0
)

// lineHeight converts a font size in points to a line pitch in mm.
func lineHeight(size float64) float64 {
	return size * 0.3528 * 1.35
}

// ParagraphStyle adjusts a paragraph. The zero value is regular body text.
type ParagraphStyle struct {
	Bold   bool
	Size   float64
	Color  *Color
	Indent float64
}

// Heading draws an underlined, unnumbered section title.
func (s *Session) Heading(y float64, text string) float64 {
	return s.heading(y, text)
}

// NumberedHeading draws a section title prefixed with the next section number.
func (s *Session) NumberedHeading(y float64, text string) float64 {
	if s.err != nil {
		return y
	}
	s.section++
	return s.heading(y, fmt.Sprintf("%d. %s", s.section, text))
}

func (s *Session) heading(y float64, text string) float64 {
	// Keep a heading together with at least one line of what follows.
	y = s.ensure(y, headingHeight+fieldHeight)
	if s.err != nil {
		return y
	}
	g := s.geo
	s.canvas.SetTextColor(s.theme.Primary)
	s.canvas.SetFont(StyleBold, 11)
	s.canvas.Text(g.MarginLeft, y+6, s.fit(text, g.ContentWidth()))
	s.canvas.SetDrawColor(s.theme.Accent)
	s.canvas.SetLineWidth(0.4)
	s.canvas.Line(g.MarginLeft, y+8, g.MarginLeft+g.ContentWidth(), y+8)
	return y + headingHeight
}

// Field draws "Label: value" on one line. A blank value prints as N/A.
func (s *Session) Field(y float64, label, value string) float64 {
	y = s.ensure(y, fieldHeight)
	if s.err != nil {
		return y
	}
	g := s.geo
	base := y + 4.2
	s.canvas.SetTextColor(s.theme.Primary)
	s.canvas.SetFont(StyleBold, DefaultTextSize)
	s.canvas.Text(g.MarginLeft, base, s.fit(label+":", fieldLabelW-2))
	s.canvas.SetTextColor(s.theme.Text)
	s.canvas.SetFont(StyleRegular, DefaultTextSize)
	value = strings.Join(strings.Fields(orNA(value)), " ")
	s.canvas.Text(g.MarginLeft+fieldLabelW, base, s.fit(value, g.ContentWidth()-fieldLabelW))
	return y + fieldHeight
}

// Paragraph word-wraps text to the content width, breaking pages between
// lines as needed. Blank lines in text are kept as paragraph breaks.
func (s *Session) Paragraph(y float64, text string, style ParagraphStyle) float64 {
	if s.err != nil || strings.TrimSpace(text) == "" {
		return y
	}
	size := style.Size
	if size <= 0 {
		size = DefaultTextSize
	}
	color := s.theme.Text
	if style.Color != nil {
		color = *style.Color
	}
	fontStyle := StyleRegular
	if style.Bold {
		fontStyle = StyleBold
	}

	g := s.geo
	lh := lineHeight(size)
	x := g.MarginLeft + style.Indent
	s.canvas.SetFont(fontStyle, size)
	lines := s.wrap(text, g.ContentWidth()-style.Indent)

	for _, line := range lines {
		next := s.ensure(y, lh)
		if s.err != nil {
			return y
		}
		if next != y {
			// A page break in between resets the text state.
			s.canvas.SetFont(fontStyle, size)
		}
		y = next
		if line != "" {
			s.canvas.SetTextColor(color)
			s.canvas.Text(x, y+lh*0.75, line)
		}
		y += lh
	}
	return y + paragraphGap
}

// Table draws a filled header row followed by alternately shaded data rows.
// Columns share the content width equally. When rows spill onto a new page
// the header row is repeated.
func (s *Session) Table(y float64, headers []string, rows [][]string) float64 {
	if s.err != nil || len(headers) == 0 {
		return y
	}
	g := s.geo
	colW := g.ContentWidth() / float64(len(headers))

	y = s.ensure(y, tableRowHeight*2)
	if s.err != nil {
		return y
	}
	y = s.tableHeader(y, headers, colW)

	for i, row := range rows {
		next := s.ensure(y, tableRowHeight)
		if s.err != nil {
			return y
		}
		if next != y {
			next = s.tableHeader(next, headers, colW)
		}
		y = next

		if i%2 == 1 {
			s.canvas.SetFillColor(s.theme.Shade)
			s.canvas.Rect(g.MarginLeft, y, g.ContentWidth(), tableRowHeight, RectFill)
		}
		s.canvas.SetTextColor(s.theme.Text)
		s.canvas.SetFont(StyleRegular, 8)
		for c := range headers {
			cell := ""
			if c < len(row) {
				cell = row[c]
			}
			cell = TruncateCell(cell)
			s.canvas.Text(g.MarginLeft+float64(c)*colW+1.5, y+4.8, s.fit(cell, colW-3))
		}
		y += tableRowHeight
	}

	s.canvas.SetDrawColor(s.theme.Muted)
	s.canvas.SetLineWidth(0.2)
	s.canvas.Line(g.MarginLeft, y, g.MarginLeft+g.ContentWidth(), y)
	return y + blockGap
}

func (s *Session) tableHeader(y float64, headers []string, colW float64) float64 {
	g := s.geo
	s.canvas.SetFillColor(s.theme.Primary)
	s.canvas.Rect(g.MarginLeft, y, g.ContentWidth(), tableRowHeight, RectFill)
	s.canvas.SetTextColor(s.theme.White)
	s.canvas.SetFont(StyleBold, 8)
	for c, h := range headers {
		s.canvas.Text(g.MarginLeft+float64(c)*colW+1.5, y+4.8, s.fit(h, colW-3))
	}
	return y + tableRowHeight
}

// TruncateCell shortens cell text longer than MaxCellRunes and collapses
// whitespace so the cell fits one line.
func TruncateCell(v string) string {
	v = strings.Join(strings.Fields(v), " ")
	r := []rune(v)
	if len(r) <= MaxCellRunes {
		return v
	}
	return string(r[:MaxCellRunes]) + ellipsis
}

// Callout draws a tinted, bordered box labelled by kind around wrapped text.
// A box taller than the space left moves to the next page; one taller than a
// whole page is split across pages.
func (s *Session) Callout(y float64, text string, kind CalloutKind) float64 {
	if s.err != nil || strings.TrimSpace(text) == "" {
		return y
	}
	g := s.geo
	lh := lineHeight(DefaultTextSize)
	inner := g.ContentWidth() - 2*calloutPadding - 2
	s.canvas.SetFont(StyleRegular, DefaultTextSize)
	lines := s.wrap(text, inner)

	boxHeight := func(n int) float64 {
		return 2*calloutPadding + calloutLabelH + float64(n)*lh
	}
	perPage := int((g.ContentBottom() - g.ContentTop() - boxHeight(0)) / lh)
	if perPage < 1 {
		perPage = 1
	}

	fill, border := kind.colors()
	label := kind.label()
	for len(lines) > 0 {
		fits := int((g.ContentBottom() - y - boxHeight(0)) / lh)
		if fits < len(lines) && (len(lines) <= perPage || fits < 1) {
			next := s.ensure(y, boxHeight(len(lines)))
			if s.err != nil {
				return y
			}
			if next != y {
				y = next
				continue
			}
		}
		n := len(lines)
		if fits >= 1 && fits < n {
			n = fits
		}
		chunk := lines[:n]
		lines = lines[n:]

		h := boxHeight(len(chunk))
		s.canvas.SetFillColor(fill)
		s.canvas.SetDrawColor(border)
		s.canvas.SetLineWidth(0.5)
		s.canvas.Rect(g.MarginLeft, y, g.ContentWidth(), h, RectFillDraw)
		s.canvas.SetFillColor(border)
		s.canvas.Rect(g.MarginLeft, y, 1.5, h, RectFill)

		s.canvas.SetTextColor(border)
		s.canvas.SetFont(StyleBold, 8)
		s.canvas.Text(g.MarginLeft+calloutPadding+2, y+calloutPadding+3, label)
		s.canvas.SetTextColor(s.theme.Text)
		s.canvas.SetFont(StyleRegular, DefaultTextSize)
		ty := y + calloutPadding + calloutLabelH
		for _, line := range chunk {
			s.canvas.Text(g.MarginLeft+calloutPadding+2, ty+lh*0.75, line)
			ty += lh
		}
		y += h
		if len(lines) > 0 {
			label = kind.label() + " (continued)"
			y = s.ensure(y, g.ContentBottom())
			if s.err != nil {
				return y
			}
		}
	}
	return y + blockGap
}

// Spacer advances the cursor without drawing.
func (s *Session) Spacer(y, h float64) float64 {
	if s.err != nil {
		return y
	}
	return y + h
}

// wrap splits text into lines no wider than w in the current font. Words
// wider than w are broken between runes.
func (s *Session) wrap(text string, w float64) []string {
	var lines []string
	for _, para := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		words := strings.Fields(para)
		if len(words) == 0 {
			lines = append(lines, "")
			continue
		}
		current := ""
		for _, word := range words {
			for s.canvas.TextWidth(word) > w {
				head, tail := s.splitWord(word, w)
				if current != "" {
					lines = append(lines, current)
					current = ""
				}
				lines = append(lines, head)
				word = tail
			}
			if word == "" {
				continue
			}
			candidate := word
			if current != "" {
				candidate = current + " " + word
			}
			if s.canvas.TextWidth(candidate) <= w {
				current = candidate
				continue
			}
			lines = append(lines, current)
			current = word
		}
		if current != "" {
			lines = append(lines, current)
		}
	}
	// Trailing blank lines add nothing but height.
	for len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

func (s *Session) splitWord(word string, w float64) (string, string) {
	r := []rune(word)
	n := 1
	for n < len(r) && s.canvas.TextWidth(string(r[:n+1])) <= w {
		n++
	}
	return string(r[:n]), string(r[n:])
}
