package pdfexport

import (
	"errors"
	"fmt"
	"strings"
)

// DefaultMaxPages caps a single export.
const DefaultMaxPages = 500

// ErrPageLimit is recorded when content would need more pages than allowed.
var ErrPageLimit = errors.New("page limit exceeded")

const (
	headerTitleSize  = 12.0
	confidentialMark = "CONFIDENTIAL"
	uncontrolledNote = "Printed copies are uncontrolled. Verify the current revision before use."
	ellipsis         = "..."
)

// DocumentControl is the control block printed in every page header.
type DocumentControl struct {
	DocNumber   string
	Revision    string
	ReviewDate  string
	CompanyName string
	PreparedBy  string
	Title       string
	Type        string
}

// Issuer identifies the company in the footer line.
type Issuer struct {
	CompanyName        string
	RegistrationNumber string
	Contact            string
}

func (i Issuer) line() string {
	parts := make([]string, 0, 3)
	if i.CompanyName != "" {
		parts = append(parts, i.CompanyName)
	}
	if i.RegistrationNumber != "" {
		parts = append(parts, "Reg. No. "+i.RegistrationNumber)
	}
	if i.Contact != "" {
		parts = append(parts, i.Contact)
	}
	return strings.Join(parts, " | ")
}

// frame is everything drawn around the content of a page.
type frame struct {
	Title   string
	Version string
	Control DocumentControl
	Issuer  Issuer
	Brand   Brand
	Logo    string
}

// Session is the mutable state of one export. It is owned by a single Export
// call and is not safe for concurrent use.
type Session struct {
	canvas   Canvas
	geo      Geometry
	theme    Theme
	frame    frame
	maxPages int

	page      int
	opened    int
	section   int
	err       error
	finalized bool
}

func newSession(c Canvas, g Geometry, t Theme, f frame, maxPages int) *Session {
	if maxPages <= 0 {
		maxPages = DefaultMaxPages
	}
	return &Session{canvas: c, geo: g, theme: t, frame: f, maxPages: maxPages}
}

// Start opens the first page and returns the top-of-content cursor.
func (s *Session) Start() float64 {
	if s.opened == 0 {
		s.newPage()
	}
	return s.geo.ContentTop()
}

// Page is the 1-based index of the page being drawn.
func (s *Session) Page() int { return s.page }

// PagesOpened counts the pages created so far.
func (s *Session) PagesOpened() int { return s.opened }

// Geometry returns the fixed page geometry.
func (s *Session) Geometry() Geometry { return s.geo }

// Err returns the first error recorded by the session.
func (s *Session) Err() error {
	if s.err != nil {
		return s.err
	}
	return s.canvas.Err()
}

func (s *Session) fail(err error) {
	if s.err == nil {
		s.err = err
	}
}

// ensure returns y if h more millimetres fit on the current page, otherwise
// opens a new page and returns the top-of-content cursor. A block taller than
// a whole page is drawn from the top without further breaking.
func (s *Session) ensure(y, h float64) float64 {
	if s.err != nil {
		return y
	}
	if y+h <= s.geo.ContentBottom() || y <= s.geo.ContentTop() {
		return y
	}
	s.newPage()
	return s.geo.ContentTop()
}

func (s *Session) newPage() {
	if s.finalized {
		s.fail(errors.New("session already finalized"))
		return
	}
	if s.opened >= s.maxPages {
		s.fail(fmt.Errorf("%w: more than %d pages", ErrPageLimit, s.maxPages))
		return
	}
	s.canvas.AddPage()
	s.opened++
	s.page = s.opened
	s.drawHeader()
	s.drawFooter(0)
}

func (s *Session) drawHeader() {
	g, t, f := s.geo, s.theme, s.frame

	s.canvas.SetFillColor(t.Primary)
	s.canvas.Rect(0, 0, g.PageWidth, 10, RectFill)
	s.canvas.SetTextColor(t.White)
	s.canvas.SetFont(StyleBold, 13)
	s.canvas.Text(g.MarginLeft, 7, f.Brand.Product)
	if f.Brand.Tagline != "" {
		s.canvas.SetFont(StyleRegular, 8)
		s.canvas.Text(g.PageWidth-g.MarginRight-s.canvas.TextWidth(f.Brand.Tagline), 6.5, f.Brand.Tagline)
	}

	textX := g.MarginLeft
	if f.Logo != "" {
		s.canvas.Image(f.Logo, g.MarginLeft, 13, 16, 16)
		textX += 19
	}

	const boxW, boxH = 64.0, 24.0
	boxX := g.PageWidth - g.MarginRight - boxW
	titleW := boxX - 4 - textX

	s.canvas.SetTextColor(t.Primary)
	s.canvas.SetFont(StyleBold, headerTitleSize)
	for i, line := range s.titleLines(f.Title, titleW) {
		s.canvas.Text(textX, 19+float64(i)*5.5, line)
	}
	s.canvas.SetTextColor(t.Muted)
	s.canvas.SetFont(StyleRegular, 8)
	if f.Version != "" {
		s.canvas.Text(textX, 30, s.fit(f.Version, titleW))
	}
	if f.Control.CompanyName != "" {
		s.canvas.Text(textX, 34.5, s.fit(f.Control.CompanyName, titleW))
	}

	s.canvas.SetFillColor(t.ControlBox)
	s.canvas.SetDrawColor(t.Accent)
	s.canvas.SetLineWidth(0.3)
	s.canvas.Rect(boxX, 13, boxW, boxH, RectFillDraw)
	rows := [][2]string{
		{"Doc No:", f.Control.DocNumber},
		{"Revision:", f.Control.Revision},
		{"Review Date:", f.Control.ReviewDate},
		{"Type:", f.Control.Type},
	}
	for i, row := range rows {
		y := 18.5 + float64(i)*5
		s.canvas.SetTextColor(t.Primary)
		s.canvas.SetFont(StyleBold, 7.5)
		s.canvas.Text(boxX+2.5, y, row[0])
		s.canvas.SetTextColor(t.Text)
		s.canvas.SetFont(StyleRegular, 7.5)
		s.canvas.Text(boxX+21, y, s.fit(orNA(row[1]), boxW-23))
	}

	s.canvas.SetDrawColor(t.Accent)
	s.canvas.SetLineWidth(0.6)
	ruleY := g.ContentTop() - 4
	s.canvas.Line(g.MarginLeft, ruleY, g.PageWidth-g.MarginRight, ruleY)
}

// titleLines wraps the header title onto at most two lines.
func (s *Session) titleLines(title string, w float64) []string {
	lines := s.wrap(title, w)
	if len(lines) <= 2 {
		return lines
	}
	return []string{lines[0], s.fit(strings.Join(lines[1:], " "), w)}
}

// footerY is the baseline of the page-number line.
func (s *Session) footerY() float64 {
	return s.geo.PageHeight - s.geo.MarginBottom + 9
}

// drawFooter draws the footer of the current page. total is 0 until Finalize.
func (s *Session) drawFooter(total int) {
	g, t := s.geo, s.theme
	y := s.footerY()
	half := g.ContentWidth() / 2

	if total == 0 {
		s.canvas.SetDrawColor(t.Muted)
		s.canvas.SetLineWidth(0.2)
		s.canvas.Line(g.MarginLeft, y-5, g.PageWidth-g.MarginRight, y-5)
		s.canvas.SetTextColor(t.Muted)
		s.canvas.SetFont(StyleRegular, 7)
		s.canvas.Text(g.MarginLeft, y, s.fit(s.frame.Issuer.line(), half))
		s.canvas.Text(g.MarginLeft, y+4.5, s.fit(uncontrolledNote, g.ContentWidth()))
	}

	s.canvas.SetTextColor(t.Primary)
	s.canvas.SetFont(StyleBold, 7)
	label := pageLabel(s.page, total)
	s.canvas.Text(g.PageWidth-g.MarginRight-s.canvas.TextWidth(label), y, label)
}

func pageLabel(page, total int) string {
	if total > 0 {
		return fmt.Sprintf("Page %d of %d | %s", page, total, confidentialMark)
	}
	return fmt.Sprintf("Page %d | %s", page, confidentialMark)
}

// Finalize rewrites the page-number line of every page with the total page
// count and returns that count. The session accepts no more content after it.
func (s *Session) Finalize() (int, error) {
	if err := s.Err(); err != nil {
		return 0, err
	}
	if s.finalized {
		return s.opened, nil
	}
	g := s.geo
	total := s.opened
	half := g.ContentWidth() / 2
	y := s.footerY()

	for p := 1; p <= total; p++ {
		s.canvas.SetPage(p)
		s.page = p
		s.canvas.SetFillColor(s.theme.White)
		s.canvas.Rect(g.MarginLeft+half, y-3.5, half, 5, RectFill)
		s.drawFooter(total)
	}
	s.canvas.SetPage(total)
	s.finalized = true
	return total, s.canvas.Err()
}

// fit shortens text with an ellipsis until it is at most w wide in the
// current font.
func (s *Session) fit(text string, w float64) string {
	if text == "" || s.canvas.TextWidth(text) <= w {
		return text
	}
	r := []rune(text)
	for len(r) > 0 {
		r = r[:len(r)-1]
		candidate := strings.TrimRight(string(r), " ") + ellipsis
		if s.canvas.TextWidth(candidate) <= w {
			return candidate
		}
	}
	return ""
}

func orNA(v string) string {
	if strings.TrimSpace(v) == "" {
		return "N/A"
	}
	return v
}
