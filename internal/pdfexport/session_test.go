package pdfexport

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSession(maxPages int) (*Session, *recordingCanvas) {
	c := newRecordingCanvas(A4(), Metadata{}).(*recordingCanvas)
	f := frame{
		Title:   "Document: Control of Records",
		Control: DocumentControl{DocNumber: "IG-SH-DOC-007", Revision: "Rev 01", ReviewDate: "31 January 2027", Type: "Document"},
		Issuer:  Issuer{CompanyName: "Sunrise Holdings", RegistrationNumber: "2019/123456/07", Contact: "qa@sunrise.example"},
		Brand:   DefaultBrand(),
	}
	return newSession(c, A4(), DefaultTheme(), f, maxPages), c
}

// script is a fixed sequence of primitive calls long enough to span pages.
func script(s *Session, y float64) (float64, error) {
	for i := 1; i <= 12; i++ {
		y = s.NumberedHeading(y, fmt.Sprintf("Section %d", i))
		y = s.Field(y, "Owner", "Quality Manager")
		y = s.Field(y, "Status", "")
		y = s.Paragraph(y, strings.Repeat("Records shall be legible, identifiable and retrievable. ", 6), ParagraphStyle{})
	}
	rows := make([][]string, 30)
	for i := range rows {
		rows[i] = []string{fmt.Sprintf("R%02d", i), "Minor", "Calibration records incomplete for gauge set", "Open"}
	}
	y = s.Table(y, []string{"Ref", "Type", "Description", "Status"}, rows)
	y = s.Callout(y, "Retention periods follow the records retention schedule.", CalloutImportant)
	return y, s.Err()
}

func TestSession_StartOpensOnePage(t *testing.T) {
	s, c := testSession(0)
	y := s.Start()
	assert.Equal(t, A4().ContentTop(), y)
	assert.Equal(t, 1, s.PagesOpened())
	assert.Equal(t, 1, c.PageCount())
	assert.Contains(t, c.texts(1), "ISOGuardian")
	assert.Contains(t, c.texts(1), "Document: Control of Records")
	assert.Contains(t, c.texts(1), "IG-SH-DOC-007")
	assert.Equal(t, "Page 1 | CONFIDENTIAL", c.lastWith(1, "Page"))
}

func TestSession_PaginationIsDeterministic(t *testing.T) {
	s1, c1 := testSession(0)
	_, err := script(s1, s1.Start())
	require.NoError(t, err)
	s2, c2 := testSession(0)
	_, err = script(s2, s2.Start())
	require.NoError(t, err)

	require.Greater(t, s1.PagesOpened(), 1)
	assert.Equal(t, s1.PagesOpened(), s2.PagesOpened())
	for p := 1; p <= s1.PagesOpened(); p++ {
		assert.Equal(t, c1.contentTexts(p, A4()), c2.contentTexts(p, A4()), "page %d", p)
	}
}

func TestSession_ContentStaysInsideContentArea(t *testing.T) {
	s, c := testSession(0)
	_, err := script(s, s.Start())
	require.NoError(t, err)

	g := A4()
	for p := 1; p <= c.PageCount(); p++ {
		for _, op := range c.pages[p-1] {
			if op.kind != "text" || op.y < g.ContentTop() {
				continue
			}
			// Footer text sits below the content area by design of the frame.
			if strings.Contains(op.text, "CONFIDENTIAL") || op.text == uncontrolledNote || strings.Contains(op.text, "Sunrise Holdings") {
				continue
			}
			assert.LessOrEqual(t, op.y, g.ContentBottom(), "page %d text %q", p, op.text)
		}
	}
}

var footerPattern = regexp.MustCompile(`^Page (\d+) of (\d+) \| CONFIDENTIAL$`)

func TestSession_FinalizeStampsTotalOnEveryPage(t *testing.T) {
	s, c := testSession(0)
	_, err := script(s, s.Start())
	require.NoError(t, err)

	total, err := s.Finalize()
	require.NoError(t, err)
	assert.Equal(t, s.PagesOpened(), total)
	assert.Equal(t, c.adds, total)

	for p := 1; p <= total; p++ {
		m := footerPattern.FindStringSubmatch(c.lastWith(p, "Page"))
		require.NotNil(t, m, "page %d footer", p)
		assert.Equal(t, fmt.Sprint(p), m[1])
		assert.Equal(t, fmt.Sprint(total), m[2])
	}

	again, err := s.Finalize()
	require.NoError(t, err)
	assert.Equal(t, total, again)
}

func TestSession_PageLimit(t *testing.T) {
	s, c := testSession(2)
	y := s.Start()
	for i := 0; i < 200; i++ {
		y = s.Paragraph(y, "Line of runaway content that never ends.", ParagraphStyle{})
	}
	require.ErrorIs(t, s.Err(), ErrPageLimit)
	assert.Equal(t, 2, c.PageCount())

	_, err := s.Finalize()
	assert.ErrorIs(t, err, ErrPageLimit)
}

func TestSession_FieldRendersNA(t *testing.T) {
	s, c := testSession(0)
	y := s.Start()
	next := s.Field(y, "Root Cause", "   ")
	assert.Equal(t, y+fieldHeight, next)
	assert.Contains(t, c.texts(1), "Root Cause:")
	assert.Contains(t, c.texts(1), "N/A")
}

func TestSession_TableTruncatesLongCells(t *testing.T) {
	s, c := testSession(0)
	y := s.Start()
	long := strings.Repeat("x", 55)
	next := s.Table(y, []string{"A", "B"}, [][]string{{long, "short"}, {"two", ""}})
	assert.Equal(t, y+3*tableRowHeight+blockGap, next)

	var truncated string
	for _, txt := range c.texts(1) {
		if strings.HasPrefix(txt, "xxxx") {
			truncated = txt
		}
	}
	require.NotEmpty(t, truncated)
	assert.True(t, strings.HasSuffix(truncated, "..."))
	assert.LessOrEqual(t, len([]rune(truncated)), MaxCellRunes+3)
}

func TestTruncateCell(t *testing.T) {
	assert.Equal(t, "short", TruncateCell("short"))
	assert.Equal(t, "a b", TruncateCell(" a \n b "))
	exact := strings.Repeat("é", MaxCellRunes)
	assert.Equal(t, exact, TruncateCell(exact))
	assert.Equal(t, strings.Repeat("é", MaxCellRunes)+"...", TruncateCell(exact+"é"))
}

func TestSession_TableRepeatsHeaderAfterBreak(t *testing.T) {
	s, c := testSession(0)
	y := s.Start()
	rows := make([][]string, 60)
	for i := range rows {
		rows[i] = []string{fmt.Sprint(i), "ok"}
	}
	s.Table(y, []string{"Row", "Result"}, rows)
	require.GreaterOrEqual(t, c.PageCount(), 2)
	for p := 1; p <= c.PageCount(); p++ {
		assert.Contains(t, c.contentTexts(p, A4()), "Row", "page %d", p)
	}
}

func TestSession_ParagraphAdvance(t *testing.T) {
	s, _ := testSession(0)
	y := s.Start()
	lh := lineHeight(DefaultTextSize)

	next := s.Paragraph(y, "one line", ParagraphStyle{})
	assert.InDelta(t, y+lh+paragraphGap, next, 1e-9)

	assert.Equal(t, next, s.Paragraph(next, "  ", ParagraphStyle{}))
}

func TestSession_WrapBreaksLongWords(t *testing.T) {
	s, _ := testSession(0)
	s.canvas.SetFont(StyleRegular, 10)
	lines := s.wrap("alpha "+strings.Repeat("z", 30)+" omega", 20)
	for _, l := range lines {
		assert.LessOrEqual(t, s.canvas.TextWidth(l), 20.0, "line %q", l)
	}
	assert.Equal(t, "alpha", lines[0])
	assert.Equal(t, "omega", lines[len(lines)-1])
	assert.Equal(t, "alpha"+strings.Repeat("z", 30)+"omega", strings.Join(lines, ""))
}

func TestSession_CalloutSplitsWhenTallerThanPage(t *testing.T) {
	s, c := testSession(0)
	y := s.Start()
	body := strings.Repeat("Every nonconformity must be recorded and reviewed by the process owner. ", 120)
	s.Callout(y, body, CalloutWarning)
	require.NoError(t, s.Err())
	require.GreaterOrEqual(t, c.PageCount(), 2)
	assert.Contains(t, c.contentTexts(1, A4()), "WARNING")
	assert.Contains(t, c.contentTexts(2, A4()), "WARNING (continued)")
}

func TestSession_CalloutMovesWholeBoxToNextPage(t *testing.T) {
	s, c := testSession(0)
	g := A4()
	y := g.ContentBottom() - 10
	s.Start()
	next := s.Callout(y, "Short but it does not fit in ten millimetres.\nSecond line.", CalloutNote)
	assert.Equal(t, 2, c.PageCount())
	assert.Greater(t, next, g.ContentTop())
	assert.Contains(t, c.contentTexts(2, g), "NOTE")
}

func TestSession_NoDrawingAfterError(t *testing.T) {
	s, c := testSession(1)
	y := s.Start()
	s.fail(errors.New("boom"))
	before := len(c.pages[0])
	assert.Equal(t, y, s.Field(y, "A", "B"))
	assert.Equal(t, y, s.NumberedHeading(y, "C"))
	assert.Equal(t, y, s.Table(y, []string{"x"}, [][]string{{"y"}}))
	assert.Equal(t, before, len(c.pages[0]))
}

func TestIssuerLine(t *testing.T) {
	assert.Equal(t, "Acme | Reg. No. 42 | qa@acme.test", Issuer{"Acme", "42", "qa@acme.test"}.line())
	assert.Equal(t, "Acme", Issuer{CompanyName: "Acme"}.line())
	assert.Empty(t, Issuer{}.line())
}
