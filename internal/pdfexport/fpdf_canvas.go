package pdfexport

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"slices"
	"unicode/utf8"

	"github.com/jung-kurt/gofpdf"
	"golang.org/x/text/encoding/charmap"
)

const fontFamily = "Helvetica"

// FpdfCanvas draws on a gofpdf document using the core Helvetica font.
type FpdfCanvas struct {
	pdf       *gofpdf.Fpdf
	translate func(string) string
	images    map[string]string
	// Runes the core font cannot encode. The translator draws them as '.'.
	unsupported map[rune]struct{}
}

// NewFpdfCanvas creates an empty portrait document sized to g.
func NewFpdfCanvas(g Geometry, meta Metadata) *FpdfCanvas {
	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "mm",
		Size:           gofpdf.SizeType{Wd: g.PageWidth, Ht: g.PageHeight},
	})
	pdf.SetMargins(g.MarginLeft, g.MarginTop, g.MarginRight)
	// The session decides where pages break.
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetTitle(meta.Title, true)
	pdf.SetAuthor(meta.Author, true)
	pdf.SetSubject(meta.Subject, true)
	pdf.SetCreator(meta.Creator, true)
	pdf.SetFont(fontFamily, StyleRegular, 10)

	return &FpdfCanvas{
		pdf:         pdf,
		translate:   pdf.UnicodeTranslatorFromDescriptor(""),
		images:      make(map[string]string),
		unsupported: make(map[rune]struct{}),
	}
}

// AddPage appends a page after the last one, whichever page is selected.
func (c *FpdfCanvas) AddPage() { c.pdf.AddPage() }

// SetPage selects an existing page. Each page stream keeps its own font
// state, so the current font is re-emitted onto the selected page.
func (c *FpdfCanvas) SetPage(n int) {
	c.pdf.SetPage(n)
	size, _ := c.pdf.GetFontSize()
	c.pdf.SetFontSize(size)
}

func (c *FpdfCanvas) PageCount() int { return c.pdf.PageCount() }

func (c *FpdfCanvas) SetFont(style string, size float64) {
	c.pdf.SetFont(fontFamily, style, size)
}

func (c *FpdfCanvas) SetTextColor(col Color) { c.pdf.SetTextColor(col.R, col.G, col.B) }
func (c *FpdfCanvas) SetFillColor(col Color) { c.pdf.SetFillColor(col.R, col.G, col.B) }
func (c *FpdfCanvas) SetDrawColor(col Color) { c.pdf.SetDrawColor(col.R, col.G, col.B) }
func (c *FpdfCanvas) SetLineWidth(w float64) { c.pdf.SetLineWidth(w) }

func (c *FpdfCanvas) Rect(x, y, w, h float64, style string) { c.pdf.Rect(x, y, w, h, style) }
func (c *FpdfCanvas) Line(x1, y1, x2, y2 float64)           { c.pdf.Line(x1, y1, x2, y2) }

func (c *FpdfCanvas) Text(x, y float64, s string) {
	for _, r := range s {
		if r < utf8.RuneSelf {
			continue
		}
		if _, ok := charmap.Windows1252.EncodeRune(r); !ok {
			c.unsupported[r] = struct{}{}
		}
	}
	c.pdf.Text(x, y, c.translate(s))
}

// UnsupportedRunes returns, in code point order, the distinct characters drawn
// so far that the cp1252 core font cannot encode.
func (c *FpdfCanvas) UnsupportedRunes() string {
	runes := make([]rune, 0, len(c.unsupported))
	for r := range c.unsupported {
		runes = append(runes, r)
	}
	slices.Sort(runes)
	return string(runes)
}

func (c *FpdfCanvas) TextWidth(s string) float64 {
	return c.pdf.GetStringWidth(c.translate(s))
}

// RegisterImage decodes data before handing it to gofpdf, whose errors are
// sticky and would fail the whole document.
func (c *FpdfCanvas) RegisterImage(name string, data []byte) error {
	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("decode image %s: %w", name, err)
	}
	var imageType string
	switch format {
	case "png":
		imageType = "PNG"
	case "jpeg":
		imageType = "JPG"
	default:
		return fmt.Errorf("unsupported image format %q", format)
	}

	c.pdf.RegisterImageOptionsReader(name, gofpdf.ImageOptions{ImageType: imageType}, bytes.NewReader(data))
	if err := c.pdf.Error(); err != nil {
		c.pdf.ClearError()
		return fmt.Errorf("register image %s: %w", name, err)
	}
	c.images[name] = imageType
	return nil
}

func (c *FpdfCanvas) Image(name string, x, y, w, h float64) {
	imageType, ok := c.images[name]
	if !ok {
		return
	}
	c.pdf.ImageOptions(name, x, y, w, h, false, gofpdf.ImageOptions{ImageType: imageType}, 0, "")
}

func (c *FpdfCanvas) Output(w io.Writer) error { return c.pdf.Output(w) }

func (c *FpdfCanvas) Err() error { return c.pdf.Error() }
