package pdfexport

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// ContentFunc lays out record-specific content starting at cursor y and
// returns the final cursor.
type ContentFunc func(s *Session, y float64) (float64, error)

// Options describe one export.
type Options struct {
	// Title is printed in every page header.
	Title   string
	Version string
	Control DocumentControl
	Issuer  Issuer
	Content ContentFunc
}

// Document is a finished export.
type Document struct {
	Data     []byte
	Filename string
	Pages    int
}

// Exporter renders Options into PDF documents. It holds no per-export state
// and may be shared.
type Exporter struct {
	geo       Geometry
	theme     Theme
	brand     Brand
	maxPages  int
	logo      AssetLoader
	newCanvas func(Geometry, Metadata) Canvas
	verify    func([]byte) (int, error)
	logger    *slog.Logger

	customCanvas bool
	verifierSet  bool
}

// ExporterOption configures an Exporter.
type ExporterOption func(*Exporter)

// WithLogo sets the loader for the header logo.
func WithLogo(l AssetLoader) ExporterOption {
	return func(e *Exporter) { e.logo = l }
}

// WithBrand overrides the product name and tagline.
func WithBrand(b Brand) ExporterOption {
	return func(e *Exporter) { e.brand = b }
}

// WithGeometry overrides the page geometry.
func WithGeometry(g Geometry) ExporterOption {
	return func(e *Exporter) { e.geo = g }
}

// WithMaxPages overrides DefaultMaxPages.
func WithMaxPages(n int) ExporterOption {
	return func(e *Exporter) { e.maxPages = n }
}

// WithCanvas replaces the gofpdf canvas, typically with a recorder in tests.
// Verification is skipped for custom canvases unless WithVerifier is given.
func WithCanvas(fn func(Geometry, Metadata) Canvas) ExporterOption {
	return func(e *Exporter) {
		e.newCanvas = fn
		e.customCanvas = true
	}
}

// WithVerifier sets the post-render check; nil disables it.
func WithVerifier(fn func([]byte) (int, error)) ExporterOption {
	return func(e *Exporter) {
		e.verify = fn
		e.verifierSet = true
	}
}

// WithExportLogger sets the logger.
func WithExportLogger(l *slog.Logger) ExporterOption {
	return func(e *Exporter) { e.logger = l }
}

// NewExporter creates an Exporter drawing with gofpdf on A4.
func NewExporter(opts ...ExporterOption) *Exporter {
	e := &Exporter{
		geo:      A4(),
		theme:    DefaultTheme(),
		brand:    DefaultBrand(),
		maxPages: DefaultMaxPages,
		newCanvas: func(g Geometry, m Metadata) Canvas {
			return NewFpdfCanvas(g, m)
		},
		verify: VerifyPDF,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.customCanvas && !e.verifierSet {
		e.verify = nil
	}
	return e
}

const logoImageName = "brand-logo"

// Export lays out opts.Content, finalizes the page footers and returns the
// rendered document.
func (e *Exporter) Export(ctx context.Context, opts Options) (*Document, error) {
	docNumber := opts.Control.DocNumber
	if strings.TrimSpace(opts.Title) == "" {
		return nil, &RenderError{DocNumber: docNumber, Err: ErrMissingTitle}
	}
	if opts.Content == nil {
		return nil, &RenderError{DocNumber: docNumber, Err: ErrNoContent}
	}
	logCtx := e.logger.With("docNumber", docNumber)

	canvas := e.newCanvas(e.geo, Metadata{
		Title:   opts.Title,
		Author:  opts.Control.PreparedBy,
		Subject: docNumber,
		Creator: e.brand.Product,
	})

	f := frame{
		Title:   opts.Title,
		Version: opts.Version,
		Control: opts.Control,
		Issuer:  opts.Issuer,
		Brand:   e.brand,
	}
	if err := e.loadLogo(ctx, canvas); err != nil {
		logCtx.Warn("Continuing without logo.", "error", err)
	} else if e.logo != nil {
		f.Logo = logoImageName
	}

	s := newSession(canvas, e.geo, e.theme, f, e.maxPages)
	y := s.Start()
	if _, err := opts.Content(s, y); err != nil {
		return nil, &RenderError{DocNumber: docNumber, Page: s.Page(), Err: err}
	}
	if err := ctx.Err(); err != nil {
		return nil, &RenderError{DocNumber: docNumber, Page: s.Page(), Err: err}
	}
	if err := s.Err(); err != nil {
		return nil, &RenderError{DocNumber: docNumber, Page: s.Page(), Err: err}
	}

	pages, err := s.Finalize()
	if err != nil {
		return nil, &RenderError{DocNumber: docNumber, Page: s.Page(), Err: fmt.Errorf("finalize: %w", err)}
	}

	var buf bytes.Buffer
	if err := canvas.Output(&buf); err != nil {
		return nil, &RenderError{DocNumber: docNumber, Err: fmt.Errorf("write pdf: %w", err)}
	}

	if r, ok := canvas.(interface{ UnsupportedRunes() string }); ok {
		if missing := r.UnsupportedRunes(); missing != "" {
			logCtx.Warn("Characters outside the PDF font were replaced with '.'.", "characters", missing)
		}
	}

	if e.verify != nil {
		written, err := e.verify(buf.Bytes())
		if err != nil {
			return nil, &RenderError{DocNumber: docNumber, Err: err}
		}
		if written != pages {
			return nil, &RenderError{DocNumber: docNumber,
				Err: fmt.Errorf("%w: laid out %d, wrote %d", ErrPageCountMismatch, pages, written)}
		}
	}

	logCtx.Info("Export rendered.", "pages", pages, "bytes", buf.Len())
	return &Document{
		Data:     buf.Bytes(),
		Filename: Filename(docNumber, opts.Control.Title, opts.Title),
		Pages:    pages,
	}, nil
}

func (e *Exporter) loadLogo(ctx context.Context, c Canvas) error {
	if e.logo == nil {
		return nil
	}
	data, err := e.logo.Load(ctx)
	if err != nil {
		return &AssetLoadError{Asset: e.logo.Name(), Err: err}
	}
	if err := c.RegisterImage(logoImageName, data); err != nil {
		return &AssetLoadError{Asset: e.logo.Name(), Err: err}
	}
	return nil
}

var nonFilenameChars = regexp.MustCompile(`[^A-Za-z0-9]+`)

const maxTitleInFilename = 80

// Filename builds "{docNumber}_{sanitizedTitle}.pdf" from the first non-blank
// title candidate. Accents are folded to their base letters.
func Filename(docNumber string, titles ...string) string {
	title := ""
	for _, t := range titles {
		if strings.TrimSpace(t) != "" {
			title = t
			break
		}
	}
	folded, _, err := transform.String(transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC), title)
	if err != nil {
		folded = title
	}
	clean := strings.Trim(nonFilenameChars.ReplaceAllString(folded, "_"), "_")
	if len(clean) > maxTitleInFilename {
		clean = strings.TrimRight(clean[:maxTitleInFilename], "_")
	}

	number := strings.Trim(nonFilenameChars.ReplaceAllString(docNumber, "-"), "-")
	switch {
	case number == "" && clean == "":
		return "export.pdf"
	case number == "":
		return clean + ".pdf"
	case clean == "":
		return number + ".pdf"
	}
	return number + "_" + clean + ".pdf"
}
