package pdfexport

// Geometry fixes the page and content area of a session. All values are mm.
type Geometry struct {
	PageWidth    float64
	PageHeight   float64
	MarginLeft   float64
	MarginRight  float64
	MarginTop    float64
	MarginBottom float64
	// HeaderHeight is reserved below MarginTop for the running header.
	HeaderHeight float64
}

// A4 is the default portrait geometry.
func A4() Geometry {
	return Geometry{
		PageWidth:    210,
		PageHeight:   297,
		MarginLeft:   18,
		MarginRight:  18,
		MarginTop:    12,
		MarginBottom: 22,
		HeaderHeight: 38,
	}
}

// ContentTop is the cursor position at the start of every page.
func (g Geometry) ContentTop() float64 { return g.MarginTop + g.HeaderHeight }

// ContentBottom is the lowest Y content may reach.
func (g Geometry) ContentBottom() float64 { return g.PageHeight - g.MarginBottom }

// ContentWidth is the usable width between the side margins.
func (g Geometry) ContentWidth() float64 { return g.PageWidth - g.MarginLeft - g.MarginRight }

// Theme holds the brand palette.
type Theme struct {
	Primary    Color
	Accent     Color
	Text       Color
	Muted      Color
	Shade      Color
	White      Color
	ControlBox Color
}

// DefaultTheme is the navy and teal brand palette.
func DefaultTheme() Theme {
	return Theme{
		Primary:    Color{R: 27, G: 54, B: 93},
		Accent:     Color{R: 0, G: 150, B: 136},
		Text:       Color{R: 33, G: 37, B: 41},
		Muted:      Color{R: 108, G: 117, B: 125},
		Shade:      Color{R: 241, G: 243, B: 245},
		White:      Color{R: 255, G: 255, B: 255},
		ControlBox: Color{R: 232, G: 245, B: 243},
	}
}

// Brand is the product identity printed in the header bar.
type Brand struct {
	Product string
	Tagline string
}

// DefaultBrand is used when no brand is configured.
func DefaultBrand() Brand {
	return Brand{Product: "ISOGuardian", Tagline: "ISO Compliance Management"}
}

// CalloutKind selects the tint and label of a callout box.
type CalloutKind int

const (
	CalloutImportant CalloutKind = iota
	CalloutNote
	CalloutWarning
)

func (k CalloutKind) label() string {
	switch k {
	case CalloutNote:
		return "NOTE"
	case CalloutWarning:
		return "WARNING"
	}
	return "IMPORTANT"
}

// colors returns the fill and border of the callout.
func (k CalloutKind) colors() (fill, border Color) {
	switch k {
	case CalloutNote:
		return Color{R: 232, G: 240, B: 254}, Color{R: 66, G: 133, B: 244}
	case CalloutWarning:
		return Color{R: 253, G: 236, B: 234}, Color{R: 217, G: 48, B: 37}
	}
	return Color{R: 255, G: 248, B: 225}, Color{R: 245, G: 166, B: 35}
}
