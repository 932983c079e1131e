package numbering

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const (
	// IdentifierPrefix starts every rendered document number.
	IdentifierPrefix = "IG"
	// DefaultCompanyCode is used when a company has no code configured.
	DefaultCompanyCode = "XX"

	fallbackDigits = 6
	fallbackModulo = 1_000_000
)

// ErrMalformedIdentifier is returned by ParseIdentifier.
var ErrMalformedIdentifier = errors.New("malformed document identifier")

// Identifier is a document-control number such as IG-SH-DOC-007.
type Identifier struct {
	CompanyCode string
	Type        EntityType
	Sequence    int
	Rendered    string
}

// String returns the rendered form.
func (id Identifier) String() string { return id.Rendered }

// NewIdentifier renders a numbered identifier. The sequence is padded to three
// digits and widens naturally past 999.
func NewIdentifier(companyCode string, t EntityType, sequence int) Identifier {
	code := strings.TrimSpace(companyCode)
	if code == "" {
		code = DefaultCompanyCode
	}
	return Identifier{
		CompanyCode: code,
		Type:        t,
		Sequence:    sequence,
		Rendered:    fmt.Sprintf("%s-%s-%s-%03d", IdentifierPrefix, code, t.TypeCode(), sequence),
	}
}

// fallbackIdentifier builds the synthetic IG-XX-{TYPE}-{6 digits} number from a
// millisecond timestamp. It carries no sequence.
func fallbackIdentifier(t EntityType, epochMillis int64) Identifier {
	suffix := epochMillis % fallbackModulo
	if suffix < 0 {
		suffix = -suffix
	}
	return Identifier{
		CompanyCode: DefaultCompanyCode,
		Type:        t,
		Rendered: fmt.Sprintf("%s-%s-%s-%0*d", IdentifierPrefix, DefaultCompanyCode,
			t.TypeCode(), fallbackDigits, suffix),
	}
}

// ParseIdentifier splits a rendered identifier. Company codes may themselves
// contain dashes, so the type code and sequence are taken from the right.
func ParseIdentifier(s string) (Identifier, error) {
	parts := strings.Split(strings.TrimSpace(s), "-")
	if len(parts) < 4 || parts[0] != IdentifierPrefix {
		return Identifier{}, fmt.Errorf("%w: %q", ErrMalformedIdentifier, s)
	}
	seqPart := parts[len(parts)-1]
	t, ok := typeFromCode(parts[len(parts)-2])
	if !ok {
		return Identifier{}, fmt.Errorf("%w: unknown type code in %q", ErrMalformedIdentifier, s)
	}
	code := strings.Join(parts[1:len(parts)-2], "-")
	if code == "" || len(seqPart) < 3 {
		return Identifier{}, fmt.Errorf("%w: %q", ErrMalformedIdentifier, s)
	}
	seq, err := strconv.Atoi(seqPart)
	if err != nil || seq < 0 {
		return Identifier{}, fmt.Errorf("%w: bad sequence in %q", ErrMalformedIdentifier, s)
	}
	return Identifier{CompanyCode: code, Type: t, Sequence: seq, Rendered: strings.TrimSpace(s)}, nil
}
