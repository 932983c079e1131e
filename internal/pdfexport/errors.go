package pdfexport

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingTitle is returned for records that have no title at all.
	ErrMissingTitle = errors.New("record has no title")
	// ErrNoContent is returned when Export is called without a content function.
	ErrNoContent = errors.New("no content renderer")
	// ErrPageCountMismatch is returned when the written file does not have the
	// number of pages the session laid out.
	ErrPageCountMismatch = errors.New("page count mismatch")
)

// RenderError reports a failed export together with the page being drawn.
type RenderError struct {
	DocNumber string
	Page      int
	Err       error
}

func (e *RenderError) Error() string {
	if e.Page > 0 {
		return fmt.Sprintf("render %s (page %d): %v", e.DocNumber, e.Page, e.Err)
	}
	return fmt.Sprintf("render %s: %v", e.DocNumber, e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }

// AssetLoadError reports a brand asset that could not be loaded or decoded.
// Exports continue without the asset.
type AssetLoadError struct {
	Asset string
	Err   error
}

func (e *AssetLoadError) Error() string {
	return fmt.Sprintf("load asset %s: %v", e.Asset, e.Err)
}

func (e *AssetLoadError) Unwrap() error { return e.Err }
