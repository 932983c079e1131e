package services

import (
	"errors"

	"github.com/Lllllllleong/doccontrol/internal/gcp"
	"github.com/Lllllllleong/doccontrol/internal/numbering"
	"github.com/Lllllllleong/doccontrol/internal/pdfexport"
)

// ErrInvalidRequest marks requests that can never succeed as sent.
var ErrInvalidRequest = errors.New("invalid request")

// IsClientError reports whether err was caused by the request rather than
// by the service.
func IsClientError(err error) bool {
	var renderErr *pdfexport.RenderError
	var dateErr *numbering.InvalidDateError
	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, numbering.ErrUnknownEntityType),
		errors.As(err, &dateErr):
		return true
	case errors.As(err, &renderErr):
		return errors.Is(err, pdfexport.ErrMissingTitle)
	}
	return false
}

// IsNotFound reports whether err means the company or record does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, numbering.ErrCompanyNotFound) || errors.Is(err, gcp.ErrRecordNotFound)
}
