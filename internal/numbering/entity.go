// Package numbering allocates document-control identifiers and computes the
// annual revision policy for compliance records.
package numbering

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownEntityType is returned when a record kind has no numbering scheme.
var ErrUnknownEntityType = errors.New("unknown entity type")

// EntityType is one of the four record kinds that receive numbered identifiers.
type EntityType string

const (
	EntityDocument         EntityType = "document"
	EntityNCR              EntityType = "ncr"
	EntityAudit            EntityType = "audit"
	EntityManagementReview EntityType = "management_review"
)

// EntityTypes lists every numbered record kind.
var EntityTypes = []EntityType{EntityDocument, EntityNCR, EntityAudit, EntityManagementReview}

// TypeCode returns the short code embedded in rendered identifiers.
func (t EntityType) TypeCode() string {
	switch t {
	case EntityDocument:
		return "DOC"
	case EntityNCR:
		return "NCR"
	case EntityAudit:
		return "AUD"
	case EntityManagementReview:
		return "MR"
	}
	return ""
}

// CounterField names the per-company counter this type draws from.
func (t EntityType) CounterField() string {
	switch t {
	case EntityDocument:
		return "doc_counter"
	case EntityNCR:
		return "ncr_counter"
	case EntityAudit:
		return "audit_counter"
	case EntityManagementReview:
		return "review_counter"
	}
	return ""
}

// Valid reports whether t is one of the known record kinds.
func (t EntityType) Valid() bool {
	return t.TypeCode() != ""
}

// ParseEntityType accepts the entity name or its type code, case-insensitively.
func ParseEntityType(s string) (EntityType, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	for _, t := range EntityTypes {
		if v == string(t) || v == strings.ToLower(t.TypeCode()) {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownEntityType, s)
}

func typeFromCode(code string) (EntityType, bool) {
	for _, t := range EntityTypes {
		if t.TypeCode() == code {
			return t, true
		}
	}
	return "", false
}
