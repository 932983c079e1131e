package numbering

import (
	"fmt"
	"strings"
	"time"
)

// ReviewDateLayout renders review dates as "31 January 2027".
const ReviewDateLayout = "2 January 2006"

// InvalidDateError reports a creation or reference date that cannot be used
// by the revision policy.
type InvalidDateError struct {
	Field string
	Value string
	Err   error
}

func (e *InvalidDateError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid %s %q: %v", e.Field, e.Value, e.Err)
	}
	return fmt.Sprintf("invalid %s %q", e.Field, e.Value)
}

func (e *InvalidDateError) Unwrap() error { return e.Err }

// Revision is the annual revision state of a record at a given instant.
type Revision struct {
	Number     int
	NextReview time.Time
}

// Label renders the revision as "Rev 02".
func (r Revision) Label() string {
	return fmt.Sprintf("Rev %02d", r.Number)
}

// ReviewDateLabel renders the next review date as "31 January 2028".
func (r Revision) ReviewDateLabel() string {
	return r.NextReview.Format(ReviewDateLayout)
}

// januaryPassed treats the whole of 31 January as past the anniversary.
func januaryPassed(now time.Time) bool {
	return now.Month() > time.January || (now.Month() == time.January && now.Day() >= 31)
}

// ComputeRevision derives the revision number and next review date of a record
// created at created, as seen at now. Revisions roll over every 31 January and
// never drop below 1.
func ComputeRevision(created, now time.Time) (Revision, error) {
	if created.IsZero() {
		return Revision{}, &InvalidDateError{Field: "created date", Value: ""}
	}
	if now.IsZero() {
		return Revision{}, &InvalidDateError{Field: "reference date", Value: ""}
	}

	passed := januaryPassed(now)
	baseYear := created.Year()

	number := 1
	if now.Year() > baseYear {
		number = now.Year() - baseYear
		if passed {
			number++
		}
	}
	if number < 1 {
		number = 1
	}

	reviewYear := now.Year()
	if passed {
		reviewYear++
	}

	return Revision{
		Number:     number,
		NextReview: time.Date(reviewYear, time.January, 31, 0, 0, 0, 0, now.Location()),
	}, nil
}

// ParseDate parses a record date in either ISO date or RFC 3339 form.
func ParseDate(s string) (time.Time, error) {
	v := strings.TrimSpace(s)
	if v == "" {
		return time.Time{}, &InvalidDateError{Field: "date", Value: s}
	}
	if t, err := time.Parse(time.DateOnly, v); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}, &InvalidDateError{Field: "date", Value: s, Err: err}
	}
	return t, nil
}
