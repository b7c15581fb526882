package leave

import (
	"fmt"
	"regexp"
	"time"
)

// DateLayout is the only accepted wire format for leave dates.
const DateLayout = "2006-01-02"

var datePattern = regexp.MustCompile(`^[0-9]{4}-[0-9]{2}-[0-9]{2}$`)

// ParseDate checks a leave date the way the request pipeline does: first
// the literal shape, then the calendar. The returned time is midnight UTC.
// Errors match ErrMalformedDate or ErrInvalidCalendarDate.
func ParseDate(s string) (time.Time, error) {
	if !datePattern.MatchString(s) {
		return time.Time{}, fmt.Errorf("%w: %q", ErrMalformedDate, s)
	}
	t, err := time.Parse(DateLayout, s)
	// Year 0000 parses in Go but is not a calendar year.
	if err != nil || t.Year() < 1 {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidCalendarDate, s)
	}
	return t, nil
}

// Today returns the calendar day of now in loc, as midnight UTC so it
// compares directly with ParseDate results.
func Today(now time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := now.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
