package ics

import (
	"errors"
	"fmt"
	"strings"
	"time"
	_ "time/tzdata" // TZID lookups must not depend on the host zoneinfo

	"github.com/teambition/rrule-go"
)

// KindEvent is the only component kind that carries class sessions.
const KindEvent = "VEVENT"

// Placeholders used when optional properties are absent.
const (
	NoLocation = "No Location"
	NoUID      = "No UID"
	NoSummary  = "Sin Título"
	Unknown    = "Unknown"
)

// ErrMissingTime is returned when a schedulable component has no usable
// DTSTART or DTEND.
var ErrMissingTime = errors.New("ics: missing DTSTART/DTEND")

// Component is the parser's view of one calendar component, independent of
// the library that decoded it. Text accessors return the documented
// placeholder when the property is absent.
type Component interface {
	Kind() string
	Location() string
	UID() string
	Summary() string
	Start() (time.Time, error)
	End() (time.Time, error)
	// AllDay reports a DTSTART given as a bare date (VALUE=DATE).
	AllDay() bool
	RecurrenceDates() ([]RecurrenceEntry, error)
}

// RecurrenceEntry is one RDATE property. Value may bundle several dates as a
// comma separated list.
type RecurrenceEntry struct {
	Value string
	TZID  string
	// Type is the VALUE parameter: DATE-TIME (default), DATE or PERIOD.
	Type string
}

// ValuePeriod marks RDATE values written as start/end or start/duration.
const ValuePeriod = "PERIOD"

func (e RecurrenceEntry) isPeriod() bool {
	return strings.EqualFold(strings.TrimSpace(e.Type), ValuePeriod)
}

// NormalizeRecurrence returns the entries that carry at least one value, in
// order. Absent, single and repeated RDATE properties all end up as a plain
// slice; the result is never nil.
func NormalizeRecurrence(entries ...RecurrenceEntry) []RecurrenceEntry {
	out := make([]RecurrenceEntry, 0, len(entries))
	for _, e := range entries {
		if strings.TrimSpace(e.Value) == "" {
			continue
		}
		out = append(out, e)
	}
	return out
}

// Dates expands the entry into its dates. Floating values are read in
// defaultLoc; PERIOD values contribute their start. A "/" in any other
// value type is malformed.
func (e RecurrenceEntry) Dates(defaultLoc *time.Location) ([]time.Time, error) {
	loc := defaultLoc
	if loc == nil {
		loc = time.Local
	}
	if e.TZID != "" {
		l, err := time.LoadLocation(e.TZID)
		if err != nil {
			return nil, fmt.Errorf("ics: rdate tzid %q: %w", e.TZID, err)
		}
		loc = l
	}

	parts := make([]string, 0, strings.Count(e.Value, ",")+1)
	for _, p := range strings.Split(e.Value, ",") {
		p = strings.TrimSpace(p)
		if e.isPeriod() {
			p, _, _ = strings.Cut(p, "/")
		}
		if p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) == 0 {
		return nil, nil
	}

	dates, err := rrule.StrToDatesInLoc(strings.Join(parts, ","), loc)
	if err != nil {
		return nil, fmt.Errorf("ics: rdate %q: %w", e.Value, err)
	}
	return dates, nil
}
