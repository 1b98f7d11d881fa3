package ics

import (
	"fmt"
	"time"
)

const (
	dateLayout  = "2006-01-02"
	clockLayout = "15:04"
)

// FormatStamp splits a timestamp into its calendar date (YYYY-MM-DD) and
// time of day (HH:MM). A zoned time is rendered as the wall clock of its own
// zone; a floating time is already local. Values that are not timestamps are
// returned verbatim through fmt.Sprint for both parts.
func FormatStamp(v any) (date, clock string) {
	switch t := v.(type) {
	case time.Time:
		return t.Format(dateLayout), t.Format(clockLayout)
	case *time.Time:
		if t != nil {
			return t.Format(dateLayout), t.Format(clockLayout)
		}
	}
	s := fmt.Sprint(v)
	return s, s
}

// Date is a calendar day with no time of day. It is not a timestamp, so
// FormatStamp renders it as "YYYY-MM-DD" for both parts.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// DateOf returns the calendar day of t in t's own zone.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

func formatDate(v any) string {
	d, _ := FormatStamp(v)
	return d
}

func formatClock(v any) string {
	_, c := FormatStamp(v)
	return c
}
