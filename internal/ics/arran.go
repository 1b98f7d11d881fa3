package ics

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
)

// arranComponent adapts a VEVENT decoded by arran4/golang-ical.
type arranComponent struct {
	ev *ical.VEvent
}

func decodeArran(body []byte) ([]Component, error) {
	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("ics: parse calendar: %w", err)
	}
	events := cal.Events()
	out := make([]Component, 0, len(events))
	for _, ev := range events {
		out = append(out, arranComponent{ev: ev})
	}
	return out, nil
}

func (c arranComponent) Kind() string { return KindEvent }

func (c arranComponent) text(prop ical.ComponentProperty, def string) string {
	p := c.ev.GetProperty(prop)
	if p == nil {
		return def
	}
	return p.Value
}

func (c arranComponent) Location() string {
	return c.text(ical.ComponentPropertyLocation, NoLocation)
}

func (c arranComponent) UID() string {
	return c.text(ical.ComponentPropertyUniqueId, NoUID)
}

func (c arranComponent) Summary() string {
	return c.text(ical.ComponentPropertySummary, NoSummary)
}

func (c arranComponent) Start() (time.Time, error) {
	p := c.ev.GetProperty(ical.ComponentPropertyDtStart)
	if p == nil || strings.TrimSpace(p.Value) == "" {
		return time.Time{}, ErrMissingTime
	}
	var (
		t   time.Time
		err error
	)
	if isDateOnly(p.Value) {
		t, err = c.ev.GetAllDayStartAt()
	} else {
		t, err = c.ev.GetStartAt()
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: dtstart: %v", ErrMissingTime, err)
	}
	return t, nil
}

func (c arranComponent) End() (time.Time, error) {
	p := c.ev.GetProperty(ical.ComponentPropertyDtEnd)
	if p == nil || strings.TrimSpace(p.Value) == "" {
		return time.Time{}, ErrMissingTime
	}
	var (
		t   time.Time
		err error
	)
	if isDateOnly(p.Value) {
		t, err = c.ev.GetAllDayEndAt()
	} else {
		t, err = c.ev.GetEndAt()
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: dtend: %v", ErrMissingTime, err)
	}
	return t, nil
}

func (c arranComponent) AllDay() bool {
	p := c.ev.GetProperty(ical.ComponentPropertyDtStart)
	if p == nil {
		return false
	}
	return strings.EqualFold(firstParam(p.ICalParameters, "VALUE"), "DATE") || isDateOnly(p.Value)
}

func (c arranComponent) RecurrenceDates() ([]RecurrenceEntry, error) {
	// Raw property name to avoid constant variants across library versions.
	props := c.ev.GetProperties("RDATE")
	entries := make([]RecurrenceEntry, 0, len(props))
	for _, p := range props {
		entries = append(entries, RecurrenceEntry{
			Value: p.Value,
			TZID:  firstParam(p.ICalParameters, "TZID"),
			Type:  firstParam(p.ICalParameters, "VALUE"),
		})
	}
	return NormalizeRecurrence(entries...), nil
}

// isDateOnly reports a VALUE=DATE style value such as 20240902.
func isDateOnly(v string) bool {
	return !strings.Contains(strings.TrimSpace(v), "T")
}

func firstParam(params map[string][]string, key string) string {
	if vs, ok := params[key]; ok && len(vs) > 0 {
		return vs[0]
	}
	return ""
}
