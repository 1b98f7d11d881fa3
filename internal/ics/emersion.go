package ics

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/emersion/go-ical"
)

// emersionComponent adapts any component decoded by emersion/go-ical.
type emersionComponent struct {
	comp *ical.Component
}

func decodeEmersion(body []byte) ([]Component, error) {
	cal, err := ical.NewDecoder(bytes.NewReader(body)).Decode()
	if err != nil {
		return nil, fmt.Errorf("ics: parse calendar: %w", err)
	}
	var out []Component
	walkEmersion(cal.Children, &out)
	return out, nil
}

// walkEmersion flattens the component tree depth first.
func walkEmersion(children []*ical.Component, out *[]Component) {
	for _, child := range children {
		*out = append(*out, emersionComponent{comp: child})
		walkEmersion(child.Children, out)
	}
}

func (c emersionComponent) Kind() string { return c.comp.Name }

func (c emersionComponent) text(name, def string) string {
	p := c.comp.Props.Get(name)
	if p == nil {
		return def
	}
	if v, err := p.Text(); err == nil {
		return v
	}
	return p.Value
}

func (c emersionComponent) Location() string {
	return c.text(ical.PropLocation, NoLocation)
}

func (c emersionComponent) UID() string {
	return c.text(ical.PropUID, NoUID)
}

func (c emersionComponent) Summary() string {
	return c.text(ical.PropSummary, NoSummary)
}

func (c emersionComponent) dateTime(name string) (time.Time, error) {
	p := c.comp.Props.Get(name)
	if p == nil || p.Value == "" {
		return time.Time{}, ErrMissingTime
	}
	t, err := p.DateTime(time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s: %v", ErrMissingTime, name, err)
	}
	return t, nil
}

func (c emersionComponent) Start() (time.Time, error) {
	return c.dateTime(ical.PropDateTimeStart)
}

func (c emersionComponent) End() (time.Time, error) {
	return c.dateTime(ical.PropDateTimeEnd)
}

func (c emersionComponent) AllDay() bool {
	p := c.comp.Props.Get(ical.PropDateTimeStart)
	if p == nil || p.Value == "" {
		return false
	}
	return strings.EqualFold(p.Params.Get(ical.ParamValue), "DATE") || isDateOnly(p.Value)
}

func (c emersionComponent) RecurrenceDates() ([]RecurrenceEntry, error) {
	props := c.comp.Props.Values(ical.PropRecurrenceDates)
	entries := make([]RecurrenceEntry, 0, len(props))
	for _, p := range props {
		entries = append(entries, RecurrenceEntry{
			Value: p.Value,
			TZID:  p.Params.Get(ical.ParamTimezoneID),
			Type:  p.Params.Get(ical.ParamValue),
		})
	}
	return NormalizeRecurrence(entries...), nil
}
