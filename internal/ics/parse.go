package ics

import (
	"fmt"
	"strings"

	appLog "esiplanner/internal/log"
	"esiplanner/internal/model"
)

// Backend selects the library that decodes calendar text.
type Backend string

const (
	BackendArran    Backend = "arran4"
	BackendEmersion Backend = "emersion"
)

// Decode turns calendar text into components using the given backend. An
// empty backend means BackendArran.
func Decode(backend Backend, body []byte) ([]Component, error) {
	if len(body) == 0 {
		return nil, fmt.Errorf("ics: empty calendar body")
	}
	switch backend {
	case "", BackendArran:
		return decodeArran(body)
	case BackendEmersion:
		return decodeEmersion(body)
	default:
		return nil, fmt.Errorf("ics: unknown backend %q", backend)
	}
}

// ParseCalendar decodes one calendar source and returns its subjects.
func ParseCalendar(backend Backend, body []byte) (*model.Registry, error) {
	comps, err := Decode(backend, body)
	if err != nil {
		return nil, err
	}
	return ParseComponents(comps)
}

// ParseComponents builds the subjects of a single source. Components that
// are not VEVENTs are ignored. A VEVENT without DTSTART/DTEND fails the
// whole source.
func ParseComponents(comps []Component) (*model.Registry, error) {
	reg := model.NewRegistry()
	for _, c := range comps {
		if c.Kind() != KindEvent {
			continue
		}
		if err := addComponent(reg, c); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

func addComponent(reg *model.Registry, c Component) error {
	uid := c.UID()
	location := strings.TrimSpace(c.Location())

	start, err := c.Start()
	if err != nil {
		return fmt.Errorf("ics: event %q: %w", uid, err)
	}
	end, err := c.End()
	if err != nil {
		return fmt.Errorf("ics: event %q: %w", uid, err)
	}

	code, classType := SplitUID(uid)
	subject := reg.Ensure(code, SubjectName(c.Summary()))
	class := subject.Class(classType)

	// All-day sessions carry dates, not times: both hours render as the day.
	var startStamp, endStamp any = start, end
	if c.AllDay() {
		startStamp, endStamp = DateOf(start), DateOf(end)
	}
	startClock := formatClock(startStamp)
	endClock := formatClock(endStamp)

	class.AddEvent(model.ScheduleEvent{
		Date:      formatDate(startStamp),
		StartHour: startClock,
		EndHour:   endClock,
		Location:  location,
	})

	entries, err := c.RecurrenceDates()
	if err != nil {
		return fmt.Errorf("ics: event %q: %w", uid, err)
	}
	for _, entry := range entries {
		dates, err := entry.Dates(start.Location())
		if err != nil {
			return fmt.Errorf("ics: event %q: %w", uid, err)
		}
		for _, d := range dates {
			// RDATE moves the session to another day; the time of day stays.
			class.AddEvent(model.ScheduleEvent{
				Date:      formatDate(d),
				StartHour: startClock,
				EndHour:   endClock,
				Location:  location,
			})
		}
	}

	appLog.Debug("ics event parsed", "uid", uid, "code", code, "type", classType, "rdates", len(entries))
	return nil
}

// SplitUID derives the subject code and class type from a UID of the form
// "<code>.<type>[.<anything>]". A missing or blank segment becomes Unknown.
func SplitUID(uid string) (code, classType string) {
	parts := strings.Split(uid, ".")
	code, classType = Unknown, Unknown
	if len(parts) > 0 {
		if s := strings.TrimSpace(parts[0]); s != "" {
			code = s
		}
	}
	if len(parts) > 1 {
		if s := strings.TrimSpace(parts[1]); s != "" {
			classType = s
		}
	}
	return code, classType
}

// SubjectName returns the summary text before the first '-', trimmed.
func SubjectName(summary string) string {
	name, _, _ := strings.Cut(summary, "-")
	return strings.TrimSpace(name)
}
