package ics

import (
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"esiplanner/internal/model"
)

var backends = []Backend{BackendArran, BackendEmersion}

// calendar wraps VEVENT lines into a CRLF-terminated VCALENDAR.
func calendar(lines ...string) []byte {
	all := append([]string{
		"BEGIN:VCALENDAR",
		"VERSION:2.0",
		"PRODID:-//ESI//Horarios//ES",
	}, lines...)
	all = append(all, "END:VCALENDAR")
	return []byte(strings.Join(all, "\r\n") + "\r\n")
}

func vevent(props ...string) []string {
	out := []string{"BEGIN:VEVENT", "DTSTAMP:20240801T000000Z"}
	out = append(out, props...)
	return append(out, "END:VEVENT")
}

func concat(groups ...[]string) []string {
	var out []string
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

// content flattens a registry into comparable sets so tests do not depend on
// event order.
func content(reg *model.Registry) map[string]map[string][]model.ScheduleEvent {
	out := make(map[string]map[string][]model.ScheduleEvent)
	for _, s := range reg.Subjects() {
		classes := make(map[string][]model.ScheduleEvent)
		for _, c := range s.Classes {
			evs := append([]model.ScheduleEvent{}, c.Events...)
			sort.Slice(evs, func(i, j int) bool { return eventKey(evs[i]) < eventKey(evs[j]) })
			classes[c.Type] = evs
		}
		out[s.Code] = classes
	}
	return out
}

func eventKey(e model.ScheduleEvent) string {
	return e.Date + "|" + e.StartHour + "|" + e.EndHour + "|" + e.Location
}

func mustParse(t *testing.T, backend Backend, body []byte) *model.Registry {
	t.Helper()
	reg, err := ParseCalendar(backend, body)
	require.NoError(t, err)
	return reg
}

func mustClass(t *testing.T, reg *model.Registry, code, classType string) *model.ClassGroup {
	t.Helper()
	s, ok := reg.Get(code)
	require.True(t, ok, "subject %s missing", code)
	c := s.FindClass(classType)
	require.NotNil(t, c, "class %s/%s missing", code, classType)
	return c
}

func assertNoDuplicates(t *testing.T, reg *model.Registry) {
	t.Helper()
	for _, s := range reg.Subjects() {
		types := make(map[string]bool)
		for _, c := range s.Classes {
			require.False(t, types[c.Type], "duplicate class %s in %s", c.Type, s.Code)
			types[c.Type] = true
			seen := make(map[model.ScheduleEvent]bool)
			for _, ev := range c.Events {
				require.False(t, seen[ev], "duplicate event %+v in %s/%s", ev, s.Code, c.Type)
				seen[ev] = true
			}
		}
	}
}
