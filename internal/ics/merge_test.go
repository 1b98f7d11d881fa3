package ics

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"esiplanner/internal/model"
)

func sourceA() []byte {
	return calendar(concat(
		vevent(
			"UID:12345678.TEORIA.1",
			"SUMMARY:Cálculo - Grupo 1",
			"LOCATION:Room A",
			"DTSTART:20240902T090000",
			"DTEND:20240902T110000",
		),
		vevent(
			"UID:11111111.PRACTICA.1",
			"SUMMARY:Física",
			"LOCATION:Lab 1",
			"DTSTART:20240903T120000",
			"DTEND:20240903T140000",
			"RDATE:20240910T120000,20240917T120000",
		),
	)...)
}

func sourceB() []byte {
	return calendar(concat(
		vevent(
			"UID:12345678.TEORIA.1",
			"SUMMARY:Cálculo renombrado",
			"LOCATION:Room A",
			"DTSTART:20240902T090000",
			"DTEND:20240902T110000",
		),
		vevent(
			"UID:12345678.TEORIA.3",
			"SUMMARY:Cálculo renombrado",
			"LOCATION:Room A",
			"DTSTART:20240909T090000",
			"DTEND:20240909T110000",
		),
		vevent(
			"UID:12345678.PRACTICA.1",
			"SUMMARY:Cálculo renombrado",
			"LOCATION:Lab 2",
			"DTSTART:20240904T160000",
			"DTEND:20240904T180000",
		),
	)...)
}

func sourceC() []byte {
	return calendar(vevent(
		"UID:11111111.PRACTICA.9",
		"SUMMARY:Física II",
		"LOCATION:Lab 1",
		"DTSTART:20240917T120000",
		"DTEND:20240917T140000",
		"RDATE:20240924T120000",
	)...)
}

func TestMergeDuplicateAcrossSources(t *testing.T) {
	ev := vevent(
		"UID:12345678.TEORIA.1",
		"DTSTART:20240902T090000",
		"DTEND:20240902T110000",
		"LOCATION:Room A",
	)
	one := mustParse(t, BackendArran, calendar(ev...))
	two := mustParse(t, BackendArran, calendar(ev...))

	reg := Fold(one, two)
	c := mustClass(t, reg, "12345678", "TEORIA")
	assert.Equal(t, []model.ScheduleEvent{
		{Date: "2024-09-02", StartHour: "09:00", EndHour: "11:00", Location: "Room A"},
	}, c.Events)
}

func TestMergeDistinctDatesSameClass(t *testing.T) {
	one := mustParse(t, BackendArran, calendar(vevent(
		"UID:12345678.TEORIA.1",
		"DTSTART:20240902T090000",
		"DTEND:20240902T110000",
		"LOCATION:Room A",
	)...))
	two := mustParse(t, BackendArran, calendar(vevent(
		"UID:12345678.TEORIA.1",
		"DTSTART:20240909T090000",
		"DTEND:20240909T110000",
		"LOCATION:Room A",
	)...))

	reg := Fold(one, two)
	c := mustClass(t, reg, "12345678", "TEORIA")
	assert.Equal(t, []model.ScheduleEvent{
		{Date: "2024-09-02", StartHour: "09:00", EndHour: "11:00", Location: "Room A"},
		{Date: "2024-09-09", StartHour: "09:00", EndHour: "11:00", Location: "Room A"},
	}, c.Events)
}

func TestMergeFirstNameWins(t *testing.T) {
	a := mustParse(t, BackendArran, sourceA())
	b := mustParse(t, BackendArran, sourceB())

	ab := Fold(a, b)
	s, _ := ab.Get("12345678")
	assert.Equal(t, "Cálculo", s.Name)

	ba := Fold(b, a)
	s, _ = ba.Get("12345678")
	assert.Equal(t, "Cálculo renombrado", s.Name)
}

func TestMergeAppendsNewClassAndNewEvents(t *testing.T) {
	reg := Fold(mustParse(t, BackendArran, sourceA()), mustParse(t, BackendArran, sourceB()))

	s, _ := reg.Get("12345678")
	require.Len(t, s.Classes, 2)
	assert.Equal(t, "TEORIA", s.Classes[0].Type)
	assert.Equal(t, "PRACTICA", s.Classes[1].Type)

	teoria := s.Classes[0].Events
	require.Len(t, teoria, 2)
	// Existing order kept, new event appended.
	assert.Equal(t, "2024-09-02", teoria[0].Date)
	assert.Equal(t, "2024-09-09", teoria[1].Date)
}

func TestMergeIdempotent(t *testing.T) {
	a := mustParse(t, BackendArran, sourceA())
	reg := Fold(a, mustParse(t, BackendArran, sourceB()))
	before := content(reg)

	Merge(reg, a)
	Merge(reg, reg.Clone())
	assert.Equal(t, before, content(reg))
	assertNoDuplicates(t, reg)
}

func TestMergeDoesNotMutateSource(t *testing.T) {
	a := mustParse(t, BackendArran, sourceA())
	snapshot := content(a)

	reg := Fold(a)
	Merge(reg, mustParse(t, BackendArran, sourceB()))
	Merge(reg, mustParse(t, BackendArran, sourceC()))

	assert.Equal(t, snapshot, content(a))
}

func TestMergeCommutativeOverSourceOrder(t *testing.T) {
	regs := []*model.Registry{
		mustParse(t, BackendArran, sourceA()),
		mustParse(t, BackendArran, sourceB()),
		mustParse(t, BackendArran, sourceC()),
	}
	perms := [][]int{{0, 1, 2}, {0, 2, 1}, {1, 0, 2}, {1, 2, 0}, {2, 0, 1}, {2, 1, 0}}

	want := content(Fold(regs...))
	for _, p := range perms {
		t.Run(fmt.Sprint(p), func(t *testing.T) {
			got := Fold(regs[p[0]], regs[p[1]], regs[p[2]])
			assert.Equal(t, want, content(got))
			assertNoDuplicates(t, got)
		})
	}
}

func TestMergeRecurrenceOverlap(t *testing.T) {
	reg := Fold(mustParse(t, BackendArran, sourceA()), mustParse(t, BackendArran, sourceC()))
	c := mustClass(t, reg, "11111111", "PRACTICA")

	// 03, 10, 17 from A; 17 again and 24 from C.
	assert.Len(t, c.Events, 4)
	s, _ := reg.Get("11111111")
	assert.Equal(t, "Física", s.Name)
}

func TestFoldSkipsNil(t *testing.T) {
	reg := Fold(nil, mustParse(t, BackendArran, sourceC()), nil)
	assert.Equal(t, []string{"11111111"}, reg.Codes())
}
