package model

// ScheduleEvent is one dated class session. Two events are duplicates when
// all four fields are equal, so the struct must stay comparable.
type ScheduleEvent struct {
	Date      string `json:"date"`       // YYYY-MM-DD
	StartHour string `json:"start_hour"` // HH:MM
	EndHour   string `json:"end_hour"`   // HH:MM
	Location  string `json:"location"`
}

// ClassGroup holds the events of one class type (lecture, lab, ...) of a subject.
type ClassGroup struct {
	Type   string          `json:"type"`
	Events []ScheduleEvent `json:"events"`
}

// HasEvent reports whether an event equal to ev is already in the group.
func (c *ClassGroup) HasEvent(ev ScheduleEvent) bool {
	for _, e := range c.Events {
		if e == ev {
			return true
		}
	}
	return false
}

// AddEvent appends ev unless an equal event is present. It reports whether
// the event was appended.
func (c *ClassGroup) AddEvent(ev ScheduleEvent) bool {
	if c.HasEvent(ev) {
		return false
	}
	c.Events = append(c.Events, ev)
	return true
}

func (c *ClassGroup) clone() *ClassGroup {
	out := &ClassGroup{Type: c.Type, Events: make([]ScheduleEvent, len(c.Events))}
	copy(out.Events, c.Events)
	return out
}

// Subject is an academic course and its class groups, serialized as one
// document per subject.
type Subject struct {
	Code    string        `json:"code"`
	Name    string        `json:"name"`
	Classes []*ClassGroup `json:"classes"`
}

// FindClass returns the group for classType, or nil.
func (s *Subject) FindClass(classType string) *ClassGroup {
	for _, c := range s.Classes {
		if c.Type == classType {
			return c
		}
	}
	return nil
}

// Class returns the group for classType, appending an empty one if needed.
func (s *Subject) Class(classType string) *ClassGroup {
	if c := s.FindClass(classType); c != nil {
		return c
	}
	c := &ClassGroup{Type: classType, Events: []ScheduleEvent{}}
	s.Classes = append(s.Classes, c)
	return c
}

// EventCount is the total number of events across all class groups.
func (s *Subject) EventCount() int {
	n := 0
	for _, c := range s.Classes {
		n += len(c.Events)
	}
	return n
}

// Clone returns a deep copy.
func (s *Subject) Clone() *Subject {
	out := &Subject{Code: s.Code, Name: s.Name, Classes: make([]*ClassGroup, 0, len(s.Classes))}
	for _, c := range s.Classes {
		out.Classes = append(out.Classes, c.clone())
	}
	return out
}

// SubjectRef is a subject entry inside a degree or mapping document.
// CodeICS carries the external schedule-system code when one is known.
type SubjectRef struct {
	Code    string `json:"code"`
	CodeICS string `json:"code_ics,omitempty"`
}

// Degree is the document emitted per PDF catalog.
type Degree struct {
	Code     string       `json:"code"`
	Name     string       `json:"name"`
	Subjects []SubjectRef `json:"subjects"`
}

// MappingDocument is the single document listing every known code pair.
type MappingDocument struct {
	Name       string       `json:"name"`
	LastUpdate string       `json:"last_update"`
	Mapping    []SubjectRef `json:"mapping"`
}
