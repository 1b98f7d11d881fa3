package model

// Registry maps subject codes to subjects and remembers insertion order so
// that output is deterministic for a fixed fold order.
type Registry struct {
	order  []string
	byCode map[string]*Subject
}

func NewRegistry() *Registry {
	return &Registry{byCode: make(map[string]*Subject)}
}

// Ensure returns the subject for code, creating it with name when absent.
// An existing subject keeps its original name.
func (r *Registry) Ensure(code, name string) *Subject {
	if s, ok := r.byCode[code]; ok {
		return s
	}
	s := &Subject{Code: code, Name: name, Classes: []*ClassGroup{}}
	r.Insert(s)
	return s
}

// Insert stores s under s.Code. It is a no-op when the code is taken.
func (r *Registry) Insert(s *Subject) bool {
	if r.byCode == nil {
		r.byCode = make(map[string]*Subject)
	}
	if _, ok := r.byCode[s.Code]; ok {
		return false
	}
	r.byCode[s.Code] = s
	r.order = append(r.order, s.Code)
	return true
}

func (r *Registry) Get(code string) (*Subject, bool) {
	s, ok := r.byCode[code]
	return s, ok
}

func (r *Registry) Len() int {
	return len(r.order)
}

// Codes returns subject codes in insertion order.
func (r *Registry) Codes() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Subjects returns the subjects in insertion order.
func (r *Registry) Subjects() []*Subject {
	out := make([]*Subject, 0, len(r.order))
	for _, code := range r.order {
		out = append(out, r.byCode[code])
	}
	return out
}

// Clone returns a deep copy of the registry.
func (r *Registry) Clone() *Registry {
	out := NewRegistry()
	for _, s := range r.Subjects() {
		out.Insert(s.Clone())
	}
	return out
}
