package output

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Collections written by a run.
const (
	CollectionSubjects = "subjects"
	CollectionDegrees  = "degrees"
	CollectionMapping  = "mapping"
)

// Session records what one pipeline run wrote. It is scoped to a single run
// and passed explicitly to whatever reports on it.
type Session struct {
	ID        string
	StartedAt time.Time

	mu      sync.Mutex
	written map[string]map[string]bool
}

func NewSession(now time.Time) *Session {
	return &Session{
		ID:        uuid.NewString(),
		StartedAt: now,
		written:   make(map[string]map[string]bool),
	}
}

// Record marks file as written to collection.
func (s *Session) Record(collection, file string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.written[collection] == nil {
		s.written[collection] = make(map[string]bool)
	}
	s.written[collection][file] = true
}

// Files returns the files written to collection, sorted.
func (s *Session) Files(collection string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.written[collection]))
	for f := range s.written[collection] {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

// Count returns the number of files written to collection.
func (s *Session) Count(collection string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.written[collection])
}

// Summary renders a short multi-line report of the run.
func (s *Session) Summary(now time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "run %s finished in %.2fs\n", s.ID, now.Sub(s.StartedAt).Seconds())
	for _, c := range []string{CollectionSubjects, CollectionDegrees, CollectionMapping} {
		fmt.Fprintf(&b, "  %-10s %6d\n", c+":", s.Count(c))
	}
	return b.String()
}
