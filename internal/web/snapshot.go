package web

import (
	"time"

	"esiplanner/internal/model"
	"esiplanner/internal/pipeline"
)

// Snapshot is an immutable view of one finished build.
type Snapshot struct {
	SessionID  string
	StartedAt  time.Time
	FinishedAt time.Time

	subjects []*model.Subject
	byCode   map[string]*model.Subject
	degrees  []model.Degree
	byDegree map[string]int
	mapping  *model.MappingDocument

	sourceErrors  []errorDTO
	catalogErrors []string
	feedErrors    []string
}

// NewSnapshot captures a pipeline result. The result must not be modified
// afterwards.
func NewSnapshot(res *pipeline.Result) *Snapshot {
	snap := &Snapshot{
		byCode:   make(map[string]*model.Subject),
		byDegree: make(map[string]int),
		mapping:  res.Mapping,
	}
	if res.Session != nil {
		snap.SessionID = res.Session.ID
		snap.StartedAt = res.Session.StartedAt
	}
	snap.FinishedAt = res.FinishedAt
	if res.Registry != nil {
		snap.subjects = res.Registry.Subjects()
	}
	for _, s := range snap.subjects {
		snap.byCode[s.Code] = s
	}
	snap.degrees = res.Degrees
	for i, d := range snap.degrees {
		snap.byDegree[d.Code] = i
	}
	for _, e := range res.SourceErrors {
		snap.sourceErrors = append(snap.sourceErrors, errorDTO{Source: e.Name, Error: e.Err.Error()})
	}
	for _, e := range res.CatalogErrors {
		snap.catalogErrors = append(snap.catalogErrors, e.Error())
	}
	for _, e := range res.FeedErrors {
		snap.feedErrors = append(snap.feedErrors, e.Error())
	}
	return snap
}

func (s *Snapshot) subject(code string) (*model.Subject, bool) {
	sub, ok := s.byCode[code]
	return sub, ok
}

func (s *Snapshot) degree(code string) (model.Degree, bool) {
	i, ok := s.byDegree[code]
	if !ok {
		return model.Degree{}, false
	}
	return s.degrees[i], true
}
