package ics

import (
	"fmt"
	"runtime"
	"sort"
	"sync"

	appLog "esiplanner/internal/log"
	"esiplanner/internal/model"
)

// Source is one already-loaded calendar file.
type Source struct {
	Name string
	Body []byte
}

// SourceError records a calendar source that could not be parsed.
type SourceError struct {
	Name string
	Err  error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("ics: source %s: %v", e.Name, e.Err)
}

func (e *SourceError) Unwrap() error { return e.Err }

// BuildConfig controls Build.
type BuildConfig struct {
	Backend Backend
	// Workers bounds parallel parsing. Zero means GOMAXPROCS.
	Workers int
}

// BuildResult is the merged registry plus the sources that were skipped.
type BuildResult struct {
	Registry *model.Registry
	Parsed   []string
	Failed   []*SourceError
}

// Build parses the sources in parallel and folds them into one registry.
// Sources are sorted by name first and folded one at a time in that order,
// so the result does not depend on the order of the input slice. A source
// that fails to parse is reported in Failed and contributes nothing.
func Build(sources []Source, cfg BuildConfig) BuildResult {
	sorted := make([]Source, len(sources))
	copy(sorted, sources)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > len(sorted) {
		workers = len(sorted)
	}

	regs := make([]*model.Registry, len(sorted))
	errs := make([]error, len(sorted))

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				regs[i], errs[i] = ParseCalendar(cfg.Backend, sorted[i].Body)
			}
		}()
	}
	for i := range sorted {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	result := BuildResult{Registry: model.NewRegistry()}
	for i, src := range sorted {
		if errs[i] != nil {
			serr := &SourceError{Name: src.Name, Err: errs[i]}
			appLog.Error("ics source skipped", errs[i], "source", src.Name)
			result.Failed = append(result.Failed, serr)
			continue
		}
		Merge(result.Registry, regs[i])
		result.Parsed = append(result.Parsed, src.Name)
	}

	appLog.Info("ics build completed",
		"sources", len(sorted),
		"parsed", len(result.Parsed),
		"failed", len(result.Failed),
		"subjects", result.Registry.Len(),
	)
	return result
}
