// Package pipeline runs one full build: catalogs, calendars, merge,
// enrichment and document output.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"time"

	"esiplanner/internal/catalog"
	"esiplanner/internal/config"
	"esiplanner/internal/ics"
	appLog "esiplanner/internal/log"
	"esiplanner/internal/mapping"
	"esiplanner/internal/model"
	"esiplanner/internal/output"
)

// Result is everything one run produced.
type Result struct {
	Registry *model.Registry
	Degrees  []model.Degree
	// Mapping is nil when no mapping file is configured.
	Mapping *model.MappingDocument

	SourceErrors  []*ics.SourceError
	CatalogErrors []error
	FeedErrors    []error

	Session    *output.Session
	FinishedAt time.Time
}

// Options tweak a run. The zero value is ready to use.
type Options struct {
	Client *http.Client
	Now    func() time.Time
}

func (o Options) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}

// Run performs one build with default options.
func Run(ctx context.Context, cfg *config.Config) (*Result, error) {
	return RunWith(ctx, cfg, Options{})
}

// RunWith performs one build. Unreadable catalogs, failed feeds and calendars
// that do not parse are reported in the result; configuration and output
// failures abort the run.
func RunWith(ctx context.Context, cfg *config.Config, opts Options) (*Result, error) {
	if cfg == nil {
		return nil, errors.New("pipeline: config is nil")
	}
	res := &Result{Session: output.NewSession(opts.now())}
	appLog.Info("pipeline run started", "session", res.Session.ID)

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}

	// Catalogs and their embedded calendars.
	cats, errs := readCatalogs(cfg.CatalogDir)
	res.CatalogErrors = errs
	if err := os.MkdirAll(cfg.AttachmentsDir, 0o755); err != nil {
		return nil, fmt.Errorf("pipeline: attachments dir: %w", err)
	}
	res.Degrees = make([]model.Degree, 0, len(cats))
	for _, c := range cats {
		names, err := catalog.SaveAttachments(cfg.AttachmentsDir, c.Attachments)
		if err != nil {
			return nil, fmt.Errorf("pipeline: %w", err)
		}
		if len(names) > 0 {
			appLog.Debug("attachments saved", "catalog", c.Path, "files", len(names))
		}
		res.Degrees = append(res.Degrees, c.Degree)
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}

	// Calendar sources: local files, then remote feeds.
	sources, err := ics.LoadDir(cfg.AttachmentsDir)
	if err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}
	if len(cfg.Feeds) > 0 {
		feeds := make([]ics.Feed, 0, len(cfg.Feeds))
		for _, f := range cfg.Feeds {
			feeds = append(feeds, ics.Feed{ID: f.ID, URL: f.URL})
		}
		remote, ferrs := ics.NewFetcher(cfg.CacheDir, opts.Client).FetchAll(ctx, feeds)
		sources = append(sources, remote...)
		res.FeedErrors = ferrs
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}

	built := ics.Build(sources, ics.BuildConfig{
		Backend: ics.Backend(cfg.Parser),
		Workers: cfg.Workers,
	})
	res.Registry = built.Registry
	res.SourceErrors = built.Failed

	// Optional enrichment.
	if cfg.MappingFile != "" {
		table, err := mapping.LoadTSV(cfg.MappingFile)
		if err != nil {
			return nil, fmt.Errorf("pipeline: %w", err)
		}
		enriched := EnrichDegrees(res.Degrees, table)
		doc := table.Document(cfg.MappingName, opts.now())
		res.Mapping = &doc
		appLog.Info("degrees enriched", "mapped_codes", table.Len(), "enriched_refs", enriched)
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}

	w := output.NewWriter(cfg.OutputDir, res.Session)
	if err := w.Reset(); err != nil {
		return nil, err
	}
	if err := w.WriteSubjects(res.Registry); err != nil {
		return nil, err
	}
	if err := w.WriteDegrees(res.Degrees); err != nil {
		return nil, err
	}
	if res.Mapping != nil {
		if err := w.WriteMapping(*res.Mapping); err != nil {
			return nil, err
		}
	}

	res.FinishedAt = opts.now()
	appLog.Info("pipeline run finished",
		"session", res.Session.ID,
		"subjects", res.Registry.Len(),
		"degrees", len(res.Degrees),
		"source_errors", len(res.SourceErrors),
		"catalog_errors", len(res.CatalogErrors),
		"feed_errors", len(res.FeedErrors),
	)
	return res, nil
}

// EnrichDegrees attaches external codes to every degree's subject refs and
// returns how many refs were filled.
func EnrichDegrees(degrees []model.Degree, table *mapping.Table) int {
	n := 0
	for i := range degrees {
		n += table.Enrich(&degrees[i])
	}
	return n
}

// readCatalogs treats a missing catalog directory as empty.
func readCatalogs(dir string) ([]*catalog.Catalog, []error) {
	if _, err := os.Stat(dir); errors.Is(err, fs.ErrNotExist) {
		appLog.Info("catalog dir not found, skipping catalogs", "dir", dir)
		return nil, nil
	}
	return catalog.ReadDir(dir)
}
