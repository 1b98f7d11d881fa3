package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"esiplanner/internal/config"
	appLog "esiplanner/internal/log"
	"esiplanner/internal/output"
	"esiplanner/internal/pipeline"
	"esiplanner/internal/web"
)

// flagConfig holds CLI flag values.
type flagConfig struct {
	configPath string
	listen     string
	once       bool
	logLevel   string
}

func main() {
	appLog.Info("esiplanner starting", "version", "0.1.0")

	flags := parseFlags()

	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}

	// CLI flags override the config file if provided.
	if flags.listen != "" {
		conf.Listen = flags.listen
	}
	if flags.logLevel != "" {
		conf.LogLevel = flags.logLevel
	}
	level, err := appLog.ParseLevel(conf.LogLevel)
	if err != nil {
		appLog.Error("invalid log level", err, "log_level", conf.LogLevel)
		os.Exit(2)
	}
	appLog.SetLevel(level)

	appLog.Info("effective config",
		"listen", conf.Listen,
		"catalog_dir", conf.CatalogDir,
		"attachments_dir", conf.AttachmentsDir,
		"output_dir", conf.OutputDir,
		"mapping_file", conf.MappingFile,
		"parser", conf.Parser,
		"workers", conf.Workers,
		"rebuild", conf.Rebuild,
		"feed_count", len(conf.Feeds),
		"once", flags.once,
	)

	// Root context with cancellation on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if flags.once {
		if err := runOnce(ctx, conf); err != nil {
			appLog.Error("build failed", err)
			os.Exit(1)
		}
		return
	}

	if err := serve(ctx, conf); err != nil {
		appLog.Error("server exited", err)
		os.Exit(1)
	}
	appLog.Info("esiplanner exiting")
}

func runOnce(ctx context.Context, conf *config.Config) error {
	res, err := pipeline.Run(ctx, conf)
	if err != nil {
		return err
	}
	level, _ := appLog.ParseLevel(conf.LogLevel)
	writeReport(os.Stdout, res, level == appLog.LevelDebug)
	return nil
}

// writeReport prints the run summary and skipped sources. With listFiles it
// also lists every document written, by collection.
func writeReport(w io.Writer, res *pipeline.Result, listFiles bool) {
	fmt.Fprint(w, res.Session.Summary(res.FinishedAt))
	for _, e := range res.SourceErrors {
		fmt.Fprintf(w, "  skipped %s: %v\n", e.Name, e.Err)
	}
	if !listFiles {
		return
	}
	for _, c := range []string{output.CollectionSubjects, output.CollectionDegrees, output.CollectionMapping} {
		for _, f := range res.Session.Files(c) {
			fmt.Fprintf(w, "  wrote %s/%s\n", c, f)
		}
	}
}

// serve builds once, then serves the API and rebuilds on the cron schedule
// until ctx is cancelled.
func serve(ctx context.Context, conf *config.Config) error {
	srv := web.NewServer(conf)

	var building sync.Mutex
	rebuild := func() {
		if !building.TryLock() {
			appLog.Info("rebuild already running, skipping")
			return
		}
		defer building.Unlock()

		res, err := pipeline.Run(ctx, conf)
		if err != nil {
			appLog.Error("rebuild failed, keeping previous snapshot", err)
			return
		}
		srv.SetSnapshot(web.NewSnapshot(res))
		appLog.Info("snapshot published", "session", res.Session.ID, "subjects", res.Registry.Len())
	}

	c := cron.New(cron.WithLogger(cronLogger{}), cron.WithChain(cron.SkipIfStillRunning(cronLogger{})))
	if _, err := c.AddFunc(conf.Rebuild, rebuild); err != nil {
		return fmt.Errorf("schedule rebuild: %w", err)
	}

	httpSrv := &http.Server{
		Addr:              conf.Listen,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+conf.Listen)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Initial build runs while the server already answers /health and 503s.
	go rebuild()
	c.Start()

	var serveErr error
	select {
	case <-ctx.Done():
		appLog.Info("signal received, shutting down")
	case serveErr = <-errCh:
	}

	<-c.Stop().Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		appLog.Error("HTTP shutdown failed", err)
	}
	return serveErr
}

// cronLogger routes scheduler messages through appLog.
type cronLogger struct{}

func (cronLogger) Info(msg string, kv ...interface{}) {
	appLog.Debug("cron: "+msg, kv...)
}

func (cronLogger) Error(err error, msg string, kv ...interface{}) {
	appLog.Error("cron: "+msg, err, kv...)
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "esiplanner.yaml", "Path to config file")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.BoolVar(&cfg.once, "once", false, "Run one build, print a summary and exit")
	flag.StringVar(&cfg.logLevel, "log-level", "", "Log level: debug, info, error (overrides config if set)")

	flag.Parse()

	return cfg
}
