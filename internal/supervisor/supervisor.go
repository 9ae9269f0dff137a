// Package supervisor wires every stage of a watcher together in
// dependency order and owns its startup, running and shutdown sequencing.
package supervisor

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"hawkeye/internal/actions"
	"hawkeye/internal/comparator"
	"hawkeye/internal/httpserver"
	"hawkeye/internal/ingest"
	"hawkeye/internal/metrics"
	"hawkeye/internal/slate"
	"hawkeye/internal/status"
	"hawkeye/internal/transition"
	"hawkeye/pkg/models"
)

// Exit codes, returned by Run so main can os.Exit with them directly.
// Slate-load failures are configuration errors discovered slightly later
// than struct validation, so they share ExitConfigError's value.
const (
	ExitOK             = 0
	ExitConfigError    = 1
	ExitSlateLoadError = 1
	ExitFatalRuntime   = 2
	ExitPanic          = 3
)

// Supervisor owns the lifecycle of one watcher process: Slate Library,
// Ingest Pipeline, Comparator, Transition Engine, Action Executor and the
// observability HTTP server, in that dependency order.
type Supervisor struct {
	cfg    *models.Config
	log    *logrus.Entry
	runID  string
	status *status.Cell

	httpAddr string
}

// New builds a Supervisor for an already-loaded, already-validated config.
func New(cfg *models.Config, runID string, httpAddr string, log *logrus.Entry) *Supervisor {
	return &Supervisor{
		cfg:      cfg,
		log:      log,
		runID:    runID,
		status:   status.New(runID),
		httpAddr: httpAddr,
	}
}

// Run starts every stage and blocks until ctx is canceled or a fatal
// runtime error occurs. It returns one of the Exit* codes.
func (s *Supervisor) Run(ctx context.Context) int {
	// The default registerer is what the /metrics handler gathers from.
	m := metrics.New(prometheus.DefaultRegisterer)

	lib, err := slate.Load(s.cfg.SlateURLs(), s.log)
	if err != nil {
		s.log.WithError(err).Error("failed to load slate library")
		s.status.Set(status.StateFailed, err.Error())
		return ExitSlateLoadError
	}
	s.log.WithField("slate_count", lib.Len()).Info("slate library loaded")

	cmp := comparator.New(lib, s.cfg.MatchThreshold)
	executor := actions.New(s.cfg.ActionParallelism, models.DefaultActionQueueMax, s.log, m)
	engine := transition.New(s.cfg.Transitions, lib.IDForURL, executor, m, s.status, s.cfg.StableFrames, s.log)

	pipeline := ingest.New(ingest.Config{
		IngestPort:         s.cfg.Source.IngestPort,
		SamplingInterval:   time.Duration(s.cfg.SamplingIntervalMs) * time.Millisecond,
		StreamStallTimeout: time.Duration(models.DefaultStreamStallTimeoutSec) * time.Second,
		MaxDecodeRestarts:  models.DefaultMaxDecodeRestarts,
	}, m, s.log)

	srv := httpserver.New(s.status, m)
	httpSrv := &http.Server{Addr: s.httpAddr, Handler: srv.Handler()}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	pipelineErr := make(chan error, 1)
	go func() {
		pipelineErr <- pipeline.Run(runCtx)
	}()

	go func() {
		for {
			select {
			case <-runCtx.Done():
				return
			case sample := <-pipeline.Frames():
				result := cmp.Classify(sample.Fingerprint)
				m.RecordComparison(result.Classification, result.Score)
				// The engine updates the current_state gauge and the
				// status cell itself, including on the bootstrap frame.
				engine.ProcessFrame(result.Classification, sample.At)
			}
		}
	}()

	go func() {
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.WithError(err).Error("observability server failed")
		}
	}()

	s.status.Set(status.StateRunning, "")
	s.log.WithField("addr", s.httpAddr).Info("hawkeye watcher running")

	var fatal error
	select {
	case <-ctx.Done():
	case err := <-pipelineErr:
		fatal = err
	}

	cancel()
	s.shutdown(httpSrv, executor)

	if fatal != nil {
		s.log.WithError(fatal).Error("ingest pipeline failed fatally")
		s.status.Set(status.StateFailed, fatal.Error())
		return ExitFatalRuntime
	}
	return ExitOK
}

// shutdown gives in-flight actions a bounded grace period, then stops the
// HTTP listener. In-flight frames are not drained: the frame-processing
// loop stops as soon as runCtx is canceled. The
// status cell stays StateRunning throughout an orderly drain — only a
// fatal pipeline error (handled by the caller) flips it to StateFailed.
func (s *Supervisor) shutdown(httpSrv *http.Server, executor *actions.Executor) {
	// The frame-processing loop already exited when runCtx was canceled;
	// the remaining grace budget goes to in-flight actions.
	executor.Shutdown(2 * time.Second)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_ = httpSrv.Shutdown(shutdownCtx)
}
