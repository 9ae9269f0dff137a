// Package transition implements the debounced current/candidate/streak
// state machine that turns a stream of per-frame classifications into
// durable transition events, and dispatches the configured actions for
// whichever rule first matches an event.
package transition

import (
	"time"

	"github.com/sirupsen/logrus"

	"hawkeye/pkg/models"
)

// Dispatcher is the subset of the Action Executor the engine depends on.
// Hand-off must never block the engine's frame loop.
type Dispatcher interface {
	Dispatch(rule models.TransitionRule, event models.TransitionEvent)
}

// Resolver maps a configured slate URL to its resolved slate id, supplied
// by the Slate Library.
type Resolver func(url string) (string, bool)

// MetricsRecorder is the subset of *metrics.Metrics the engine reports to.
type MetricsRecorder interface {
	RecordTransition(from, to models.Classification)
	RecordUnmatchedTransition()
	RecordCurrentState(cl models.Classification)
}

// StatusRecorder is the subset of *status.Cell the engine updates whenever
// its durable classification changes, including the initial bootstrap.
type StatusRecorder interface {
	SetClassification(cl models.Classification)
}

// Engine holds the debounce state machine. Not safe for concurrent calls
// to ProcessFrame: the ingest sampler is its single caller.
type Engine struct {
	log          *logrus.Entry
	rules        []models.TransitionRule
	resolve      Resolver
	dispatcher   Dispatcher
	metrics      MetricsRecorder
	status       StatusRecorder
	stableFrames int

	current   models.Classification
	candidate models.Classification
	streak    int
	bootstrap bool
}

// New builds an Engine. stableFrames is the number of consecutive
// identical classifications required before a candidate becomes durable.
func New(rules []models.TransitionRule, resolve Resolver, dispatcher Dispatcher, metrics MetricsRecorder, status StatusRecorder, stableFrames int, log *logrus.Entry) *Engine {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Engine{
		log:          log,
		rules:        rules,
		resolve:      resolve,
		dispatcher:   dispatcher,
		metrics:      metrics,
		status:       status,
		stableFrames: stableFrames,
		current:      models.Unknown(),
		bootstrap:    true,
	}
}

// Current returns the engine's current durable classification.
func (e *Engine) Current() models.Classification {
	return e.current
}

// ProcessFrame feeds one sampled frame's classification through the
// debounce machine. It returns the resulting TransitionEvent and true if
// this frame caused a durable transition.
func (e *Engine) ProcessFrame(cl models.Classification, at time.Time) (models.TransitionEvent, bool) {
	if !cl.Equal(e.candidate) {
		e.candidate = cl
		e.streak = 1
	} else {
		e.streak++
	}

	if e.streak < e.stableFrames {
		return models.TransitionEvent{}, false
	}

	if e.candidate.Equal(e.current) {
		return models.TransitionEvent{}, false
	}

	from := e.current
	e.current = e.candidate

	// The gauge and the status cell reflect e.current regardless of
	// whether this is a reportable transition or the bootstrap baseline.
	if e.metrics != nil {
		e.metrics.RecordCurrentState(e.current)
	}
	if e.status != nil {
		e.status.SetClassification(e.current)
	}

	if e.bootstrap {
		// The very first stabilized classification establishes the
		// baseline; it is not a transition from anything.
		e.bootstrap = false
		e.log.WithField("state", e.current.Kind.String()).Info("bootstrap classification established")
		return models.TransitionEvent{}, false
	}

	event := models.TransitionEvent{From: from, To: e.current, At: at}
	if e.metrics != nil {
		e.metrics.RecordTransition(event.From, event.To)
	}
	e.dispatch(event)
	return event, true
}

func (e *Engine) dispatch(event models.TransitionEvent) {
	for _, rule := range e.rules {
		if event.Matches(rule, e.resolve) {
			e.log.WithFields(logrus.Fields{
				"from": event.From.Kind.String(),
				"to":   event.To.Kind.String(),
			}).Info("transition matched rule")
			e.dispatcher.Dispatch(rule, event)
			return
		}
	}
	if e.metrics != nil {
		e.metrics.RecordUnmatchedTransition()
	}
	e.log.WithFields(logrus.Fields{
		"from": event.From.Kind.String(),
		"to":   event.To.Kind.String(),
	}).Warn("transition matched no configured rule")
}
