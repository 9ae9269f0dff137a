// Package metrics wires every counter and gauge the watcher exposes on
// its Prometheus endpoint, using the same promauto/Record* convention as
// the rest of the ingest stack.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"hawkeye/pkg/models"
)

// Metrics holds all Prometheus metrics exported by a watcher process.
type Metrics struct {
	// Ingest metrics
	FramesReceivedTotal      prometheus.Counter
	FramesSampledTotal       prometheus.Counter
	FramesDecodedErrorsTotal prometheus.Counter
	DecodeRestartsTotal      prometheus.Counter

	// Comparator metrics
	SlateMatchesTotal *prometheus.CounterVec
	SlateMatchScore   prometheus.Gauge

	// Transition metrics
	TransitionsTotal          *prometheus.CounterVec
	TransitionsUnmatchedTotal prometheus.Counter
	CurrentState              prometheus.Gauge

	// Action metrics
	ActionsDispatchedTotal *prometheus.CounterVec
	ActionsFailedTotal     *prometheus.CounterVec
	ActionsDroppedTotal    prometheus.Counter

	// HTTP metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec
}

// New creates and registers all metrics against reg. Tests should pass a
// fresh prometheus.NewRegistry() rather than the global default so runs
// don't collide on duplicate registration.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		FramesReceivedTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "hawkeye_frames_received_total",
			Help: "RTP packets accepted by the ingest receiver.",
		}),
		FramesSampledTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "hawkeye_frames_sampled_total",
			Help: "Decoded video frames handed to the comparator.",
		}),
		FramesDecodedErrorsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "hawkeye_frames_decoded_errors_total",
			Help: "Decode failures encountered by the ingest pipeline.",
		}),
		DecodeRestartsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "hawkeye_decode_restarts_total",
			Help: "Times the decode pipeline was restarted after a stall.",
		}),
		SlateMatchesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "hawkeye_slate_matches_total",
			Help: "Sampled frames matched to a known slate, by slate id.",
		}, []string{"slate_id"}),
		SlateMatchScore: factory.NewGauge(prometheus.GaugeOpts{
			Name: "hawkeye_slate_match_score",
			Help: "Cosine similarity of the slate matched by the most recently sampled frame; 0 when no slate cleared the threshold.",
		}),
		TransitionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "hawkeye_transitions_total",
			Help: "Durable classification transitions, by from/to class.",
		}, []string{"from", "to"}),
		TransitionsUnmatchedTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "hawkeye_transitions_unmatched_total",
			Help: "Durable transitions that matched no configured rule.",
		}),
		CurrentState: factory.NewGauge(prometheus.GaugeOpts{
			Name: "hawkeye_current_state",
			Help: "Current classification: 0=unknown 1=content 2=slate.",
		}),
		ActionsDispatchedTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "hawkeye_actions_dispatched_total",
			Help: "Actions accepted into the dispatch queue, by description.",
		}, []string{"action"}),
		ActionsFailedTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "hawkeye_actions_failed_total",
			Help: "Actions that exhausted their retries, by description.",
		}, []string{"action"}),
		ActionsDroppedTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "hawkeye_actions_dropped_total",
			Help: "Actions dropped because the dispatch queue was full.",
		}),
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "hawkeye_http_requests_total",
			Help: "Total number of observability HTTP requests.",
		}, []string{"method", "path", "status"}),
		HTTPDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "hawkeye_http_request_duration_seconds",
			Help:    "Duration of observability HTTP requests.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path"}),
	}
}

// RecordFrameReceived records an accepted RTP packet.
func (m *Metrics) RecordFrameReceived() {
	m.FramesReceivedTotal.Inc()
}

// RecordFrameSampled records a decoded frame handed to the comparator.
func (m *Metrics) RecordFrameSampled() {
	m.FramesSampledTotal.Inc()
}

// RecordDecodeError records a decode failure.
func (m *Metrics) RecordDecodeError() {
	m.FramesDecodedErrorsTotal.Inc()
}

// RecordDecodeRestart records the pipeline restarting after a stall.
func (m *Metrics) RecordDecodeRestart() {
	m.DecodeRestartsTotal.Inc()
}

// RecordComparison records the comparator's verdict for one sampled frame.
func (m *Metrics) RecordComparison(c models.Classification, score float64) {
	m.SlateMatchScore.Set(score)
	if c.Kind == models.ClassSlate {
		m.SlateMatchesTotal.WithLabelValues(c.SlateID).Inc()
	}
}

// RecordTransition records a durable classification change (an edge, not
// the resulting state — see RecordCurrentState for the gauge).
func (m *Metrics) RecordTransition(from, to models.Classification) {
	m.TransitionsTotal.WithLabelValues(from.Kind.String(), to.Kind.String()).Inc()
}

// RecordCurrentState sets the current_state gauge to cl's kind. Called
// whenever the engine's durable classification changes, including the
// initial bootstrap classification that establishes a baseline without
// being a transition from anything.
func (m *Metrics) RecordCurrentState(cl models.Classification) {
	m.CurrentState.Set(float64(cl.Kind))
}

// RecordUnmatchedTransition records a durable transition with no configured rule.
func (m *Metrics) RecordUnmatchedTransition() {
	m.TransitionsUnmatchedTotal.Inc()
}

// RecordActionDispatched records an action accepted into the dispatch
// queue, whatever the outcome of its attempts.
func (m *Metrics) RecordActionDispatched(description string) {
	m.ActionsDispatchedTotal.WithLabelValues(description).Inc()
}

// RecordActionFailed records an action exhausting its retries.
func (m *Metrics) RecordActionFailed(description string) {
	m.ActionsFailedTotal.WithLabelValues(description).Inc()
}

// RecordActionDropped records an action dropped by a full dispatch queue.
func (m *Metrics) RecordActionDropped() {
	m.ActionsDroppedTotal.Inc()
}

// RecordHTTPRequest records a completed observability-server request.
func (m *Metrics) RecordHTTPRequest(method, path string, status int, durationSeconds float64) {
	m.HTTPRequests.WithLabelValues(method, path, statusCodeToString(status)).Inc()
	m.HTTPDuration.WithLabelValues(method, path).Observe(durationSeconds)
}

func statusCodeToString(code int) string {
	switch {
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	case code >= 500:
		return "5xx"
	default:
		return "unknown"
	}
}
