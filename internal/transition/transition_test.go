package transition

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hawkeye/pkg/models"
)

type recordingDispatcher struct {
	calls []models.TransitionEvent
}

func (d *recordingDispatcher) Dispatch(rule models.TransitionRule, event models.TransitionEvent) {
	d.calls = append(d.calls, event)
}

func noopResolve(url string) (string, bool) { return "", false }

type fakeMetrics struct {
	transitions []models.Classification
	unmatched   int
	states      []models.Classification
}

func (f *fakeMetrics) RecordTransition(from, to models.Classification) {
	f.transitions = append(f.transitions, to)
}
func (f *fakeMetrics) RecordUnmatchedTransition() { f.unmatched++ }
func (f *fakeMetrics) RecordCurrentState(cl models.Classification) {
	f.states = append(f.states, cl)
}

type fakeStatus struct {
	classifications []models.Classification
}

func (f *fakeStatus) SetClassification(cl models.Classification) {
	f.classifications = append(f.classifications, cl)
}

func TestProcessFrame_BootstrapDoesNotEmitTransition(t *testing.T) {
	d := &recordingDispatcher{}
	e := New(nil, noopResolve, d, nil, nil, 2, nil)

	_, fired := e.ProcessFrame(models.Content(), time.Now())
	assert.False(t, fired)
	_, fired = e.ProcessFrame(models.Content(), time.Now())
	assert.False(t, fired, "bootstrap classification must not be reported as a transition")
	assert.Equal(t, models.Content(), e.Current())
	assert.Empty(t, d.calls)
}

func TestProcessFrame_BootstrapUpdatesMetricsAndStatus(t *testing.T) {
	d := &recordingDispatcher{}
	m := &fakeMetrics{}
	st := &fakeStatus{}
	e := New(nil, noopResolve, d, m, st, 2, nil)

	e.ProcessFrame(models.Content(), time.Now())
	e.ProcessFrame(models.Content(), time.Now())

	require.Len(t, m.states, 1, "bootstrap must still update the current_state gauge")
	assert.Equal(t, models.Content(), m.states[0])
	assert.Empty(t, m.transitions, "bootstrap is not a reportable transition")

	require.Len(t, st.classifications, 1, "bootstrap must still update the status cell")
	assert.Equal(t, models.Content(), st.classifications[0])
}

func TestProcessFrame_RequiresConsecutiveStreak(t *testing.T) {
	d := &recordingDispatcher{}
	e := New(nil, noopResolve, d, nil, nil, 3, nil)
	e.ProcessFrame(models.Content(), time.Now())
	e.ProcessFrame(models.Content(), time.Now())

	// A single glitch frame resets the candidate streak.
	_, fired := e.ProcessFrame(models.Slate("x"), time.Now())
	assert.False(t, fired)
	_, fired = e.ProcessFrame(models.Content(), time.Now())
	assert.False(t, fired)
	assert.Equal(t, models.Unknown(), e.Current())
}

func TestProcessFrame_DispatchesMatchingRule(t *testing.T) {
	rules := []models.TransitionRule{
		{
			From: models.FrameDescriptor{FrameType: models.FrameTypeContent},
			To: models.FrameDescriptor{
				FrameType:    models.FrameTypeSlate,
				SlateContext: &models.SlateContext{URL: "file:///bars.png"},
			},
		},
	}
	resolve := func(url string) (string, bool) {
		if url == "file:///bars.png" {
			return "abc", true
		}
		return "", false
	}

	d := &recordingDispatcher{}
	e := New(rules, resolve, d, nil, nil, 2, nil)

	e.ProcessFrame(models.Content(), time.Now())
	e.ProcessFrame(models.Content(), time.Now())

	e.ProcessFrame(models.Slate("abc"), time.Now())
	_, fired := e.ProcessFrame(models.Slate("abc"), time.Now())

	require.True(t, fired)
	require.Len(t, d.calls, 1)
	assert.Equal(t, models.Content(), d.calls[0].From)
	assert.Equal(t, models.Slate("abc"), d.calls[0].To)
}

func TestProcessFrame_UnmatchedTransitionDoesNotDispatch(t *testing.T) {
	d := &recordingDispatcher{}
	e := New(nil, noopResolve, d, nil, nil, 1, nil)

	e.ProcessFrame(models.Content(), time.Now())
	e.ProcessFrame(models.Slate("zzz"), time.Now())

	assert.Empty(t, d.calls)
}
