// Package actions implements the Action Executor: bounded-concurrency,
// retrying HTTP dispatch of the side effects a matched TransitionRule
// fires.
package actions

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"net/http"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"

	"hawkeye/pkg/models"
)

// MetricsRecorder is the subset of *metrics.Metrics the executor reports to.
type MetricsRecorder interface {
	RecordActionDispatched(description string)
	RecordActionFailed(description string)
	RecordActionDropped()
}

type job struct {
	action models.Action
	event  models.TransitionEvent
}

// Executor dispatches actions with bounded parallelism, per-attempt
// timeouts, exponential backoff between retries, and a drop-oldest
// overflow queue.
type Executor struct {
	log     *logrus.Entry
	metrics MetricsRecorder
	client  *http.Client
	sem     *semaphore.Weighted

	queueMax int
	wake     chan struct{}

	mu    sync.Mutex
	queue []job

	cooldownMu sync.Mutex
	lastRun    map[string]time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New builds an Executor. parallelism bounds in-flight HTTP calls;
// queueMax bounds the pending-dispatch backlog before the oldest entry is
// dropped.
func New(parallelism, queueMax int, log *logrus.Entry, m MetricsRecorder) *Executor {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	ctx, cancel := context.WithCancel(context.Background())
	e := &Executor{
		log:      log,
		metrics:  m,
		client:   &http.Client{},
		sem:      semaphore.NewWeighted(int64(parallelism)),
		queueMax: queueMax,
		wake:     make(chan struct{}, 1),
		lastRun:  make(map[string]time.Time),
		ctx:      ctx,
		cancel:   cancel,
	}
	e.wg.Add(1)
	go e.loop()
	return e
}

// Dispatch enqueues every action configured on rule for the given event.
// Never blocks: a full queue drops its oldest pending entry.
func (e *Executor) Dispatch(rule models.TransitionRule, event models.TransitionEvent) {
	for _, a := range rule.Actions {
		if e.inCooldown(a) {
			e.log.WithField("action", a.Description).Debug("action suppressed by cooldown")
			continue
		}
		e.enqueue(job{action: a, event: event})
	}
}

func (e *Executor) inCooldown(a models.Action) bool {
	e.cooldownMu.Lock()
	defer e.cooldownMu.Unlock()
	key := cooldownKey(a)
	last, ok := e.lastRun[key]
	if !ok {
		return false
	}
	return time.Since(last) < time.Duration(a.CooldownSeconds)*time.Second
}

func (e *Executor) markRun(a models.Action) {
	e.cooldownMu.Lock()
	defer e.cooldownMu.Unlock()
	e.lastRun[cooldownKey(a)] = time.Now()
}

func cooldownKey(a models.Action) string {
	return a.Description + "|" + string(a.Method) + "|" + a.URL
}

func (e *Executor) enqueue(j job) {
	e.mu.Lock()
	if len(e.queue) >= e.queueMax {
		e.queue = e.queue[1:]
		if e.metrics != nil {
			e.metrics.RecordActionDropped()
		}
		e.log.Warn("action queue full, dropped oldest pending action")
	}
	e.queue = append(e.queue, j)
	e.mu.Unlock()

	// Dispatched counts accepted attempts, not successes: record it as
	// soon as the job is accepted into the queue, not once it completes.
	if e.metrics != nil {
		e.metrics.RecordActionDispatched(j.action.Description)
	}
	e.signalWake()
}

// loop dequeues and dispatches jobs, but only once a semaphore slot is
// actually available: a job that can't yet run stays in the queue (and so
// remains subject to drop-oldest) rather than blocking behind an acquire.
func (e *Executor) loop() {
	defer e.wg.Done()
	for {
		select {
		case <-e.ctx.Done():
			return
		case <-e.wake:
		}

		for e.sem.TryAcquire(1) {
			j, ok := e.dequeue()
			if !ok {
				e.sem.Release(1)
				break
			}
			e.wg.Add(1)
			go func(j job) {
				defer e.wg.Done()
				defer e.sem.Release(1)
				defer e.signalWake()
				e.run(j)
			}(j)
		}
	}
}

func (e *Executor) signalWake() {
	select {
	case e.wake <- struct{}{}:
	default:
	}
}

func (e *Executor) dequeue() (job, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.queue) == 0 {
		return job{}, false
	}
	j := e.queue[0]
	e.queue = e.queue[1:]
	return j, true
}

// run executes one action with retries and exponential backoff, honoring
// the caller's shutdown context.
func (e *Executor) run(j job) {
	a := j.action
	attempts := a.Retries + 1

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(math.Min(float64(30*time.Second), float64(250*time.Millisecond)*math.Pow(2, float64(attempt))))
			select {
			case <-time.After(backoff):
			case <-e.ctx.Done():
				return
			}
		}

		lastErr = e.attempt(a)
		if lastErr == nil {
			e.markRun(a)
			return
		}
		e.log.WithError(lastErr).WithFields(logrus.Fields{
			"action":  a.Description,
			"attempt": attempt + 1,
		}).Warn("action attempt failed")
	}

	e.markRun(a)
	if e.metrics != nil {
		e.metrics.RecordActionFailed(a.Description)
	}
	e.log.WithError(lastErr).WithField("action", a.Description).Error("action exhausted retries")
}

func (e *Executor) attempt(a models.Action) error {
	timeout := time.Duration(a.Timeout) * time.Second
	ctx, cancel := context.WithTimeout(e.ctx, timeout)
	defer cancel()

	var body *bytes.Reader
	if a.Body != "" {
		body = bytes.NewReader([]byte(a.Body))
	} else {
		body = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, string(a.Method), a.URL, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	for k, v := range a.Headers {
		req.Header.Set(k, v)
	}
	if a.Authorization != nil && a.Authorization.Basic != nil {
		req.SetBasicAuth(a.Authorization.Basic.Username, a.Authorization.Basic.Password)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("action %q: unexpected status %d", a.Description, resp.StatusCode)
	}
	return nil
}

// Shutdown cancels in-flight actions and waits up to grace for them to
// unwind.
func (e *Executor) Shutdown(grace time.Duration) {
	done := make(chan struct{})
	go func() {
		e.cancel()
		e.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(grace):
		e.log.Warn("action executor did not drain within grace period")
	}
}
