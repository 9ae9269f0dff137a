package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Metrics is the union of metrics interfaces every ingest stage reports to.
type Metrics interface {
	ReceiverMetrics
	DecoderMetrics
}

// Pipeline wires the receiver, MPEG-TS pass, FIFO hand-off and decoder
// into one supervised unit and exposes a single channel of sampled frames.
type Pipeline struct {
	port             int
	samplingInterval time.Duration
	stallTimeout     time.Duration
	maxRestarts      int
	runDir           string

	metrics Metrics
	log     *logrus.Entry

	frames chan SampledFrame
}

// Config collects the tunables the Config Loader resolved from the
// configuration document.
type Config struct {
	IngestPort         int
	SamplingInterval   time.Duration
	StreamStallTimeout time.Duration
	MaxDecodeRestarts  int
	RunDir             string // directory for the named pipe; defaults to os.TempDir() if empty
}

// New builds a Pipeline. Call Run to start it.
func New(cfg Config, metrics Metrics, log *logrus.Entry) *Pipeline {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	runDir := cfg.RunDir
	if runDir == "" {
		runDir = os.TempDir()
	}
	return &Pipeline{
		port:             cfg.IngestPort,
		samplingInterval: cfg.SamplingInterval,
		stallTimeout:     cfg.StreamStallTimeout,
		maxRestarts:      cfg.MaxDecodeRestarts,
		runDir:           runDir,
		metrics:          metrics,
		log:              log,
		frames:           make(chan SampledFrame, 8),
	}
}

// Frames returns the channel of sampled frame fingerprints.
func (p *Pipeline) Frames() <-chan SampledFrame {
	return p.frames
}

// Run starts every stage and blocks until ctx is canceled or the decode
// stage reports a fatal, unrecoverable stall.
func (p *Pipeline) Run(ctx context.Context) error {
	fifoPath := filepath.Join(p.runDir, fmt.Sprintf("hawkeye-%d.ts", p.port))

	pw, err := newPipeWriter(fifoPath, p.log)
	if err != nil {
		return err
	}
	defer pw.close()

	payloads := make(chan []byte, 256)
	recv := NewReceiver(p.port, payloads, p.metrics, p.log)
	dec := newDecoder(fifoPath, p.samplingInterval, p.stallTimeout, p.maxRestarts, p.frames, p.metrics, p.log)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	errs := make(chan error, 3)

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := recv.Run(ctx); err != nil {
			errs <- fmt.Errorf("receiver: %w", err)
			cancel()
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := pw.run(ctx, payloads); err != nil {
			errs <- fmt.Errorf("pipe writer: %w", err)
			cancel()
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := dec.run(ctx); err != nil {
			errs <- fmt.Errorf("decoder: %w", err)
			cancel()
		}
	}()

	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
