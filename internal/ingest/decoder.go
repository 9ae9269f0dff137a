package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"hawkeye/internal/fingerprint"
	"hawkeye/pkg/models"
)

// DecoderMetrics is the subset of *metrics.Metrics the decode stage reports to.
type DecoderMetrics interface {
	RecordFrameSampled()
	RecordDecodeError()
	RecordDecodeRestart()
}

// SampledFrame pairs a decoded frame's fingerprint with the time it was
// captured.
type SampledFrame struct {
	Fingerprint models.Fingerprint
	At          time.Time
}

// decoder opens the FIFO with an FFmpeg-backed gocv.VideoCapture, which
// performs the MPEG-TS demux and H.264 decode the original pipeline did
// inside a single GStreamer graph, and samples decoded frames at a fixed
// interval.
type decoder struct {
	fifoPath         string
	samplingInterval time.Duration
	stallTimeout     time.Duration
	maxRestarts      int
	restartWindow    time.Duration

	log     *logrus.Entry
	metrics DecoderMetrics
	out     chan<- SampledFrame
}

func newDecoder(fifoPath string, samplingInterval, stallTimeout time.Duration, maxRestarts int, out chan<- SampledFrame, metrics DecoderMetrics, log *logrus.Entry) *decoder {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &decoder{
		fifoPath:         fifoPath,
		samplingInterval: samplingInterval,
		stallTimeout:     stallTimeout,
		maxRestarts:      maxRestarts,
		restartWindow:    60 * time.Second,
		log:              log,
		metrics:          metrics,
		out:              out,
	}
}

// ErrFatalStall is returned when the decode pipeline stalled and restart
// budget within restartWindow was exhausted.
type ErrFatalStall struct {
	Restarts int
}

func (e *ErrFatalStall) Error() string {
	return fmt.Sprintf("decode pipeline stalled after %d restarts", e.Restarts)
}

// run drives the decode loop, restarting gocv.VideoCapture on a stall up
// to maxRestarts times within restartWindow before giving up fatally.
func (d *decoder) run(ctx context.Context) error {
	var restarts []time.Time

	for {
		err := d.runOnce(ctx)
		if err == nil {
			return nil // ctx canceled cleanly
		}
		if ctx.Err() != nil {
			return nil
		}

		now := time.Now()
		restarts = append(restarts, now)
		cutoff := now.Add(-d.restartWindow)
		kept := restarts[:0]
		for _, t := range restarts {
			if t.After(cutoff) {
				kept = append(kept, t)
			}
		}
		restarts = kept

		if len(restarts) > d.maxRestarts {
			return &ErrFatalStall{Restarts: len(restarts) - 1}
		}

		if d.metrics != nil {
			d.metrics.RecordDecodeRestart()
		}
		d.log.WithError(err).WithField("restarts_in_window", len(restarts)).Warn("decode pipeline stalled, restarting")
	}
}

func (d *decoder) runOnce(ctx context.Context) error {
	vc, err := gocv.VideoCaptureFile(d.fifoPath)
	if err != nil {
		return fmt.Errorf("open decoder on fifo: %w", err)
	}
	defer vc.Close()

	frame := gocv.NewMat()
	defer frame.Close()

	ticker := time.NewTicker(d.samplingInterval)
	defer ticker.Stop()

	lastFrame := time.Now()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if time.Since(lastFrame) > d.stallTimeout {
				return fmt.Errorf("no frames decoded for %s", d.stallTimeout)
			}

			if ok := vc.Read(&frame); !ok || frame.Empty() {
				if d.metrics != nil {
					d.metrics.RecordDecodeError()
				}
				continue
			}
			lastFrame = time.Now()

			img, err := frame.ToImage()
			if err != nil {
				if d.metrics != nil {
					d.metrics.RecordDecodeError()
				}
				continue
			}

			fp := fingerprint.FromImage(img)
			if d.metrics != nil {
				d.metrics.RecordFrameSampled()
			}

			sample := SampledFrame{Fingerprint: fp, At: lastFrame}
			select {
			case d.out <- sample:
			default:
				d.log.Debug("sampler buffer full, dropped frame")
			}
		}
	}
}
