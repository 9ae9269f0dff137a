package ingest

import (
	"context"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"
)

// pipeWriter consumes depacketized RTP payloads, strips MPEG-TS null
// packets, and streams the elementary transport stream into a named pipe
// that the decoder stage reads from. Using a FIFO rather than an in-memory
// buffer lets the decoder stage be a real FFmpeg process/binding reading a
// normal file handle, exactly as the original pipeline fed its decoder.
type pipeWriter struct {
	path string
	log  *logrus.Entry
}

func newPipeWriter(path string, log *logrus.Entry) (*pipeWriter, error) {
	_ = os.Remove(path)
	if err := unix.Mkfifo(path, 0o600); err != nil {
		return nil, fmt.Errorf("mkfifo %s: %w", path, err)
	}
	return &pipeWriter{path: path, log: log}, nil
}

// run opens the FIFO for writing (blocking until the decoder stage opens
// it for reading) and forwards every payload from in until ctx is done.
func (w *pipeWriter) run(ctx context.Context, in <-chan []byte) error {
	f, err := os.OpenFile(w.path, os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("open fifo for write: %w", err)
	}
	defer f.Close()

	var carry []byte
	for {
		select {
		case <-ctx.Done():
			return nil
		case payload, ok := <-in:
			if !ok {
				return nil
			}
			carry = append(carry, payload...)
			var clean []byte
			clean, carry = stripNullPackets(carry)
			if len(clean) == 0 {
				continue
			}
			if _, err := f.Write(clean); err != nil {
				return fmt.Errorf("write fifo: %w", err)
			}
		}
	}
}

func (w *pipeWriter) close() {
	_ = os.Remove(w.path)
}
