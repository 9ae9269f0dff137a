// Package ingest turns an incoming RTP/MPEG-TS/H.264 stream into sampled
// frame fingerprints. The pipeline is split into stages mirroring the
// original single-process pipeline: an RTP receiver validates and
// depacketizes UDP datagrams, a transport-stream pass strips padding,
// a named pipe hands the elementary stream to an FFmpeg-backed decoder,
// and a sampler throttles decoded frames to the configured interval.
package ingest

import (
	"context"
	"net"

	"github.com/sirupsen/logrus"
)

// ReceiverMetrics is the subset of *metrics.Metrics the receiver reports to.
type ReceiverMetrics interface {
	RecordFrameReceived()
}

// Receiver listens for RTP/MPEG-TS datagrams on a UDP port and forwards
// validated payloads downstream. Malformed datagrams (bad RTP version,
// truncated header) are silently dropped, consistent with UDP's
// best-effort delivery.
type Receiver struct {
	port    int
	log     *logrus.Entry
	metrics ReceiverMetrics
	out     chan<- []byte
}

// NewReceiver builds a Receiver that writes depacketized payloads to out.
// out must be drained promptly: when it is full, the payload is dropped
// rather than blocking the receive loop.
func NewReceiver(port int, out chan<- []byte, metrics ReceiverMetrics, log *logrus.Entry) *Receiver {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Receiver{port: port, out: out, metrics: metrics, log: log}
}

// Run listens until ctx is canceled or the socket errors.
func (r *Receiver) Run(ctx context.Context) error {
	addr := &net.UDPAddr{Port: r.port}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return err
	}
	defer conn.Close()

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	buf := make([]byte, 65536)
	for {
		n, _, err := conn.ReadFromUDP(buf)
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				r.log.WithError(err).Warn("rtp receiver read failed")
				continue
			}
		}
		if n == 0 {
			continue
		}

		payload, ok := depacketize(buf[:n])
		if !ok {
			continue
		}

		if r.metrics != nil {
			r.metrics.RecordFrameReceived()
		}

		select {
		case r.out <- payload:
		default:
			// Backpressure: drop this datagram rather than block the
			// receive loop and risk the kernel socket buffer overflowing.
			r.log.Debug("ingest buffer full, dropped rtp payload")
		}
	}
}

// rtpHeaderLen is the fixed portion of an RTP header (RFC 3550 §5.1),
// before any CSRC identifiers or header extension.
const rtpHeaderLen = 12

// depacketize validates the fixed RTP header and strips it, CSRC list and
// any extension header, returning the payload. gopacket's layers package
// has no RTP layer (it targets link/network/transport protocols, not
// RTP's application-level framing), so this follows RFC 3550 directly.
func depacketize(data []byte) ([]byte, bool) {
	if len(data) < rtpHeaderLen {
		return nil, false
	}

	versionAndFlags := data[0]
	version := versionAndFlags >> 6
	if version != 2 {
		return nil, false
	}
	hasExtension := versionAndFlags&0x10 != 0
	csrcCount := int(versionAndFlags & 0x0f)

	offset := rtpHeaderLen + 4*csrcCount
	if offset > len(data) {
		return nil, false
	}

	if hasExtension {
		if offset+4 > len(data) {
			return nil, false
		}
		extLenWords := int(data[offset+2])<<8 | int(data[offset+3])
		offset += 4 + 4*extLenWords
		if offset > len(data) {
			return nil, false
		}
	}

	return data[offset:], true
}
