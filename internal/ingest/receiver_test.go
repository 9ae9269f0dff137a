package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func rtpPacket(csrcCount int, extension bool, payload []byte) []byte {
	header := make([]byte, 12+4*csrcCount)
	header[0] = 0x80 | byte(csrcCount) // version 2, no padding, csrc count
	if extension {
		header[0] |= 0x10
	}
	header[1] = 96 // payload type
	buf := append(header, payload...)
	if extension {
		ext := []byte{0x00, 0x01, 0x00, 0x01, 0xAA, 0xBB, 0xCC, 0xDD} // 1 word of extension data
		buf = append(header, append(ext, payload...)...)
	}
	return buf
}

func TestDepacketize_SimpleHeader(t *testing.T) {
	pkt := rtpPacket(0, false, []byte{1, 2, 3, 4})
	payload, ok := depacketize(pkt)
	assert.True(t, ok)
	assert.Equal(t, []byte{1, 2, 3, 4}, payload)
}

func TestDepacketize_WithCSRC(t *testing.T) {
	pkt := rtpPacket(2, false, []byte{9, 9})
	payload, ok := depacketize(pkt)
	assert.True(t, ok)
	assert.Equal(t, []byte{9, 9}, payload)
}

func TestDepacketize_WithExtension(t *testing.T) {
	pkt := rtpPacket(0, true, []byte{7, 7, 7})
	payload, ok := depacketize(pkt)
	assert.True(t, ok)
	assert.Equal(t, []byte{7, 7, 7}, payload)
}

func TestDepacketize_RejectsBadVersion(t *testing.T) {
	pkt := rtpPacket(0, false, []byte{1})
	pkt[0] = 0x40 // version 1
	_, ok := depacketize(pkt)
	assert.False(t, ok)
}

func TestDepacketize_RejectsTooShort(t *testing.T) {
	_, ok := depacketize([]byte{0x80, 0x60})
	assert.False(t, ok)
}

func TestStripNullPackets_DropsNullPID(t *testing.T) {
	good := make([]byte, tsPacketSize)
	good[0] = tsSyncByte
	good[1] = 0x00
	good[2] = 0x20 // PID 0x0020

	null := make([]byte, tsPacketSize)
	null[0] = tsSyncByte
	null[1] = 0x1f
	null[2] = 0xff // PID 0x1FFF

	buf := append(append([]byte{}, good...), null...)
	out, remainder := stripNullPackets(buf)

	assert.Equal(t, good, out)
	assert.Empty(t, remainder)
}

func TestStripNullPackets_KeepsPartialTail(t *testing.T) {
	good := make([]byte, tsPacketSize)
	good[0] = tsSyncByte
	partial := []byte{tsSyncByte, 0x00}

	buf := append(append([]byte{}, good...), partial...)
	out, remainder := stripNullPackets(buf)

	assert.Equal(t, good, out)
	assert.Equal(t, partial, remainder)
}
