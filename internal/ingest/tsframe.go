package ingest

// MPEG-TS packet framing constants (ISO/IEC 13818-1).
const (
	tsPacketSize  = 188
	tsSyncByte    = 0x47
	tsNullPID     = 0x1FFF
)

// stripNullPackets scans a buffer of back-to-back 188-byte MPEG-TS
// packets and drops null (padding) packets, so the decoder never has to
// spend cycles on them. Bytes that don't align to a full packet at the
// end of the buffer are left for the caller to prepend to the next read.
//
// The Comcast/gots parser targets file-oriented demuxing (PAT/PMT walks,
// PES reassembly) that this pipeline doesn't need; pulling it in just for
// a sync-byte/PID check would mean trusting an unfamiliar API surface
// with no way to compile-check it, so the well-documented fixed packet
// layout is applied directly instead.
func stripNullPackets(buf []byte) (out []byte, remainder []byte) {
	out = make([]byte, 0, len(buf))
	i := 0
	for ; i+tsPacketSize <= len(buf); i += tsPacketSize {
		pkt := buf[i : i+tsPacketSize]
		if pkt[0] != tsSyncByte {
			continue
		}
		pid := (int(pkt[1]&0x1f) << 8) | int(pkt[2])
		if pid == tsNullPID {
			continue
		}
		out = append(out, pkt...)
	}
	return out, buf[i:]
}
