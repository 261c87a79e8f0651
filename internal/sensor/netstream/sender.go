package netstream

import (
	"fmt"
	"net"
	"net/netip"

	"github.com/klauspost/compress/zstd"

	"github.com/nerrad567/depthcam-core/internal/sensor"
)

// Sender publishes frames to a receive group. It is used by capture daemons
// and by the simulator binary.
//
// Thread Safety: a Sender must not be used from more than one goroutine.
type Sender struct {
	conn    *net.UDPConn
	encoder *zstd.Encoder
	buf     []byte

	seq map[sensor.Stream]uint32
}

// NewSender dials addr and prepares the chunk encoder.
//
// Parameters:
//   - addr: destination group or unicast address
//
// Returns:
//   - *Sender: ready to Send
//   - error: if the socket or encoder cannot be created
func NewSender(addr netip.AddrPort) (*Sender, error) {
	if !addr.IsValid() {
		return nil, ErrNoGroup
	}

	conn, err := net.DialUDP("udp", nil, net.UDPAddrFromAddrPort(addr))
	if err != nil {
		return nil, fmt.Errorf("dialling %s: %w", addr, err)
	}

	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("creating encoder: %w", err)
	}

	return &Sender{
		conn:    conn,
		encoder: encoder,
		buf:     make([]byte, 0, maxDatagram),
		seq:     make(map[sensor.Stream]uint32),
	}, nil
}

// Send transmits one frame. A zero Sequence is replaced by the next
// per-stream sequence number.
func (s *Sender) Send(f *sensor.Frame) error {
	payload, err := encodePayload(f)
	if err != nil {
		return err
	}

	seq := uint32(f.Sequence)
	if seq == 0 {
		seq = s.seq[f.Stream] + 1
	}
	s.seq[f.Stream] = seq

	chunks := splitChunks(payload)
	h := header{
		stream: f.Stream,
		chunks: uint16(len(chunks)),
		seq:    seq,
		width:  uint16(f.Width),
		height: uint16(f.Height),
		ts:     uint64(f.Timestamp.Microseconds()),
	}

	for i, chunk := range chunks {
		h.chunk = uint16(i)
		b := s.buf[:headerSize]
		h.marshal(b)
		b = s.encoder.EncodeAll(chunk, b)
		if len(b) > maxDatagram {
			return fmt.Errorf("%w: chunk %d compresses to %d bytes", ErrBadDatagram, i, len(b))
		}
		if _, err := s.conn.Write(b); err != nil {
			return fmt.Errorf("sending chunk %d of %s frame %d: %w", i, f.Stream, seq, err)
		}
	}
	return nil
}

// Close releases the socket and encoder.
func (s *Sender) Close() error {
	s.encoder.Close()
	return s.conn.Close()
}
