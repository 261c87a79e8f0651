package netstream

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nerrad567/depthcam-core/internal/sensor"
)

// Wire format, little endian. Each datagram carries one zstd-compressed
// chunk of one frame:
//
//	magic   [4]byte "DCS1"
//	stream  uint8
//	flags   uint8   (reserved, zero)
//	chunks  uint16  total chunks in the frame
//	seq     uint32  frame sequence, per stream
//	chunk   uint16  index of this chunk
//	width   uint16
//	height  uint16
//	ts      uint64  microseconds since stream start
//	payload []byte  zstd frame
const (
	magic      = "DCS1"
	headerSize = 26

	// chunkSize is the uncompressed bytes per chunk. Compressed output of an
	// incompressible chunk stays below the UDP datagram limit.
	chunkSize = 48 * 1024

	maxDatagram = 65507

	// maxFramePixels bounds the frame size a header may announce.
	maxFramePixels = 4096 * 4096
	// maxBodyPayload bounds the JSON of one body-stream frame.
	maxBodyPayload = 1 << 20

	// reorderWindow is how far a sequence may fall behind the newest one
	// seen and still count as a late datagram. A larger step back means the
	// sender restarted its numbering.
	reorderWindow = 16
)

var (
	// ErrBadDatagram is returned for datagrams that do not parse.
	ErrBadDatagram = errors.New("netstream: malformed datagram")

	// ErrNoGroup is returned when no receive address is configured.
	ErrNoGroup = errors.New("netstream: no group address configured")
)

type header struct {
	stream sensor.Stream
	chunks uint16
	seq    uint32
	chunk  uint16
	width  uint16
	height uint16
	ts     uint64
}

func (h header) marshal(b []byte) {
	copy(b[0:4], magic)
	b[4] = byte(h.stream)
	b[5] = 0
	binary.LittleEndian.PutUint16(b[6:8], h.chunks)
	binary.LittleEndian.PutUint32(b[8:12], h.seq)
	binary.LittleEndian.PutUint16(b[12:14], h.chunk)
	binary.LittleEndian.PutUint16(b[14:16], h.width)
	binary.LittleEndian.PutUint16(b[16:18], h.height)
	binary.LittleEndian.PutUint64(b[18:26], h.ts)
}

func parseHeader(b []byte) (header, error) {
	if len(b) < headerSize || string(b[0:4]) != magic {
		return header{}, ErrBadDatagram
	}
	h := header{
		stream: sensor.Stream(b[4]),
		chunks: binary.LittleEndian.Uint16(b[6:8]),
		seq:    binary.LittleEndian.Uint32(b[8:12]),
		chunk:  binary.LittleEndian.Uint16(b[12:14]),
		width:  binary.LittleEndian.Uint16(b[14:16]),
		height: binary.LittleEndian.Uint16(b[16:18]),
		ts:     binary.LittleEndian.Uint64(b[18:26]),
	}
	if !h.stream.Valid() {
		return header{}, fmt.Errorf("%w: stream %d", ErrBadDatagram, b[4])
	}
	if h.chunks == 0 || h.chunk >= h.chunks {
		return header{}, fmt.Errorf("%w: chunk %d of %d", ErrBadDatagram, h.chunk, h.chunks)
	}
	if px := int(h.width) * int(h.height); px > maxFramePixels {
		return header{}, fmt.Errorf("%w: %dx%d frame", ErrBadDatagram, h.width, h.height)
	}
	if limit := maxChunks(h); int(h.chunks) > limit {
		return header{}, fmt.Errorf("%w: %d chunks for a %dx%d %s frame, at most %d",
			ErrBadDatagram, h.chunks, h.width, h.height, h.stream, limit)
	}
	return h, nil
}

// maxChunks is the chunk count a frame of h's stream and size can need.
func maxChunks(h header) int {
	px := int(h.width) * int(h.height)
	var n int
	switch h.stream {
	case sensor.StreamDepth, sensor.StreamInfrared, sensor.StreamLongExposureInfrared:
		n = px * 2
	case sensor.StreamColor:
		n = px * 4
	case sensor.StreamBodyIndex:
		n = px
	case sensor.StreamBody:
		n = maxBodyPayload
	}
	return max(1, (n+chunkSize-1)/chunkSize)
}

// restarted reports whether seq steps back from newest far enough to be a
// restarted sender rather than a reordered datagram.
func restarted(seq, newest uint32) bool {
	return seq < newest && newest-seq > reorderWindow
}

// bodyPayload is the JSON body of a body-stream frame.
type bodyPayload struct {
	Bodies []sensor.Body `json:"bodies"`
	Floor  [4]float64    `json:"floor_clip_plane"`
}

// encodePayload serialises a frame's payload for its stream.
func encodePayload(f *sensor.Frame) ([]byte, error) {
	switch f.Stream {
	case sensor.StreamDepth, sensor.StreamInfrared, sensor.StreamLongExposureInfrared:
		out := make([]byte, len(f.Samples)*2)
		for i, v := range f.Samples {
			binary.LittleEndian.PutUint16(out[i*2:], v)
		}
		return out, nil
	case sensor.StreamColor, sensor.StreamBodyIndex:
		return f.Pixels, nil
	case sensor.StreamBody:
		b, err := json.Marshal(bodyPayload{Bodies: f.Bodies, Floor: f.FloorClipPlane})
		if err != nil {
			return nil, fmt.Errorf("marshalling bodies: %w", err)
		}
		return b, nil
	default:
		return nil, fmt.Errorf("%w: %d", sensor.ErrUnknownStream, f.Stream)
	}
}

// decodePayload is the inverse of encodePayload.
func decodePayload(h header, raw []byte) (*sensor.Frame, error) {
	f := &sensor.Frame{
		Stream:    h.stream,
		Sequence:  uint64(h.seq),
		Timestamp: time.Duration(h.ts) * time.Microsecond,
		Width:     int(h.width),
		Height:    int(h.height),
	}
	pixels := f.Width * f.Height

	switch h.stream {
	case sensor.StreamDepth, sensor.StreamInfrared, sensor.StreamLongExposureInfrared:
		if len(raw) != pixels*2 {
			return nil, fmt.Errorf("%w: %s payload %d bytes, want %d", ErrBadDatagram, h.stream, len(raw), pixels*2)
		}
		f.Samples = make([]uint16, pixels)
		for i := range f.Samples {
			f.Samples[i] = binary.LittleEndian.Uint16(raw[i*2:])
		}
	case sensor.StreamColor:
		if len(raw) != pixels*4 {
			return nil, fmt.Errorf("%w: color payload %d bytes, want %d", ErrBadDatagram, len(raw), pixels*4)
		}
		f.Pixels = raw
	case sensor.StreamBodyIndex:
		if len(raw) != pixels {
			return nil, fmt.Errorf("%w: body index payload %d bytes, want %d", ErrBadDatagram, len(raw), pixels)
		}
		f.Pixels = raw
	case sensor.StreamBody:
		var p bodyPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrBadDatagram, err)
		}
		f.Bodies = p.Bodies
		f.FloorClipPlane = p.Floor
	}
	return f, nil
}

// splitChunks cuts payload into chunkSize pieces. An empty payload is one
// empty chunk.
func splitChunks(payload []byte) [][]byte {
	if len(payload) == 0 {
		return [][]byte{nil}
	}
	var chunks [][]byte
	for off := 0; off < len(payload); off += chunkSize {
		end := off + chunkSize
		if end > len(payload) {
			end = len(payload)
		}
		chunks = append(chunks, payload[off:end])
	}
	return chunks
}

// assembly collects the chunks of one in-flight frame.
type assembly struct {
	head     header
	parts    [][]byte
	received int
}

func newAssembly(h header) *assembly {
	return &assembly{head: h, parts: make([][]byte, h.chunks)}
}

// add stores a decompressed chunk and reports whether the frame is complete.
func (a *assembly) add(index uint16, data []byte) bool {
	if a.parts[index] == nil {
		a.received++
	}
	if data == nil {
		data = []byte{}
	}
	a.parts[index] = data
	return a.received == len(a.parts)
}

func (a *assembly) bytes() []byte {
	n := 0
	for _, p := range a.parts {
		n += len(p)
	}
	out := make([]byte, 0, n)
	for _, p := range a.parts {
		out = append(out, p...)
	}
	return out
}
