// Package netstream is a sensor SDK that receives frames from a capture
// daemon over UDP. Each frame is split into chunks, compressed with zstd and
// sent as one datagram per chunk, usually to a multicast group.
//
// Receiving is poll driven: every AcquireLatestFrame drains whatever
// datagrams are already queued on the socket within a short read budget and
// never starts a goroutine.
package netstream

import (
	"errors"
	"fmt"
	"net"
	"net/netip"
	"os"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/nerrad567/depthcam-core/internal/sensor"
)

const (
	defaultPollBudget = time.Millisecond
	socketReadBuffer  = 4 << 20
)

// Config configures the receiver.
type Config struct {
	// Group is the address to listen on. Multicast addresses join the
	// group; unicast addresses bind directly.
	Group netip.AddrPort
	// Interface optionally names the NIC for multicast.
	Interface string
	// Calibration describes the remote cameras.
	Calibration sensor.Calibration
	// PollBudget bounds how long one poll may spend reading the socket.
	PollBudget time.Duration
}

// SDK implements sensor.SDK for network streams.
type SDK struct {
	cfg Config
}

// New creates a network SDK.
func New(cfg Config) *SDK {
	if cfg.PollBudget <= 0 {
		cfg.PollBudget = defaultPollBudget
	}
	if cfg.Calibration.Depth.Width == 0 {
		cfg.Calibration = sensor.DefaultCalibration()
	}
	return &SDK{cfg: cfg}
}

// DefaultSensor implements sensor.SDK.
func (s *SDK) DefaultSensor() (sensor.Native, error) {
	if !s.cfg.Group.IsValid() {
		return nil, ErrNoGroup
	}
	return &Device{cfg: s.cfg}, nil
}

// Device is a network sensor.Native.
type Device struct {
	cfg     Config
	conn    *net.UDPConn
	decoder *zstd.Decoder
	buf     []byte

	pending map[sensor.Stream]*assembly
	latest  map[sensor.Stream]*sensor.Frame
	newest  map[sensor.Stream]uint32
	// epoch counts sender restarts per stream so readers can forget the
	// old numbering.
	epoch map[sensor.Stream]uint64

	// Dropped counts datagrams that failed to parse or decompress.
	Dropped uint64
}

// Open implements sensor.Native.
func (d *Device) Open() error {
	if d.conn != nil {
		return nil
	}

	conn, err := d.listen()
	if err != nil {
		return fmt.Errorf("could not listen on %s: %w", d.cfg.Group, err)
	}
	_ = conn.SetReadBuffer(socketReadBuffer) //nolint:errcheck // best effort, kernel may cap it

	decoder, err := zstd.NewReader(nil,
		zstd.WithDecoderConcurrency(1),
		zstd.WithDecoderMaxMemory(chunkSize),
	)
	if err != nil {
		conn.Close()
		return fmt.Errorf("could not create decoder: %w", err)
	}

	d.conn = conn
	d.decoder = decoder
	d.buf = make([]byte, maxDatagram)
	d.pending = make(map[sensor.Stream]*assembly)
	d.latest = make(map[sensor.Stream]*sensor.Frame)
	d.newest = make(map[sensor.Stream]uint32)
	d.epoch = make(map[sensor.Stream]uint64)
	return nil
}

func (d *Device) listen() (*net.UDPConn, error) {
	addr := net.UDPAddrFromAddrPort(d.cfg.Group)
	if !d.cfg.Group.Addr().IsMulticast() {
		return net.ListenUDP("udp", addr)
	}

	var ifi *net.Interface
	if d.cfg.Interface != "" {
		var err error
		if ifi, err = net.InterfaceByName(d.cfg.Interface); err != nil {
			return nil, fmt.Errorf("looking up interface: %w", err)
		}
	}
	network := "udp4"
	if d.cfg.Group.Addr().Is6() {
		network = "udp6"
	}
	return net.ListenMulticastUDP(network, ifi, addr)
}

// Close implements sensor.Native.
func (d *Device) Close() error {
	if d.conn == nil {
		return nil
	}
	d.decoder.Close()
	err := d.conn.Close()
	d.conn = nil
	d.latest = nil
	d.pending = nil
	d.newest = nil
	return err
}

// IsOpen implements sensor.Native.
func (d *Device) IsOpen() (bool, error) {
	return d.conn != nil, nil
}

// Calibration implements sensor.Native.
func (d *Device) Calibration() sensor.Calibration {
	return d.cfg.Calibration
}

// LocalAddr returns the bound socket address, or nil when closed.
func (d *Device) LocalAddr() net.Addr {
	if d.conn == nil {
		return nil
	}
	return d.conn.LocalAddr()
}

// OpenReader implements sensor.Native.
func (d *Device) OpenReader(s sensor.Stream) (sensor.Reader, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("%w: %d", sensor.ErrUnknownStream, s)
	}
	if d.conn == nil {
		return nil, sensor.ErrNotOpen
	}
	return &reader{dev: d, stream: s, epoch: d.epoch[s]}, nil
}

// pump drains queued datagrams into frame assemblies.
func (d *Device) pump() error {
	if err := d.conn.SetReadDeadline(time.Now().Add(d.cfg.PollBudget)); err != nil {
		return fmt.Errorf("setting read deadline: %w", err)
	}
	for {
		n, err := d.conn.Read(d.buf)
		if err != nil {
			if errors.Is(err, os.ErrDeadlineExceeded) {
				return nil
			}
			return fmt.Errorf("reading datagram: %w", err)
		}
		if err := d.handle(d.buf[:n]); err != nil {
			d.Dropped++
		}
	}
}

// handle processes one datagram.
func (d *Device) handle(b []byte) error {
	h, err := parseHeader(b)
	if err != nil {
		return err
	}

	data, err := d.decoder.DecodeAll(b[headerSize:], nil)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBadDatagram, err)
	}
	if len(data) > chunkSize {
		return fmt.Errorf("%w: chunk decodes to %d bytes", ErrBadDatagram, len(data))
	}

	newest, seen := d.newest[h.stream]
	switch {
	case seen && restarted(h.seq, newest):
		delete(d.pending, h.stream)
		delete(d.latest, h.stream)
		d.epoch[h.stream]++
		d.newest[h.stream] = h.seq
	case !seen || h.seq > newest:
		d.newest[h.stream] = h.seq
	}

	asm := d.pending[h.stream]
	switch {
	case asm == nil || h.seq > asm.head.seq:
		// a newer frame supersedes any partial one
		asm = newAssembly(h)
		d.pending[h.stream] = asm
	case h.seq < asm.head.seq:
		return nil
	case h.chunks != asm.head.chunks:
		return fmt.Errorf("%w: chunk count changed mid-frame", ErrBadDatagram)
	}

	if !asm.add(h.chunk, data) {
		return nil
	}

	delete(d.pending, h.stream)
	f, err := decodePayload(asm.head, asm.bytes())
	if err != nil {
		return err
	}
	if cur := d.latest[h.stream]; cur != nil && cur.Sequence > f.Sequence {
		return nil
	}
	d.latest[h.stream] = f
	return nil
}

// reader hands out the newest complete frame for one stream.
type reader struct {
	dev    *Device
	stream sensor.Stream
	last   uint64
	epoch  uint64
	closed bool
}

func (r *reader) AcquireLatestFrame() (*sensor.Frame, error) {
	if r.closed || r.dev.conn == nil {
		return nil, sensor.ErrNotOpen
	}
	if err := r.dev.pump(); err != nil {
		return nil, err
	}
	if e := r.dev.epoch[r.stream]; e != r.epoch {
		r.epoch = e
		r.last = 0
	}
	f := r.dev.latest[r.stream]
	if f == nil || f.Sequence <= r.last {
		return nil, sensor.ErrNoFrame
	}
	r.last = f.Sequence
	return f, nil
}

func (r *reader) Close() error {
	r.closed = true
	return nil
}
