package netstream

import (
	"net"
	"net/netip"
	"testing"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nerrad567/depthcam-core/internal/sensor"
	"github.com/nerrad567/depthcam-core/internal/sensor/sensortest"
)

// openLoopback opens a receiver on an ephemeral loopback port and a sender
// pointed at it.
func openLoopback(t *testing.T) (*Device, *Sender) {
	t.Helper()

	sdk := New(Config{Group: netip.MustParseAddrPort("127.0.0.1:0")})
	native, err := sdk.DefaultSensor()
	require.NoError(t, err)
	require.NoError(t, native.Open())
	dev := native.(*Device)
	t.Cleanup(func() { dev.Close() })

	addr := dev.LocalAddr().(*net.UDPAddr).AddrPort()
	sender, err := NewSender(addr)
	require.NoError(t, err)
	t.Cleanup(func() { sender.Close() })

	return dev, sender
}

// poll reads until a frame arrives or the deadline passes.
func poll(t *testing.T, r sensor.Reader) *sensor.Frame {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		f, err := r.AcquireLatestFrame()
		if err == nil {
			return f
		}
		require.ErrorIs(t, err, sensor.ErrNoFrame)
	}
	t.Fatal("no frame received")
	return nil
}

func TestSDK_NoGroup(t *testing.T) {
	_, err := New(Config{}).DefaultSensor()
	assert.ErrorIs(t, err, ErrNoGroup)

	_, err = NewSender(netip.AddrPort{})
	assert.ErrorIs(t, err, ErrNoGroup)
}

func TestLoopback_DepthFrame(t *testing.T) {
	dev, sender := openLoopback(t)

	r, err := dev.OpenReader(sensor.StreamDepth)
	require.NoError(t, err)

	// 512x424 depth spans several chunks
	in := sensortest.DepthFrame(512, 424, 2100)
	in.Samples[0] = 1
	require.NoError(t, sender.Send(in))

	got := poll(t, r)
	assert.Equal(t, uint64(1), got.Sequence)
	assert.Equal(t, 512, got.Width)
	assert.Equal(t, 424, got.Height)
	assert.Equal(t, in.Samples, got.Samples)

	_, err = r.AcquireLatestFrame()
	assert.ErrorIs(t, err, sensor.ErrNoFrame, "a frame is handed out once")
}

func TestLoopback_StreamsAreIndependent(t *testing.T) {
	dev, sender := openLoopback(t)

	body, err := dev.OpenReader(sensor.StreamBody)
	require.NoError(t, err)
	color, err := dev.OpenReader(sensor.StreamColor)
	require.NoError(t, err)

	require.NoError(t, sender.Send(sensortest.BodyFrame()))
	require.NoError(t, sender.Send(sensortest.ColorFrame(8, 8, 1, 2, 3)))

	b := poll(t, body)
	require.Len(t, b.Bodies, 1)
	assert.Equal(t, [4]float64{0, 1, 0, 1}, b.FloorClipPlane)

	c := poll(t, color)
	assert.Equal(t, byte(1), c.Pixels[0])
}

func TestDevice_DropsGarbage(t *testing.T) {
	dev, _ := openLoopback(t)
	assert.Error(t, dev.handle([]byte("not a frame")))

	b := make([]byte, headerSize, headerSize+4)
	header{stream: sensor.StreamDepth, chunks: 1, seq: 1}.marshal(b)
	b = append(b, 1, 2, 3, 4)
	assert.ErrorIs(t, dev.handle(b), ErrBadDatagram, "payload is not zstd")
}

func TestDevice_ClosedReader(t *testing.T) {
	dev, _ := openLoopback(t)
	r, err := dev.OpenReader(sensor.StreamDepth)
	require.NoError(t, err)

	require.NoError(t, dev.Close())
	_, err = r.AcquireLatestFrame()
	assert.ErrorIs(t, err, sensor.ErrNotOpen)

	_, err = dev.OpenReader(sensor.StreamDepth)
	assert.ErrorIs(t, err, sensor.ErrNotOpen)
}

// datagrams encodes f as the datagrams a Sender would emit with seq.
func datagrams(t *testing.T, f *sensor.Frame, seq uint32) [][]byte {
	t.Helper()
	payload, err := encodePayload(f)
	require.NoError(t, err)
	chunks := splitChunks(payload)

	h := header{
		stream: f.Stream,
		chunks: uint16(len(chunks)),
		seq:    seq,
		width:  uint16(f.Width),
		height: uint16(f.Height),
	}
	out := make([][]byte, len(chunks))
	for i, c := range chunks {
		h.chunk = uint16(i)
		out[i] = rawDatagram(t, h, c)
	}
	return out
}

// rawDatagram encodes one chunk under h without any size checks.
func rawDatagram(t *testing.T, h header, chunk []byte) []byte {
	t.Helper()
	enc, err := zstd.NewWriter(nil)
	require.NoError(t, err)
	defer enc.Close()

	b := make([]byte, headerSize)
	h.marshal(b)
	return enc.EncodeAll(chunk, b)
}

func feed(t *testing.T, dev *Device, f *sensor.Frame, seq uint32) {
	t.Helper()
	for _, b := range datagrams(t, f, seq) {
		require.NoError(t, dev.handle(b))
	}
}

func TestDevice_RejectsOversizedDatagrams(t *testing.T) {
	tests := []struct {
		name  string
		h     header
		chunk []byte
	}{
		{
			name:  "chunk decodes past chunk size",
			h:     header{stream: sensor.StreamDepth, chunks: 1, seq: 1, width: 4, height: 3},
			chunk: make([]byte, 4*chunkSize),
		},
		{
			name:  "more chunks than the frame needs",
			h:     header{stream: sensor.StreamDepth, chunks: 500, seq: 1, width: 4, height: 3},
			chunk: make([]byte, 24),
		},
		{
			name:  "frame larger than any sensor",
			h:     header{stream: sensor.StreamColor, chunks: 1, seq: 1, width: 8192, height: 8192},
			chunk: make([]byte, 16),
		},
		{
			name:  "body payload over limit",
			h:     header{stream: sensor.StreamBody, chunks: 1000, seq: 1},
			chunk: []byte("{}"),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dev, _ := openLoopback(t)
			err := dev.handle(rawDatagram(t, tt.h, tt.chunk))
			assert.ErrorIs(t, err, ErrBadDatagram)
			assert.Empty(t, dev.pending, "nothing is kept for a rejected datagram")
		})
	}
}

func TestDevice_OversizedDatagramCountedAsDropped(t *testing.T) {
	dev, _ := openLoopback(t)
	r, err := dev.OpenReader(sensor.StreamDepth)
	require.NoError(t, err)

	conn, err := net.DialUDP("udp", nil, dev.LocalAddr().(*net.UDPAddr))
	require.NoError(t, err)
	defer conn.Close()
	bomb := rawDatagram(t, header{stream: sensor.StreamDepth, chunks: 1, seq: 1, width: 4, height: 3}, make([]byte, 1<<20))
	_, err = conn.Write(bomb)
	require.NoError(t, err)

	deadline := time.Now().Add(2 * time.Second)
	for dev.Dropped == 0 && time.Now().Before(deadline) {
		_, err := r.AcquireLatestFrame()
		require.ErrorIs(t, err, sensor.ErrNoFrame)
	}
	assert.Equal(t, uint64(1), dev.Dropped)
}

func TestDevice_SequenceRestart(t *testing.T) {
	dev, _ := openLoopback(t)
	r, err := dev.OpenReader(sensor.StreamDepth)
	require.NoError(t, err)

	small := sensortest.DepthFrame(4, 3, 1500)
	for seq := uint32(1); seq <= 50; seq++ {
		feed(t, dev, small, seq)
	}
	f, err := r.AcquireLatestFrame()
	require.NoError(t, err)
	assert.Equal(t, uint64(50), f.Sequence)

	// a late datagram inside the reorder window is not a restart
	feed(t, dev, small, 48)
	_, err = r.AcquireLatestFrame()
	assert.ErrorIs(t, err, sensor.ErrNoFrame)

	// the old sender dies halfway through a two-chunk frame
	big := datagrams(t, sensortest.DepthFrame(256, 128, 1500), 60)
	require.Len(t, big, 2)
	require.NoError(t, dev.handle(big[0]))
	require.Contains(t, dev.pending, sensor.StreamDepth)

	// the restarted sender numbers from 1 again
	feed(t, dev, small, 1)
	f, err = r.AcquireLatestFrame()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), f.Sequence)
	assert.NotContains(t, dev.pending, sensor.StreamDepth, "stale partial frame dropped")

	feed(t, dev, small, 2)
	f, err = r.AcquireLatestFrame()
	require.NoError(t, err)
	assert.Equal(t, uint64(2), f.Sequence)

	// a reader opened after the restart starts from the new numbering
	late, err := dev.OpenReader(sensor.StreamDepth)
	require.NoError(t, err)
	feed(t, dev, small, 3)
	f, err = late.AcquireLatestFrame()
	require.NoError(t, err)
	assert.Equal(t, uint64(3), f.Sequence)
}

func TestDevice_LateFrameDoesNotReplaceNewer(t *testing.T) {
	dev, _ := openLoopback(t)
	r, err := dev.OpenReader(sensor.StreamDepth)
	require.NoError(t, err)

	feed(t, dev, sensortest.DepthFrame(4, 3, 2000), 10)
	feed(t, dev, sensortest.DepthFrame(4, 3, 1000), 9)

	f, err := r.AcquireLatestFrame()
	require.NoError(t, err)
	assert.Equal(t, uint64(10), f.Sequence)
	assert.Equal(t, uint16(2000), f.Samples[0])
}

// TestLoopback_SenderRestart replaces the sender mid-stream, as happens
// when a supervised capture daemon is restarted.
func TestLoopback_SenderRestart(t *testing.T) {
	dev, first := openLoopback(t)
	r, err := dev.OpenReader(sensor.StreamDepth)
	require.NoError(t, err)

	for i := 0; i < 40; i++ {
		require.NoError(t, first.Send(sensortest.DepthFrame(4, 3, 1200)))
	}
	deadline := time.Now().Add(2 * time.Second)
	var seq uint64
	for seq < 40 && time.Now().Before(deadline) {
		if f, err := r.AcquireLatestFrame(); err == nil {
			seq = f.Sequence
		}
	}
	require.Equal(t, uint64(40), seq)

	second, err := NewSender(dev.LocalAddr().(*net.UDPAddr).AddrPort())
	require.NoError(t, err)
	defer second.Close()
	for i := 0; i < 5; i++ {
		require.NoError(t, second.Send(sensortest.DepthFrame(4, 3, 1200)))
	}

	f := poll(t, r)
	assert.LessOrEqual(t, f.Sequence, uint64(5), "frames from the restarted sender are delivered")
}
