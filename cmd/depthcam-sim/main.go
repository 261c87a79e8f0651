// depthcam-sim - synthetic capture daemon
//
// depthcam-sim renders the simulated sensor scene and streams it to a
// netstream group, standing in for a real capture daemon. Point a depthcam
// instance with sensor.backend: netstream at the same group to exercise the
// network path end to end.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/netip"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/nerrad567/depthcam-core/internal/infrastructure/config"
	"github.com/nerrad567/depthcam-core/internal/infrastructure/logging"
	"github.com/nerrad567/depthcam-core/internal/sensor"
	"github.com/nerrad567/depthcam-core/internal/sensor/netstream"
	"github.com/nerrad567/depthcam-core/internal/sensor/simulated"
	"github.com/nerrad567/depthcam-core/internal/source"
)

var version = "dev"

// options are the parsed command-line flags.
type options struct {
	group    netip.AddrPort
	fps      int
	streams  []sensor.Stream
	depthW   int
	depthH   int
	colorW   int
	colorH   int
	logLevel string
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	opts, err := parseFlags(os.Args[1:], os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	log := logging.New(config.LoggingConfig{Level: opts.logLevel, Format: "text", Output: "stderr"}, version)
	if err := run(ctx, opts, log); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func parseFlags(args []string, out io.Writer) (options, error) {
	fs := flag.NewFlagSet("depthcam-sim", flag.ContinueOnError)
	fs.SetOutput(out)

	group := fs.String("group", "239.0.0.77:5600", "destination group or address:port")
	streams := fs.String("streams", "depth,color,body", "comma-separated streams to send")
	fps := fs.Int("fps", 30, "frames per second")
	depthW := fs.Int("depth-width", 512, "depth frame width")
	depthH := fs.Int("depth-height", 424, "depth frame height")
	colorW := fs.Int("color-width", 960, "colour frame width")
	colorH := fs.Int("color-height", 540, "colour frame height")
	logLevel := fs.String("log-level", "info", "debug, info, warn or error")

	if err := fs.Parse(args); err != nil {
		return options{}, err
	}

	addr, err := netip.ParseAddrPort(*group)
	if err != nil {
		return options{}, fmt.Errorf("invalid -group: %w", err)
	}
	if *fps < 1 || *fps > 120 {
		return options{}, fmt.Errorf("-fps must be between 1 and 120")
	}

	opts := options{
		group:    addr,
		fps:      *fps,
		depthW:   *depthW,
		depthH:   *depthH,
		colorW:   *colorW,
		colorH:   *colorH,
		logLevel: *logLevel,
	}
	for _, name := range strings.Split(*streams, ",") {
		if strings.TrimSpace(name) == "" {
			continue
		}
		k, err := source.ParseKind(name)
		if err != nil {
			return options{}, fmt.Errorf("invalid -streams: %w", err)
		}
		opts.streams = append(opts.streams, k.Stream())
	}
	if len(opts.streams) == 0 {
		return options{}, fmt.Errorf("-streams must name at least one stream")
	}
	return opts, nil
}

// run opens the simulated sensor and streams until ctx is cancelled.
func run(ctx context.Context, opts options, log *logging.Logger) error {
	sdk := simulated.New(simulated.Config{
		FPS:         opts.fps,
		DepthWidth:  opts.depthW,
		DepthHeight: opts.depthH,
		ColorWidth:  opts.colorW,
		ColorHeight: opts.colorH,
	})
	native, err := sdk.DefaultSensor()
	if err != nil {
		return fmt.Errorf("finding simulated sensor: %w", err)
	}
	if err := native.Open(); err != nil {
		return fmt.Errorf("opening simulated sensor: %w", err)
	}
	defer native.Close()

	sender, err := netstream.NewSender(opts.group)
	if err != nil {
		return fmt.Errorf("creating sender: %w", err)
	}
	defer sender.Close()

	p, err := newPublisher(native, sender, opts.streams)
	if err != nil {
		return err
	}
	p.logger = log

	log.Info("streaming simulated frames",
		"group", opts.group,
		"fps", opts.fps,
		"streams", opts.streams,
	)
	sent := p.run(ctx, time.Second/time.Duration(opts.fps))
	log.Info("simulator stopped", "frames_sent", sent)
	return nil
}

// frameSender is the part of netstream.Sender the publisher uses.
type frameSender interface {
	Send(f *sensor.Frame) error
}

// publisher polls sensor readers and forwards every new frame.
type publisher struct {
	readers []sensor.Reader
	sender  frameSender
	logger  *logging.Logger
}

func newPublisher(native sensor.Native, sender frameSender, streams []sensor.Stream) (*publisher, error) {
	p := &publisher{sender: sender, logger: logging.Discard()}
	for _, s := range streams {
		r, err := native.OpenReader(s)
		if err != nil {
			p.close()
			return nil, fmt.Errorf("opening %s reader: %w", s, err)
		}
		p.readers = append(p.readers, r)
	}
	return p, nil
}

// pollOnce sends whatever frames are ready and returns how many were sent.
func (p *publisher) pollOnce() int {
	sent := 0
	for _, r := range p.readers {
		f, err := r.AcquireLatestFrame()
		if err != nil {
			if !errors.Is(err, sensor.ErrNoFrame) {
				p.logger.Warn("frame acquire failed", "error", err)
			}
			continue
		}
		if err := p.sender.Send(f); err != nil {
			p.logger.Warn("frame send failed", "stream", f.Stream, "error", err)
			continue
		}
		sent++
	}
	return sent
}

// run polls every period until ctx is cancelled and returns the frame count.
func (p *publisher) run(ctx context.Context, period time.Duration) int {
	defer p.close()

	ticker := time.NewTicker(period)
	defer ticker.Stop()

	total := 0
	for {
		select {
		case <-ctx.Done():
			return total
		case <-ticker.C:
			total += p.pollOnce()
		}
	}
}

func (p *publisher) close() {
	for _, r := range p.readers {
		r.Close()
	}
	p.readers = nil
}
