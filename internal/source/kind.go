package source

import (
	"fmt"
	"strings"

	"github.com/nerrad567/depthcam-core/internal/sensor"
)

// Kind is the closed set of source types a device supports.
type Kind uint8

// Source kinds, in the order the sensor exposes their streams.
const (
	KindDepth Kind = iota
	KindColor
	KindInfrared
	KindLongExposureInfrared
	KindBodyIndex
	KindBody
)

var kindStreams = [...]sensor.Stream{
	KindDepth:                sensor.StreamDepth,
	KindColor:                sensor.StreamColor,
	KindInfrared:             sensor.StreamInfrared,
	KindLongExposureInfrared: sensor.StreamLongExposureInfrared,
	KindBodyIndex:            sensor.StreamBodyIndex,
	KindBody:                 sensor.StreamBody,
}

// Kinds returns every kind in declaration order.
func Kinds() []Kind {
	return []Kind{KindDepth, KindColor, KindInfrared, KindLongExposureInfrared, KindBodyIndex, KindBody}
}

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	return int(k) < len(kindStreams)
}

// Stream returns the sensor stream the kind reads.
func (k Kind) Stream() sensor.Stream {
	return kindStreams[k]
}

// String returns the snake_case kind name, which matches the stream name.
func (k Kind) String() string {
	if !k.Valid() {
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
	return k.Stream().String()
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(b []byte) error {
	parsed, err := ParseKind(string(b))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// ParseKind parses a kind name. Case and hyphens are ignored, so
// "long-exposure-infrared" and "LONG_EXPOSURE_INFRARED" both parse.
func ParseKind(s string) (Kind, error) {
	norm := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_")
	for _, k := range Kinds() {
		if k.String() == norm {
			return k, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownKind, s)
}
