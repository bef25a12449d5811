// Package telemetry carries the filtered sensor values off the device.
//
// The wire format is one line per reading, "<left>,<right>\n", with both
// values truncated to integers.
package telemetry

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/itohio/pseudobend/pkg/clock"
)

// DefaultInterval is the minimum spacing between two readings.
const DefaultInterval = 30 * time.Millisecond

// Reading is one pair of filtered values.
type Reading struct {
	Timestamp time.Time
	Left      int32
	Right     int32
}

// NewReading truncates the filtered values the way they go on the wire.
func NewReading(ts time.Time, left, right float32) Reading {
	return Reading{Timestamp: ts, Left: int32(left), Right: int32(right)}
}

// Format renders r as a wire line, including the trailing newline.
func Format(r Reading) string {
	return strconv.FormatInt(int64(r.Left), 10) + "," + strconv.FormatInt(int64(r.Right), 10) + "\n"
}

// Parse parses a wire line. The timestamp is left zero; receivers stamp it.
func Parse(line string) (Reading, error) {
	line = strings.TrimSpace(line)
	parts := strings.Split(line, ",")
	if len(parts) != 2 {
		return Reading{}, fmt.Errorf("invalid line format: expected 2 comma-separated values, got %d", len(parts))
	}

	left, err := strconv.ParseInt(strings.TrimSpace(parts[0]), 10, 32)
	if err != nil {
		return Reading{}, fmt.Errorf("invalid left value: %w", err)
	}
	right, err := strconv.ParseInt(strings.TrimSpace(parts[1]), 10, 32)
	if err != nil {
		return Reading{}, fmt.Errorf("invalid right value: %w", err)
	}

	return Reading{Left: int32(left), Right: int32(right)}, nil
}

// Throttle lets an event through at most once per interval on the
// microsecond loop clock.
type Throttle struct {
	interval uint32
	last     uint32
	primed   bool
}

// NewThrottle creates a Throttle. A non-positive interval uses DefaultInterval.
func NewThrottle(interval time.Duration) *Throttle {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Throttle{interval: uint32(interval.Microseconds())}
}

// Allow reports whether an event may be emitted at now and, if so, records it.
func (t *Throttle) Allow(now uint32) bool {
	if t.primed && clock.Since(now, t.last) < t.interval {
		return false
	}
	t.last = now
	t.primed = true
	return true
}

// Reset makes the next Allow succeed.
func (t *Throttle) Reset() {
	t.primed = false
}
