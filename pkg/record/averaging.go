package record

import (
	"github.com/itohio/pseudobend/pkg/force"
	"github.com/itohio/pseudobend/pkg/telemetry"
)

// Converter transforms a stream of readings.
type Converter func(in <-chan telemetry.Reading) <-chan telemetry.Reading

// NewAveraging creates a converter that replaces every reading with the
// mean of the last windowSize readings. The output closes when in closes.
func NewAveraging(windowSize int, bufSize int) Converter {
	if windowSize <= 0 {
		windowSize = 1 // No averaging if invalid
	}
	if bufSize <= 0 {
		bufSize = 100
	}

	return func(in <-chan telemetry.Reading) <-chan telemetry.Reading {
		out := make(chan telemetry.Reading, bufSize)

		go func() {
			defer close(out)

			var buffer []telemetry.Reading
			for r := range in {
				buffer = append(buffer, r)
				if len(buffer) > windowSize {
					buffer = buffer[1:] // Remove oldest
				}
				out <- average(buffer)
			}
		}()

		return out
	}
}

// average rounds the mean of each side to the nearest count and keeps the
// newest timestamp.
func average(rs []telemetry.Reading) telemetry.Reading {
	if len(rs) == 0 {
		return telemetry.Reading{}
	}

	var sumL, sumR int64
	for _, r := range rs {
		sumL += int64(r.Left)
		sumR += int64(r.Right)
	}

	n := int64(len(rs))
	return telemetry.Reading{
		Timestamp: rs[len(rs)-1].Timestamp,
		Left:      int32(roundDiv(sumL, n)),
		Right:     int32(roundDiv(sumR, n)),
	}
}

func roundDiv(a, n int64) int64 {
	if a < 0 {
		return -((-a + n/2) / n)
	}
	return (a + n/2) / n
}

// Summary accumulates per-side statistics of a session, indexed by force.Side.
type Summary struct {
	Count int
	Peak  [2]int32
	sum   [2]int64
}

// Add includes r in the summary.
func (s *Summary) Add(r telemetry.Reading) {
	vals := [2]int32{r.Left, r.Right}
	for i, v := range vals {
		if s.Count == 0 || v > s.Peak[i] {
			s.Peak[i] = v
		}
		s.sum[i] += int64(v)
	}
	s.Count++
}

// Mean returns the mean value of one side, 0 for an empty session.
func (s *Summary) Mean(side force.Side) float64 {
	if s.Count == 0 {
		return 0
	}
	return float64(s.sum[side]) / float64(s.Count)
}
