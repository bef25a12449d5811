package telemetry

import (
	"errors"
	"fmt"
	"io"
	"sync"
)

// Sink receives readings.
type Sink interface {
	Send(r Reading) error
}

// LineSink writes readings in the wire format.
type LineSink struct {
	mu sync.Mutex
	w  io.Writer
}

var _ Sink = (*LineSink)(nil)

// NewLineSink creates a LineSink writing to w.
func NewLineSink(w io.Writer) *LineSink {
	return &LineSink{w: w}
}

// Send writes one line.
func (s *LineSink) Send(r Reading) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := io.WriteString(s.w, Format(r)); err != nil {
		return fmt.Errorf("write reading: %w", err)
	}
	return nil
}

// Multi fans a reading out to several sinks. Every sink is tried; the
// errors are joined.
type Multi []Sink

// Send forwards r to every sink.
func (m Multi) Send(r Reading) error {
	var errs []error
	for _, s := range m {
		if s == nil {
			continue
		}
		if err := s.Send(r); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// SinkFunc adapts a function to a Sink.
type SinkFunc func(r Reading) error

// Send calls f(r).
func (f SinkFunc) Send(r Reading) error { return f(r) }
