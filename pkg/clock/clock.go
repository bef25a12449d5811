// Package clock provides the microsecond time base used by the control loop.
//
// Time is a free-running uint32 microsecond counter, the same shape as a
// microcontroller micros() register. Elapsed time is always computed with
// unsigned subtraction so the ~71 minute wraparound is harmless.
package clock

import "time"

// Clock is the time source of the control loop.
type Clock interface {
	// Micros returns the current counter value in microseconds.
	Micros() uint32
	// Sleep blocks for d. Calibration phases and retrigger guard
	// intervals are the only callers.
	Sleep(d time.Duration)
}

// Since returns the microseconds elapsed from start to now, wraparound-safe.
func Since(now, start uint32) uint32 {
	return now - start
}

// System is a Clock backed by the process monotonic clock.
type System struct {
	start time.Time
}

var _ Clock = (*System)(nil)

// NewSystem creates a System clock whose counter starts at zero.
func NewSystem() *System {
	return &System{start: time.Now()}
}

// Micros returns microseconds since the clock was created, truncated to 32 bits.
func (s *System) Micros() uint32 {
	return uint32(time.Since(s.start).Microseconds())
}

// Sleep blocks the calling goroutine for d.
func (s *System) Sleep(d time.Duration) {
	time.Sleep(d)
}

// Fake is a manually driven Clock for tests. Sleep advances the counter
// instead of blocking, so timed procedures complete instantly.
type Fake struct {
	now    uint32
	slept  time.Duration
	sleeps int
}

var _ Clock = (*Fake)(nil)

// NewFake creates a Fake clock starting at the given counter value.
func NewFake(start uint32) *Fake {
	return &Fake{now: start}
}

// Micros returns the current counter value.
func (f *Fake) Micros() uint32 {
	return f.now
}

// Sleep advances the counter by d.
func (f *Fake) Sleep(d time.Duration) {
	f.now += uint32(d.Microseconds())
	f.slept += d
	f.sleeps++
}

// Advance moves the counter forward by d without counting it as a sleep.
func (f *Fake) Advance(d time.Duration) {
	f.now += uint32(d.Microseconds())
}

// Set sets the counter to an absolute value.
func (f *Fake) Set(us uint32) {
	f.now = us
}

// Slept returns the total duration passed to Sleep.
func (f *Fake) Slept() time.Duration {
	return f.slept
}

// Sleeps returns the number of Sleep calls.
func (f *Fake) Sleeps() int {
	return f.sleeps
}
