package link

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/itohio/pseudobend/pkg/board/sim"
	"github.com/itohio/pseudobend/pkg/clock"
	"github.com/itohio/pseudobend/pkg/command"
	"github.com/itohio/pseudobend/pkg/config"
	"github.com/itohio/pseudobend/pkg/force"
	"github.com/itohio/pseudobend/pkg/haptics"
	"github.com/itohio/pseudobend/pkg/pulse"
	"github.com/itohio/pseudobend/pkg/store"
	"github.com/itohio/pseudobend/pkg/telemetry"
)

// Mock runs a simulated controller in process: two load cells pressed in
// anti-phase drive a real engine whose telemetry feeds Readings.
type Mock struct {
	cfg      *config.MockConfig
	settings haptics.Settings

	readings  chan telemetry.Reading
	input     chan string
	mu        sync.RWMutex
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	connected bool
	closed    bool // readings was closed by Close

	actuators [2]*sim.Actuator
}

// NewMock creates a simulated device. A nil cfg uses the config defaults.
func NewMock(cfg *config.MockConfig, s haptics.Settings) *Mock {
	if cfg == nil {
		cfg = &config.Default().Mock
	}

	return &Mock{
		cfg:       cfg,
		settings:  s,
		readings:  make(chan telemetry.Reading, DefaultBufferSize),
		input:     make(chan string, 8),
		actuators: [2]*sim.Actuator{sim.NewActuator(), sim.NewActuator()},
	}
}

// Connect starts the simulated controller.
func (m *Mock) Connect() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.connected {
		return fmt.Errorf("already connected")
	}

	clk := clock.NewSystem()
	half := m.cfg.Period / 2
	hw := haptics.Hardware{
		Clock: clk,
		Sensors: [2]force.Sensor{
			sim.NewPaced(sim.NewFuncSensor(sim.Press(clk, m.cfg.Period, m.cfg.Offset, m.cfg.Peak)), clk, m.cfg.SampleRate),
			sim.NewPaced(sim.NewFuncSensor(sim.Press(lagged{clk, half}, m.cfg.Period, m.cfg.Offset, m.cfg.Peak)), clk, m.cfg.SampleRate),
		},
		Actuators: [2]pulse.Actuator{m.actuators[0], m.actuators[1]},
		Store:     store.NewMem(),
	}

	e, err := haptics.New(hw, m.settings, telemetry.SinkFunc(m.deliver))
	if err != nil {
		return fmt.Errorf("mock engine: %w", err)
	}

	if m.closed {
		m.readings = make(chan telemetry.Reading, DefaultBufferSize)
		m.closed = false
	}

	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.connected = true

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		if err := e.Run(ctx, m.input); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("mock engine: %v", err)
		}
	}()

	return nil
}

// Close stops the simulated controller and closes Readings.
func (m *Mock) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.connected {
		return nil
	}

	m.cancel()
	m.wg.Wait()
	m.connected = false
	close(m.readings)
	m.closed = true

	return nil
}

// Readings returns the telemetry channel of the current connection. A
// reconnect after Close opens a new one.
func (m *Mock) Readings() <-chan telemetry.Reading {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.readings
}

// Send queues a command line for the simulated controller.
func (m *Mock) Send(line string) error {
	line = strings.TrimSpace(line)
	if _, err := command.Parse(line); err != nil {
		return err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if !m.connected {
		return fmt.Errorf("not connected")
	}

	select {
	case m.input <- line:
		return nil
	default:
		return fmt.Errorf("command queue full")
	}
}

// IsConnected returns whether the simulation is running.
func (m *Mock) IsConnected() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.connected
}

// Duty returns the last duty written to one simulated actuator.
func (m *Mock) Duty(side force.Side) uint8 {
	return m.actuators[side].Duty()
}

func (m *Mock) deliver(r telemetry.Reading) error {
	select {
	case m.readings <- r:
	default:
		// Channel full, skip
	}
	return nil
}

// lagged shifts a clock by d so the two hands press in turn.
type lagged struct {
	clock.Clock
	d time.Duration
}

func (l lagged) Micros() uint32 {
	return l.Clock.Micros() + uint32(l.d.Microseconds())
}
