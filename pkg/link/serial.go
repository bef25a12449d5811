// Package link talks to a pseudobend controller over its serial console.
package link

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"strings"
	"sync"
	"time"

	"go.bug.st/serial"

	"github.com/itohio/pseudobend/pkg/command"
	"github.com/itohio/pseudobend/pkg/telemetry"
)

const (
	// DefaultBaudRate matches the controller firmware.
	DefaultBaudRate = 115200
	// DefaultBufferSize is the default size for the readings channel buffer.
	DefaultBufferSize = 100
)

// Port represents a serial port.
type Port struct {
	Name        string
	Description string
}

// Serial is a connection to the controller.
type Serial struct {
	port     string
	baudRate int
	bufSize  int

	conn      io.ReadWriteCloser
	readings  chan telemetry.Reading
	mu        sync.RWMutex
	ctx       context.Context
	cancel    context.CancelFunc
	done      chan struct{}
	connected bool

	open func(name string, baud int) (io.ReadWriteCloser, error)
}

// New creates a Serial for port. Zero baud rate and buffer size use the defaults.
func New(port string, baudRate int, bufSize int) *Serial {
	if baudRate == 0 {
		baudRate = DefaultBaudRate
	}
	if bufSize == 0 {
		bufSize = DefaultBufferSize
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Serial{
		port:     port,
		baudRate: baudRate,
		bufSize:  bufSize,
		readings: make(chan telemetry.Reading, bufSize),
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
		open:     openPort,
	}
}

func openPort(name string, baud int) (io.ReadWriteCloser, error) {
	return serial.Open(name, &serial.Mode{BaudRate: baud})
}

// Ports returns the serial ports present on the host.
func Ports() ([]Port, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to list serial ports: %w", err)
	}

	result := make([]Port, 0, len(ports))
	for _, name := range ports {
		result = append(result, Port{Name: name, Description: name})
	}
	return result, nil
}

// Connect opens the port and starts reading telemetry.
func (d *Serial) Connect() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.connected {
		return fmt.Errorf("already connected")
	}

	port, err := d.open(d.port, d.baudRate)
	if err != nil {
		return fmt.Errorf("failed to open serial port %s: %w", d.port, err)
	}

	d.conn = port
	d.connected = true

	go d.readReadings()

	return nil
}

// Close closes the port and the readings channel.
func (d *Serial) Close() error {
	d.mu.Lock()
	if !d.connected {
		d.mu.Unlock()
		return nil
	}

	d.cancel()
	if err := d.conn.Close(); err != nil {
		log.Printf("Error closing serial port: %v", err)
	}
	d.connected = false
	d.mu.Unlock()

	// The reader owns the channel until it returns.
	<-d.done
	return nil
}

// Readings returns the telemetry channel. It is closed by Close.
func (d *Serial) Readings() <-chan telemetry.Reading {
	return d.readings
}

// Send writes one command line. Lines the controller would reject are
// refused without being sent.
func (d *Serial) Send(line string) error {
	line = strings.TrimSpace(line)
	if _, err := command.Parse(line); err != nil {
		return err
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	if !d.connected {
		return fmt.Errorf("not connected")
	}

	if _, err := io.WriteString(d.conn, line+"\n"); err != nil {
		return fmt.Errorf("failed to send command: %w", err)
	}
	return nil
}

// IsConnected returns whether the port is open.
func (d *Serial) IsConnected() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.connected
}

// readReadings parses telemetry lines and logs everything else the
// controller prints.
func (d *Serial) readReadings() {
	defer close(d.done)
	defer close(d.readings)
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Panic in readReadings: %v", r)
		}
	}()

	scanner := bufio.NewScanner(d.conn)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		r, err := telemetry.Parse(line)
		if err != nil {
			log.Printf("device: %s", line)
			continue
		}
		r.Timestamp = time.Now()

		select {
		case d.readings <- r:
		case <-d.ctx.Done():
			return
		default:
			log.Printf("Readings channel full, dropping reading")
		}
	}

	if err := scanner.Err(); err != nil && d.ctx.Err() == nil {
		log.Printf("Error reading from serial port: %v", err)
	}
}
