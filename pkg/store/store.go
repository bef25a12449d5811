// Package store persists channel calibration in a small fixed-layout image,
// the same layout an EEPROM-backed board uses.
package store

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"log"

	"github.com/itohio/pseudobend/pkg/force"
)

// Size is the number of bytes the layout occupies.
const Size = 24

// Layout holds the addresses of one channel's fields.
type Layout struct {
	Scale int // float32
	Min   int // uint32
	Max   int // uint32
}

// Layouts maps each side to its non-overlapping field addresses.
var Layouts = [2]Layout{
	force.Left:  {Scale: 0, Min: 4, Max: 8},
	force.Right: {Scale: 12, Min: 16, Max: 20},
}

// ErrOutOfRange is returned for accesses past the end of the image.
var ErrOutOfRange = errors.New("address out of range")

// Store reads and writes fixed-size values at byte addresses. Writes may be
// buffered until Commit.
type Store interface {
	// Get decodes the value at addr into v, which must point to a fixed-size value.
	Get(addr int, v any) error
	// Put encodes v at addr.
	Put(addr int, v any) error
	// Commit flushes buffered writes to the backing medium.
	Commit() error
}

// image is the in-memory byte image shared by all implementations.
type image struct {
	buf []byte
}

func (m *image) get(addr int, v any) error {
	n := binary.Size(v)
	if n < 0 {
		return fmt.Errorf("get %T: not a fixed-size value", v)
	}
	if addr < 0 || addr+n > len(m.buf) {
		return fmt.Errorf("get %d+%d: %w", addr, n, ErrOutOfRange)
	}
	return binary.Read(bytes.NewReader(m.buf[addr:addr+n]), binary.LittleEndian, v)
}

func (m *image) put(addr int, v any) error {
	n := binary.Size(v)
	if n < 0 {
		return fmt.Errorf("put %T: not a fixed-size value", v)
	}
	if addr < 0 || addr+n > len(m.buf) {
		return fmt.Errorf("put %d+%d: %w", addr, n, ErrOutOfRange)
	}
	var b bytes.Buffer
	if err := binary.Write(&b, binary.LittleEndian, v); err != nil {
		return err
	}
	copy(m.buf[addr:], b.Bytes())
	return nil
}

// LoadParams reads one side's calibration and substitutes defaults for
// invalid values. The tare offset is not persisted and starts at zero.
func LoadParams(s Store, side force.Side) (force.Params, error) {
	l := Layouts[side]
	var p force.Params
	if err := s.Get(l.Scale, &p.Scale); err != nil {
		return force.DefaultParams(), fmt.Errorf("load %s scale: %w", side, err)
	}
	if err := s.Get(l.Min, &p.Min); err != nil {
		return force.DefaultParams(), fmt.Errorf("load %s min: %w", side, err)
	}
	if err := s.Get(l.Max, &p.Max); err != nil {
		return force.DefaultParams(), fmt.Errorf("load %s max: %w", side, err)
	}
	if err := p.Sanitize(); err != nil {
		log.Printf("%s sensor: stored calibration invalid: %v", side, err)
	}
	return p, nil
}

// SaveScale persists one side's scale and commits.
func SaveScale(s Store, side force.Side, scale float32) error {
	if err := s.Put(Layouts[side].Scale, scale); err != nil {
		return fmt.Errorf("save %s scale: %w", side, err)
	}
	return s.Commit()
}

// SaveRange persists one side's min and max and commits.
func SaveRange(s Store, side force.Side, min, max uint32) error {
	l := Layouts[side]
	if err := s.Put(l.Min, min); err != nil {
		return fmt.Errorf("save %s min: %w", side, err)
	}
	if err := s.Put(l.Max, max); err != nil {
		return fmt.Errorf("save %s max: %w", side, err)
	}
	return s.Commit()
}

// SaveMin persists one side's min and commits.
func SaveMin(s Store, side force.Side, min uint32) error {
	if err := s.Put(Layouts[side].Min, min); err != nil {
		return fmt.Errorf("save %s min: %w", side, err)
	}
	return s.Commit()
}
