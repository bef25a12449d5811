package actuation

import "fmt"

// Mode selects how the two channels drive the two actuators.
type Mode int

const (
	// Individual drives each actuator from its own channel.
	Individual Mode = iota
	// MaxValue drives only the actuator of the channel with the larger force.
	MaxValue
	// Combined drives both actuators together as one unit.
	Combined
)

func (m Mode) String() string {
	switch m {
	case Individual:
		return "INDIVIDUAL"
	case MaxValue:
		return "MAX_VALUE"
	case Combined:
		return "COMBINED"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// ParseMode accepts the mode command letters ('I', 'M', 'C') and the
// names returned by String.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "I", "INDIVIDUAL", "individual":
		return Individual, nil
	case "M", "MAX_VALUE", "max_value", "max":
		return MaxValue, nil
	case "C", "COMBINED", "combined":
		return Combined, nil
	}
	return Individual, fmt.Errorf("unknown mode %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Mode) UnmarshalText(b []byte) error {
	v, err := ParseMode(string(b))
	if err != nil {
		return err
	}
	*m = v
	return nil
}
