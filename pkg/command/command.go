// Package command parses the single-letter operator commands.
//
//	cl cr  calibrate scale        sl sr  calibrate range (min/max)
//	ml mr  calibrate min          tl tr  tare
//	a      toggle augmentation    r      toggle recording
//	I M C  mode individual / max value / combined
//	f<hz>  modulation frequency   b<n>   number of bins
//	d<us>  pulse duration         w<g>   calibration weight
//	h ?    usage
package command

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/itohio/pseudobend/pkg/actuation"
	"github.com/itohio/pseudobend/pkg/force"
)

var (
	// ErrMissingTarget is returned when a calibration command has no l/r target.
	ErrMissingTarget = errors.New("missing target")
	// ErrInvalidTarget is returned when the target is neither l nor r.
	ErrInvalidTarget = errors.New("invalid target")
	// ErrUnknown is returned for unrecognized command letters.
	ErrUnknown = errors.New("unknown command")
	// ErrBadNumber is returned when a setting command carries no valid number.
	ErrBadNumber = errors.New("bad number")
)

// Kind identifies a command.
type Kind int

const (
	None Kind = iota
	CalibrateScale
	CalibrateRange
	CalibrateMin
	Tare
	ToggleAugmentation
	ToggleRecording
	SetMode
	SetFrequency
	SetBins
	SetDuration
	SetWeight
	Help
)

var kindNames = map[Kind]string{
	None:               "none",
	CalibrateScale:     "calibrate scale",
	CalibrateRange:     "calibrate range",
	CalibrateMin:       "calibrate min",
	Tare:               "tare",
	ToggleAugmentation: "toggle augmentation",
	ToggleRecording:    "toggle recording",
	SetMode:            "set mode",
	SetFrequency:       "set frequency",
	SetBins:            "set bins",
	SetDuration:        "set duration",
	SetWeight:          "set weight",
	Help:               "help",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Command is one parsed operator command. Only the fields relevant to Kind
// are set.
type Command struct {
	Kind  Kind
	Side  force.Side
	Mode  actuation.Mode
	Value float64
}

func (c Command) String() string {
	switch c.Kind {
	case CalibrateScale, CalibrateRange, CalibrateMin, Tare:
		return fmt.Sprintf("%s %s", c.Kind, c.Side)
	case SetMode:
		return fmt.Sprintf("%s %s", c.Kind, c.Mode)
	case SetFrequency, SetBins, SetDuration, SetWeight:
		return fmt.Sprintf("%s %v", c.Kind, c.Value)
	}
	return c.Kind.String()
}

// Usage lists the commands for the operator.
const Usage = `--- Calibration ---
 cl/cr : calibrate left/right sensor scale
 sl/sr : calibrate left/right sensor range (min/max)
 ml/mr : calibrate left/right sensor min
 tl/tr : tare left/right sensor
--- Control ---
 a     : toggle augmentation on/off
 r     : toggle recording on/off
 I/M/C : vibration mode individual / max value / combined
--- Settings ---
 f<num> : modulation frequency in Hz (e.g. f150)
 b<num> : number of bins (e.g. b10)
 d<num> : pulse duration in us (e.g. d10000)
 w<num> : calibration weight in grams (e.g. w50)
`

var targeted = map[byte]Kind{
	'c': CalibrateScale,
	's': CalibrateRange,
	'm': CalibrateMin,
	't': Tare,
}

// Parse parses one command line. Leading and trailing whitespace is
// ignored, as is anything after a target letter.
func Parse(line string) (Command, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return Command{}, fmt.Errorf("empty line: %w", ErrUnknown)
	}

	letter, rest := line[0], strings.TrimSpace(line[1:])

	if kind, ok := targeted[letter]; ok {
		if rest == "" {
			return Command{}, fmt.Errorf("'%c' needs l or r: %w", letter, ErrMissingTarget)
		}
		side, ok := force.ParseSide(rest[0])
		if !ok {
			return Command{}, fmt.Errorf("'%c%c' (use '%cl' or '%cr'): %w", letter, rest[0], letter, letter, ErrInvalidTarget)
		}
		return Command{Kind: kind, Side: side}, nil
	}

	switch letter {
	case 'a':
		return Command{Kind: ToggleAugmentation}, nil
	case 'r':
		return Command{Kind: ToggleRecording}, nil
	case 'h', '?':
		return Command{Kind: Help}, nil
	case 'I', 'M', 'C':
		mode, err := actuation.ParseMode(string(letter))
		if err != nil {
			return Command{}, err
		}
		return Command{Kind: SetMode, Mode: mode}, nil
	case 'f':
		v, err := strconv.ParseFloat(rest, 32)
		if err != nil {
			return Command{}, fmt.Errorf("frequency %q: %w", rest, ErrBadNumber)
		}
		return Command{Kind: SetFrequency, Value: v}, nil
	case 'b', 'd', 'w':
		v, err := strconv.ParseInt(rest, 10, 64)
		if err != nil {
			return Command{}, fmt.Errorf("'%c' value %q: %w", letter, rest, ErrBadNumber)
		}
		kind := map[byte]Kind{'b': SetBins, 'd': SetDuration, 'w': SetWeight}[letter]
		return Command{Kind: kind, Value: float64(v)}, nil
	}

	return Command{}, fmt.Errorf("%q: %w", line, ErrUnknown)
}
