// Package record stores telemetry sessions on the host.
package record

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/itohio/pseudobend/pkg/telemetry"
)

// Header is the first CSV row.
var Header = []string{"timestamp", "left", "right"}

// Writer writes readings as CSV rows.
type Writer struct {
	w    *csv.Writer
	rows int
}

// NewWriter writes the header to w and returns a Writer. Timestamps are
// written as RFC 3339 with nanoseconds.
func NewWriter(w io.Writer) (*Writer, error) {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	return &Writer{w: cw}, nil
}

// Write appends one reading.
func (w *Writer) Write(r telemetry.Reading) error {
	err := w.w.Write([]string{
		r.Timestamp.UTC().Format(time.RFC3339Nano),
		strconv.FormatInt(int64(r.Left), 10),
		strconv.FormatInt(int64(r.Right), 10),
	})
	if err != nil {
		return fmt.Errorf("write row: %w", err)
	}
	w.rows++
	return nil
}

// Send implements telemetry.Sink.
func (w *Writer) Send(r telemetry.Reading) error { return w.Write(r) }

// Rows returns the number of readings written.
func (w *Writer) Rows() int { return w.rows }

// Flush writes buffered rows to the underlying writer.
func (w *Writer) Flush() error {
	w.w.Flush()
	return w.w.Error()
}

var _ telemetry.Sink = (*Writer)(nil)

// Read parses a session written by Writer.
func Read(r io.Reader) ([]telemetry.Reading, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(Header)

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	out := make([]telemetry.Reading, 0, len(rows)-1)
	for i, row := range rows[1:] {
		ts, err := time.Parse(time.RFC3339Nano, row[0])
		if err != nil {
			return nil, fmt.Errorf("row %d: invalid timestamp: %w", i+1, err)
		}
		left, err := strconv.ParseInt(row[1], 10, 32)
		if err != nil {
			return nil, fmt.Errorf("row %d: invalid left value: %w", i+1, err)
		}
		right, err := strconv.ParseInt(row[2], 10, 32)
		if err != nil {
			return nil, fmt.Errorf("row %d: invalid right value: %w", i+1, err)
		}
		out = append(out, telemetry.Reading{Timestamp: ts, Left: int32(left), Right: int32(right)})
	}
	return out, nil
}
