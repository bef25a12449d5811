package command

// MaxLine is the longest command line kept; extra bytes are dropped until
// the end of the line.
const MaxLine = 32

// LineBuffer assembles command lines from a byte stream such as a UART.
type LineBuffer struct {
	buf [MaxLine]byte
	pos int
}

// Feed adds one byte. It returns the completed line when b ends a non-empty
// line.
func (l *LineBuffer) Feed(b byte) (string, bool) {
	switch b {
	case '\n', '\r':
		if l.pos == 0 {
			return "", false
		}
		line := string(l.buf[:l.pos])
		l.pos = 0
		return line, true
	case ' ', '\t':
		return "", false
	}

	if l.pos < MaxLine {
		l.buf[l.pos] = b
		l.pos++
	}
	return "", false
}

// Reset drops any partial line.
func (l *LineBuffer) Reset() {
	l.pos = 0
}
