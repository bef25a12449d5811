package store

// Mem is a Store held entirely in memory.
type Mem struct {
	image
	Commits int
}

var _ Store = (*Mem)(nil)

// NewMem creates a zero-filled in-memory store.
func NewMem() *Mem {
	return &Mem{image: image{buf: make([]byte, Size)}}
}

// Get decodes the value at addr into v.
func (m *Mem) Get(addr int, v any) error { return m.get(addr, v) }

// Put encodes v at addr.
func (m *Mem) Put(addr int, v any) error { return m.put(addr, v) }

// Commit counts the flush; there is nothing to write.
func (m *Mem) Commit() error {
	m.Commits++
	return nil
}

// Bytes returns a copy of the image.
func (m *Mem) Bytes() []byte {
	out := make([]byte, len(m.buf))
	copy(out, m.buf)
	return out
}
