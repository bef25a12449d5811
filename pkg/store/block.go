package store

import "fmt"

// BlockDevice is the subset of a flash block device the Block store needs.
// TinyGo's machine.Flash satisfies it.
type BlockDevice interface {
	ReadAt(p []byte, off int64) (int, error)
	WriteAt(p []byte, off int64) (int, error)
	EraseBlockSize() int64
	EraseBlocks(start, length int64) error
}

// Block is a Store kept in the first erase block of a flash device.
type Block struct {
	image
	dev BlockDevice
}

var _ Store = (*Block)(nil)

// OpenBlock reads the image from dev. Erased flash reads as 0xFF, which
// loads as a NaN scale and an inverted range, so defaults are substituted.
func OpenBlock(dev BlockDevice) (*Block, error) {
	if dev.EraseBlockSize() < Size {
		return nil, fmt.Errorf("erase block of %d bytes cannot hold %d", dev.EraseBlockSize(), Size)
	}
	b := &Block{
		image: image{buf: make([]byte, Size)},
		dev:   dev,
	}
	if _, err := dev.ReadAt(b.buf, 0); err != nil {
		return nil, fmt.Errorf("failed to read flash: %w", err)
	}
	return b, nil
}

// Get decodes the value at addr into v.
func (b *Block) Get(addr int, v any) error { return b.get(addr, v) }

// Put encodes v at addr.
func (b *Block) Put(addr int, v any) error { return b.put(addr, v) }

// Commit erases the first block and writes the image back.
func (b *Block) Commit() error {
	if err := b.dev.EraseBlocks(0, 1); err != nil {
		return fmt.Errorf("failed to erase flash: %w", err)
	}
	if _, err := b.dev.WriteAt(b.buf, 0); err != nil {
		return fmt.Errorf("failed to write flash: %w", err)
	}
	return nil
}
