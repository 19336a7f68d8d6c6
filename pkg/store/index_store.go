package store

import (
	"errors"
	"fmt"
	"io"

	"github.com/ssargent/lunadb/pkg/codec"
)

// IndexStore reads and writes fixed-width slots of the index file.
// Slot positions are derived from identifiers; see codec.SlotPosition.
type IndexStore struct {
	file RandomAccessFile
	end  int64
}

// NewIndexStore wraps an open index file
func NewIndexStore(file RandomAccessFile) *IndexStore {
	return &IndexStore{file: file}
}

// Preallocate extends the index file to hold maxIdentifier zeroed slots.
// Files that cannot be truncated grow on demand instead.
func (x *IndexStore) Preallocate(maxIdentifier int32) error {
	t, ok := x.file.(interface{ Truncate(int64) error })
	if !ok || maxIdentifier <= 0 {
		return nil
	}
	size := int64(maxIdentifier) * codec.SlotSize
	if err := t.Truncate(size); err != nil {
		return fmt.Errorf("preallocate index to %d bytes: %w", size, err)
	}
	return nil
}

// AppendSlot writes one slot at slotPosition and returns the next slot position.
func (x *IndexStore) AppendSlot(id int32, offset int64, slotPosition int64) (int64, error) {
	if slotPosition < 0 || slotPosition%codec.SlotSize != 0 {
		return slotPosition, fmt.Errorf("%w: %d", ErrInvalidSlot, slotPosition)
	}

	var buf [codec.SlotSize]byte
	codec.PutIndexSlot(buf[:], id, offset)
	if _, err := x.file.WriteAt(buf[:], slotPosition); err != nil {
		return slotPosition, fmt.Errorf("write slot at %d: %w", slotPosition, err)
	}

	next := slotPosition + codec.SlotSize
	if next > x.end {
		x.end = next
	}
	return next, nil
}

// ReadSlot reads the slot for identifier. Slots past the end of the file are empty.
func (x *IndexStore) ReadSlot(identifier int32) (codec.Slot, error) {
	pos := codec.SlotPosition(identifier)

	var buf [codec.SlotSize]byte
	n, err := x.file.ReadAt(buf[:], pos)
	if err != nil && !errors.Is(err, io.EOF) {
		return codec.Slot{}, fmt.Errorf("read slot %d: %w", identifier, err)
	}
	if n == 0 {
		return codec.Slot{}, nil
	}

	slot, err := codec.DecodeIndexSlot(buf[:n])
	if err != nil {
		return codec.Slot{}, fmt.Errorf("%w: slot %d is %d bytes", codec.ErrCorrupt, identifier, n)
	}
	return slot, nil
}

// ClearSlot zeroes the id field of identifier's slot, leaving the offset bytes stale.
func (x *IndexStore) ClearSlot(identifier int32) error {
	var zero [4]byte
	if _, err := x.file.WriteAt(zero[:], codec.SlotPosition(identifier)); err != nil {
		return fmt.Errorf("clear slot %d: %w", identifier, err)
	}
	return nil
}

// Flush forces prior writes to stable storage.
func (x *IndexStore) Flush() error {
	return x.file.Sync()
}

// Size returns the highest byte written so far
func (x *IndexStore) Size() int64 {
	return x.end
}
