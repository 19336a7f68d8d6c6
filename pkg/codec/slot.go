package codec

// SlotSize is the width of one index slot: id(4) + offset(8).
const SlotSize = 4 + 8

// Slot maps an identifier to the offset of its record in the data file.
// A zero ID marks the slot empty.
type Slot struct {
	ID     int32
	Offset int64
}

// Empty reports whether the slot holds no live entry.
func (s Slot) Empty() bool {
	return s.ID == 0
}

// SlotPosition returns the byte position of identifier's slot in the index file.
// Identifiers are 1-based.
func SlotPosition(identifier int32) int64 {
	return SlotSize * (int64(identifier) - 1)
}

// EncodeIndexSlot serializes a slot.
// Format: [ID(4)][Offset(8)]
func EncodeIndexSlot(id int32, offset int64) []byte {
	buf := make([]byte, SlotSize)
	PutIndexSlot(buf, id, offset)
	return buf
}

// PutIndexSlot writes a slot into buf, which must hold at least SlotSize bytes.
func PutIndexSlot(buf []byte, id int32, offset int64) {
	WriteInt32(buf, 0, id)
	WriteInt64(buf, 4, offset)
}

// DecodeIndexSlot decodes the slot at the start of b.
// An empty slot decodes with a zero offset, whatever bytes follow the id.
func DecodeIndexSlot(b []byte) (Slot, error) {
	if len(b) < SlotSize {
		return Slot{}, ErrIncomplete
	}
	if IsInt32Zero(b, 0) {
		return Slot{}, nil
	}
	return Slot{
		ID:     ReadInt32(b, 0),
		Offset: ReadInt64(b, 4),
	}, nil
}
