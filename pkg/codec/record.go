package codec

import (
	"errors"
	"fmt"
)

const (
	// MaxDataSize is the largest payload a document may carry.
	MaxDataSize = 1024

	// HeaderSize covers id(4) + tombstone(1) + length(2).
	HeaderSize = 4 + 1 + 2

	// MaxRecordSize is the size of a record carrying a full payload.
	MaxRecordSize = HeaderSize + MaxDataSize

	// TombstoneOffset is the position of the tombstone byte inside a record.
	TombstoneOffset = 4

	lengthOffset = 5
)

// Tombstone values.
const (
	Live    uint8 = 0
	Deleted uint8 = 1
)

var (
	// ErrDataTooLarge is returned when a payload exceeds MaxDataSize.
	ErrDataTooLarge = errors.New("data exceeds 1024 bytes")

	// ErrIncomplete means the buffer does not yet hold a whole record or slot.
	ErrIncomplete = errors.New("incomplete record")

	// ErrCorrupt means the bytes cannot be a valid record or slot.
	ErrCorrupt = errors.New("data corruption detected")
)

// Document is one record of the data file.
type Document struct {
	ID        int32
	Tombstone uint8
	Data      []byte
}

// Deleted reports whether the record carries the tombstone mark.
func (d Document) Deleted() bool {
	return d.Tombstone == Deleted
}

// Size returns the encoded size of the document.
func (d Document) Size() int {
	return HeaderSize + len(d.Data)
}

// Clone returns a copy of d that does not share its payload with any buffer.
func (d Document) Clone() Document {
	data := make([]byte, len(d.Data))
	copy(data, d.Data)
	d.Data = data
	return d
}

// RecordSize returns the encoded size of a record with a payload of n bytes.
func RecordSize(n int) int {
	return HeaderSize + n
}

// EncodeDocument serializes a document into a new buffer.
// Format: [ID(4)][Tombstone(1)][Length(2)][Data]
func EncodeDocument(id int32, tombstone uint8, data []byte) ([]byte, error) {
	return AppendDocument(nil, id, tombstone, data)
}

// AppendDocument appends the encoded document to dst and returns the extended buffer.
func AppendDocument(dst []byte, id int32, tombstone uint8, data []byte) ([]byte, error) {
	if len(data) > MaxDataSize {
		return dst, fmt.Errorf("%w: got %d", ErrDataTooLarge, len(data))
	}

	start := len(dst)
	size := RecordSize(len(data))
	if cap(dst)-start < size {
		grown := make([]byte, start, start+size)
		copy(grown, dst)
		dst = grown
	}
	dst = dst[:start+size]

	rec := dst[start:]
	WriteInt32(rec, 0, id)
	rec[TombstoneOffset] = tombstone
	WriteInt16(rec, lengthOffset, int16(len(data)))
	copy(rec[HeaderSize:], data)

	return dst, nil
}

// DecodeDocument decodes the record at the start of b.
//
// It returns the document and the number of bytes it occupies. When b holds
// less than a whole record, ErrIncomplete is returned and nothing is consumed.
// The returned Data aliases b.
func DecodeDocument(b []byte) (Document, int, error) {
	if len(b) < HeaderSize {
		return Document{}, 0, ErrIncomplete
	}

	tombstone := b[TombstoneOffset]
	if tombstone != Live && tombstone != Deleted {
		return Document{}, 0, fmt.Errorf("%w: tombstone byte %d", ErrCorrupt, tombstone)
	}

	length := int(ReadInt16(b, lengthOffset))
	if length < 0 || length > MaxDataSize {
		return Document{}, 0, fmt.Errorf("%w: length %d", ErrCorrupt, length)
	}

	size := HeaderSize + length
	if len(b) < size {
		return Document{}, 0, ErrIncomplete
	}

	return Document{
		ID:        ReadInt32(b, 0),
		Tombstone: tombstone,
		Data:      b[HeaderSize:size:size],
	}, size, nil
}
