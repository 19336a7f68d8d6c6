package store

import (
	"errors"
	"fmt"

	"github.com/ssargent/lunadb/pkg/codec"
)

// Assembler rebuilds records from a byte stream delivered in arbitrary chunks.
//
// Bytes that do not yet form a whole record stay buffered until the next
// Write. The zero value is ready to use.
type Assembler struct {
	buf    []byte
	start  int   // First unconsumed byte in buf
	offset int64 // Stream offset of buf[start]
}

// Write appends a chunk of the stream. p is copied and may be reused by the caller.
func (a *Assembler) Write(p []byte) {
	if a.start > 0 {
		n := copy(a.buf, a.buf[a.start:])
		a.buf = a.buf[:n]
		a.start = 0
	}
	a.buf = append(a.buf, p...)
}

// Next decodes the next whole record. It returns codec.ErrIncomplete when more
// bytes are needed. The returned document owns its payload.
func (a *Assembler) Next() (codec.Document, error) {
	doc, n, err := codec.DecodeDocument(a.buf[a.start:])
	if errors.Is(err, codec.ErrIncomplete) {
		return codec.Document{}, err
	}
	if err != nil {
		return codec.Document{}, fmt.Errorf("record at offset %d: %w", a.offset, err)
	}

	doc = doc.Clone()
	a.start += n
	a.offset += int64(n)
	return doc, nil
}

// Buffered returns the number of bytes received but not yet consumed.
func (a *Assembler) Buffered() int {
	return len(a.buf) - a.start
}

// Offset returns the stream offset of the next record.
func (a *Assembler) Offset() int64 {
	return a.offset
}

// Finish reports a corruption error if the stream ended inside a record.
func (a *Assembler) Finish() error {
	if n := a.Buffered(); n > 0 {
		return fmt.Errorf("%w: %d trailing bytes at offset %d", codec.ErrCorrupt, n, a.offset)
	}
	return nil
}
