package store

import (
	"errors"
	"fmt"
	"io"

	"github.com/ssargent/lunadb/pkg/codec"
)

// DataStore writes document records to the data file at caller-chosen offsets.
// It is not safe for concurrent writers.
type DataStore struct {
	file RandomAccessFile
	buf  []byte // Encode buffer reused across appends
	end  int64  // Highest byte written
}

// NewDataStore wraps an open data file
func NewDataStore(file RandomAccessFile) *DataStore {
	return &DataStore{
		file: file,
		buf:  make([]byte, 0, codec.MaxRecordSize),
	}
}

// Append writes one record at offset and returns the offset just past it.
func (d *DataStore) Append(id int32, tombstone uint8, data []byte, offset int64) (int64, error) {
	buf, err := codec.AppendDocument(d.buf[:0], id, tombstone, data)
	if err != nil {
		return offset, err
	}
	d.buf = buf

	if _, err := d.file.WriteAt(buf, offset); err != nil {
		return offset, fmt.Errorf("write record at offset %d: %w", offset, err)
	}

	next := offset + int64(len(buf))
	if next > d.end {
		d.end = next
	}
	return next, nil
}

// ReadTombstone reads the tombstone byte of the record at offset.
func (d *DataStore) ReadTombstone(offset int64) (uint8, error) {
	var b [1]byte
	n, err := d.file.ReadAt(b[:], offset+codec.TombstoneOffset)
	if n == 1 {
		return b[0], nil
	}
	if err == nil || errors.Is(err, io.EOF) {
		return 0, fmt.Errorf("%w: no record at offset %d", codec.ErrCorrupt, offset)
	}
	return 0, fmt.Errorf("read tombstone at offset %d: %w", offset, err)
}

// WriteTombstone overwrites the tombstone byte of the record at offset.
func (d *DataStore) WriteTombstone(offset int64, tombstone uint8) error {
	b := [1]byte{tombstone}
	if _, err := d.file.WriteAt(b[:], offset+codec.TombstoneOffset); err != nil {
		return fmt.Errorf("write tombstone at offset %d: %w", offset, err)
	}
	return nil
}

// ReadDocumentAt reads and decodes the record starting at offset.
//
// It reads a maximum-size record and tolerates hitting end of file as long as
// the record itself is whole.
func (d *DataStore) ReadDocumentAt(offset int64) (codec.Document, error) {
	buf := make([]byte, codec.MaxRecordSize)
	n, err := d.file.ReadAt(buf, offset)
	if err != nil && !errors.Is(err, io.EOF) {
		return codec.Document{}, fmt.Errorf("read record at offset %d: %w", offset, err)
	}

	doc, _, err := codec.DecodeDocument(buf[:n])
	if errors.Is(err, codec.ErrIncomplete) {
		return codec.Document{}, fmt.Errorf("%w: truncated record at offset %d (%d bytes)", codec.ErrCorrupt, offset, n)
	}
	if err != nil {
		return codec.Document{}, fmt.Errorf("record at offset %d: %w", offset, err)
	}

	return doc.Clone(), nil
}

// Flush forces prior writes to stable storage.
func (d *DataStore) Flush() error {
	return d.file.Sync()
}

// Size returns the highest byte written so far
func (d *DataStore) Size() int64 {
	return d.end
}
