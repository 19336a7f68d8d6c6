package store

import (
	"fmt"

	"github.com/ssargent/lunadb/pkg/codec"
)

// Writer tracks the next data offset so callers can append documents by id
// without doing offset arithmetic themselves. Each Put appends the record and
// points the identifier's slot at it.
//
// A Writer shares the store's single-writer contract.
type Writer struct {
	store  *Store
	offset int64
}

// NewWriter returns a writer that appends after the last record written.
func (s *Store) NewWriter() *Writer {
	return &Writer{
		store:  s,
		offset: s.data.Size(),
	}
}

// Put appends data under id and returns the record's offset. A live document
// already stored under id is tombstoned only after the new record and its
// slot are written, so a failed Put leaves the previous document readable.
func (w *Writer) Put(id int32, data []byte) (int64, error) {
	s := w.store
	if err := s.writable(); err != nil {
		return 0, err
	}
	if err := s.validateID(id); err != nil {
		return 0, err
	}
	if len(data) > codec.MaxDataSize {
		return 0, codec.ErrDataTooLarge
	}

	previous, err := w.liveRecord(id)
	if err != nil {
		return 0, err
	}

	offset := w.offset
	next, err := s.Append(id, data, offset)
	if err != nil {
		return 0, err
	}
	w.offset = next

	if _, err := s.AppendIndex(id, offset, codec.SlotPosition(id)); err != nil {
		// The slot still names the previous record; retire the orphan.
		if terr := s.data.WriteTombstone(offset, codec.Deleted); terr != nil {
			s.logger.Warn("orphaned record left live", "id", id, "offset", offset, "error", terr)
		}
		return 0, err
	}

	if previous >= 0 {
		if err := s.data.WriteTombstone(previous, codec.Deleted); err != nil {
			return offset, fmt.Errorf("retire previous record of %d: %w", id, err)
		}
		s.deleted.Add(1)
	}
	return offset, nil
}

// liveRecord returns the offset of id's live record, or -1 when there is none.
func (w *Writer) liveRecord(id int32) (int64, error) {
	slot, err := w.store.index.ReadSlot(id)
	if err != nil {
		return -1, err
	}
	if slot.Empty() {
		return -1, nil
	}

	tombstone, err := w.store.data.ReadTombstone(slot.Offset)
	if err != nil {
		return -1, err
	}
	switch tombstone {
	case codec.Live:
		return slot.Offset, nil
	case codec.Deleted:
		return -1, nil
	default:
		return -1, fmt.Errorf("%w: tombstone byte %d at offset %d", codec.ErrCorrupt, tombstone, slot.Offset)
	}
}

// Offset returns where the next record will be written.
func (w *Writer) Offset() int64 {
	return w.offset
}
