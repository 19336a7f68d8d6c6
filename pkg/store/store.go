package store

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/ssargent/lunadb/pkg/codec"
)

// Store pairs an append-only data file with a fixed-slot index file.
//
// A Store assumes a single writer. Append, AppendIndex and Delete must be
// serialized by the caller, and must not race with FindByID or Scan.
type Store struct {
	config Config
	data   *DataStore
	index  *IndexStore
	logger *slog.Logger

	files     []RandomAccessFile
	readOnly  bool
	closed    atomic.Bool
	closeOnce sync.Once
	closeErr  error

	scanning atomic.Bool
	appended atomic.Int64
	deleted  atomic.Int64
}

// Open creates a fresh store under config.DataDir.
// Existing data and index files at the same paths are truncated.
func Open(config Config) (*Store, error) {
	if err := codec.CheckByteOrder(); err != nil {
		return nil, err
	}

	config = config.withDefaults()
	if err := os.MkdirAll(config.DataDir, 0750); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	dataPath := filepath.Join(config.DataDir, config.DataFile)
	dataFile, err := os.OpenFile(dataPath, os.O_CREATE|os.O_RDWR|os.O_TRUNC, 0600)
	if err != nil {
		return nil, fmt.Errorf("open data file: %w", err)
	}

	indexPath := filepath.Join(config.DataDir, config.IndexFile)
	indexFile, err := os.OpenFile(indexPath, os.O_CREATE|os.O_RDWR|os.O_TRUNC, 0600)
	if err != nil {
		dataFile.Close()
		return nil, fmt.Errorf("open index file: %w", err)
	}

	s, err := New(dataFile, indexFile, config)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("store opened", "data", dataPath, "index", indexPath)
	return s, nil
}

// New builds a store over already opened files. The store takes ownership of
// both: they are closed by Store.Close, or before New returns an error.
func New(dataFile, indexFile RandomAccessFile, config Config) (*Store, error) {
	s, err := newOwned(dataFile, indexFile, config)
	if err != nil {
		if cerr := errors.Join(dataFile.Close(), indexFile.Close()); cerr != nil {
			err = fmt.Errorf("%w (closing files: %v)", err, cerr)
		}
		return nil, err
	}
	return s, nil
}

func newOwned(dataFile, indexFile RandomAccessFile, config Config) (*Store, error) {
	if err := codec.CheckByteOrder(); err != nil {
		return nil, err
	}
	if config.MaxIdentifier < 0 {
		return nil, fmt.Errorf("%w: max identifier %d", ErrInvalidID, config.MaxIdentifier)
	}

	s := newStore(dataFile, indexFile, config)
	if err := s.index.Preallocate(s.config.MaxIdentifier); err != nil {
		return nil, err
	}
	return s, nil
}

func newStore(dataFile, indexFile RandomAccessFile, config Config) *Store {
	config = config.withDefaults()
	return &Store{
		config: config,
		data:   NewDataStore(dataFile),
		index:  NewIndexStore(indexFile),
		logger: config.Logger,
		files:  []RandomAccessFile{dataFile, indexFile},
	}
}

// Append writes a live record at offset and returns the offset after it.
func (s *Store) Append(id int32, data []byte, offset int64) (int64, error) {
	if err := s.writable(); err != nil {
		return offset, err
	}
	next, err := s.data.Append(id, codec.Live, data, offset)
	if err != nil {
		return next, err
	}
	s.appended.Add(1)
	return next, nil
}

// AppendIndex writes the slot mapping id to dataOffset at indexSlotOffset and
// returns the next slot offset.
func (s *Store) AppendIndex(id int32, dataOffset int64, indexSlotOffset int64) (int64, error) {
	if err := s.writable(); err != nil {
		return indexSlotOffset, err
	}
	if err := s.validateID(id); err != nil {
		return indexSlotOffset, err
	}
	return s.index.AppendSlot(id, dataOffset, indexSlotOffset)
}

// FindByID resolves identifier to its live document.
// Empty slots and tombstoned records both report ErrNotFound.
func (s *Store) FindByID(identifier int32) (codec.Document, error) {
	if s.closed.Load() {
		return codec.Document{}, ErrClosed
	}
	if err := s.validateID(identifier); err != nil {
		return codec.Document{}, err
	}

	slot, err := s.index.ReadSlot(identifier)
	if err != nil {
		return codec.Document{}, err
	}
	if slot.Empty() {
		return codec.Document{}, ErrNotFound
	}

	doc, err := s.data.ReadDocumentAt(slot.Offset)
	if err != nil {
		return codec.Document{}, err
	}
	if doc.ID != slot.ID {
		return codec.Document{}, fmt.Errorf("%w: slot %d points at record %d", codec.ErrCorrupt, slot.ID, doc.ID)
	}
	if doc.Deleted() {
		return codec.Document{}, ErrNotFound
	}

	return doc, nil
}

// Delete tombstones identifier's record and clears its slot.
// Deleting a missing or already deleted identifier is a no-op.
func (s *Store) Delete(identifier int32) error {
	if err := s.writable(); err != nil {
		return err
	}
	if err := s.validateID(identifier); err != nil {
		return err
	}

	slot, err := s.index.ReadSlot(identifier)
	if err != nil {
		return err
	}
	if slot.Empty() {
		return nil
	}

	tombstone, err := s.data.ReadTombstone(slot.Offset)
	if err != nil {
		return err
	}
	switch tombstone {
	case codec.Deleted:
		return nil
	case codec.Live:
	default:
		return fmt.Errorf("%w: tombstone byte %d at offset %d", codec.ErrCorrupt, tombstone, slot.Offset)
	}

	// Data file first, then the index.
	if err := s.data.WriteTombstone(slot.Offset, codec.Deleted); err != nil {
		return err
	}
	if err := s.index.ClearSlot(identifier); err != nil {
		return err
	}

	s.deleted.Add(1)
	return nil
}

// Flush forces both files to stable storage.
func (s *Store) Flush() error {
	if s.closed.Load() {
		return ErrClosed
	}
	if err := s.data.Flush(); err != nil {
		return fmt.Errorf("flush data file: %w", err)
	}
	if err := s.index.Flush(); err != nil {
		return fmt.Errorf("flush index file: %w", err)
	}
	return nil
}

// Close closes both files. Calls after the first return the first result.
func (s *Store) Close() error {
	s.closeOnce.Do(func() {
		s.closed.Store(true)

		var errs []error
		for _, f := range s.files {
			if err := f.Close(); err != nil {
				errs = append(errs, err)
			}
		}
		s.closeErr = errors.Join(errs...)
		s.logger.Debug("store closed", "appended", s.appended.Load(), "deleted", s.deleted.Load())
	})
	return s.closeErr
}

// Stats returns store statistics
func (s *Store) Stats() Stats {
	return Stats{
		Appended:  s.appended.Load(),
		Deleted:   s.deleted.Load(),
		DataSize:  s.data.Size(),
		IndexSize: s.index.Size(),
	}
}

func (s *Store) validateID(identifier int32) error {
	if identifier <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidID, identifier)
	}
	if limit := s.config.MaxIdentifier; limit > 0 && identifier > limit {
		return fmt.Errorf("%w: %d exceeds max %d", ErrInvalidID, identifier, limit)
	}
	return nil
}

func (s *Store) writable() error {
	if s.closed.Load() {
		return ErrClosed
	}
	if s.readOnly {
		return ErrReadOnly
	}
	return nil
}
