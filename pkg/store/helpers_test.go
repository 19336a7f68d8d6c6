package store

import (
	"errors"
	"io"
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

var errInjectedWrite = errors.New("injected write failure")

// memFile is an in-memory RandomAccessFile with fault injection
type memFile struct {
	mu       sync.Mutex
	data     []byte
	closed   bool
	syncs    int
	closes   int
	readErr  error
	writeErr error
	syncErr  error
	truncErr error

	writes    int // WriteAt calls so far
	failWrite int // fail the WriteAt call with this number, 1-based
}

func (f *memFile) ReadAt(p []byte, off int64) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return 0, os.ErrClosed
	}
	if f.readErr != nil {
		return 0, f.readErr
	}
	if off >= int64(len(f.data)) {
		return 0, io.EOF
	}
	n := copy(p, f.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (f *memFile) WriteAt(p []byte, off int64) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return 0, os.ErrClosed
	}
	if f.writeErr != nil {
		return 0, f.writeErr
	}
	f.writes++
	if f.writes == f.failWrite {
		return 0, errInjectedWrite
	}
	if end := off + int64(len(p)); end > int64(len(f.data)) {
		grown := make([]byte, end)
		copy(grown, f.data)
		f.data = grown
	}
	return copy(f.data[off:], p), nil
}

func (f *memFile) Truncate(size int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.truncErr != nil {
		return f.truncErr
	}
	resized := make([]byte, size)
	copy(resized, f.data)
	f.data = resized
	return nil
}

func (f *memFile) Sync() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.syncs++
	return f.syncErr
}

func (f *memFile) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.closes++
	if f.closed {
		return errors.New("already closed")
	}
	f.closed = true
	return nil
}

func (f *memFile) bytes() []byte {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]byte, len(f.data))
	copy(out, f.data)
	return out
}

// newMemStore builds a store over in-memory files
func newMemStore(t *testing.T, config Config) (*Store, *memFile, *memFile) {
	t.Helper()

	data, index := &memFile{}, &memFile{}
	s, err := New(data, index, config)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	return s, data, index
}

// openTestStore opens a file-backed store in a temporary directory
func openTestStore(t *testing.T, config Config) *Store {
	t.Helper()

	if config.DataDir == "" {
		config.DataDir = t.TempDir()
	}
	s, err := Open(config)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	return s
}

// appendSequential appends payloads under ids 1..n with matching index slots
func appendSequential(t *testing.T, s *Store, payloads ...string) []int64 {
	t.Helper()

	offsets := make([]int64, 0, len(payloads))
	var offset, slot int64
	for i, payload := range payloads {
		id := int32(i + 1)
		next, err := s.Append(id, []byte(payload), offset)
		require.NoError(t, err)

		slot, err = s.AppendIndex(id, offset, slot)
		require.NoError(t, err)

		offsets = append(offsets, offset)
		offset = next
	}
	return offsets
}
