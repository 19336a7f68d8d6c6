package store

import (
	"errors"
	"io"
	"log/slog"
)

const (
	// DefaultScanChunkSize is the size of each read issued by the scan producer.
	DefaultScanChunkSize = 64 * 1024

	// DefaultScanBufferDepth is how many read chunks may wait for the consumer.
	DefaultScanBufferDepth = 4

	DefaultDataFile  = "luna.data"
	DefaultIndexFile = "luna.index"
)

// RandomAccessFile is the file capability the store needs. *os.File satisfies it.
type RandomAccessFile interface {
	io.ReaderAt
	io.WriterAt
	Sync() error
	Close() error
}

// Config holds configuration for the document store
type Config struct {
	DataDir   string // Directory holding both files
	DataFile  string // Data file name inside DataDir
	IndexFile string // Index file name inside DataDir

	// MaxIdentifier pre-extends the index file to MaxIdentifier slots and
	// rejects larger identifiers. Zero lets the index grow on demand.
	MaxIdentifier int32

	ScanChunkSize   int // Bytes per scan read
	ScanBufferDepth int // Chunks buffered between scan producer and consumer

	Logger *slog.Logger
}

func (c Config) withDefaults() Config {
	if c.DataFile == "" {
		c.DataFile = DefaultDataFile
	}
	if c.IndexFile == "" {
		c.IndexFile = DefaultIndexFile
	}
	if c.ScanChunkSize <= 0 {
		c.ScanChunkSize = DefaultScanChunkSize
	}
	if c.ScanBufferDepth <= 0 {
		c.ScanBufferDepth = DefaultScanBufferDepth
	}
	if c.Logger == nil {
		c.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return c
}

// Stats holds statistics about the store
type Stats struct {
	Appended  int64 `json:"appended"`   // Records appended, tombstoned ones included
	Deleted   int64 `json:"deleted"`    // Successful deletes
	DataSize  int64 `json:"data_size"`  // Highest byte written in the data file
	IndexSize int64 `json:"index_size"` // Highest byte written in the index file
}

// Errors
var (
	ErrNotFound       = errors.New("document not found")
	ErrInvalidID      = errors.New("invalid identifier")
	ErrInvalidSlot    = errors.New("invalid index slot position")
	ErrClosed         = errors.New("store is closed")
	ErrReadOnly       = errors.New("store is read-only")
	ErrScanInProgress = errors.New("scan already in progress")
	ErrScanConsumed   = errors.New("scan already consumed")
)
