package store

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ssargent/lunadb/pkg/codec"
)

// OpenReadOnly opens the data and index files a previous Open left behind
// without truncating them. Lookups and scans work; every mutation returns
// ErrReadOnly.
func OpenReadOnly(config Config) (*Store, error) {
	if err := codec.CheckByteOrder(); err != nil {
		return nil, err
	}
	if config.MaxIdentifier < 0 {
		return nil, fmt.Errorf("%w: max identifier %d", ErrInvalidID, config.MaxIdentifier)
	}
	config = config.withDefaults()

	dataPath := filepath.Join(config.DataDir, config.DataFile)
	dataFile, err := os.Open(dataPath)
	if err != nil {
		return nil, fmt.Errorf("open data file: %w", err)
	}

	indexPath := filepath.Join(config.DataDir, config.IndexFile)
	indexFile, err := os.Open(indexPath)
	if err != nil {
		dataFile.Close()
		return nil, fmt.Errorf("open index file: %w", err)
	}

	dataInfo, err := dataFile.Stat()
	if err != nil {
		dataFile.Close()
		indexFile.Close()
		return nil, fmt.Errorf("stat data file: %w", err)
	}
	indexInfo, err := indexFile.Stat()
	if err != nil {
		dataFile.Close()
		indexFile.Close()
		return nil, fmt.Errorf("stat index file: %w", err)
	}

	s := newStore(dataFile, indexFile, config)
	s.readOnly = true
	s.data.end = dataInfo.Size()
	s.index.end = indexInfo.Size()

	s.logger.Debug("store opened read-only", "data", dataPath, "index", indexPath)
	return s, nil
}
