// Package archive exports live documents into a pebble database so a store's
// contents survive past the destructive reopen of its flat files.
package archive

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"time"

	"github.com/cockroachdb/pebble"
	"github.com/segmentio/ksuid"

	"github.com/ssargent/lunadb/pkg/codec"
)

const (
	docPrefix   = 'd'
	manifestKey = "m/latest"

	manifestSize = 20 + 8 + 8 + 8
)

var (
	ErrNotFound   = errors.New("archived document not found")
	ErrNoManifest = errors.New("archive has no manifest")
)

// Manifest describes the most recent export.
type Manifest struct {
	BatchID   ksuid.KSUID
	Documents int64
	Bytes     int64
	Finished  time.Time
}

// Archive is a pebble database holding one document per identifier.
type Archive struct {
	db     *pebble.DB
	logger *slog.Logger
}

// Open opens or creates an archive at path.
func Open(path string, logger *slog.Logger) (*Archive, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Archive{db: db, logger: logger}, nil
}

// Export writes every document from docs in a single batch and records a
// manifest for it. Tombstoned documents remove their key from the archive.
// Nothing is committed if docs yields an error or ctx is cancelled.
func (a *Archive) Export(ctx context.Context, docs iter.Seq2[codec.Document, error]) (Manifest, error) {
	m := Manifest{BatchID: ksuid.New()}

	batch := a.db.NewBatch()
	defer batch.Close()

	for doc, err := range docs {
		if err != nil {
			return Manifest{}, fmt.Errorf("export %s: %w", m.BatchID, err)
		}
		if err := ctx.Err(); err != nil {
			return Manifest{}, err
		}

		key := docKey(doc.ID)
		if doc.Deleted() {
			if err := batch.Delete(key, nil); err != nil {
				return Manifest{}, err
			}
			continue
		}
		if err := batch.Set(key, doc.Data, nil); err != nil {
			return Manifest{}, err
		}
		m.Documents++
		m.Bytes += int64(len(doc.Data))
	}

	m.Finished = time.Now().UTC()
	if err := batch.Set([]byte(manifestKey), encodeManifest(m), nil); err != nil {
		return Manifest{}, err
	}
	if err := batch.Commit(pebble.Sync); err != nil {
		return Manifest{}, fmt.Errorf("commit export %s: %w", m.BatchID, err)
	}

	a.logger.Info("archive export committed", "batch", m.BatchID.String(), "documents", m.Documents, "bytes", m.Bytes)
	return m, nil
}

// Get returns a copy of the archived document stored under id.
func (a *Archive) Get(id int32) ([]byte, error) {
	data, closer, err := a.db.Get(docKey(id))
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	defer closer.Close()

	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

// Delete removes id from the archive. Missing ids are not an error.
func (a *Archive) Delete(id int32) error {
	return a.db.Delete(docKey(id), pebble.Sync)
}

// Manifest returns the manifest of the last committed export.
func (a *Archive) Manifest() (Manifest, error) {
	raw, closer, err := a.db.Get([]byte(manifestKey))
	if errors.Is(err, pebble.ErrNotFound) {
		return Manifest{}, ErrNoManifest
	}
	if err != nil {
		return Manifest{}, err
	}
	defer closer.Close()

	return decodeManifest(raw)
}

func (a *Archive) Close() error {
	return a.db.Close()
}

// docKey orders documents by identifier under pebble's bytewise comparer.
func docKey(id int32) []byte {
	key := make([]byte, 5)
	key[0] = docPrefix
	binary.BigEndian.PutUint32(key[1:], uint32(id))
	return key
}

func encodeManifest(m Manifest) []byte {
	buf := make([]byte, manifestSize)
	copy(buf, m.BatchID.Bytes())
	codec.WriteInt64(buf, 20, m.Documents)
	codec.WriteInt64(buf, 28, m.Bytes)
	codec.WriteInt64(buf, 36, m.Finished.UnixNano())
	return buf
}

func decodeManifest(b []byte) (Manifest, error) {
	if len(b) != manifestSize {
		return Manifest{}, fmt.Errorf("%w: manifest is %d bytes", codec.ErrCorrupt, len(b))
	}
	id, err := ksuid.FromBytes(b[:20])
	if err != nil {
		return Manifest{}, fmt.Errorf("%w: manifest batch id: %v", codec.ErrCorrupt, err)
	}
	return Manifest{
		BatchID:   id,
		Documents: codec.ReadInt64(b, 20),
		Bytes:     codec.ReadInt64(b, 28),
		Finished:  time.Unix(0, codec.ReadInt64(b, 36)).UTC(),
	}, nil
}
