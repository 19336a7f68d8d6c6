package archive

import (
	"context"
	"errors"
	"iter"
	"path/filepath"
	"testing"

	"github.com/segmentio/ksuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssargent/lunadb/pkg/codec"
	"github.com/ssargent/lunadb/pkg/logging"
	"github.com/ssargent/lunadb/pkg/store"
)

func openTestArchive(t *testing.T) *Archive {
	t.Helper()

	a, err := Open(filepath.Join(t.TempDir(), "archive"), logging.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })
	return a
}

func seq(docs ...codec.Document) iter.Seq2[codec.Document, error] {
	return func(yield func(codec.Document, error) bool) {
		for _, d := range docs {
			if !yield(d, nil) {
				return
			}
		}
	}
}

func TestArchive_ExportFromStore(t *testing.T) {
	s, err := store.Open(store.Config{DataDir: t.TempDir()})
	require.NoError(t, err)
	defer s.Close()

	w := s.NewWriter()
	for i, payload := range []string{"aaaaaaaa", "bbbbbbbb", "cccccccc"} {
		_, err := w.Put(int32(i+1), []byte(payload))
		require.NoError(t, err)
	}
	require.NoError(t, s.Delete(2))

	a := openTestArchive(t)
	m, err := a.Export(context.Background(), s.ScanLive(context.Background()))
	require.NoError(t, err)

	assert.Equal(t, int64(2), m.Documents)
	assert.Equal(t, int64(16), m.Bytes)
	assert.False(t, m.BatchID.IsNil())

	data, err := a.Get(1)
	require.NoError(t, err)
	assert.Equal(t, "aaaaaaaa", string(data))

	_, err = a.Get(2)
	assert.ErrorIs(t, err, ErrNotFound)

	data, err = a.Get(3)
	require.NoError(t, err)
	assert.Equal(t, "cccccccc", string(data))
}

func TestArchive_TombstonesRemoveKeys(t *testing.T) {
	a := openTestArchive(t)
	_, err := a.Export(context.Background(), seq(codec.Document{ID: 5, Data: []byte("stale")}))
	require.NoError(t, err)

	_, err = a.Export(context.Background(), seq(
		codec.Document{ID: 5, Tombstone: codec.Deleted, Data: []byte("stale")},
		codec.Document{ID: 6, Data: []byte("fresh")},
	))
	require.NoError(t, err)

	_, err = a.Get(5)
	assert.ErrorIs(t, err, ErrNotFound)
	data, err := a.Get(6)
	require.NoError(t, err)
	assert.Equal(t, "fresh", string(data))
}

func TestArchive_FailedExportCommitsNothing(t *testing.T) {
	a := openTestArchive(t)
	boom := errors.New("scan failed")

	failing := func(yield func(codec.Document, error) bool) {
		if !yield(codec.Document{ID: 1, Data: []byte("x")}, nil) {
			return
		}
		yield(codec.Document{}, boom)
	}

	_, err := a.Export(context.Background(), failing)
	assert.ErrorIs(t, err, boom)

	_, err = a.Get(1)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = a.Manifest()
	assert.ErrorIs(t, err, ErrNoManifest)
}

func TestArchive_CancelledExport(t *testing.T) {
	a := openTestArchive(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := a.Export(ctx, seq(codec.Document{ID: 1, Data: []byte("x")}))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestArchive_Manifest(t *testing.T) {
	a := openTestArchive(t)

	_, err := a.Manifest()
	assert.ErrorIs(t, err, ErrNoManifest)

	first, err := a.Export(context.Background(), seq(codec.Document{ID: 1, Data: []byte("abc")}))
	require.NoError(t, err)
	second, err := a.Export(context.Background(), seq())
	require.NoError(t, err)

	got, err := a.Manifest()
	require.NoError(t, err)
	assert.Equal(t, second.BatchID, got.BatchID)
	assert.NotEqual(t, first.BatchID, got.BatchID)
	assert.Zero(t, got.Documents)
	assert.Equal(t, second.Finished.UnixNano(), got.Finished.UnixNano())

	// documents from earlier exports remain
	data, err := a.Get(1)
	require.NoError(t, err)
	assert.Equal(t, "abc", string(data))
}

func TestArchive_Delete(t *testing.T) {
	a := openTestArchive(t)
	_, err := a.Export(context.Background(), seq(codec.Document{ID: 9, Data: []byte("nine")}))
	require.NoError(t, err)

	data, err := a.Get(9)
	require.NoError(t, err)
	assert.Equal(t, "nine", string(data))

	require.NoError(t, a.Delete(9))
	_, err = a.Get(9)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.NoError(t, a.Delete(10))
}

func TestManifestCodec(t *testing.T) {
	_, err := decodeManifest([]byte{1, 2, 3})
	assert.ErrorIs(t, err, codec.ErrCorrupt)

	m := Manifest{BatchID: ksuid.New(), Documents: 3, Bytes: 99}
	got, err := decodeManifest(encodeManifest(m))
	require.NoError(t, err)
	assert.Equal(t, m.BatchID, got.BatchID)
	assert.Equal(t, int64(3), got.Documents)
	assert.Equal(t, int64(99), got.Bytes)
}

func TestDocKeyOrdering(t *testing.T) {
	assert.Less(t, string(docKey(1)), string(docKey(2)))
	assert.Less(t, string(docKey(255)), string(docKey(256)))
	assert.Equal(t, byte(docPrefix), docKey(7)[0])
}
