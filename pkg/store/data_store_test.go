package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssargent/lunadb/pkg/codec"
)

func TestDataStore_AppendChains(t *testing.T) {
	file := &memFile{}
	ds := NewDataStore(file)

	var offset int64
	var offsets []int64
	for i, payload := range []string{"a", "", "ccc"} {
		offsets = append(offsets, offset)
		next, err := ds.Append(int32(i+1), codec.Live, []byte(payload), offset)
		require.NoError(t, err)
		assert.Equal(t, offset+int64(codec.RecordSize(len(payload))), next)
		offset = next
	}

	assert.Equal(t, offset, ds.Size())
	assert.Len(t, file.bytes(), int(offset))

	doc, err := ds.ReadDocumentAt(offsets[2])
	require.NoError(t, err)
	assert.Equal(t, int32(3), doc.ID)
	assert.Equal(t, "ccc", string(doc.Data))

	doc, err = ds.ReadDocumentAt(offsets[1])
	require.NoError(t, err)
	assert.Equal(t, int32(2), doc.ID)
	assert.Empty(t, doc.Data)
}

func TestDataStore_ReadDocumentAt_OwnsPayload(t *testing.T) {
	ds := NewDataStore(&memFile{})
	_, err := ds.Append(1, codec.Live, []byte("first"), 0)
	require.NoError(t, err)

	doc, err := ds.ReadDocumentAt(0)
	require.NoError(t, err)

	_, err = ds.Append(1, codec.Live, []byte("other"), 0)
	require.NoError(t, err)
	assert.Equal(t, "first", string(doc.Data))
}

func TestDataStore_Tombstone(t *testing.T) {
	ds := NewDataStore(&memFile{})
	_, err := ds.Append(1, codec.Live, []byte("aaaaaaaa"), 0)
	require.NoError(t, err)

	ts, err := ds.ReadTombstone(0)
	require.NoError(t, err)
	assert.Equal(t, codec.Live, ts)

	require.NoError(t, ds.WriteTombstone(0, codec.Deleted))

	ts, err = ds.ReadTombstone(0)
	require.NoError(t, err)
	assert.Equal(t, codec.Deleted, ts)

	doc, err := ds.ReadDocumentAt(0)
	require.NoError(t, err)
	assert.True(t, doc.Deleted())
	assert.Equal(t, "aaaaaaaa", string(doc.Data))
}

func TestDataStore_ReadPastEnd(t *testing.T) {
	ds := NewDataStore(&memFile{})

	_, err := ds.ReadTombstone(100)
	assert.ErrorIs(t, err, codec.ErrCorrupt)

	_, err = ds.ReadDocumentAt(100)
	assert.ErrorIs(t, err, codec.ErrCorrupt)
}

func TestDataStore_AppendTooLarge(t *testing.T) {
	file := &memFile{}
	ds := NewDataStore(file)

	_, err := ds.Append(1, codec.Live, make([]byte, 2000), 0)
	assert.ErrorIs(t, err, codec.ErrDataTooLarge)
	assert.Empty(t, file.bytes())
	assert.Zero(t, ds.Size())
}
