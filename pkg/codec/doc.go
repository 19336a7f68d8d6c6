// Package codec provides the binary record and index slot formats for LunaDB.
//
// LunaDB keeps two files: a data file of packed document records and an index
// file of fixed-width slots. This package knows how to lay both out in bytes;
// it performs no I/O.
//
// # Record Format
//
// Records are written back to back with no padding:
//
//	[ID(4)][Tombstone(1)][Length(2)][Data]
//
// Fields:
//   - ID: 32-bit signed identifier assigned by the caller (little-endian)
//   - Tombstone: 0 for a live record, 1 for a deleted one
//   - Length: 16-bit signed payload length, 0 to 1024 (little-endian)
//   - Data: Length bytes of opaque payload
//
// The length field is the only record boundary. A damaged length shifts every
// record that follows it.
//
// # Index Slot Format
//
// The index file is an array of 12-byte slots addressed by identifier:
//
//	position = 12 * (identifier - 1)
//	[ID(4)][Offset(8)]
//
// A zero ID marks the slot empty, whatever the offset bytes hold.
//
// # Incremental Decoding
//
// DecodeDocument returns ErrIncomplete without consuming anything when the
// buffer ends inside a record. Streaming readers keep the partial bytes and
// retry once more data arrives:
//
//	doc, n, err := codec.DecodeDocument(buf)
//	switch {
//	case errors.Is(err, codec.ErrIncomplete):
//	    // read more
//	case err != nil:
//	    return err // corruption
//	default:
//	    buf = buf[n:]
//	}
//
// # Byte Order
//
// All integers are little-endian. CheckByteOrder reports ErrUnsupportedPlatform
// on big-endian hosts and the store will not open there.
package codec
