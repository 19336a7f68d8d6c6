package codec

import (
	"encoding/binary"
	"errors"
)

// ErrUnsupportedPlatform is returned when the host byte order is not little-endian.
var ErrUnsupportedPlatform = errors.New("big endian byte order not supported")

// CheckByteOrder verifies the host stores integers little-endian.
//
// The on-disk layout is always little-endian and encoding goes through
// binary.LittleEndian, but the store refuses to open on a big-endian host
// so that files are never shared between hosts that disagree on layout.
func CheckByteOrder() error {
	probe := [2]byte{0x01, 0x00}
	if binary.NativeEndian.Uint16(probe[:]) != 1 {
		return ErrUnsupportedPlatform
	}
	return nil
}

// WriteInt16 writes v at buf[off:off+2].
func WriteInt16(buf []byte, off int, v int16) {
	binary.LittleEndian.PutUint16(buf[off:], uint16(v))
}

// WriteInt32 writes v at buf[off:off+4].
func WriteInt32(buf []byte, off int, v int32) {
	binary.LittleEndian.PutUint32(buf[off:], uint32(v))
}

// WriteInt64 writes v at buf[off:off+8].
func WriteInt64(buf []byte, off int, v int64) {
	binary.LittleEndian.PutUint64(buf[off:], uint64(v))
}

// ReadInt16 reads the int16 at buf[off:off+2].
func ReadInt16(buf []byte, off int) int16 {
	return int16(binary.LittleEndian.Uint16(buf[off:]))
}

// ReadInt32 reads the int32 at buf[off:off+4].
func ReadInt32(buf []byte, off int) int32 {
	return int32(binary.LittleEndian.Uint32(buf[off:]))
}

// ReadInt64 reads the int64 at buf[off:off+8].
func ReadInt64(buf []byte, off int) int64 {
	return int64(binary.LittleEndian.Uint64(buf[off:]))
}

// IsInt32Zero reports whether the 4-byte field at off is zero without decoding it.
func IsInt32Zero(buf []byte, off int) bool {
	_ = buf[off+3] // bounds check hint
	return buf[off]|buf[off+1]|buf[off+2]|buf[off+3] == 0
}
