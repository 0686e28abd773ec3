package tlm

import (
	"encoding/binary"
	"fmt"
)

// Unsigned is the set of value types a bus access can carry.
type Unsigned interface {
	~uint8 | ~uint16 | ~uint32 | ~uint64
}

// SizeOf returns the number of bytes of a value type.
func SizeOf[T Unsigned]() int {
	var v T

	return binary.Size(v)
}

// Encode stores a value in little-endian byte order.
func Encode[T Unsigned](v T) []byte {
	buf := make([]byte, SizeOf[T]())

	switch len(buf) {
	case 1:
		buf[0] = byte(v)
	case 2:
		binary.LittleEndian.PutUint16(buf, uint16(v))
	case 4:
		binary.LittleEndian.PutUint32(buf, uint32(v))
	case 8:
		binary.LittleEndian.PutUint64(buf, uint64(v))
	default:
		panic(fmt.Sprintf("unsupported access size %d", len(buf)))
	}

	return buf
}

// Decode loads a little-endian value.
func Decode[T Unsigned](buf []byte) T {
	switch SizeOf[T]() {
	case 1:
		return T(buf[0])
	case 2:
		return T(binary.LittleEndian.Uint16(buf))
	case 4:
		return T(binary.LittleEndian.Uint32(buf))
	case 8:
		return T(binary.LittleEndian.Uint64(buf))
	default:
		panic("unsupported access size")
	}
}
