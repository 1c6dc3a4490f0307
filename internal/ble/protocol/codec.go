// Package protocol implements the byte encoding used on the Bluno serial
// characteristic: 2-byte little-endian readings in, fixed-width
// little-endian commands out.
package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// ValueSize is the exact length of an inbound reading.
const ValueSize = 2

// DefaultCommandWidth is the outbound command width in bytes.
const DefaultCommandWidth = 2

// ErrInvalidLength is wrapped by every DecodeError.
var ErrInvalidLength = errors.New("protocol: invalid payload length")

// DecodeError reports an inbound payload of the wrong size.
type DecodeError struct {
	Len int
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("protocol: invalid data size (%d bytes, want %d)", e.Len, ValueSize)
}

func (e *DecodeError) Unwrap() error { return ErrInvalidLength }

// DecodeValue decodes a notified reading. The payload must be exactly
// ValueSize bytes and is read little-endian.
func DecodeValue(b []byte) (uint16, error) {
	if len(b) != ValueSize {
		return 0, &DecodeError{Len: len(b)}
	}
	return binary.LittleEndian.Uint16(b), nil
}

// ValidCommandWidth reports whether width is a supported command width.
func ValidCommandWidth(width int) bool {
	switch width {
	case 1, 2, 4, 8:
		return true
	}
	return false
}

// EncodeCommand encodes v little-endian into exactly width bytes.
// Width 8 matches firmware that expects a native 64-bit integer.
func EncodeCommand(v uint64, width int) ([]byte, error) {
	if !ValidCommandWidth(width) {
		return nil, fmt.Errorf("protocol: unsupported command width %d", width)
	}
	if width < 8 && v>>(uint(width)*8) != 0 {
		return nil, fmt.Errorf("protocol: command %d does not fit in %d bytes", v, width)
	}
	buf := make([]byte, width)
	switch width {
	case 1:
		buf[0] = byte(v)
	case 2:
		binary.LittleEndian.PutUint16(buf, uint16(v))
	case 4:
		binary.LittleEndian.PutUint32(buf, uint32(v))
	case 8:
		binary.LittleEndian.PutUint64(buf, v)
	}
	return buf, nil
}
