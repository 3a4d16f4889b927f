package pkg

import (
	"encoding/binary"
	"errors"
)

// Frame layout constants. The wire frame is
// opcode:int16_le || body_len:int32_le || body, with no start flag,
// version field or checksum; compatibility is positional.
const (
	HeaderSize     = 6
	OpcodePosition = 0
	LengthPosition = 2

	// DefaultMaxBodyLen bounds the memory one header can demand.
	DefaultMaxBodyLen = 16 << 20
)

// ErrFrameTooLarge reports a header whose declared body length is negative
// or exceeds the configured cap.
var ErrFrameTooLarge = errors.New("frame body length out of range")

// ParseHeader extracts opcode and body length from a complete header.
// The slice must hold at least HeaderSize bytes.
func ParseHeader(header []byte) (opcode int16, bodyLen int32) {
	opcode = int16(binary.LittleEndian.Uint16(header[OpcodePosition:]))
	bodyLen = int32(binary.LittleEndian.Uint32(header[LengthPosition:]))
	return
}

// EncodeHeader renders a frame header for the given opcode and body length.
func EncodeHeader(opcode int16, bodyLen int32) []byte {
	header := make([]byte, HeaderSize)
	binary.LittleEndian.PutUint16(header[OpcodePosition:], uint16(opcode))
	binary.LittleEndian.PutUint32(header[LengthPosition:], uint32(bodyLen))
	return header
}

// EncodeFrame renders a complete frame, header plus body.
func EncodeFrame(opcode int16, body []byte) []byte {
	frame := make([]byte, HeaderSize+len(body))
	binary.LittleEndian.PutUint16(frame[OpcodePosition:], uint16(opcode))
	binary.LittleEndian.PutUint32(frame[LengthPosition:], uint32(len(body)))
	copy(frame[HeaderSize:], body)
	return frame
}
