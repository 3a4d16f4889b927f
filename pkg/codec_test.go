package pkg

import (
	"bytes"
	"testing"

	"gotest.tools/assert"
)

func TestHeaderRoundTrip(t *testing.T) {
	for _, tc := range []struct {
		opcode  int16
		bodyLen int32
	}{
		{0, 0},
		{0, 12},
		{999, 4},
		{-1, 1},
		{32767, DefaultMaxBodyLen},
	} {
		header := EncodeHeader(tc.opcode, tc.bodyLen)
		assert.Equal(t, len(header), HeaderSize)

		opcode, bodyLen := ParseHeader(header)
		assert.Equal(t, opcode, tc.opcode)
		assert.Equal(t, bodyLen, tc.bodyLen)
	}
}

func TestHeaderLayout(t *testing.T) {
	// opcode 0x0102 and length 0x030405 in little-endian byte order
	header := EncodeHeader(0x0102, 0x030405)
	assert.Assert(t, bytes.Equal(header, []byte{0x02, 0x01, 0x05, 0x04, 0x03, 0x00}))
}

func TestEncodeFrame(t *testing.T) {
	body := RandBytes(20)
	frame := EncodeFrame(7, body)
	assert.Equal(t, len(frame), HeaderSize+len(body))

	opcode, bodyLen := ParseHeader(frame)
	assert.Equal(t, opcode, int16(7))
	assert.Equal(t, int(bodyLen), len(body))
	assert.Assert(t, bytes.Equal(frame[HeaderSize:], body))
}

func TestNegativeLengthSurvivesParse(t *testing.T) {
	// a crafted 0xFFFFFFFF length decodes to -1; the receive path rejects it
	header := []byte{0x00, 0x00, 0xFF, 0xFF, 0xFF, 0xFF}
	_, bodyLen := ParseHeader(header)
	assert.Assert(t, bodyLen < 0)
}

func BenchmarkParseHeader(b *testing.B) {
	header := EncodeHeader(0, 512)
	for i := 0; i < b.N; i++ {
		ParseHeader(header)
	}
}
