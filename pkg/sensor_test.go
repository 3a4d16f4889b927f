package pkg

import (
	"testing"

	"gotest.tools/assert"
)

func TestSensorDataRoundTrip(t *testing.T) {
	want := SensorData{Date: 1596093655, Temperature: 25}
	body := EncodeSensorData(want)
	assert.Equal(t, len(body), SensorDataLength)

	got, err := DecodeSensorData(body)
	assert.NilError(t, err)
	assert.Equal(t, got, want)
}

func TestSensorDataShortBody(t *testing.T) {
	_, err := DecodeSensorData(RandBytes(SensorDataLength - 1))
	assert.Assert(t, err != nil)

	_, err = DecodeSensorData(RandBytes(SensorDataLength + 1))
	assert.Assert(t, err != nil)
}

func TestDecodePacketDispatch(t *testing.T) {
	body := EncodeSensorData(SensorData{Date: 1, Temperature: -4})
	p, err := DecodePacket(OpcodeSensorData, body)
	assert.NilError(t, err)

	reading, ok := p.(SensorData)
	assert.Assert(t, ok)
	assert.Equal(t, reading.Temperature, int32(-4))
	assert.Equal(t, p.Opcode(), OpcodeSensorData)
}

func TestDecodePacketUnknownOpcode(t *testing.T) {
	body := []byte{0xFF, 0xFF, 0xFF, 0xFF}
	p, err := DecodePacket(999, body)
	assert.NilError(t, err)

	raw, ok := p.(RawPacket)
	assert.Assert(t, ok)
	assert.Equal(t, raw.Opcode(), int16(999))
	assert.DeepEqual(t, raw.Body, body)
}

func TestRandSensorFrame(t *testing.T) {
	frame := RandSensorFrame()
	opcode, bodyLen := ParseHeader(frame)
	assert.Equal(t, opcode, OpcodeSensorData)
	assert.Equal(t, bodyLen, int32(SensorDataLength))

	_, err := DecodeSensorData(frame[HeaderSize:])
	assert.NilError(t, err)
}
