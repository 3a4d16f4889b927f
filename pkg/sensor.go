package pkg

import (
	"encoding/binary"
	"fmt"
)

// SensorDataLength is the fixed body size of a SensorData frame:
// date:int64_le || temperature:int32_le
const SensorDataLength = 12

// SensorData is the payload of opcode 0
type SensorData struct {
	Date        int64
	Temperature int32
}

// Opcode of a sensor reading
func (p SensorData) Opcode() int16 {
	return OpcodeSensorData
}

// DecodeSensorData parse a frame body into a sensor reading
func DecodeSensorData(body []byte) (p SensorData, err error) {
	if len(body) != SensorDataLength {
		err = fmt.Errorf("sensor body must be %d bytes, got %d", SensorDataLength, len(body))
		return
	}
	p.Date = int64(binary.LittleEndian.Uint64(body))
	p.Temperature = int32(binary.LittleEndian.Uint32(body[8:]))
	return
}

// EncodeSensorData renders a sensor reading as a frame body
func EncodeSensorData(p SensorData) []byte {
	body := make([]byte, SensorDataLength)
	binary.LittleEndian.PutUint64(body, uint64(p.Date))
	binary.LittleEndian.PutUint32(body[8:], uint32(p.Temperature))
	return body
}

func init() {
	RegisterDecoder(OpcodeSensorData, func(body []byte) (Packet, error) {
		return DecodeSensorData(body)
	})
}
