package gateway

import (
	"encoding/json"
	"testing"

	"gotest.tools/assert"

	"github.com/sensoriq/framegate-go/pkg"
)

func TestBuildEnvelopeSensorData(t *testing.T) {
	body := pkg.EncodeSensorData(pkg.SensorData{Date: 1596093655, Temperature: 25})
	envelope, err := BuildEnvelope("10.0.0.7:52011", 0, body)
	assert.NilError(t, err)

	var data map[string]interface{}
	assert.NilError(t, json.Unmarshal(envelope, &data))
	assert.Equal(t, data["opcode"], float64(0))
	assert.Equal(t, data["peer"], "10.0.0.7:52011")
	assert.Equal(t, data["date"], float64(1596093655))
	assert.Equal(t, data["temperature"], float64(25))
	_, ok := data["received_at"]
	assert.Assert(t, ok)
}

func TestBuildEnvelopeUnknownOpcode(t *testing.T) {
	envelope, err := BuildEnvelope("peer", 999, []byte{0xFF, 0xFF, 0xFF, 0xFF})
	assert.NilError(t, err)

	var data map[string]interface{}
	assert.NilError(t, json.Unmarshal(envelope, &data))
	assert.Equal(t, data["opcode"], float64(999))
	assert.Equal(t, data["payload"], "ffffffff")
}

func TestBuildEnvelopeDecodeFailure(t *testing.T) {
	// a sensor frame with a truncated body fails the decoder
	_, err := BuildEnvelope("peer", 0, []byte{0x01})
	assert.Assert(t, err != nil)
}

func TestOpcodeKey(t *testing.T) {
	assert.DeepEqual(t, opcodeKey(0x0102), []byte{0x02, 0x01})
}
