package gateway

import (
	"encoding/json"
	"errors"
	"testing"

	"gotest.tools/assert"

	"github.com/sensoriq/framegate-go/pkg"
)

func TestFormatFrameError(t *testing.T) {
	body := []byte{0x01, 0x02}
	msg := FormatFrameError("10.0.0.7:52011", 0, body, errors.New("sensor body must be 12 bytes, got 2"))

	var data FrameError
	assert.NilError(t, json.Unmarshal(msg, &data))
	assert.Equal(t, data.Source, "framegate")
	assert.Equal(t, data.Peer, "10.0.0.7:52011")
	assert.Equal(t, data.Opcode, int16(0))
	assert.Equal(t, data.BodyLen, 2)
	assert.Equal(t, data.Payload, "0102")
	assert.Equal(t, data.Reason, "sensor body must be 12 bytes, got 2")
	assert.Assert(t, data.CreateTime > 0)
}

func TestFormatFrameErrorTruncatesPayload(t *testing.T) {
	body := pkg.RandBytes(payloadSample * 4)
	msg := FormatFrameError("peer", 7, body, errors.New("oversized"))

	var data FrameError
	assert.NilError(t, json.Unmarshal(msg, &data))

	// the full length is reported but only a sample of the body travels
	assert.Equal(t, data.BodyLen, payloadSample*4)
	assert.Equal(t, len(data.Payload), payloadSample*2)
}
