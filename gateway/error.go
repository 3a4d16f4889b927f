package gateway

import (
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sensoriq/framegate-go/common"
)

// payloadSample bounds how much of a rejected body travels in the envelope,
// so a hostile frame cannot balloon the error topic.
const payloadSample = 256

// FrameError is the envelope sent to the error topic when a frame cannot be
// decoded.
type FrameError struct {
	Source     string `json:"source"`
	Peer       string `json:"peer"`
	Opcode     int16  `json:"opcode"`
	BodyLen    int    `json:"body_len"`
	Payload    string `json:"payload"`
	Reason     string `json:"reason"`
	CreateTime int64  `json:"create_time"`
}

// FormatFrameError render a rejected frame for the error topic
func FormatFrameError(peer string, opcode int16, body []byte, cause error) []byte {
	sample := body
	if len(sample) > payloadSample {
		sample = sample[:payloadSample]
	}
	msg, err := json.Marshal(FrameError{
		Source:     common.GatewayServiceName,
		Peer:       peer,
		Opcode:     opcode,
		BodyLen:    len(body),
		Payload:    hex.EncodeToString(sample),
		Reason:     cause.Error(),
		CreateTime: time.Now().Unix(),
	})
	if err != nil {
		log.Error().Msg(err.Error())
	}
	return msg
}
