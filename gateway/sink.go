package gateway

import (
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/matryer/try"
	"github.com/rs/zerolog/log"
	confluentKafka "gopkg.in/confluentinc/confluent-kafka-go.v1/kafka"

	"github.com/sensoriq/framegate-go/network"
	"github.com/sensoriq/framegate-go/pkg"
)

const produceAttempts = 3

// KafkaSink publishes completed frames to kafka as JSON envelopes. Decoded
// readings go to the normal topic, frames the decoder rejects go to the
// error topic.
type KafkaSink struct {
	Producer    *confluentKafka.Producer
	NormalTopic string
	ErrorTopic  string
}

// HandleFrame is registered with the frame server.
func (k *KafkaSink) HandleFrame(c *network.Connection, opcode int16, body []byte) {
	envelope, err := BuildEnvelope(c.ID(), opcode, body)
	if err != nil {
		framesDecodeFailed.Inc()
		log.Info().Msgf("decode failed, opcode: %d, conn: %s, err: %v", opcode, c.ID(), err)
		k.produce(k.ErrorTopic, FormatFrameError(c.ID(), opcode, body, err), opcode)
		return
	}
	k.produce(k.NormalTopic, envelope, opcode)
}

func (k *KafkaSink) produce(topic string, message []byte, opcode int16) {
	send := func(attempt int) (bool, error) {
		err := ProduceWithKey(k.Producer, topic, message, opcodeKey(opcode))
		if err != nil {
			log.Error().Msgf("err: %v, queue size: %v", err, k.Producer.Len())
			k.Producer.Flush(flushTimeout)
		}
		return attempt < produceAttempts, err
	}
	if err := try.Do(send); err != nil {
		errorFrames.Inc()
		return
	}
	enqueuedFrames.Observe(1)
}

// BuildEnvelope renders a decoded frame as the JSON the downstream topics
// consume. Unknown opcodes carry their body hex-encoded.
func BuildEnvelope(peer string, opcode int16, body []byte) ([]byte, error) {
	p, err := pkg.DecodePacket(opcode, body)
	if err != nil {
		return nil, err
	}

	data := map[string]interface{}{
		"opcode":      opcode,
		"peer":        peer,
		"received_at": time.Now().Unix(),
	}
	switch v := p.(type) {
	case pkg.SensorData:
		data["date"] = v.Date
		data["temperature"] = v.Temperature
	case pkg.RawPacket:
		data["payload"] = hex.EncodeToString(v.Body)
	}
	return json.Marshal(data)
}

func opcodeKey(opcode int16) []byte {
	key := make([]byte, 2)
	binary.LittleEndian.PutUint16(key, uint16(opcode))
	return key
}
