package hbase

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/sensoriq/framegate-go/network"
	"github.com/sensoriq/framegate-go/pkg"
)

// SensorStore is a frame sink persisting decoded sensor readings. Frames
// with other opcodes pass through untouched; decode failures are dropped
// here because the kafka error topic already carries them.
type SensorStore struct {
	lock   sync.Mutex
	client *BatchClient
}

func NewSensorStore(hc *HConfig) (*SensorStore, error) {
	client, err := NewBatchClient(hc)
	if err != nil {
		return nil, err
	}
	return &SensorStore{client: client}, nil
}

// HandleFrame is registered with the frame server.
func (s *SensorStore) HandleFrame(c *network.Connection, opcode int16, body []byte) {
	if opcode != pkg.OpcodeSensorData {
		return
	}
	reading, err := pkg.DecodeSensorData(body)
	if err != nil {
		log.Debug().Msgf("skip unparseable reading from %s: %v", c.ID(), err)
		return
	}

	s.lock.Lock()
	defer s.lock.Unlock()
	s.client.Save(SensorRecord{Peer: c.ID(), Reading: reading})
}
