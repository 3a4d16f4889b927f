package hbase

import (
	"encoding/binary"
	"fmt"

	"github.com/sensoriq/framegate-go/pkg"
)

// HRecord is anything that can be written as one hbase row
type HRecord interface {
	GetRowKey() []byte
	GetQualifiersMap() map[string][]byte
}

// SensorRecord is one decoded sensor reading attributed to its peer
type SensorRecord struct {
	Peer    string
	Reading pkg.SensorData
}

// GetRowKey build the row key as peer:date
func (r SensorRecord) GetRowKey() []byte {
	return []byte(fmt.Sprintf("%s:%d", r.Peer, r.Reading.Date))
}

// GetQualifiersMap lay the reading out under the d column family
func (r SensorRecord) GetQualifiersMap() map[string][]byte {
	date := make([]byte, 8)
	binary.BigEndian.PutUint64(date, uint64(r.Reading.Date))
	temperature := make([]byte, 4)
	binary.BigEndian.PutUint32(temperature, uint32(r.Reading.Temperature))

	return map[string][]byte{
		"d:date":        date,
		"d:temperature": temperature,
	}
}
