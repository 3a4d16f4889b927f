package hbase

import (
	"testing"

	"gotest.tools/assert"

	"github.com/sensoriq/framegate-go/pkg"
)

func TestSensorRecordRowKey(t *testing.T) {
	record := SensorRecord{
		Peer:    "10.0.0.7:52011",
		Reading: pkg.SensorData{Date: 1596093655, Temperature: 25},
	}
	assert.Equal(t, string(record.GetRowKey()), "10.0.0.7:52011:1596093655")
}

func TestSensorRecordQualifiers(t *testing.T) {
	record := SensorRecord{
		Peer:    "peer",
		Reading: pkg.SensorData{Date: 0x0102030405060708, Temperature: -4},
	}
	qualifiers := record.GetQualifiersMap()

	assert.DeepEqual(t, qualifiers["d:date"], []byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08})
	assert.DeepEqual(t, qualifiers["d:temperature"], []byte{0xFF, 0xFF, 0xFF, 0xFC})
}
