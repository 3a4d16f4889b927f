package pkg

import (
	"math/rand"
	"time"
)

const letters = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// RandString make random visible string with length n
func RandString(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = letters[rand.Intn(len(letters))]
	}
	return string(b)
}

// RandBytes make random byte slice with length n
func RandBytes(n int) []byte {
	b := make([]byte, n)
	rand.Read(b)
	return b
}

// RandSensorData make a random but plausible sensor reading
func RandSensorData() SensorData {
	return SensorData{
		Date:        time.Now().Unix(),
		Temperature: int32(rand.Intn(80) - 20),
	}
}

// RandSensorFrame make a complete random SensorData frame
func RandSensorFrame() []byte {
	return EncodeFrame(OpcodeSensorData, EncodeSensorData(RandSensorData()))
}
