package gateway

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// variables for monitoring
	upstreamBytes = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "framegate",
			Subsystem: "traffic",
			Name:      "upstream_bytes",
			Help:      "upstream bytes per frame",
		},
	)

	framesReceived = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "framegate",
			Subsystem: "traffic",
			Name:      "received_frames",
			Help:      "completed frames published by the server",
		},
	)

	framesDecodeFailed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "framegate",
			Subsystem: "traffic",
			Name:      "decode_failed_frames",
			Help:      "frames whose body failed the opcode decoder",
		},
	)

	enqueuedFrames = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "framegate",
			Subsystem: "kafka",
			Name:      "enqueued_frames",
			Help:      "",
			Buckets:   []float64{1, 10, 20, 30, 40, 50, 100, 1000},
		},
	)
	producedFrames = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "framegate",
			Subsystem: "kafka",
			Name:      "produced_frames",
			Help:      "",
			Buckets:   []float64{1, 10, 20, 30, 40, 50, 100, 1000},
		},
	)
	errorFrames = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "framegate",
			Subsystem: "kafka",
			Name:      "error_frames",
			Help:      "",
		},
	)

	connectionCount = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "framegate",
			Subsystem: "connection",
			Name:      "connection_count",
			Help:      "connection count",
		},
	)
)

func prometheusRegister() {
	// traffic
	prometheus.Register(upstreamBytes)
	prometheus.Register(framesReceived)
	prometheus.Register(framesDecodeFailed)

	// kafka
	prometheus.Register(enqueuedFrames)
	prometheus.Register(producedFrames)
	prometheus.Register(errorFrames)

	// conn
	prometheus.Register(connectionCount)
}
