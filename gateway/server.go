package gateway

import (
	"context"
	"fmt"
	"net/http"
	"net/http/pprof"
	"time"

	"github.com/go-redis/redis"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	confluentKafka "gopkg.in/confluentinc/confluent-kafka-go.v1/kafka"

	"github.com/sensoriq/framegate-go/common"
	"github.com/sensoriq/framegate-go/hbase"
	"github.com/sensoriq/framegate-go/network"
	"github.com/sensoriq/framegate-go/pkg"
)

// GatewayConfig contain gateway config
type GatewayConfig struct {
	GatewayPort   int
	SocketTimeout int
	MaxFrameBytes int32

	RedisClient *redis.Client

	Producer    *confluentKafka.Producer
	NormalTopic string
	ErrorTopic  string
	EventTopic  string

	// HBase enables the sensor store sink when set
	HBase *hbase.HConfig

	EnableMonitoring bool
	MonitorPort      int

	StopContext context.Context

	// GracePeriod bounds the natural drain after a graceful stop; 0 waits
	// forever
	GracePeriod time.Duration
}

// Serve run a gateway with the given config, blocking until StopContext is
// done and the server has stopped.
func Serve(config GatewayConfig) error {
	if config.EnableMonitoring {
		prometheusRegister()
		monitorPort := config.MonitorPort
		if monitorPort == 0 {
			monitorPort = 8080
		}
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		AttachProfiler(mux)

		s := &http.Server{
			Addr:           fmt.Sprintf(":%d", monitorPort),
			Handler:        mux,
			ReadTimeout:    30 * time.Second,
			WriteTimeout:   30 * time.Second,
			MaxHeaderBytes: 1 << 20,
		}
		go func() {
			err := s.ListenAndServe()
			log.Info().Msgf("monitor serve error: %v", err)
		}()
	}

	server := network.NewFrameServer(&network.ServerConfig{
		Timeout:    config.SocketTimeout,
		MaxBodyLen: config.MaxFrameBytes,
	})

	server.OnConnectionMade(func(c *network.Connection) {
		log.Info().Msgf("Receive new connection from %v", c.RemoteAddr())
		connectionCount.Inc()
	})
	server.OnConnectionClosed(func(c *network.Connection, err error) {
		log.Info().Msgf("Connection lost with client %v, err: %v", c.ID(), err)
		connectionCount.Dec()
	})
	server.OnFrameReceived(func(c *network.Connection, opcode int16, body []byte) {
		framesReceived.Inc()
		upstreamBytes.Observe(float64(pkg.HeaderSize + len(body)))
	})

	if config.Producer != nil && config.EventTopic != "" {
		server.OnConnectionMade(func(c *network.Connection) {
			CommitEvent(config.Producer, config.EventTopic, c.ID(), common.ConnectEvent)
		})
		server.OnConnectionClosed(func(c *network.Connection, err error) {
			CommitEvent(config.Producer, config.EventTopic, c.ID(), common.DisconnectEvent)
		})
	}

	if config.Producer != nil {
		sink := &KafkaSink{
			Producer:    config.Producer,
			NormalTopic: config.NormalTopic,
			ErrorTopic:  config.ErrorTopic,
		}
		server.OnFrameReceived(sink.HandleFrame)
	}

	if config.HBase != nil {
		store, err := hbase.NewSensorStore(config.HBase)
		if err != nil {
			return err
		}
		server.OnFrameReceived(store.HandleFrame)
	}

	if config.RedisClient != nil {
		reporter := &RedisReporter{Client: config.RedisClient}
		server.OnConnectionMade(reporter.ConnectionMade)
		server.OnConnectionClosed(reporter.ConnectionLost)
		go ReportAlive(config.StopContext, config.RedisClient)
	}

	if err := server.Start(config.GatewayPort); err != nil {
		return err
	}
	log.Info().Msgf("gateway serve at %s", server.Addr())

	<-config.StopContext.Done()
	server.Stop(false)

	deadline := time.Now().Add(config.GracePeriod)
	for server.ConnectionCount() > 0 {
		if config.GracePeriod > 0 && time.Now().After(deadline) {
			log.Info().Msgf("grace period exceeded, closing %d connections", server.ConnectionCount())
			server.Stop(true)
			break
		}
		time.Sleep(100 * time.Millisecond)
	}
	return nil
}

// AttachProfiler expose the pprof handlers on the monitoring mux
func AttachProfiler(router *http.ServeMux) {
	router.HandleFunc("/debug/pprof/", pprof.Index)
	router.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	router.HandleFunc("/debug/pprof/profile", pprof.Profile)
	router.HandleFunc("/debug/pprof/symbol", pprof.Symbol)

	router.Handle("/debug/pprof/goroutine", pprof.Handler("goroutine"))
	router.Handle("/debug/pprof/heap", pprof.Handler("heap"))
	router.Handle("/debug/pprof/threadcreate", pprof.Handler("threadcreate"))
	router.Handle("/debug/pprof/block", pprof.Handler("block"))
}
