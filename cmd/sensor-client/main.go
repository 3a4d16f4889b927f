package main

import (
	"math/rand"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/sensoriq/framegate-go/gateway"
	"github.com/sensoriq/framegate-go/network"
	"github.com/sensoriq/framegate-go/pkg"
)

var (
	workload     int
	serverAddr   string
	sendInterval float64
	frameCount   int
	opcode       int
	splitWrite   bool

	sentFrames int64
)

func init() {
	gateway.ConfigLogFromEnv()
}

func main() {
	var clientCmd = &cobra.Command{
		Use: "sensor-client",
		Run: func(cmd *cobra.Command, args []string) {
			start()
		},
	}
	flags := clientCmd.Flags()
	flags.IntVarP(&workload, "num", "n", 1, "number of clients")
	flags.Float64VarP(&sendInterval, "interval", "i", 1.0, "send interval in seconds")
	flags.StringVarP(&serverAddr, "server-addr", "s", "127.0.0.1:11000", "server address")
	flags.IntVarP(&frameCount, "count", "c", 0, "frames per client, 0 means until interrupted")
	flags.IntVarP(&opcode, "opcode", "o", int(pkg.OpcodeSensorData), "opcode to send")
	flags.BoolVarP(&splitWrite, "split", "", false, "split every frame across two writes")

	if err := clientCmd.Execute(); err != nil {
		log.Fatal().Msgf("err: %v", err)
	}
}

func start() {
	stopCh := make(chan struct{})
	go func() {
		signals := make(chan os.Signal, 1)
		signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
		<-signals
		close(stopCh)
	}()

	var wg sync.WaitGroup
	for i := 0; i < workload; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			run(id, stopCh)
		}(i)
	}
	wg.Wait()
	log.Info().Msgf("sent %d frames in total", atomic.LoadInt64(&sentFrames))
}

func run(id int, stopCh chan struct{}) {
	client := network.NewClient(serverAddr, true)
	client.ID = string(rune('A' + id%26))
	if err := client.Connect(); err != nil {
		log.Error().Msgf("client %d connect error: %v", id, err)
		return
	}
	defer client.Stop()

	interval := time.Duration(sendInterval * float64(time.Second))
	sent := 0
	for frameCount == 0 || sent < frameCount {
		select {
		case <-stopCh:
			return
		default:
		}

		if err := sendOne(client); err != nil {
			log.Error().Msgf("client %d send error: %v", id, err)
		} else {
			sent++
			atomic.AddInt64(&sentFrames, 1)
		}

		select {
		case <-stopCh:
			return
		case <-time.After(interval):
		}
	}
}

func sendOne(client *network.Client) error {
	reading := pkg.SensorData{
		Date:        time.Now().Unix(),
		Temperature: int32(rand.Intn(80) - 20),
	}
	frame := pkg.EncodeFrame(int16(opcode), pkg.EncodeSensorData(reading))

	if splitWrite && len(frame) > 8 {
		// exercise re-assembly: the first 8 bytes, a pause, the rest
		if err := client.Send(frame[:8]); err != nil {
			return err
		}
		time.Sleep(100 * time.Millisecond)
		return client.Send(frame[8:])
	}
	return client.Send(frame)
}
