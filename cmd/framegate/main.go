package main

import (
	"bufio"
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-basic/uuid"
	"github.com/go-redis/redis"
	consulapi "github.com/hashicorp/consul/api"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	confluentKafka "gopkg.in/confluentinc/confluent-kafka-go.v1/kafka"

	"github.com/sensoriq/framegate-go/common"
	"github.com/sensoriq/framegate-go/gateway"
	"github.com/sensoriq/framegate-go/hbase"
	"github.com/sensoriq/framegate-go/util"
)

const (
	HealthyCheckPort = 9111 // consul health check port
)

type LogHook struct{}

func (hook LogHook) Run(e *zerolog.Event, level zerolog.Level, msg string) {
	if writer != nil {
		writer.WriteString(fmt.Sprintf("%s\n", msg))
	}
}

var (
	logLevel         string
	consulAddr       string
	enableMonitoring bool

	host        string
	hostAddress string

	// log to file
	enableLogToFile bool
	outputFile      *os.File
	writer          *bufio.Writer

	enableConfigFromFile bool
	enableConsul         bool

	// redis config
	redisHost        string
	redisPort        int
	redisPassword    string
	redisDB          int
	redisReadTimeout int

	kafkaBrokers []string
	normalTopic  string
	eventTopic   string
	errorTopic   string

	// hbase config
	hbaseAddr      string
	hbaseTable     string
	hbaseBatchSize int

	// network config
	port          int
	monitorPort   int
	socketTimeout int
	maxFrameBytes int
	gracePeriod   int

	redisClient  *redis.Client
	consulClient *consulapi.Client
	producer     *confluentKafka.Producer

	signals = make(chan os.Signal, 2)
)

func readConfigFromFile() {
	viper.SetConfigName("config")
	viper.AddConfigPath(".")
	err := viper.ReadInConfig()
	if err != nil {
		panic(err)
	}

	kafkaBrokers = viper.GetStringSlice("kafka.brokerUrls")
	normalTopic = viper.GetString("kafka.normalTopic")
	eventTopic = viper.GetString("kafka.eventTopic") // connect/disconnect events
	errorTopic = viper.GetString("kafka.errorTopic")

	redisHost = viper.GetString("redis.host")
	redisPort = viper.GetInt("redis.port")
	redisPassword = viper.GetString("redis.password")
	redisDB = viper.GetInt("redis.db")
	redisReadTimeout = viper.GetInt("redis.readTimeout")

	hbaseAddr = viper.GetString("hbase.addr")
	hbaseTable = viper.GetString("hbase.table")
	hbaseBatchSize = viper.GetInt("hbase.batchSize")

	monitorPort = viper.GetInt("monitorPort")
	socketTimeout = viper.GetInt("socketTimeout")
	maxFrameBytes = viper.GetInt("maxFrameBytes")
	gracePeriod = viper.GetInt("gracePeriod")
	enableLogToFile = viper.GetBool("enableLogToFile")
	enableMonitoring = viper.GetBool("enableMonitoring")
	logLevel = viper.GetString("logLevel")

	gateway.ConfigLogLevel(logLevel)
	if enableLogToFile {
		log.Logger = log.Hook(LogHook{})
		outputFile, err = os.Create(fmt.Sprintf("./%d-framegate.log", time.Now().Unix()))
		if err != nil {
			log.Error().Msgf("fail to create framegate.log, err: %v", err)
		} else {
			writer = bufio.NewWriter(outputFile)
		}
	}
}

func initConsul() {
	var err error
	config := consulapi.DefaultConfig()
	config.Address = consulAddr
	log.Info().Msgf("consul address is: %s", consulAddr)
	consulClient, err = consulapi.NewClient(config)
	if err != nil {
		panic(err)
	}
}

// registerService register the gateway to consul with an HTTP health check
func registerService() (err error) {
	registration := new(consulapi.AgentServiceRegistration)
	registration.ID = uuid.New()
	registration.Name = common.GatewayServiceName
	registration.Port = port
	registration.Address = hostAddress

	check := new(consulapi.AgentServiceCheck)
	checkAddress := fmt.Sprintf("http://%s:%d", registration.Address, HealthyCheckPort)
	log.Info().Msgf("check address is: %s", checkAddress)
	check.HTTP = checkAddress
	check.Timeout = "5s"
	check.Interval = "5s"
	check.DeregisterCriticalServiceAfter = "30s"
	registration.Check = check

	err = consulClient.Agent().ServiceRegister(registration)
	return
}

func startCheckServer() {
	http.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("pong"))
	})
	err := http.ListenAndServe(fmt.Sprintf("0.0.0.0:%d", HealthyCheckPort), nil)
	if err != nil {
		log.Error().Msgf("health check server error: %v", err)
	}
}

func main() {
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	host = util.GetHost()
	if host == "" {
		log.Error().Msg("failed to get host name...")
	}

	var serverCmd = &cobra.Command{
		Use: "server",
		Run: func(cmd *cobra.Command, args []string) {
			startServer()
		},
	}

	serverCmd.Flags().BoolVarP(&enableConfigFromFile, "enable-config-from-file", "", true, "read config from file")
	serverCmd.Flags().BoolVarP(&enableConsul, "enable-consul", "", false, "register service to consul")
	serverCmd.Flags().StringVarP(&consulAddr, "consul", "", "", "consul address")
	serverCmd.Flags().IntVarP(&port, "port", "p", 11000, "port to listen")

	serverCmd.Execute()
}

func startServer() {
	hostAddress = util.GetLocalIP()
	if enableConfigFromFile {
		readConfigFromFile()
	}

	log.Info().Msgf("enableConsul: %v", enableConsul)
	log.Info().Msgf("enableMonitoring: %v", enableMonitoring)
	log.Info().Msgf("host address is: %s", hostAddress)

	if enableConsul {
		initConsul()
		if err := registerService(); err != nil {
			log.Error().Msgf("register service error: %v", err)
		}
		go startCheckServer()
	}

	if len(kafkaBrokers) > 0 {
		var err error
		producer, err = gateway.NewKafkaProducer(kafkaBrokers)
		if err != nil {
			log.Error().Msgf("fail to connect to kafka, error is: %v", err)
			panic(err)
		}
	}
	if redisHost != "" {
		redisClient = util.GetRedisClientWithTimeOut(redisHost, redisPort, redisPassword, redisDB, redisReadTimeout)
	}

	var hbaseConfig *hbase.HConfig
	if hbaseAddr != "" {
		hbaseConfig = &hbase.HConfig{
			TableName: hbaseTable,
			Addr:      hbaseAddr,
			BatchSize: hbaseBatchSize,
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		sig := <-signals
		log.Info().Msgf("signal: %v, draining...", sig)
		cancel()

		sig = <-signals
		log.Info().Msgf("signal: %v, exiting now", sig)
		os.Exit(1)
	}()

	gatewayConfig := gateway.GatewayConfig{
		GatewayPort:      port,
		SocketTimeout:    socketTimeout,
		MaxFrameBytes:    int32(maxFrameBytes),
		RedisClient:      redisClient,
		Producer:         producer,
		NormalTopic:      normalTopic,
		EventTopic:       eventTopic,
		ErrorTopic:       errorTopic,
		HBase:            hbaseConfig,
		EnableMonitoring: enableMonitoring,
		MonitorPort:      monitorPort,
		StopContext:      ctx,
		GracePeriod:      time.Duration(gracePeriod) * time.Second,
	}
	if err := gateway.Serve(gatewayConfig); err != nil {
		log.Fatal().Msgf("serve error: %v", err)
	}

	if redisClient != nil {
		// this instance is gone, drop it from the alive table
		redisClient.HDel(common.RedisKeyAliveHosts, gateway.HostIP)
	}
	if writer != nil {
		writer.Flush()
		outputFile.Close()
	}
}
