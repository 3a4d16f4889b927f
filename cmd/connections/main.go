package main

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/sensoriq/framegate-go/gateway"
	"github.com/sensoriq/framegate-go/util"
)

var (
	redisHost     string
	redisPort     int
	redisPassword string
	redisDB       int

	host       string
	showHosts  bool
	includeAll bool
)

func main() {
	var rootCmd = &cobra.Command{
		Use:   "connections",
		Short: "list live gateway connections from the redis table",
		Run: func(cmd *cobra.Command, args []string) {
			list()
		},
	}
	flags := rootCmd.Flags()
	flags.StringVarP(&redisHost, "redis-host", "", "127.0.0.1", "redis host")
	flags.IntVarP(&redisPort, "redis-port", "", 6379, "redis port")
	flags.StringVarP(&redisPassword, "redis-password", "", "", "redis password")
	flags.IntVarP(&redisDB, "redis-db", "", 0, "redis db")
	flags.StringVarP(&host, "host", "", "", "only connections served by this gateway host")
	flags.BoolVarP(&showHosts, "hosts", "", false, "list gateway hosts instead of connections")
	flags.BoolVarP(&includeAll, "all", "a", false, "include stale entries")

	if err := rootCmd.Execute(); err != nil {
		log.Fatal().Msgf("err: %v", err)
	}
}

func list() {
	redisClient := util.GetRedisClient(redisHost, redisPort, redisPassword, redisDB)

	var result map[string]string
	var err error
	switch {
	case showHosts:
		result, err = gateway.GetHosts(redisClient, !includeAll)
	case host != "":
		result, err = gateway.GetConnectionsByHost(redisClient, host, !includeAll)
	default:
		result, err = gateway.GetConnections(redisClient, !includeAll)
	}
	if err != nil {
		log.Fatal().Msgf("redis error: %v", err)
	}

	for key, val := range result {
		fmt.Printf("%s\t%s\n", key, val)
	}
	fmt.Printf("total: %d\n", len(result))
}
