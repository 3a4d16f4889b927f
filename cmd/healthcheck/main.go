package main

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	tcp "github.com/tevino/tcp-shaker"
)

var (
	addr    string
	timeout int
)

// healthcheck probes a gateway port with a half-open connect, so a check
// leaves no accepted connection behind on the server.
func main() {
	var rootCmd = &cobra.Command{
		Use:   "healthcheck",
		Short: "probe a framegate instance",
		Run: func(cmd *cobra.Command, args []string) {
			check()
		},
	}
	flags := rootCmd.Flags()
	flags.StringVarP(&addr, "addr", "a", "127.0.0.1:11000", "gateway address")
	flags.IntVarP(&timeout, "timeout", "t", 2, "probe timeout in seconds")

	if err := rootCmd.Execute(); err != nil {
		log.Fatal().Msgf("err: %v", err)
	}
}

func check() {
	checker := tcp.NewChecker()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		if err := checker.CheckingLoop(ctx); err != nil {
			log.Error().Msgf("checking loop error: %v", err)
		}
	}()
	<-checker.WaitReady()

	err := checker.CheckAddr(addr, time.Duration(timeout)*time.Second)
	switch err {
	case nil:
		log.Info().Msgf("%s is healthy", addr)
	case tcp.ErrTimeout:
		log.Error().Msgf("%s timed out", addr)
		os.Exit(1)
	default:
		log.Error().Msgf("%s is unreachable: %v", addr, err)
		os.Exit(1)
	}
}
