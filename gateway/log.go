package gateway

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// ConfigLogFromEnv set the global log level from LOG_LEVEL
func ConfigLogFromEnv() {
	level := os.Getenv("LOG_LEVEL")
	log.Info().Msgf("log level: %s", level)
	ConfigLogLevel(level)
}

// ConfigLogLevel set the global log level by name, defaulting to info
func ConfigLogLevel(level string) {
	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}
