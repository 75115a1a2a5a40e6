package logger

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Global logger instance
var (
	Log zerolog.Logger
)

// Initialize sets up the global logger with configuration
func Initialize(level string, pretty bool) {
	// Parse log level
	logLevel, err := zerolog.ParseLevel(level)
	if err != nil {
		logLevel = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(logLevel)

	// Configure output format
	if pretty {
		// Pretty console output for development
		log.Logger = log.Output(zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		})
	} else {
		// JSON output for production
		zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	}

	// Set global logger
	Log = log.With().
		Str("service", "aura-swarm").
		Logger()

	Log.Info().
		Str("level", logLevel.String()).
		Bool("pretty", pretty).
		Msg("Logger initialized")
}

// GetLogger returns the global logger instance
func GetLogger() *zerolog.Logger {
	return &Log
}

// Store creates a logger for the embedded KV store component.
func Store() *zerolog.Logger {
	l := Log.With().Str("component", "store").Logger()
	return &l
}

// Control creates a logger for the control plane service component.
func Control() *zerolog.Logger {
	l := Log.With().Str("component", "control").Logger()
	return &l
}

// Scheduler creates a logger for the scheduler adapter component.
func Scheduler() *zerolog.Logger {
	l := Log.With().Str("component", "scheduler").Logger()
	return &l
}

// Reconciler creates a logger for the pod/event reconciler component.
func Reconciler() *zerolog.Logger {
	l := Log.With().Str("component", "reconciler").Logger()
	return &l
}

// Gateway creates a logger for the HTTP gateway component.
func Gateway() *zerolog.Logger {
	l := Log.With().Str("component", "gateway").Logger()
	return &l
}

// Proxy creates a logger for the session proxy component.
func Proxy() *zerolog.Logger {
	l := Log.With().Str("component", "proxy").Logger()
	return &l
}

// Auth creates a logger for the identity/JWT verification component.
func Auth() *zerolog.Logger {
	l := Log.With().Str("component", "auth").Logger()
	return &l
}
