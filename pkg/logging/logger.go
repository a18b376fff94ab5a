// Package logging configures structured logging with zerolog.
//
// Components take a zerolog.Logger in their Config and fall back to
// NewLogger(component) when none is given, so every line carries a
// "component" field.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LogLevel represents the logging level.
type LogLevel string

const (
	// LevelDebug logs cache decisions and everything above.
	LevelDebug LogLevel = "debug"

	// LevelInfo logs sweeps, startup and shutdown.
	LevelInfo LogLevel = "info"

	// LevelWarn logs upstream failures.
	LevelWarn LogLevel = "warn"

	// LevelError logs parsing failures and store outages.
	LevelError LogLevel = "error"
)

// Config holds logger configuration.
type Config struct {
	// Level is the minimum log level to output.
	Level LogLevel

	// Pretty enables human-readable console output instead of JSON.
	Pretty bool

	// Output defaults to os.Stderr.
	Output io.Writer
}

// DefaultConfig returns a default logger configuration.
func DefaultConfig() Config {
	return Config{
		Level:  LevelInfo,
		Pretty: false,
		Output: os.Stderr,
	}
}

// ParseLevel validates a level name. "warning" is accepted for warn.
func ParseLevel(s string) (LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, nil
	case "info", "":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	default:
		return "", fmt.Errorf("unknown log level %q", s)
	}
}

// Setup configures the global zerolog logger and returns it.
func Setup(cfg Config) zerolog.Logger {
	zerolog.SetGlobalLevel(zerologLevel(cfg.Level))
	zerolog.DurationFieldUnit = time.Millisecond

	output := cfg.Output
	if output == nil {
		output = os.Stderr
	}
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{Out: output, TimeFormat: time.TimeOnly}
	}

	logger := zerolog.New(output).With().Timestamp().Logger()
	log.Logger = logger
	return logger
}

// zerologLevel maps a level name to zerolog, defaulting to info.
func zerologLevel(level LogLevel) zerolog.Level {
	parsed, err := ParseLevel(string(level))
	if err != nil {
		return zerolog.InfoLevel
	}
	switch parsed {
	case LevelDebug:
		return zerolog.DebugLevel
	case LevelWarn:
		return zerolog.WarnLevel
	case LevelError:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// NewLogger returns a child of the global logger tagged with component.
// Call it after Setup.
func NewLogger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

// Field conventions:
//
//	source       source type of a cached record (e.g. HeroParser)
//	locator      normalized locator (e.g. en-us/heroes/ana)
//	url          upstream URL of a failed fetch or parse
//	status       HTTP status of an upstream answer
//	error_class  client, server, network, timeout or parsing
//	kind         request kind (list_heroes, get_hero, ...)
//	signature    request signature of an API call
//	found, updated, failed, duration   refresh sweep summary
//
// Upstream failures are logged at warn since they reflect the state of the
// upstream site. Parsing failures are logged at error: the parser needs an
// update.
