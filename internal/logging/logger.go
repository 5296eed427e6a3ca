package logging

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Init configures the global logger from the environment.
//
// CAPTION_LOG_LEVEL: debug, info, warn, error (default: info).
// CAPTION_LOG_FORMAT: json writes raw JSON lines, anything else uses the
// human-readable console writer.
func Init() {
	zerolog.SetGlobalLevel(ParseLevel(os.Getenv("CAPTION_LOG_LEVEL")))
	log.Logger = zerolog.New(writer(os.Getenv("CAPTION_LOG_FORMAT"), os.Stderr)).
		With().Timestamp().Logger()
}

// ParseLevel maps a level name to a zerolog level, defaulting to info.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

func writer(format string, out io.Writer) io.Writer {
	if strings.EqualFold(format, "json") {
		return out
	}
	return zerolog.ConsoleWriter{Out: out}
}
