// Package logger configures the process-wide zerolog logger.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

var log zerolog.Logger

// Init sets up the default file logger, writing to crxd.log in the working
// directory. The level comes from the LOG_LEVEL environment variable.
func Init() (zerolog.Logger, error) {
	return InitWithOptions("crxd.log", false)
}

// InitWithOptions builds the root logger. An empty logFile selects stdout;
// pretty switches stdout to the human-readable console writer. Components
// derive their own loggers from the returned value.
func InitWithOptions(logFile string, pretty bool) (zerolog.Logger, error) {
	level := parseLogLevel(os.Getenv("LOG_LEVEL"))

	var out io.Writer = os.Stdout
	switch {
	case logFile != "":
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600) //nolint:gosec // operator-chosen path
		if err != nil {
			return zerolog.Logger{}, fmt.Errorf("failed to open log file %s: %w", logFile, err)
		}
		out = f
	case pretty:
		out = zerolog.ConsoleWriter{Out: os.Stdout}
	}

	log = zerolog.New(out).Level(level).With().Timestamp().Logger()

	ev := log.Info().Str("level", level.String())
	if logFile != "" {
		ev = ev.Str("path", logFile)
	}
	ev.Msg("Logger initialized")
	return log, nil
}

var levelNames = map[string]zerolog.Level{
	"trace":   zerolog.TraceLevel,
	"debug":   zerolog.DebugLevel,
	"info":    zerolog.InfoLevel,
	"warn":    zerolog.WarnLevel,
	"warning": zerolog.WarnLevel,
	"error":   zerolog.ErrorLevel,
}

func parseLogLevel(s string) zerolog.Level {
	if lvl, ok := levelNames[strings.ToLower(strings.TrimSpace(s))]; ok {
		return lvl
	}
	return zerolog.InfoLevel
}
