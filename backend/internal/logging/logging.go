package logging

import (
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Output formats.
const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

// ParseLevel maps a config string to a level. Unknown names fall back to info.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToUpper(level) {
	case "TRACE":
		return zerolog.TraceLevel
	case "DEBUG":
		return zerolog.DebugLevel
	case "INFO":
		return zerolog.InfoLevel
	case "WARN":
		return zerolog.WarnLevel
	case "ERROR":
		return zerolog.ErrorLevel
	case "DISABLED", "OFF":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}

// New builds the process logger. out receives console or JSON lines
// depending on format; every extra writer (a log file, say) gets plain JSON.
func New(level, format string, out io.Writer, extra ...io.Writer) zerolog.Logger {
	zerolog.TimestampFunc = func() time.Time {
		return time.Now().UTC()
	}

	var primary io.Writer = out
	if strings.EqualFold(format, FormatConsole) {
		primary = zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: time.RFC3339,
		}
	}

	var w io.Writer = primary
	if len(extra) > 0 {
		writers := append([]io.Writer{primary}, extra...)
		w = zerolog.MultiLevelWriter(writers...)
	}

	return zerolog.New(w).Level(ParseLevel(level)).With().Timestamp().Logger()
}

// Sampled wraps logger for hot paths: at most 5 entries per 10 seconds, then
// one in n.
func Sampled(logger zerolog.Logger, n uint32) zerolog.Logger {
	return logger.Sample(&zerolog.BurstSampler{
		Burst:       5,
		Period:      10 * time.Second,
		NextSampler: &zerolog.BasicSampler{N: n},
	})
}
