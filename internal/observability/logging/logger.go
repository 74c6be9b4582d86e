package logging

import (
	"io"
	"log/slog"
	"os"
	"regexp"
	"strings"
)

// Matches credentials passed as query parameters, e.g. the Maps API key.
var secretParam = regexp.MustCompile(`(?i)\b((?:api_?)?key|token)=[^&\s"']+`)

// NewJSONLogger writes JSON records to stdout tagged with the service name.
func NewJSONLogger(service, level string) *slog.Logger {
	return NewLogger(os.Stdout, service, level)
}

// NewLogger is NewJSONLogger with a caller-chosen sink; the MCP server and CLI log to stderr
// because stdout carries their output.
func NewLogger(w io.Writer, service, level string) *slog.Logger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:       ParseLevel(level),
		ReplaceAttr: redactSecrets,
	})
	return slog.New(handler).With("service", service)
}

// ParseLevel accepts slog level names (with optional offsets such as "debug+2") and
// "warning". Anything unrecognized logs at info.
func ParseLevel(level string) slog.Level {
	level = strings.TrimSpace(level)
	if strings.EqualFold(level, "warning") {
		return slog.LevelWarn
	}
	var parsed slog.Level
	if err := parsed.UnmarshalText([]byte(level)); err != nil {
		return slog.LevelInfo
	}
	return parsed
}

func redactSecrets(_ []string, a slog.Attr) slog.Attr {
	var text string
	switch a.Value.Kind() {
	case slog.KindString:
		text = a.Value.String()
	case slog.KindAny:
		err, ok := a.Value.Any().(error)
		if !ok {
			return a
		}
		text = err.Error()
	default:
		return a
	}
	if !secretParam.MatchString(text) {
		return a
	}
	return slog.String(a.Key, secretParam.ReplaceAllString(text, "$1=REDACTED"))
}
