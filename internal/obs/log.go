package obs

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	loggerMu sync.RWMutex
	logger   = zerolog.New(os.Stdout).With().Timestamp().Logger()
)

// SetupLogger builds the process logger and installs it as the zerolog global logger.
// Dev mode writes human readable console output to stderr, otherwise JSON lines go to stdout.
func SetupLogger(dev bool, level string) zerolog.Logger {
	lvl := parseLevel(level, dev)

	var out io.Writer = os.Stdout
	if dev {
		out = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	}
	l := zerolog.New(out).Level(lvl).With().Timestamp().Str("service", ServiceName).Logger()
	if dev {
		l = l.With().Caller().Logger()
	}
	SetLogger(l)
	return l
}

// SetLogger replaces the shared logger. Tests use it to capture output.
func SetLogger(l zerolog.Logger) {
	loggerMu.Lock()
	logger = l
	loggerMu.Unlock()
	log.Logger = l
}

// Logger returns the shared structured logger used across the service.
func Logger() *zerolog.Logger {
	loggerMu.RLock()
	defer loggerMu.RUnlock()
	l := logger
	return &l
}

func parseLevel(level string, dev bool) zerolog.Level {
	level = strings.TrimSpace(strings.ToLower(level))
	if level == "" {
		if dev {
			return zerolog.DebugLevel
		}
		return zerolog.InfoLevel
	}
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return zerolog.InfoLevel
	}
	return lvl
}
