package core

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

var once sync.Once

type logger struct {
	*log.Logger
}

var singleton *logger

func getLogger() *logger {
	once.Do(
		func() {
			l := log.NewWithOptions(os.Stderr, log.Options{
				ReportCaller:    true,
				ReportTimestamp: true,
				TimeFormat:      time.RFC3339,
				Prefix:          "Studio 🧍 ",
				CallerOffset:    1,
			})
			l.SetLevel(log.InfoLevel)
			singleton = &logger{l}
		})
	return singleton
}

// SetLogLevel accepts debug, info, warn, error or fatal. Unknown values fall back to info.
func SetLogLevel(level string) {
	lvl, err := log.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		getLogger().Warnf("unknown log level %q, using info", level)
		lvl = log.InfoLevel
	}
	getLogger().SetLevel(lvl)
}

// SetLogOutput redirects the process logger, mostly for tests and the CLI.
func SetLogOutput(w io.Writer) {
	getLogger().SetOutput(w)
}

// LogWith returns a child logger carrying the given key/value pairs.
func LogWith(keyvals ...interface{}) *log.Logger {
	return getLogger().With(keyvals...)
}

func LogDebug(msg string, args ...interface{}) {
	getLogger().Debugf(msg, args...)
}

func LogInfo(msg string, args ...interface{}) {
	getLogger().Infof(msg, args...)
}

func LogWarn(msg string, args ...interface{}) {
	getLogger().Warnf(msg, args...)
}

func LogError(msg string, args ...interface{}) {
	getLogger().Errorf(msg, args...)
}

func LogFatal(msg string, args ...interface{}) {
	getLogger().Fatalf(msg, args...)
}
