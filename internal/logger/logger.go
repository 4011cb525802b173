package logger

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Log is the process-wide logger used by every package
var Log = logrus.New()

// Config holds logger settings
type Config struct {
	Level  string
	Format string // "text" or "json"
	Output io.Writer
}

// Init configures the global logger
func Init(cfg Config) {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	Log.SetOutput(out)

	if strings.EqualFold(cfg.Format, "json") {
		Log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		Log.SetFormatter(&logrus.TextFormatter{
			TimestampFormat: "2006/01/02 15:04:05",
			FullTimestamp:   true,
			DisableSorting:  true,
		})
	}

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	Log.SetLevel(level)
}

// Discard silences the global logger, mostly for tests
func Discard() {
	Log.SetOutput(io.Discard)
}
