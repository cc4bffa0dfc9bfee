package logger

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// DefaultLevel is used when the configured level cannot be parsed
const DefaultLevel = logrus.InfoLevel

// New creates a logrus logger writing to stderr with full timestamps
func New(level string) *logrus.Logger {
	return NewWithOutput(level, os.Stderr)
}

// NewWithOutput is New with an explicit destination
func NewWithOutput(level string, out io.Writer) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(out)
	log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = DefaultLevel
	}
	log.SetLevel(lvl)

	return log
}

// Component returns an entry tagged with the component name
func Component(log logrus.FieldLogger, component string) *logrus.Entry {
	return log.WithField("component", component)
}

// Discard returns a logger that drops everything, for tests
func Discard() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}
