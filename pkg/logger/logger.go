package logger

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

type Logger struct {
	*logrus.Logger
}

// NewLogger writes to stderr so that a generated script can go to stdout.
func NewLogger(verbose bool) *Logger {
	return New(os.Stderr, verbose)
}

func New(out io.Writer, verbose bool) *Logger {
	log := logrus.New()
	log.SetOutput(out)
	log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	if verbose {
		log.SetLevel(logrus.DebugLevel)
	} else {
		log.SetLevel(logrus.InfoLevel)
	}

	return &Logger{Logger: log}
}

// Discard returns a logger for tests and library callers that do not want output.
func Discard() *Logger {
	return New(io.Discard, false)
}

func (l *Logger) ForTable(name string) *logrus.Entry {
	return l.WithField("table", name)
}
