// Package logging builds the logrus logger shared by the CLI, the server and
// the automation driver.
package logging

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options selects the level, format and destination of the logger.
type Options struct {
	Level string // logrus level name; empty means "info"
	File  string // rotated log file; empty means stderr
	JSON  bool   // JSON formatter instead of text
}

// Rotation limits for log files.
const (
	maxSizeMB  = 50
	maxBackups = 3
	maxAgeDays = 7
)

// NewRotatingWriter returns a size-rotated writer for path.
func NewRotatingWriter(path string) io.WriteCloser {
	return &lumberjack.Logger{
		Filename:   path,
		MaxSize:    maxSizeMB,
		MaxBackups: maxBackups,
		MaxAge:     maxAgeDays,
		Compress:   true,
	}
}

// New returns a configured logger and a closer for its output. The closer is
// a no-op when logging to stderr.
func New(opts Options) (*logrus.Logger, io.Closer, error) {
	level := logrus.InfoLevel
	if opts.Level != "" {
		parsed, err := logrus.ParseLevel(opts.Level)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid log level %q: %w", opts.Level, err)
		}
		level = parsed
	}

	logger := logrus.New()
	logger.SetLevel(level)

	var closer io.Closer = nopCloser{}
	if opts.File != "" {
		w := NewRotatingWriter(opts.File)
		logger.SetOutput(w)
		closer = w
	} else {
		logger.SetOutput(os.Stderr)
	}

	if opts.JSON {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return logger, closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
