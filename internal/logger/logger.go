// Package logger builds the process-wide logrus logger.
package logger

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options controls where and how verbosely the logger writes.
type Options struct {
	Level string
	File  string // when set, output also goes to a rotated file
	Env   string
}

// New returns a JSON logger and a close function for the rotated file.
// An unknown level falls back to info.
func New(o Options) (*logrus.Logger, func() error) {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{TimestampFormat: "2006-01-02T15:04:05.000Z07:00"})

	level, err := logrus.ParseLevel(o.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)

	closer := func() error { return nil }
	if o.File != "" {
		rotated := NewRotatingFile(o.File)
		log.SetOutput(io.MultiWriter(os.Stdout, rotated))
		closer = rotated.Close
	} else {
		log.SetOutput(os.Stdout)
	}
	if err != nil && o.Level != "" {
		log.WithField("level", o.Level).Warn("unknown log level, using info")
	}
	return log, closer
}

// NewRotatingFile returns a size-rotated file writer.
func NewRotatingFile(path string) *lumberjack.Logger {
	return &lumberjack.Logger{
		Filename:   path,
		MaxSize:    10, // megabytes
		MaxBackups: 5,
		MaxAge:     28, // days
		Compress:   true,
		LocalTime:  true,
	}
}
