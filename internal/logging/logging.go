package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger wraps logrus with file rotation plus console output.
type Logger struct {
	log *logrus.Logger
}

// New creates a Logger writing to dir/server.log (rotated) and stdout.
func New(dir, level string) (*Logger, error) {
	if dir == "" {
		dir = "logs"
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create logs folder failed: %w", err)
	}

	rotator := &lumberjack.Logger{
		Filename:   filepath.Join(dir, "server.log"),
		MaxSize:    50, // MB
		MaxBackups: 5,
		MaxAge:     30, // days
	}

	l := logrus.New()
	l.SetOutput(io.MultiWriter(rotator, os.Stdout))
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	l.SetLevel(lvl)

	return &Logger{log: l}, nil
}

// Discard returns a Logger that drops everything, for tests.
func Discard() *Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return &Logger{log: l}
}

func (l *Logger) Debugf(msg string, args ...interface{}) { l.log.Debugf(msg, args...) }
func (l *Logger) Infof(msg string, args ...interface{})  { l.log.Infof(msg, args...) }
func (l *Logger) Warnf(msg string, args ...interface{})  { l.log.Warnf(msg, args...) }
func (l *Logger) Errorf(msg string, args ...interface{}) { l.log.Errorf(msg, args...) }
func (l *Logger) Fatalf(msg string, args ...interface{}) { l.log.Fatalf(msg, args...) }
