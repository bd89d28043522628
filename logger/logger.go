package logger

import (
	"io"
	"os"
	"sync"

	"github.com/sirupsen/logrus"
)

const projectName = "halo-scheduler"

var (
	projectLogger *logrus.Logger
	loggerOnce    sync.Once
)

func initLogger() {
	loggerOnce.Do(func() {
		projectLogger = logrus.New()
		projectLogger.Out = os.Stderr
		projectLogger.Level = logrus.InfoLevel
		projectLogger.Formatter = &logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
		}
	})
}

// GetProjectLogger returns the shared logger, tagged with the project name.
func GetProjectLogger() *logrus.Entry {
	initLogger()
	return projectLogger.WithField("name", projectName)
}

// SetLevel parses and applies a logrus level name such as "debug" or "info".
func SetLevel(level string) error {
	initLogger()
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return err
	}
	projectLogger.SetLevel(lvl)
	return nil
}

// Discard returns an entry that drops everything written to it. Tests hand this to
// components that would otherwise write to stderr.
func Discard() *logrus.Entry {
	l := logrus.New()
	l.Out = io.Discard
	return logrus.NewEntry(l)
}
