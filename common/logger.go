package common

import (
	"io"

	"github.com/sirupsen/logrus"
)

// NewLogger returns a logrus logger writing to out. Unknown levels fall back to info.
func NewLogger(out io.Writer, level string, timestamps bool) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(out)
	logger.SetFormatter(&logrus.TextFormatter{
		DisableTimestamp: !timestamps,
		FullTimestamp:    timestamps,
	})
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	logger.SetLevel(lvl)
	if lvl >= logrus.DebugLevel {
		logger.SetReportCaller(true)
	}
	return logger
}
