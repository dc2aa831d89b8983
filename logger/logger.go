package logger

import (
	"os"

	"github.com/sirupsen/logrus"
)

const ServiceName = "kavyalok-api"

// global accessible logger
var (
	logger *logrus.Logger
	Log    *logrus.Entry
)

// Tests never reach main, so make sure Log is usable from the start.
func init() {
	Init("dev", "info")
}

// Init configures the global logger. Production output is JSON so it can be
// shipped as is; every other environment gets the text formatter.
func Init(env string, level string) {
	logger = logrus.New()
	logger.SetOutput(os.Stderr)

	if env == "prod" || env == "production" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	logger.SetLevel(lvl)

	Log = logger.WithFields(logrus.Fields{"service": ServiceName, "env": env})
}
