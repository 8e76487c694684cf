package utils

import (
	"io"
	"os"

	"github.com/Gkemhcs/justeat-linker/internal/config"
	"github.com/sirupsen/logrus"
)

// New creates and configures a new logrus.Logger instance based on the environment.
// Production logs are JSON on stdout; development logs are human readable at debug level.
func New(cfg *config.Config) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stdout)

	if cfg.IsDevelopment() {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
		log.SetLevel(logrus.DebugLevel)
	} else {
		log.SetFormatter(&logrus.JSONFormatter{})
		log.SetLevel(logrus.InfoLevel)
	}

	if cfg.LogLevel != "" {
		if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
			log.SetLevel(level)
		} else {
			log.Warnf("ignoring unknown LOG_LEVEL %q", cfg.LogLevel)
		}
	}

	return log
}

// Discard returns a logger that drops everything; used by tests.
func Discard() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}
