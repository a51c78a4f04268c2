package config

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
)

// NewLogger creates the application logger writing to stderr, so that stdout stays free for
// the formatted conversation.
func NewLogger(level string, json bool) (*logrus.Logger, error) {
	log := logrus.New()
	log.SetOutput(os.Stderr)

	if json {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("parse log level: %w", err)
	}
	log.SetLevel(lvl)
	return log, nil
}
