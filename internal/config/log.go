package config

import (
	"strings"

	"github.com/sirupsen/logrus"
)

// ConfigureLogger sets the global logrus level and formatter.
// Unknown values fall back to info and text with a warning.
func ConfigureLogger(cfg LogConfig) {
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		logrus.WithField("level", cfg.Level).Warn("unknown log level, using info")
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)

	switch strings.ToLower(cfg.Format) {
	case "json":
		logrus.SetFormatter(&logrus.JSONFormatter{})
	case "", "text":
		logrus.SetFormatter(&logrus.TextFormatter{DisableColors: true, FullTimestamp: true})
	case "color-text":
		logrus.SetFormatter(&logrus.TextFormatter{ForceColors: true, FullTimestamp: true})
	default:
		logrus.SetFormatter(&logrus.TextFormatter{DisableColors: true, FullTimestamp: true})
		logrus.WithFields(logrus.Fields{
			"format":  cfg.Format,
			"options": []string{"json", "text", "color-text"},
		}).Warn("unknown log format, using text")
	}
}
