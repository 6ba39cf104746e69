package config

import (
	"context"
	"os"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
)

var logger = logrus.New()

// InitLogger configures the process-wide logger. Unknown levels fall back to info.
func InitLogger(level, format string) {
	lvl, err := logrus.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		lvl = logrus.InfoLevel
	}
	logger.SetLevel(lvl)
	logger.SetOutput(os.Stdout)
	if strings.EqualFold(format, "json") {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
}

// Logger returns the process-wide logger.
func Logger() *logrus.Logger {
	return logger
}

// WithContext returns a logger tagged with the request id found in ctx, if any.
func WithContext(ctx context.Context) logrus.FieldLogger {
	if ctx == nil {
		return logger
	}
	if reqID := middleware.GetReqID(ctx); reqID != "" {
		return logger.WithField("request_id", reqID)
	}
	return logger
}
