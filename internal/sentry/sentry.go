package sentry

import (
	"time"

	sentrygo "github.com/getsentry/sentry-go"

	"github.com/tirelane/tirelane/internal/config"
	"github.com/tirelane/tirelane/internal/logger"
)

// Initialize sets up the Sentry SDK when enabled. Returns a flush function
// to call on shutdown.
func Initialize(cfg *config.Configuration, log *logger.Logger) (func(), error) {
	if !cfg.Sentry.Enabled || cfg.Sentry.DSN == "" {
		return func() {}, nil
	}

	err := sentrygo.Init(sentrygo.ClientOptions{
		Dsn:              cfg.Sentry.DSN,
		Environment:      cfg.Sentry.Environment,
		TracesSampleRate: cfg.Sentry.SampleRate,
	})
	if err != nil {
		return nil, err
	}

	log.Infow("sentry initialized", "environment", cfg.Sentry.Environment)
	return func() {
		sentrygo.Flush(2 * time.Second)
	}, nil
}
