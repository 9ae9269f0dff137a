// Package logging configures the watcher's structured logger. Level and
// environment tagging follow the original worker's environment variable
// names (RUST_LOG, HAWKEYE_ENV) so operators don't have to relearn a new
// vocabulary after the rewrite.
package logging

import (
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// New builds a logrus.Logger whose level is derived from RUST_LOG and
// whose entries carry a static "env" field from HAWKEYE_ENV (defaulting
// to "development") plus the given runID.
func New(runID string) *logrus.Entry {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})
	log.SetLevel(levelFromEnv())

	env := os.Getenv("HAWKEYE_ENV")
	if env == "" {
		env = "development"
	}

	return log.WithFields(logrus.Fields{
		"env":    env,
		"run_id": runID,
	})
}

// levelFromEnv maps RUST_LOG (trace|debug|info|warn|error) to a logrus
// level, defaulting to info on anything unrecognized or unset.
func levelFromEnv() logrus.Level {
	switch strings.ToLower(os.Getenv("RUST_LOG")) {
	case "trace":
		return logrus.TraceLevel
	case "debug":
		return logrus.DebugLevel
	case "warn", "warning":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}
