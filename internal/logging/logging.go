// Package logging provides the structured logger used by the coordinator
// and the CLI for progress and error reporting, with fields
// for simulated time and block height.
package logging

import (
	"os"

	"github.com/sirupsen/logrus"
)

// New returns a logrus.Logger configured for the coordinator: text output to
// stderr, level Info unless debug is set (then Debug).
func New(debug bool) *logrus.Logger {
	l := logrus.New()
	l.Out = os.Stderr
	l.Formatter = &logrus.TextFormatter{FullTimestamp: false}
	l.Level = logrus.InfoLevel
	if debug {
		l.Level = logrus.DebugLevel
	}
	return l
}

// Summary logs one print_interval progress line.
func Summary(l *logrus.Logger, simTime float64, height uint64, difficulty, reward float64, mempoolLen int) {
	l.WithFields(logrus.Fields{
		"sim_time":   simTime,
		"height":     height,
		"difficulty": difficulty,
		"reward":     reward,
		"mempool":    mempoolLen,
	}).Info("progress")
}
