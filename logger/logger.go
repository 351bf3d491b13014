// Package logger is the process-wide structured-logging seam. It
// defaults to a discard sink so the MtA core stays silent unless a
// caller opts in, e.g. a DKLS signing session wiring its own logger
// through SetLogger before running MtA rounds.
package logger

import "github.com/getamis/sirius/log"

var logger = log.Discard()

// Logger returns the currently configured logger.
func Logger() log.Logger {
	return logger
}

// SetLogger replaces the process-wide logger.
func SetLogger(l log.Logger) {
	logger = l
}
