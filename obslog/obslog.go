// Package obslog wires up the logr.Logger every layer of this module
// accepts, defaulting to stdr (go-logr/stdr) writing to stderr, and stamps
// each CLI session with a correlation id so concurrently run instances
// produce distinguishable logs.
package obslog

import (
	"log"
	"os"

	"github.com/go-logr/logr"
	"github.com/go-logr/stdr"
	"github.com/google/uuid"
)

// New builds a logr.Logger backed by stdr at the given verbosity
// threshold (log.V(n).Info calls above this level are dropped).
func New(verbosity int) logr.Logger {
	stdr.SetVerbosity(verbosity)
	return stdr.New(log.New(os.Stderr, "", log.LstdFlags|log.Lmicroseconds))
}

// NewSession returns logger with a fresh random session id attached, for
// tagging one bplusqld run's log lines.
func NewSession(logger logr.Logger) logr.Logger {
	return logger.WithValues("session", uuid.NewString())
}
