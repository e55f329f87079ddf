// Package logging contains the singleton logger that we use globally.
// It deliberately has little else since it's a dependency everywhere.
package logging

import (
	"os"

	"gopkg.in/op/go-logging.v1"
)

// Log is the singleton logger instance.
// We never alter individual levels and don't log the module name, so there
// is no need to have more than one, and it helps avoid race conditions.
var Log = logging.MustGetLogger("depcore")

// Level is a re-export of the library type.
type Level = logging.Level

// Re-exports of various log levels.
const (
	CRITICAL = logging.CRITICAL
	ERROR    = logging.ERROR
	WARNING  = logging.WARNING
	NOTICE   = logging.NOTICE
	INFO     = logging.INFO
	DEBUG    = logging.DEBUG
)

var formatter = logging.MustStringFormatter("%{time:15:04:05.000} %{level:7s}: %{message}")

// InitLogging installs a stderr backend at the given level. Commands call
// this once at startup with their --verbosity flag; tests don't call it
// and get the library's own default stderr backend.
func InitLogging(level Level) {
	backend := logging.NewBackendFormatter(logging.NewLogBackend(os.Stderr, "", 0), formatter)
	leveled := logging.AddModuleLevel(backend)
	leveled.SetLevel(level, "")
	logging.SetBackend(leveled)
}
