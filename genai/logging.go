package genai

import (
	"sync/atomic"

	"github.com/rs/zerolog"
)

// defaultLogger is used by adapters constructed without WithLogger.
var defaultLogger atomic.Pointer[zerolog.Logger]

func init() {
	nop := zerolog.Nop()
	defaultLogger.Store(&nop)
}

// SetLogger installs the package default logger.
func SetLogger(l zerolog.Logger) { defaultLogger.Store(&l) }

// Logger returns the package default logger.
func Logger() zerolog.Logger { return *defaultLogger.Load() }
