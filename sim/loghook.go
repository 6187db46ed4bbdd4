package sim

import (
	"io"
	"log"
)

// A LogHook is a hook that is responsible for writing what it observes to a
// logger.
type LogHook interface {
	Hook
}

// LogHookBase provides the logger shared by all LogHooks.
type LogHookBase struct {
	*log.Logger
}

// NewLogHookBase creates a LogHookBase that writes to w. Every line starts
// with prefix.
func NewLogHookBase(w io.Writer, prefix string) LogHookBase {
	return LogHookBase{Logger: log.New(w, prefix, 0)}
}
