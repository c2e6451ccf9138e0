package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/pterm/pterm"
)

var logLevels = map[string]pterm.LogLevel{
	"trace": pterm.LogLevelTrace,
	"debug": pterm.LogLevelDebug,
	"info":  pterm.LogLevelInfo,
	"warn":  pterm.LogLevelWarn,
	"error": pterm.LogLevelError,
}

// NewLogger returns a pterm logger writing to w at the named level
func NewLogger(level string, w io.Writer) (*pterm.Logger, error) {
	lvl, ok := logLevels[strings.ToLower(strings.TrimSpace(level))]
	if !ok {
		return nil, fmt.Errorf("unknown log level %q", level)
	}
	return pterm.DefaultLogger.
		WithWriter(w).
		WithLevel(lvl).
		WithTime(lvl <= pterm.LogLevelDebug), nil
}
