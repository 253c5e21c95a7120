// Package sysutil holds process-level helpers used during startup.
package sysutil

import (
	"strings"

	"github.com/rs/zerolog"
)

// SetLogLevel applies a named level to the global zerolog logger.
// "warning" is accepted as an alias for "warn". Empty or unknown values
// fall back to info rather than failing startup.
func SetLogLevel(lvl string) {
	s := strings.ToLower(strings.TrimSpace(lvl))
	if s == "warning" {
		s = "warn"
	}
	if s == "" {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
		return
	}
	if l, err := zerolog.ParseLevel(s); err == nil {
		zerolog.SetGlobalLevel(l)
		return
	}
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
}
