package sysutil

import (
	"testing"

	"github.com/rs/zerolog"
)

func TestSetLogLevel(t *testing.T) {
	orig := zerolog.GlobalLevel()
	t.Cleanup(func() { zerolog.SetGlobalLevel(orig) })

	for in, want := range map[string]zerolog.Level{
		"trace":    zerolog.TraceLevel,
		"debug":    zerolog.DebugLevel,
		"info":     zerolog.InfoLevel,
		"warn":     zerolog.WarnLevel,
		"error":    zerolog.ErrorLevel,
		"fatal":    zerolog.FatalLevel,
		"panic":    zerolog.PanicLevel,
		"disabled": zerolog.Disabled,

		"  DeBuG  ": zerolog.DebugLevel, // trimmed and case-folded
		"warning":   zerolog.WarnLevel,  // common alias
		"":          zerolog.InfoLevel,
		"verbose":   zerolog.InfoLevel, // unknown names fall back
	} {
		SetLogLevel(in)
		if got := zerolog.GlobalLevel(); got != want {
			t.Fatalf("SetLogLevel(%q) left level %v, want %v", in, got, want)
		}
	}
}
