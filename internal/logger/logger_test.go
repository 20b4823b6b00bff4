package logger

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestNewLevels(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		json  bool
		debug bool
	}{
		{name: "console info", json: false, debug: false},
		{name: "console debug", json: false, debug: true},
		{name: "json info", json: true, debug: false},
		{name: "json debug", json: true, debug: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			l, err := New(tt.json, tt.debug)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if got := l.Core().Enabled(zapcore.DebugLevel); got != tt.debug {
				t.Fatalf("debug enabled: expected %v, got %v", tt.debug, got)
			}
			if !l.Core().Enabled(zapcore.InfoLevel) {
				t.Fatalf("info level must always be enabled")
			}
		})
	}
}

func TestEncoding(t *testing.T) {
	t.Parallel()

	if got := encoding(true); got != "json" {
		t.Fatalf("expected json, got %s", got)
	}
	if got := encoding(false); got != "console" {
		t.Fatalf("expected console, got %s", got)
	}
}
