package logging

import (
	"bytes"
	"strings"
	"testing"
)

func TestComponentLoggerTagsAndLevels(t *testing.T) {
	var buf bytes.Buffer
	logger := NewComponentLoggerWithWriter("Store", &buf, INFO)

	logger.Debug("dropped %d", 1)
	logger.Info("kept %d", 2)

	out := buf.String()
	if strings.Contains(out, "dropped") {
		t.Fatalf("debug line should be filtered at INFO level, got: %s", out)
	}
	if !strings.Contains(out, "[Store] kept 2") {
		t.Fatalf("expected tagged info line, got: %s", out)
	}
	if !strings.Contains(out, "[INFO]") {
		t.Fatalf("expected level marker, got: %s", out)
	}
}

func TestOrNop(t *testing.T) {
	logger := OrNop(nil)
	// Must not panic.
	logger.Info("ignored")

	var buf bytes.Buffer
	real := NewComponentLoggerWithWriter("X", &buf, DEBUG)
	if OrNop(real) != real {
		t.Fatal("OrNop should pass through non-nil loggers")
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]LogLevel{
		"debug":   DEBUG,
		"Warn":    WARN,
		"warning": WARN,
		"ERROR":   ERROR,
		"info":    INFO,
		"":        INFO,
		"verbose": INFO,
	}
	for input, want := range cases {
		if got := ParseLevel(input); got != want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", input, got, want)
		}
	}
}
