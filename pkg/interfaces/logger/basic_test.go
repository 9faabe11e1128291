package logger

import (
	"bytes"
	"strings"
	"testing"
)

func TestBasicLoggerFormatsFields(t *testing.T) {
	var buf bytes.Buffer
	lgr := New(WithWriter(&buf)).With(F("component", "dispatcher"))

	lgr.Info("block rendered", F("type", "rss"), F("state", "done"))

	line := strings.TrimSpace(buf.String())
	want := "[INFO] block rendered component=dispatcher type=rss state=done"
	if line != want {
		t.Fatalf("expected %q, got %q", want, line)
	}
}

func TestBasicLoggerLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	lgr := New(WithWriter(&buf), WithLevel(LevelWarn))

	lgr.Debug("hidden")
	lgr.Info("hidden")
	lgr.Error("shown")

	if got := strings.TrimSpace(buf.String()); got != "[ERROR] shown" {
		t.Fatalf("unexpected output %q", got)
	}
}
