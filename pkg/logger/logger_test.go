package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"strings"
	"testing"
)

func TestInitAndLevelString(t *testing.T) {
	defer Init("info")
	Init("debug")
	if got := LevelString(); got != "debug" {
		t.Fatalf("LevelString() = %q, want %q", got, "debug")
	}
	Init("WARN")
	if got := LevelString(); got != "warn" {
		t.Fatalf("LevelString() = %q, want %q", got, "warn")
	}
	Init("Error")
	if got := LevelString(); got != "error" {
		t.Fatalf("LevelString() = %q, want %q", got, "error")
	}
	Init("fatal")
	if got := LevelString(); got != "fatal" {
		t.Fatalf("LevelString() = %q, want %q", got, "fatal")
	}
	Init("nonsense")
	if got := LevelString(); got != "info" {
		t.Fatalf("LevelString() = %q, want %q for unknown input", got, "info")
	}
}

func TestLevelFilteringAndPrintln(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(os.Stdout)
	defer Init("info")

	Init("warn")
	Debugf("debug-msg")
	Infof("info-msg")
	Warnf("warn-msg")
	Errorf("error-msg %d", 7)

	out := buf.String()
	if strings.Contains(out, "debug-msg") {
		t.Fatalf("debug messages should be suppressed at warn level")
	}
	if strings.Contains(out, "info-msg") {
		t.Fatalf("info messages should be suppressed at warn level")
	}
	if !strings.Contains(out, "warn-msg") {
		t.Fatalf("warn message missing: %q", out)
	}
	if !strings.Contains(out, "error-msg 7") {
		t.Fatalf("error message missing: %q", out)
	}

	buf.Reset()
	Println("hello")
	if strings.Contains(buf.String(), "hello") {
		t.Fatalf("Println should be suppressed at warn level")
	}

	Init("info")
	buf.Reset()
	Println("hello")
	if !strings.Contains(buf.String(), "hello") {
		t.Fatalf("Println expected at info level, got: %q", buf.String())
	}
}

func TestConfigureJSON(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(os.Stdout)
	Configure("info", "json")
	defer Configure("info", "text")

	With("documentId", "abc").Info("extraction.start")
	var m map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &m); err != nil {
		t.Fatalf("expected json line, got %q: %v", buf.String(), err)
	}
	if m["documentId"] != "abc" || m["msg"] != "extraction.start" {
		t.Fatalf("unexpected record: %v", m)
	}
}
