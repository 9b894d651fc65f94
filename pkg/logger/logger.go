package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// Leveled package logger for the service, backed by log/slog.
// Init/Configure are called once at startup; the f-style helpers are used
// everywhere else. With returns a *slog.Logger for call sites that want
// structured attributes.

const LevelFatal = slog.Level(12)

var (
	mu     sync.RWMutex
	level  = new(slog.LevelVar)
	format = "text"
	out    io.Writer = os.Stdout
	base   *slog.Logger
)

func init() {
	level.Set(slog.LevelInfo)
	rebuild()
}

// Init sets the global log level (case-insensitive: debug, info, warn, error, fatal).
// Unknown values fall back to info.
func Init(l string) {
	switch strings.ToLower(strings.TrimSpace(l)) {
	case "debug":
		level.Set(slog.LevelDebug)
	case "warn", "warning":
		level.Set(slog.LevelWarn)
	case "error":
		level.Set(slog.LevelError)
	case "fatal":
		level.Set(LevelFatal)
	default:
		level.Set(slog.LevelInfo)
	}
}

// Configure sets level and output format ("json" or "text").
func Configure(l, f string) {
	Init(l)
	mu.Lock()
	if strings.EqualFold(strings.TrimSpace(f), "json") {
		format = "json"
	} else {
		format = "text"
	}
	mu.Unlock()
	rebuild()
}

// SetOutput redirects log output. Mostly useful in tests.
func SetOutput(w io.Writer) {
	mu.Lock()
	out = w
	mu.Unlock()
	rebuild()
}

func rebuild() {
	mu.Lock()
	defer mu.Unlock()
	opts := &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if a.Key == slog.LevelKey {
				if lv, ok := a.Value.Any().(slog.Level); ok && lv == LevelFatal {
					a.Value = slog.StringValue("FATAL")
				}
			}
			return a
		},
	}
	var h slog.Handler
	if format == "json" {
		h = slog.NewJSONHandler(out, opts)
	} else {
		h = slog.NewTextHandler(out, opts)
	}
	base = slog.New(h)
}

func current() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return base
}

// With returns a structured logger carrying args.
func With(args ...any) *slog.Logger {
	return current().With(args...)
}

func logf(l slog.Level, format string, v ...interface{}) {
	lg := current()
	if !lg.Enabled(context.Background(), l) {
		return
	}
	lg.Log(context.Background(), l, fmt.Sprintf(format, v...))
}

func Debugf(format string, v ...interface{}) { logf(slog.LevelDebug, format, v...) }
func Infof(format string, v ...interface{})  { logf(slog.LevelInfo, format, v...) }
func Warnf(format string, v ...interface{})  { logf(slog.LevelWarn, format, v...) }
func Errorf(format string, v ...interface{}) { logf(slog.LevelError, format, v...) }

func Fatalf(format string, v ...interface{}) {
	current().Log(context.Background(), LevelFatal, fmt.Sprintf(format, v...))
	os.Exit(1)
}

// Println kept for brief messages (maps to Info)
func Println(v ...interface{}) {
	logf(slog.LevelInfo, "%s", strings.TrimSuffix(fmt.Sprintln(v...), "\n"))
}

func Debug(v string) { Debugf("%s", v) }
func Info(v string)  { Infof("%s", v) }
func Warn(v string)  { Warnf("%s", v) }
func Error(v string) { Errorf("%s", v) }

// LevelString returns the current level as text.
func LevelString() string {
	switch l := level.Level(); {
	case l <= slog.LevelDebug:
		return "debug"
	case l <= slog.LevelInfo:
		return "info"
	case l <= slog.LevelWarn:
		return "warn"
	case l <= slog.LevelError:
		return "error"
	}
	return "fatal"
}
