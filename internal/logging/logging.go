// Package logging wraps the standard library logger with an
// environment-controlled verbosity gate (GITTY_LOG), built on the same
// stdlib log.Printf calls the CLI layer uses directly elsewhere.
package logging

import (
	"log"
	"os"
	"strings"
)

// Level is an ordered verbosity level.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func parseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

var current = parseLevel(os.Getenv("GITTY_LOG"))

// Init re-reads GITTY_LOG. Called once from each cmd's init so tests can
// set the environment variable before invoking it.
func Init() {
	current = parseLevel(os.Getenv("GITTY_LOG"))
}

func Debugf(format string, args ...any) {
	if current <= LevelDebug {
		log.Printf("[debug] "+format, args...)
	}
}

func Infof(format string, args ...any) {
	if current <= LevelInfo {
		log.Printf("[info] "+format, args...)
	}
}

func Warnf(format string, args ...any) {
	if current <= LevelWarn {
		log.Printf("[warn] "+format, args...)
	}
}

func Errorf(format string, args ...any) {
	if current <= LevelError {
		log.Printf("[error] "+format, args...)
	}
}
