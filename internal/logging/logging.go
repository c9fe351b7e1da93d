// Package logging provides the leveled, colored logger shared by the
// storage service, the vault protocols and the CLI.
//
// The level comes from LOG_LEVEL (debug, info, warn, error). Messages
// below the configured level are dropped. Nothing in this module logs
// plaintext secrets or key material; callers log identifiers only.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/fatih/color"
)

type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func ParseLevel(s string) Level {
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

type Logger struct {
	level Level
	out   io.Writer
	err   io.Writer
	mu    *sync.Mutex
}

func New(level string) *Logger {
	return &Logger{
		level: ParseLevel(level),
		out:   os.Stdout,
		err:   os.Stderr,
		mu:    &sync.Mutex{},
	}
}

// NewWithWriters sends every level to w. Used by tests.
func NewWithWriters(level string, w io.Writer) *Logger {
	return &Logger{
		level: ParseLevel(level),
		out:   w,
		err:   w,
		mu:    &sync.Mutex{},
	}
}

// Discard returns a logger that drops everything.
func Discard() *Logger {
	return NewWithWriters("error", io.Discard)
}

func (l *Logger) Debugf(msg string, args ...any) {
	l.write(LevelDebug, l.out, color.CyanString("[debug] "), msg, args...)
}

func (l *Logger) Infof(msg string, args ...any) {
	l.write(LevelInfo, l.out, color.GreenString("[info] "), msg, args...)
}

func (l *Logger) Warnf(msg string, args ...any) {
	l.write(LevelWarn, l.err, color.YellowString("[warn] "), msg, args...)
}

func (l *Logger) Errorf(msg string, args ...any) {
	l.write(LevelError, l.err, color.RedString("[error] "), msg, args...)
}

// ErrorfAndReturn logs at error level and returns the formatted error.
func (l *Logger) ErrorfAndReturn(msg string, args ...any) error {
	err := fmt.Errorf(msg, args...)
	l.Errorf("%v", err)
	return err
}

func (l *Logger) write(level Level, w io.Writer, prefix, msg string, args ...any) {
	if l == nil || level < l.level {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(w, prefix+msg+"\n", args...)
}
