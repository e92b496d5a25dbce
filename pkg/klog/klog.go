// Package klog provides standardized logging utilities for the kalec toolchain.
package klog

import (
	"io"
	"log/slog"
	"os"
)

// Global logger instance
var defaultLogger *slog.Logger

// Level represents the logging level
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// Config holds logger configuration. The K pipeline only ever logs
// text-formatted output to a writer (stderr in practice), so the
// teacher's JSON-format and log-file-path fields are dropped here.
type Config struct {
	Level     Level
	Output    io.Writer
	AddSource bool
}

// DefaultConfig returns the default logger configuration.
func DefaultConfig() Config {
	return Config{
		Level:     LevelInfo,
		Output:    os.Stderr,
		AddSource: false,
	}
}

// Init initializes the global logger with the given configuration.
func Init(cfg Config) {
	opts := &slog.HandlerOptions{
		Level:     toSlogLevel(cfg.Level),
		AddSource: cfg.AddSource,
	}
	defaultLogger = slog.New(slog.NewTextHandler(cfg.Output, opts))
	slog.SetDefault(defaultLogger)
}

// InitDev initializes logging for development: debug level, with source
// locations, matching the teacher's InitDev.
func InitDev() {
	Init(Config{
		Level:     LevelDebug,
		Output:    os.Stderr,
		AddSource: true,
	})
}

func toSlogLevel(level Level) slog.Level {
	switch level {
	case LevelDebug:
		return slog.LevelDebug
	case LevelInfo:
		return slog.LevelInfo
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Debug logs a debug message
func Debug(msg string, args ...any) {
	if defaultLogger != nil {
		defaultLogger.Debug(msg, args...)
	}
}

// Info logs an info message
func Info(msg string, args ...any) {
	if defaultLogger != nil {
		defaultLogger.Info(msg, args...)
	}
}

// Warn logs a warning message
func Warn(msg string, args ...any) {
	if defaultLogger != nil {
		defaultLogger.Warn(msg, args...)
	}
}

// Error logs an error message
func Error(msg string, args ...any) {
	if defaultLogger != nil {
		defaultLogger.Error(msg, args...)
	}
}

// Pipeline-stage helpers, one per component in the K compilation pipeline.

// Phase logs the start of a pipeline phase (lex, parse, codegen, optimize, emit).
func Phase(phase string) {
	Debug("entering phase", "phase", phase)
}

// Lexed logs lexing activity for one top-level construct.
func Lexed(tokenCount int) {
	Debug("lexed tokens", "count", tokenCount)
}

// Parsed logs the kind of top-level construct just parsed.
func Parsed(kind string, name string) {
	Debug("parsed construct", "kind", kind, "name", name)
}

// Codegen logs SSA generation for a single function.
func Codegen(funcName string, blockCount int) {
	Debug("lowered function", "function", funcName, "blocks", blockCount)
}

// Optimized logs a completed optimizer pass.
func Optimized(pass string, changeCount int) {
	Info("optimization pass complete", "pass", pass, "changes", changeCount)
}

// ParseFailed logs a recovered parse error.
func ParseFailed(loc string, msg string) {
	Error("parse error", "at", loc, "message", msg)
}

// CodegenFailed logs a recovered code generation error, after rollback.
func CodegenFailed(loc string, msg string) {
	Error("code generation error", "at", loc, "message", msg)
}

// ModuleRotated logs a finalizeModule/stealModule handoff.
func ModuleRotated(name string) {
	Debug("module rotated", "name", name)
}
