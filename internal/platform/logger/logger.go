// Package logger provides structured logging for the parsing daemon.
// Every subsystem reaction to the signal stream should be traceable
// through this.
package logger

import (
	"go.uber.org/zap"
)

// Field is a structured logging field, re-exported so callers never
// need to import zap directly.
type Field = zap.Field

// Shorthand constructors mirroring the ones callers reach for most.
var (
	String = zap.String
	Int64  = zap.Int64
	Int    = zap.Int
	Err    = zap.Error
	Bool   = zap.Bool
)

// Logger wraps a zap.Logger with the Info/Warn/Error trio plus a
// Signal convenience method for the kind/entity/details shape the
// pipeline narrates its own reactions with.
type Logger struct {
	z *zap.Logger
}

// New builds a console-encoded logger writing to stderr. Debug
// enables verbose (Debug-level) output; otherwise the floor is Info.
func New(debug bool) *Logger {
	cfg := zap.NewDevelopmentConfig()
	if !debug {
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	z, err := cfg.Build()
	if err != nil {
		z = zap.NewNop()
	}
	return &Logger{z: z}
}

// NewNop returns a Logger that discards everything, for tests.
func NewNop() *Logger {
	return &Logger{z: zap.NewNop()}
}

func (l *Logger) Info(msg string, fields ...Field) {
	l.z.Info(msg, fields...)
}

func (l *Logger) Warn(msg string, fields ...Field) {
	l.z.Warn(msg, fields...)
}

func (l *Logger) Error(msg string, fields ...Field) {
	l.z.Error(msg, fields...)
}

func (l *Logger) Debug(msg string, fields ...Field) {
	l.z.Debug(msg, fields...)
}

// Signal logs one pipeline reaction: which kind of signal fired, which
// entity it concerned, and a short human-readable detail string.
func (l *Logger) Signal(kind string, entityID int64, details string) {
	l.z.Info("signal",
		zap.String("kind", kind),
		zap.Int64("entity_id", entityID),
		zap.String("details", details),
	)
}

// Sync flushes any buffered log entries. Call before process exit.
func (l *Logger) Sync() error {
	return l.z.Sync()
}
