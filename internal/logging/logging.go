// Package logging wraps zap behind the teacher's Trace/Info/Warn/Error
// call shape (map[string]interface{} fields) so call sites written
// against the old hand-rolled Logger read unchanged, while the backend
// gets zap's structured, leveled, sampled output.
package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is injected into every component at construction; there is no
// package-level singleton anywhere in this repository.
type Logger struct {
	z *zap.Logger
}

// New builds a Logger for the given level ("trace"|"debug"|"info"|"warn"|"error")
// and format ("console"|"json"), matching the teacher's NewLogger(level, useJSON)
// signature in spirit.
func New(level string, format string) (*Logger, error) {
	var zlevel zapcore.Level
	switch level {
	case "trace", "debug":
		zlevel = zapcore.DebugLevel
	case "warn":
		zlevel = zapcore.WarnLevel
	case "error":
		zlevel = zapcore.ErrorLevel
	default:
		zlevel = zapcore.InfoLevel
	}

	var cfg zap.Config
	if format == "json" {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(zlevel)

	z, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return &Logger{z: z}, nil
}

// Nop returns a Logger that discards everything, for tests.
func Nop() *Logger { return &Logger{z: zap.NewNop()} }

func fieldsToZap(fields map[string]interface{}) []zap.Field {
	zf := make([]zap.Field, 0, len(fields))
	for k, v := range fields {
		zf = append(zf, zap.Any(k, v))
	}
	return zf
}

func (l *Logger) Trace(msg string, fields map[string]interface{}) { l.z.Debug(msg, fieldsToZap(fields)...) }
func (l *Logger) Info(msg string, fields map[string]interface{})  { l.z.Info(msg, fieldsToZap(fields)...) }
func (l *Logger) Warn(msg string, fields map[string]interface{})  { l.z.Warn(msg, fieldsToZap(fields)...) }
func (l *Logger) Error(msg string, fields map[string]interface{}) { l.z.Error(msg, fieldsToZap(fields)...) }

// With returns a child Logger that always carries the given fields,
// e.g. log.With(map[string]interface{}{"domain": d}).
func (l *Logger) With(fields map[string]interface{}) *Logger {
	return &Logger{z: l.z.With(fieldsToZap(fields)...)}
}

// Sync flushes any buffered log entries; call once from main on exit.
func (l *Logger) Sync() error { return l.z.Sync() }
