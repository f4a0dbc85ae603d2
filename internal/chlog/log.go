// Package chlog is the ambient logging seam for chnative: every package
// that wants to log takes a Logger instead of importing zap directly, so
// a caller with no logging needs pays nothing (the default is a no-op).
package chlog

import "go.uber.org/zap"

// Logger is the narrow surface chnative packages log through.
type Logger interface {
	Debug(msg string, fields ...zap.Field)
	Info(msg string, fields ...zap.Field)
	Warn(msg string, fields ...zap.Field)
	Error(msg string, fields ...zap.Field)
}

// Nop discards everything. It's the default when a caller passes a nil
// *zap.Logger.
func Nop() Logger { return &zapLogger{l: zap.NewNop()} }

// New wraps l. A nil l is treated as Nop().
func New(l *zap.Logger) Logger {
	if l == nil {
		return Nop()
	}
	return &zapLogger{l: l}
}

type zapLogger struct{ l *zap.Logger }

func (z *zapLogger) Debug(msg string, fields ...zap.Field) { z.l.Debug(msg, fields...) }
func (z *zapLogger) Info(msg string, fields ...zap.Field)  { z.l.Info(msg, fields...) }
func (z *zapLogger) Warn(msg string, fields ...zap.Field)  { z.l.Warn(msg, fields...) }
func (z *zapLogger) Error(msg string, fields ...zap.Field) { z.l.Error(msg, fields...) }
