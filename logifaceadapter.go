package fibertask

import (
	"github.com/joeycumines/logiface"
)

// logifaceLogger adapts a [github.com/joeycumines/logiface] Logger to the
// package's own [Logger] interface, so a caller who already has a logiface
// pipeline configured (e.g. piping to logiface-zerolog or logiface-stumpy)
// can pass it straight to [WithLogger] instead of teaching the scheduler a
// second logging API.
type logifaceLogger struct {
	l *logiface.Logger[logiface.Event]
}

// NewLogifaceLogger wraps an existing logiface logger for use as a
// scheduler [Logger].
func NewLogifaceLogger(l *logiface.Logger[logiface.Event]) Logger {
	return &logifaceLogger{l: l}
}

func (a *logifaceLogger) emit(b *logiface.Builder[logiface.Event], msg string, fields []Field) {
	for _, f := range fields {
		b = b.Any(f.Key, f.Value)
	}
	b.Log(msg)
}

func (a *logifaceLogger) Debug(msg string, fields ...Field) { a.emit(a.l.Debug(), msg, fields) }
func (a *logifaceLogger) Info(msg string, fields ...Field)  { a.emit(a.l.Info(), msg, fields) }
func (a *logifaceLogger) Warn(msg string, fields ...Field)  { a.emit(a.l.Warning(), msg, fields) }
func (a *logifaceLogger) Error(msg string, fields ...Field) { a.emit(a.l.Err(), msg, fields) }
