package logging

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
)

// ZerologLogger adapts a zerolog.Logger to the Logger interface.
// It is the implementation wired by the CLI; tests use NewNop.
type ZerologLogger struct {
	l zerolog.Logger
}

// NewZerologLogger wraps the given zerolog logger.
func NewZerologLogger(l zerolog.Logger) *ZerologLogger {
	return &ZerologLogger{l: l}
}

func (z *ZerologLogger) Debug(ctx context.Context, msg string, args ...any) {
	emit(z.l.Debug(), msg, args)
}

func (z *ZerologLogger) Info(ctx context.Context, msg string, args ...any) {
	emit(z.l.Info(), msg, args)
}

func (z *ZerologLogger) Warn(ctx context.Context, msg string, args ...any) {
	emit(z.l.Warn(), msg, args)
}

func (z *ZerologLogger) Error(ctx context.Context, msg string, args ...any) {
	emit(z.l.Error(), msg, args)
}

func (z *ZerologLogger) With(args ...any) Logger {
	c := z.l.With()
	for k, v := range pairs(args) {
		c = c.Interface(k, v)
	}
	return &ZerologLogger{l: c.Logger()}
}

// emit attaches key–value pairs to the event and fires it.
func emit(ev *zerolog.Event, msg string, args []any) {
	for k, v := range pairs(args) {
		ev = ev.Interface(k, v)
	}
	ev.Msg(msg)
}

// pairs converts a variadic key–value list into a map. A trailing key
// without a value is kept under the key itself with a placeholder, so
// malformed call sites remain visible in the output instead of panicking.
func pairs(args []any) map[string]any {
	m := make(map[string]any, len(args)/2)
	for i := 0; i < len(args); i += 2 {
		key, ok := args[i].(string)
		if !ok {
			key = fmt.Sprintf("arg%d", i)
		}
		if i+1 < len(args) {
			m[key] = args[i+1]
		} else {
			m[key] = "(missing)"
		}
	}
	return m
}
