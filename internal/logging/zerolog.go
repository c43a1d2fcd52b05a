package logging

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// ZerologLogger adapts a zerolog.Logger to Logger. Key–value args are
// attached as event fields.
type ZerologLogger struct {
	l zerolog.Logger
}

func NewZerologLogger(l zerolog.Logger) *ZerologLogger {
	return &ZerologLogger{l: l}
}

// NewConsoleZerologLogger writes colored, human-readable lines to stdout
// (colors are disabled in production).
func NewConsoleZerologLogger(environment string) *ZerologLogger {
	output := zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: time.RFC3339,
		NoColor:    environment == "production",
	}

	level := zerolog.DebugLevel
	if environment == "production" {
		level = zerolog.InfoLevel
	}

	l := zerolog.New(output).Level(level).With().
		Timestamp().
		Str("env", environment).
		Logger()

	return NewZerologLogger(l)
}

func (z *ZerologLogger) Debug(_ context.Context, msg string, args ...any) {
	z.write(z.l.Debug(), msg, args)
}

func (z *ZerologLogger) Info(_ context.Context, msg string, args ...any) {
	z.write(z.l.Info(), msg, args)
}

func (z *ZerologLogger) Warn(_ context.Context, msg string, args ...any) {
	z.write(z.l.Warn(), msg, args)
}

func (z *ZerologLogger) Error(_ context.Context, msg string, args ...any) {
	z.write(z.l.Error(), msg, args)
}

func (z *ZerologLogger) With(args ...any) Logger {
	return &ZerologLogger{l: z.l.With().Fields(fieldMap(args)).Logger()}
}

func (z *ZerologLogger) write(e *zerolog.Event, msg string, args []any) {
	if len(args) > 0 {
		e = e.Fields(fieldMap(args))
	}
	e.Msg(msg)
}

// fieldMap turns slog-style key–value pairs into a field map. A dangling key
// is logged under "!BADKEY", as slog does.
func fieldMap(args []any) map[string]any {
	fields := make(map[string]any, len(args)/2+1)
	for i := 0; i < len(args); i += 2 {
		if i+1 >= len(args) {
			fields["!BADKEY"] = args[i]
			break
		}
		key, ok := args[i].(string)
		if !ok {
			key = fmt.Sprint(args[i])
		}
		value := args[i+1]
		if err, isErr := value.(error); isErr {
			value = err.Error()
		}
		fields[key] = value
	}
	return fields
}
