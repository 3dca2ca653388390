package cli

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"
)

// newLogger creates a logger with "HH:MM:SS.ms" timestamps. At debug level
// it also reports the caller.
func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
		ReportCaller:    level <= log.DebugLevel,
	})
}

// stageTimer logs the completion of one CLI stage with its duration as a
// structured field, e.g. "compiled regions regions=3 duration=12ms".
type stageTimer struct {
	logger *log.Logger
	stage  string
	start  time.Time
}

func startStage(l *log.Logger, stage string) *stageTimer {
	return &stageTimer{logger: l, stage: stage, start: time.Now()}
}

// done logs the stage with keyvals and the elapsed time, rounded to the
// millisecond.
func (t *stageTimer) done(keyvals ...any) {
	keyvals = append(keyvals, "duration", time.Since(t.start).Round(time.Millisecond))
	t.logger.Info(t.stage, keyvals...)
}

type ctxKey int

const loggerKey ctxKey = 0

// withLogger returns a new context with the given logger attached.
func withLogger(ctx context.Context, l *log.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// loggerFromContext retrieves the logger from ctx, or log.Default() when
// none is attached.
func loggerFromContext(ctx context.Context) *log.Logger {
	if l, ok := ctx.Value(loggerKey).(*log.Logger); ok {
		return l
	}
	return log.Default()
}
