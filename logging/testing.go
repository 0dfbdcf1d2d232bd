package logging

import (
	"strings"
	"testing"

	"go.uber.org/zap/zapcore"
)

// tbAppender sends each entry to a test's log, so output stays attached to the test that wrote
// it even when tests run in parallel.
type tbAppender struct {
	tb      testing.TB
	encoder zapcore.Encoder
}

// NewTestAppender returns an appender that writes tab separated lines through tb.Log. Times are
// rendered with DefaultTimeFormatStr and fields as trailing JSON.
func NewTestAppender(tb testing.TB) Appender {
	cfg := newEncoderConfig()
	cfg.EncodeCaller = func(caller zapcore.EntryCaller, enc zapcore.PrimitiveArrayEncoder) {
		enc.AppendString(callerToString(&caller))
	}
	cfg.SkipLineEnding = true
	return &tbAppender{tb: tb, encoder: zapcore.NewConsoleEncoder(cfg)}
}

func (app *tbAppender) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	app.tb.Helper()
	buf, err := app.encoder.EncodeEntry(entry, fields)
	if err != nil {
		app.tb.Log(entry.Level.CapitalString(), entry.LoggerName, entry.Message)
		return err
	}
	defer buf.Free()
	app.tb.Log(strings.TrimRight(buf.String(), "\n"))
	return nil
}

// Sync is a no-op; tb.Log is unbuffered.
func (app *tbAppender) Sync() error {
	return nil
}
