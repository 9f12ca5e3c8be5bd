// Package logging wraps zap for the CLI and the HTTP server.
package logging

import (
	"io"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger holds the process logger. Log is a no-op logger until InitWriter runs.
type Logger struct {
	Log *zap.Logger
}

// New returns a Logger that discards everything.
func New() *Logger {
	return &Logger{Log: zap.NewNop()}
}

// InitWriter configures Log to write JSON lines at level to w.
// Level names are case-insensitive ("Info", "warn", "DEBUG").
func (l *Logger) InitWriter(w io.Writer, level string) error {
	lvl, err := zap.ParseAtomicLevel(strings.ToLower(level))
	if err != nil {
		return err
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "ts"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	core := zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(w), lvl)
	l.Log = zap.New(core).Named("ssoconfig")
	return nil
}
