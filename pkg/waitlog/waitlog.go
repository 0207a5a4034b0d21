// Package waitlog builds the loggers used by juju-wait. Production logs
// are JSON-encoded zap, exposed through the logr interface so that debug
// detail goes through log.V(1).
package waitlog

import (
	"io"
	"os"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func ForProd(level zapcore.LevelEnabler) logr.Logger {
	return newLogger(level, zapcore.Lock(os.Stderr))
}

// ForTest logs everything, including V(1) detail, to logDest. Entries can
// be decoded with the waitlog/testing helpers.
func ForTest(logDest io.Writer) logr.Logger {
	return newLogger(zapcore.DebugLevel, zapcore.AddSync(logDest))
}

// Level maps the CLI verbosity flags to a zap level: warnings only when
// quiet, debug detail when verbose, info otherwise.
func Level(quiet, verbose bool) zapcore.Level {
	switch {
	case quiet:
		return zapcore.WarnLevel
	case verbose:
		return zapcore.DebugLevel
	default:
		return zapcore.InfoLevel
	}
}

func newLogger(level zapcore.LevelEnabler, sink zapcore.WriteSyncer) logr.Logger {
	encoder := zapcore.NewJSONEncoder(newCustomEncoderConfig())
	return zapr.NewLogger(zap.New(zapcore.NewCore(encoder, sink, level)))
}

func newCustomEncoderConfig() zapcore.EncoderConfig {
	prodCfg := zap.NewProductionEncoderConfig()
	c := zap.NewDevelopmentEncoderConfig()
	c.TimeKey = prodCfg.TimeKey
	c.LevelKey = prodCfg.LevelKey
	c.NameKey = prodCfg.NameKey
	c.CallerKey = prodCfg.CallerKey
	c.MessageKey = prodCfg.MessageKey
	c.StacktraceKey = prodCfg.StacktraceKey
	return c
}
