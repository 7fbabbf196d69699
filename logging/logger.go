package logging

import (
	"io"
	"os"
	"strings"

	"github.com/phux/apiverify/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds the zap logger used by every command. Logs go to w, which
// defaults to stderr so that stdout stays free for the console report.
func New(cfg config.LoggingConfig, w io.Writer) *zap.Logger {
	if w == nil {
		w = os.Stderr
	}

	core := zapcore.NewCore(
		encoder(cfg.Format),
		zapcore.AddSync(w),
		parseLevel(cfg.Level),
	)

	return zap.New(core,
		zap.AddStacktrace(zapcore.ErrorLevel),
		zap.Fields(zap.String("component", "apiverify")),
	)
}

func parseLevel(level string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zapcore.DebugLevel
	case "info":
		return zapcore.InfoLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.WarnLevel
	}
}

func encoder(format string) zapcore.Encoder {
	if strings.EqualFold(format, "json") {
		cfg := zap.NewProductionEncoderConfig()
		cfg.EncodeTime = zapcore.ISO8601TimeEncoder
		cfg.EncodeLevel = zapcore.LowercaseLevelEncoder

		return zapcore.NewJSONEncoder(cfg)
	}

	cfg := zap.NewDevelopmentEncoderConfig()
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncodeLevel = zapcore.LowercaseLevelEncoder

	return zapcore.NewConsoleEncoder(cfg)
}
