package app

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	slogzap "github.com/samber/slog-zap/v2"
	"github.com/sharetube/synctube/pkg/ctxlogger"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	logBackendStd = "std"
	logBackendZap = "zap"
)

func newLogger(cfg *AppConfig) (*slog.Logger, error) {
	logLevel := slog.LevelInfo
	if err := logLevel.UnmarshalText([]byte(strings.ToUpper(cfg.LogLevel))); err != nil {
		return nil, fmt.Errorf("failed to parse log level: %w", err)
	}

	var handler slog.Handler
	switch cfg.LogBackend {
	case logBackendZap:
		handler = newZapHandler(logLevel)
	default:
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level:     logLevel,
			AddSource: true,
		})
	}

	return slog.New(&ctxlogger.ContextHandler{Handler: handler}), nil
}

func newZapHandler(lvl slog.Level) slog.Handler {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "ts"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	encCfg.EncodeCaller = zapcore.ShortCallerEncoder

	core := zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(os.Stdout), toZapLevel(lvl))
	// sync reports and position logs come in bursts
	core = zapcore.NewSamplerWithOptions(core, time.Second, 100, 10)

	z := zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1))

	return slogzap.Option{Level: lvl, Logger: z}.NewZapHandler()
}

func toZapLevel(lvl slog.Level) zapcore.Level {
	switch {
	case lvl <= slog.LevelDebug:
		return zapcore.DebugLevel
	case lvl == slog.LevelInfo:
		return zapcore.InfoLevel
	case lvl == slog.LevelWarn:
		return zapcore.WarnLevel
	default:
		return zapcore.ErrorLevel
	}
}
