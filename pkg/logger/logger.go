package logger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Log struct {
	LogLevel zapcore.Level `yaml:"level" envconfig:"LOG_LEVEL" default:"info"`
	Sink     string        `yaml:"sink" envconfig:"LOG_SINK"`
}

// NewLogger builds a named zap logger writing to Sink (stderr by default).
func NewLogger(cfg Log, name string) *zap.Logger {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	ws := zapcore.Lock(os.Stderr)
	if cfg.Sink != "" {
		f, err := os.OpenFile(cfg.Sink, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err == nil {
			ws = zapcore.Lock(f)
		}
	}

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encCfg),
		ws,
		zap.NewAtomicLevelAt(cfg.LogLevel),
	)
	return zap.New(core, zap.AddCaller()).Named(name)
}
