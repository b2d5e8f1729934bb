package logging

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Options struct {
	Service string
	Env     string
	Level   string // debug|info|warn|error; empty picks by Env
	File    string // optional second sink, appended to
}

func (o Options) level() (zapcore.Level, error) {
	if o.Level == "" {
		if o.Env == "production" {
			return zapcore.InfoLevel, nil
		}
		return zapcore.DebugLevel, nil
	}
	return zapcore.ParseLevel(o.Level)
}

func encoderConfig() zapcore.EncoderConfig {
	ec := zap.NewProductionEncoderConfig()
	ec.TimeKey = "ts"
	ec.MessageKey = "msg"
	ec.EncodeTime = zapcore.RFC3339NanoTimeEncoder
	ec.EncodeLevel = zapcore.LowercaseLevelEncoder
	return ec
}

// New builds the shop's JSON logger: stdout always, plus o.File when set.
// The returned close func releases the file sink.
func New(o Options) (*zap.Logger, func() error, error) {
	lvl, err := o.level()
	if err != nil {
		return nil, nil, fmt.Errorf("log level: %w", err)
	}
	enc := zapcore.NewJSONEncoder(encoderConfig())
	sinks := []zapcore.Core{zapcore.NewCore(enc, zapcore.Lock(os.Stdout), lvl)}

	closeFn := func() error { return nil }
	if o.File != "" {
		f, err := openAppend(o.File)
		if err != nil {
			return nil, nil, fmt.Errorf("log file: %w", err)
		}
		sinks = append(sinks, zapcore.NewCore(enc, zapcore.AddSync(f), lvl))
		closeFn = f.Close
	}

	logger := zap.New(zapcore.NewTee(sinks...), zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel)).
		With(zap.String("service", o.Service), zap.String("env", o.Env))
	return logger, closeFn, nil
}

func openAppend(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	return os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
}
