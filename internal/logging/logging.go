// Package logging builds the zap logger cmd/mme runs with, adapted
// from the teacher's initLogger (nf/smf/cmd/main.go) with file
// rotation added via lumberjack the way the pack's Protei_Monitoring
// logger wires it underneath zerolog -- here it backs a zapcore
// WriteSyncer instead.
package logging

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/your-org/mme-s1ap-core/internal/config"
)

// New builds a zap logger per the observability configuration. When
// LogFile is empty it logs to stdout in console encoding, matching
// the teacher's development default; when a file is configured it
// logs JSON through a rotating writer.
func New(cfg config.ObservabilityConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = zapcore.InfoLevel
	}

	if cfg.LogFile == "" {
		zcfg := zap.Config{
			Level:            zap.NewAtomicLevelAt(level),
			Development:      false,
			Encoding:         "console",
			EncoderConfig:    zap.NewDevelopmentEncoderConfig(),
			OutputPaths:      []string{"stdout"},
			ErrorOutputPaths: []string{"stderr"},
		}
		logger, err := zcfg.Build()
		if err != nil {
			return nil, fmt.Errorf("logging: build console logger: %w", err)
		}
		return logger, nil
	}

	rotator := &lumberjack.Logger{
		Filename:   cfg.LogFile,
		MaxSize:    100,
		MaxBackups: 7,
		MaxAge:     28,
		Compress:   true,
	}

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
		zapcore.NewMultiWriteSyncer(zapcore.AddSync(rotator), zapcore.AddSync(os.Stdout)),
		level,
	)
	return zap.New(core, zap.AddCaller()), nil
}
