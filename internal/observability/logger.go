// Package observability builds the zap logger and the Prometheus metrics
// recorded during a run.
package observability

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LoggerConfig configures the zap logger.
type LoggerConfig struct {
	Level  string // debug, info, warn, error
	Format string // console or json
	Color  bool   // colour level names in console output
}

// NewLogger builds a zap logger. Output goes to stderr so tables printed on
// stdout can be piped.
func NewLogger(cfg LoggerConfig) (*zap.Logger, error) {
	zapCfg := zap.NewProductionConfig()
	zapCfg.Encoding = normalizeFormat(cfg.Format)
	zapCfg.EncoderConfig.TimeKey = "ts"
	zapCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zapCfg.OutputPaths = []string{"stderr"}
	zapCfg.ErrorOutputPaths = []string{"stderr"}
	zapCfg.DisableStacktrace = true
	zapCfg.Sampling = nil

	if zapCfg.Encoding == "console" {
		zapCfg.DisableCaller = true
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
		if cfg.Color {
			zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		}
	}

	level := strings.TrimSpace(cfg.Level)
	if level == "" {
		level = "info"
	}
	if err := zapCfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	return zapCfg.Build()
}

func normalizeFormat(format string) string {
	if strings.ToLower(strings.TrimSpace(format)) == "json" {
		return "json"
	}
	return "console"
}
