package logger

import (
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config controls the process-wide logger.
type Config struct {
	Level  string
	Format string // json or console
}

// GetConfig returns logging configuration with defaults
func GetConfig() Config {
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "json")

	return Config{
		Level:  viper.GetString("log.level"),
		Format: viper.GetString("log.format"),
	}
}

// New builds a zap logger. Unknown levels fall back to info.
func New(cfg Config) (*zap.Logger, error) {
	level := zapcore.InfoLevel
	if err := level.UnmarshalText([]byte(strings.ToLower(cfg.Level))); err != nil {
		level = zapcore.InfoLevel
	}

	zcfg := zap.NewProductionConfig()
	if strings.EqualFold(cfg.Format, "console") {
		zcfg = zap.NewDevelopmentConfig()
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)
	zcfg.EncoderConfig.TimeKey = "timestamp"
	zcfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return zcfg.Build()
}

// InitLogger builds the logger from viper and installs it as the global.
func InitLogger() *zap.Logger {
	log, err := New(GetConfig())
	if err != nil {
		log = zap.NewExample()
		log.Warn("falling back to example logger", zap.Error(err))
	}
	zap.ReplaceGlobals(log)
	return log
}
