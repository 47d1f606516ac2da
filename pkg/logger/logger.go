package logger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Logger interface {
	Info(msg string, values ...any)
	Warn(msg string, values ...any)
	Error(msg string, values ...any)
	Debug(msg string, values ...any)
	Panic(message string, values ...any)
	Fatal(error error, values ...any)
	Printf(format string, args ...interface{})
}

func init() {
	service := os.Getenv("LOG_SERVICE")
	if service == "" {
		service = "laser"
	}
	if _, err := NewLogger(buildConfig(service, os.Getenv("LOG_ENV"), false)); err != nil {
		panic(err)
	}
}

// Setup replaces the process logger once configuration is loaded. Every
// entry carries the service and env fields; debug lowers the level to debug
// unless LOG_LEVEL pins it.
func Setup(service, env string, debug bool) error {
	_, err := NewLogger(buildConfig(service, env, debug))
	return err
}

func buildConfig(service, env string, debug bool) zap.Config {
	var config zap.Config
	if env == "production" || env == "prod" {
		config = zap.NewProductionConfig()
	} else {
		config = zap.NewDevelopmentConfig()
	}
	config.EncoderConfig.TimeKey = "ts"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.InitialFields = map[string]any{"service": service}
	if env != "" {
		config.InitialFields["env"] = env
	}

	switch {
	case os.Getenv("LOG_LEVEL") != "":
		if parsed, err := zapcore.ParseLevel(os.Getenv("LOG_LEVEL")); err == nil {
			config.Level = zap.NewAtomicLevelAt(parsed)
		}
	case debug:
		config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	case env == "production" || env == "prod":
		config.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}
	return config
}

func Info(msg string, values ...any) {
	GetLogger().Info(msg, values...)
}

func Warn(msg string, values ...any) {
	GetLogger().Warn(msg, values...)
}

func Error(msg string, values ...any) {
	GetLogger().Error(msg, values...)
}

func Debug(msg string, values ...any) {
	GetLogger().Debug(msg, values...)
}

func Panic(msg string, values ...any) {
	GetLogger().Panic(msg, values...)
}

func Fatal(error error, values ...any) {
	GetLogger().Fatal(error, values...)
}

// With returns a child logger that always carries the given key/value pairs.
func With(values ...any) *ZapLogger {
	return GetLogger().With(values...)
}
