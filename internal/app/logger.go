package app

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const environmentProduction = "production"

// NewLogger создаёт логгер: JSON в production, цветной консольный вывод иначе.
// Каждая запись помечена окружением.
func NewLogger(env string) *zap.Logger {
	var config zap.Config

	if env == environmentProduction {
		config = zap.NewProductionConfig()
		config.EncoderConfig.TimeKey = "ts"
		config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	} else {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	config.OutputPaths = []string{"stdout"}
	config.InitialFields = map[string]any{
		"app": "slotbook",
		"env": env,
	}

	logger, err := config.Build()
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}

	return logger
}
