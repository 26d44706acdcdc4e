package main

import (
	"os"

	"github.com/mattn/go-colorable"
	"github.com/natefinch/lumberjack"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func getLevel(name string) zapcore.Level {
	switch name {
	case "debug":
		return zap.DebugLevel
	case "error", "err":
		return zap.ErrorLevel
	case "warning", "warn":
		return zap.WarnLevel
	}
	return zap.InfoLevel
}

func getLogger(config *viper.Viper) *zap.Logger {
	level := getLevel(config.GetString("log-level"))

	var encoder zapcore.Encoder
	var output zapcore.WriteSyncer

	if config.GetBool("fancy-logs") {
		encoderConfig := zap.NewDevelopmentEncoderConfig()
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
		output = zapcore.AddSync(colorable.NewColorableStdout())
	} else {
		encoderConfig := zap.NewProductionEncoderConfig()
		encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		encoder = zapcore.NewJSONEncoder(encoderConfig)
		output = zapcore.Lock(os.Stderr)
	}

	if path := config.GetString("log-file"); path != "" {
		output = zapcore.NewMultiWriteSyncer(output, zapcore.AddSync(&lumberjack.Logger{
			Filename:   path,
			MaxSize:    config.GetInt("log-max-size"),
			MaxBackups: config.GetInt("log-max-backups"),
			MaxAge:     config.GetInt("log-max-age"),
		}))
	}

	return zap.New(zapcore.NewCore(encoder, output, level),
		zap.Fields(zap.String("version", BuiltVersion)),
	)
}
