package logging

import (
	"os"

	"github.com/rs/zerolog"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"
)

var zeroLogLevelMapping = map[string]zerolog.Level{
	"debug": zerolog.DebugLevel,
	"info":  zerolog.InfoLevel,
	"warn":  zerolog.WarnLevel,
	"error": zerolog.ErrorLevel,
	"fatal": zerolog.FatalLevel,
}

type zeroLogger struct {
	cfg    *LoggerConfig
	logger *zerolog.Logger
}

func newZeroLogger(cfg *LoggerConfig) *zeroLogger {
	l := &zeroLogger{cfg: cfg}
	l.Init()
	return l
}

func (l *zeroLogger) getLogLevel() zerolog.Level {
	level, ok := zeroLogLevelMapping[l.cfg.Level]
	if !ok {
		return zerolog.InfoLevel
	}
	return level
}

func (l *zeroLogger) Init() {
	once.Do(func() {
		fileWriter := &lumberjack.Logger{
			Filename:   l.cfg.FilePath + "relay.log",
			MaxSize:    10, // megabytes
			MaxAge:     30, // days
			MaxBackups: 5,
			Compress:   true,
		}

		multi := zerolog.MultiLevelWriter(fileWriter, os.Stdout)

		logger := zerolog.New(multi).
			Level(l.getLogLevel()).
			With().
			Timestamp().
			Str(string(AppName), "relay").
			Str(string(LoggerName), "zerolog").
			Logger()

		l.logger = &logger
	})
}

func (l *zeroLogger) Debug(cat Category, sub SubCategory, msg string, extra map[ExtraKey]any) {
	extra = prepareLogKeys(extra, cat, sub)
	l.logger.Debug().Fields(logParamsToZeroParams(extra)).Msg(msg)
}

func (l *zeroLogger) Debugf(template string, args ...any) {
	l.logger.Debug().Msgf(template, args...)
}

func (l *zeroLogger) Info(cat Category, sub SubCategory, msg string, extra map[ExtraKey]any) {
	extra = prepareLogKeys(extra, cat, sub)
	l.logger.Info().Fields(logParamsToZeroParams(extra)).Msg(msg)
}

func (l *zeroLogger) Infof(template string, args ...any) {
	l.logger.Info().Msgf(template, args...)
}

func (l *zeroLogger) Warn(cat Category, sub SubCategory, msg string, extra map[ExtraKey]any) {
	extra = prepareLogKeys(extra, cat, sub)
	l.logger.Warn().Fields(logParamsToZeroParams(extra)).Msg(msg)
}

func (l *zeroLogger) Warnf(template string, args ...any) {
	l.logger.Warn().Msgf(template, args...)
}

func (l *zeroLogger) Error(cat Category, sub SubCategory, msg string, extra map[ExtraKey]any) {
	extra = prepareLogKeys(extra, cat, sub)
	l.logger.Error().Fields(logParamsToZeroParams(extra)).Msg(msg)
}

func (l *zeroLogger) Errorf(template string, args ...any) {
	l.logger.Error().Msgf(template, args...)
}

func (l *zeroLogger) Fatal(cat Category, sub SubCategory, msg string, extra map[ExtraKey]any) {
	extra = prepareLogKeys(extra, cat, sub)
	l.logger.Fatal().Fields(logParamsToZeroParams(extra)).Msg(msg)
}

func (l *zeroLogger) Fatalf(template string, args ...any) {
	l.logger.Fatal().Msgf(template, args...)
}
