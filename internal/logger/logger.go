package logger

import (
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Field is a structured log field.
type Field = zap.Field

type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	Fatal(msg string, fields ...Field)

	Debugf(template string, args ...any)
	Infof(template string, args ...any)
	Warnf(template string, args ...any)
	Errorf(template string, args ...any)
	Fatalf(template string, args ...any)

	// With returns a child logger that adds fields to every entry.
	With(fields ...Field) Logger
	// Named returns a child logger for a component, ex: "sync", "remote".
	Named(name string) Logger

	Sync() error
}

type loggerImpl struct {
	base    *zap.Logger
	sugared *zap.SugaredLogger
}

// New builds a zap logger. pretty selects the colored development
// encoder, otherwise entries are JSON. Unknown levels keep the encoder
// default (debug when pretty, info otherwise).
func New(level string, pretty bool) Logger {
	var cfg zap.Config
	if pretty {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		cfg = zap.NewProductionConfig()
	}

	if lvl, ok := parseLevel(level); ok {
		cfg.Level = zap.NewAtomicLevelAt(lvl)
	}

	base, err := cfg.Build(
		zap.AddStacktrace(zapcore.FatalLevel),
	)
	if err != nil {
		panic(err)
	}

	return wrap(base)
}

// Nop returns a logger that discards everything.
func Nop() Logger {
	return wrap(zap.NewNop())
}

func wrap(base *zap.Logger) Logger {
	return &loggerImpl{
		base:    base,
		sugared: base.Sugar(),
	}
}

// parseLevel accepts debug, info, warn and error in any case.
func parseLevel(lvl string) (zapcore.Level, bool) {
	switch l := strings.ToLower(strings.TrimSpace(lvl)); l {
	case "debug", "info", "warn", "error":
		parsed, err := zapcore.ParseLevel(l)
		return parsed, err == nil
	default:
		return zapcore.InfoLevel, false
	}
}

func (l *loggerImpl) Debug(msg string, fields ...Field) { l.base.Debug(msg, fields...) }
func (l *loggerImpl) Info(msg string, fields ...Field)  { l.base.Info(msg, fields...) }
func (l *loggerImpl) Warn(msg string, fields ...Field)  { l.base.Warn(msg, fields...) }
func (l *loggerImpl) Error(msg string, fields ...Field) { l.base.Error(msg, fields...) }
func (l *loggerImpl) Fatal(msg string, fields ...Field) { l.base.Fatal(msg, fields...) }

func (l *loggerImpl) Debugf(t string, args ...any) { l.sugared.Debugf(t, args...) }
func (l *loggerImpl) Infof(t string, args ...any)  { l.sugared.Infof(t, args...) }
func (l *loggerImpl) Warnf(t string, args ...any)  { l.sugared.Warnf(t, args...) }
func (l *loggerImpl) Errorf(t string, args ...any) { l.sugared.Errorf(t, args...) }
func (l *loggerImpl) Fatalf(t string, args ...any) { l.sugared.Fatalf(t, args...) }

func (l *loggerImpl) With(fields ...Field) Logger { return wrap(l.base.With(fields...)) }
func (l *loggerImpl) Named(name string) Logger    { return wrap(l.base.Named(name)) }

func (l *loggerImpl) Sync() error { return l.base.Sync() }

// Field constructors, so packages log without importing zap.
func String(key, val string) Field                 { return zap.String(key, val) }
func Int(key string, val int) Field                { return zap.Int(key, val) }
func Bool(key string, val bool) Field              { return zap.Bool(key, val) }
func Duration(key string, val time.Duration) Field { return zap.Duration(key, val) }
func Time(key string, val time.Time) Field         { return zap.Time(key, val) }
func Strings(key string, val []string) Field       { return zap.Strings(key, val) }
func Error(err error) Field                        { return zap.Error(err) }
