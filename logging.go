package gekko

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Logger interface {
	DebugEnabled() bool
	SetDebug(enabled bool)
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

// DefaultLogger is a Logger backed by zap.
type DefaultLogger struct {
	level     zap.AtomicLevel
	baseLevel zapcore.Level
	base      *zap.Logger
	sugar     *zap.SugaredLogger
}

// LogConfig selects the level ("debug", "info", ...) and format ("json" or
// "console") of a DefaultLogger.
type LogConfig struct {
	Prefix string
	Level  string
	Format string
}

func NewLogger(cfg LogConfig) (*DefaultLogger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	switch cfg.Format {
	case "json":
		zapCfg = zap.NewProductionConfig()
	case "", "console":
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000")
		zapCfg.EncoderConfig.ConsoleSeparator = "  "
		zapCfg.DisableCaller = true
		zapCfg.DisableStacktrace = true
	default:
		return nil, fmt.Errorf("unknown log format %q", cfg.Format)
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	base, err := zapCfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	if cfg.Prefix != "" {
		base = base.Named(cfg.Prefix)
	}
	return newDefaultLogger(base, zapCfg.Level, level), nil
}

// NewZapLogger wraps an existing zap logger. Its level is fixed by the
// logger's core; SetDebug only affects DebugEnabled.
func NewZapLogger(base *zap.Logger) *DefaultLogger {
	level := zap.NewAtomicLevelAt(zapcore.InfoLevel)
	if base.Core().Enabled(zapcore.DebugLevel) {
		level.SetLevel(zapcore.DebugLevel)
	}
	return newDefaultLogger(base, level, level.Level())
}

func newDefaultLogger(base *zap.Logger, level zap.AtomicLevel, baseLevel zapcore.Level) *DefaultLogger {
	return &DefaultLogger{
		level:     level,
		baseLevel: baseLevel,
		base:      base,
		sugar:     base.Sugar(),
	}
}

func (l *DefaultLogger) Zap() *zap.Logger { return l.base }

func (l *DefaultLogger) DebugEnabled() bool {
	return l.level.Enabled(zapcore.DebugLevel)
}

func (l *DefaultLogger) SetDebug(enabled bool) {
	if enabled {
		l.level.SetLevel(zapcore.DebugLevel)
		return
	}
	if l.baseLevel > zapcore.DebugLevel {
		l.level.SetLevel(l.baseLevel)
	} else {
		l.level.SetLevel(zapcore.InfoLevel)
	}
}

func (l *DefaultLogger) Debugf(format string, args ...any) { l.sugar.Debugf(format, args...) }
func (l *DefaultLogger) Infof(format string, args ...any)  { l.sugar.Infof(format, args...) }
func (l *DefaultLogger) Warnf(format string, args ...any)  { l.sugar.Warnf(format, args...) }
func (l *DefaultLogger) Errorf(format string, args ...any) { l.sugar.Errorf(format, args...) }

// Sync flushes buffered log entries.
func (l *DefaultLogger) Sync() error { return l.base.Sync() }

// LoggingPlugin installs a DefaultLogger as a resource and flushes it on
// shutdown.
type LoggingPlugin struct {
	Prefix string
	Level  string
	Format string
}

func (p LoggingPlugin) Build(b *AppBuilder) {
	logger, err := NewLogger(LogConfig{Prefix: p.Prefix, Level: p.Level, Format: p.Format})
	if err != nil {
		b.Fail(fmt.Errorf("logging plugin: %w", err))
		return
	}
	b.AddResource(logger)
	b.AddShutdownHook(func() { _ = logger.Sync() })
}

// Nop logger and App helper accessor

type nopLogger struct{}

func NewNopLogger() Logger { return &nopLogger{} }

func (n *nopLogger) DebugEnabled() bool                { return false }
func (n *nopLogger) SetDebug(enabled bool)             {}
func (n *nopLogger) Debugf(format string, args ...any) {}
func (n *nopLogger) Infof(format string, args ...any)  {}
func (n *nopLogger) Warnf(format string, args ...any)  {}
func (n *nopLogger) Errorf(format string, args ...any) {}

// Logger returns the DefaultLogger resource if present, otherwise the Logger
// resource whose type name sorts first, otherwise a no-op logger.
// Safe to call at any time; never returns nil.
func (app *App) Logger() Logger {
	if app == nil {
		return NewNopLogger()
	}
	return loggerOf(app.world)
}

// Logger is App.Logger for the App being assembled.
func (b *AppBuilder) Logger() Logger {
	if b == nil || b.app == nil {
		return NewNopLogger()
	}
	return loggerOf(b.app.world)
}

func loggerOf(w *World) Logger {
	if w == nil {
		return NewNopLogger()
	}
	if l := Resource[DefaultLogger](w); l != nil {
		return l
	}

	var (
		found Logger
		name  string
	)
	for t, r := range w.resources {
		l, ok := r.(Logger)
		if !ok {
			continue
		}
		if found == nil || t.String() < name {
			found, name = l, t.String()
		}
	}
	if found == nil {
		return NewNopLogger()
	}
	return found
}
