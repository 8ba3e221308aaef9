package telemetry

import (
	"go.opentelemetry.io/contrib/bridges/otelzap"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// WithZap tees log entries at or above the level of log into the OTLP log
// exporter. The logger is returned unchanged when log export is off.
func (p *Provider) WithZap(log *zap.Logger) *zap.Logger {
	if p.logs == nil || log == nil {
		return log
	}
	bridge := p.ZapCore(minLevel(log.Core()))
	return log.WithOptions(zap.WrapCore(func(core zapcore.Core) zapcore.Core {
		return zapcore.NewTee(core, bridge)
	}))
}

// ZapCore returns a core that forwards entries to the OTLP log exporter
func (p *Provider) ZapCore(level zapcore.Level) zapcore.Core {
	if p.logs == nil {
		return zapcore.NewNopCore()
	}
	core := otelzap.NewCore(p.config.ServiceName, otelzap.WithLoggerProvider(p.logs))
	return &levelFilterCore{Core: core, minLevel: level}
}

func minLevel(enab zapcore.LevelEnabler) zapcore.Level {
	for lvl := zapcore.DebugLevel; lvl < zapcore.FatalLevel; lvl++ {
		if enab.Enabled(lvl) {
			return lvl
		}
	}
	return zapcore.FatalLevel
}

// levelFilterCore drops entries below minLevel; otelzap has no level of its own.
type levelFilterCore struct {
	zapcore.Core
	minLevel zapcore.Level
}

func (c *levelFilterCore) Enabled(lvl zapcore.Level) bool {
	return lvl >= c.minLevel && c.Core.Enabled(lvl)
}

func (c *levelFilterCore) Check(entry zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if !c.Enabled(entry.Level) {
		return ce
	}
	return c.Core.Check(entry, ce)
}

func (c *levelFilterCore) With(fields []zapcore.Field) zapcore.Core {
	return &levelFilterCore{Core: c.Core.With(fields), minLevel: c.minLevel}
}
