package logger

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger wraps a zap SugaredLogger and keeps journal text out of the logs
// unless content logging was explicitly enabled.
type Logger struct {
	SugaredLogger *zap.SugaredLogger
	logContent    bool
}

// Options controls how New builds the logger
type Options struct {
	Mode       string // "development" or "production"
	Level      string // debug, info, warn, error
	LogContent bool
}

func New(opts Options) (*Logger, error) {
	var cfg zap.Config
	switch strings.ToLower(opts.Mode) {
	case "prod", "production":
		cfg = zap.NewProductionConfig()
	default:
		cfg = zap.NewDevelopmentConfig()
	}

	level := zapcore.InfoLevel
	if opts.Level != "" {
		if err := level.UnmarshalText([]byte(strings.ToLower(opts.Level))); err != nil {
			return nil, fmt.Errorf("parse log level %q: %w", opts.Level, err)
		}
	}
	cfg.Level = zap.NewAtomicLevelAt(level)

	zapLogger, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return &Logger{SugaredLogger: zapLogger.Sugar(), logContent: opts.LogContent}, nil
}

// Nop returns a logger that discards everything
func Nop() *Logger {
	return &Logger{SugaredLogger: zap.NewNop().Sugar()}
}

// FromZap wraps an existing zap logger (used by tests with observers)
func FromZap(z *zap.Logger, logContent bool) *Logger {
	return &Logger{SugaredLogger: z.Sugar(), logContent: logContent}
}

func (l *Logger) Sync() {
	_ = l.SugaredLogger.Sync()
}

func (l *Logger) Debug(msg string, keysAndValues ...interface{}) {
	l.SugaredLogger.Debugw(msg, l.sanitizeKVs(keysAndValues)...)
}
func (l *Logger) Info(msg string, keysAndValues ...interface{}) {
	l.SugaredLogger.Infow(msg, l.sanitizeKVs(keysAndValues)...)
}
func (l *Logger) Warn(msg string, keysAndValues ...interface{}) {
	l.SugaredLogger.Warnw(msg, l.sanitizeKVs(keysAndValues)...)
}
func (l *Logger) Error(msg string, keysAndValues ...interface{}) {
	l.SugaredLogger.Errorw(msg, l.sanitizeKVs(keysAndValues)...)
}
func (l *Logger) With(keysAndValues ...interface{}) *Logger {
	return &Logger{
		SugaredLogger: l.SugaredLogger.With(l.sanitizeKVs(keysAndValues)...),
		logContent:    l.logContent,
	}
}

func (l *Logger) sanitizeKVs(kv []interface{}) []interface{} {
	if len(kv) == 0 || l.logContent {
		return kv
	}
	out := make([]interface{}, 0, len(kv))
	for i := 0; i < len(kv); i += 2 {
		if i == len(kv)-1 {
			out = append(out, kv[i])
			break
		}
		key := strings.TrimSpace(strings.ToLower(fmt.Sprint(kv[i])))
		if isContentKey(key) {
			out = append(out, kv[i], redact(kv[i+1]))
			continue
		}
		out = append(out, kv[i], kv[i+1])
	}
	return out
}

// isContentKey matches fields that carry what the user wrote
func isContentKey(key string) bool {
	switch {
	case strings.Contains(key, "thought"),
		strings.Contains(key, "situation"),
		strings.Contains(key, "notes"),
		strings.Contains(key, "insights"),
		strings.Contains(key, "other_text"),
		strings.Contains(key, "habit_description"),
		strings.Contains(key, "action_text"):
		return true
	default:
		return false
	}
}

func redact(val interface{}) interface{} {
	if s, ok := val.(string); ok && s == "" {
		return ""
	}
	if val == nil {
		return nil
	}
	return "[REDACTED]"
}
