package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestContentIsRedacted(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := FromZap(zap.New(core), false)

	l.Info("journey updated", "id", "j-1", "thought_text", "I am not enough", "step", 3)

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "j-1", fields["id"])
	assert.Equal(t, "[REDACTED]", fields["thought_text"])
	assert.EqualValues(t, 3, fields["step"])
}

func TestContentLoggingEnabled(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := FromZap(zap.New(core), true).With("component", "test")

	l.Debug("check-in", "other_text", "moving house")

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "moving house", fields["other_text"])
	assert.Equal(t, "test", fields["component"])
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := New(Options{Level: "loud"})
	assert.Error(t, err)

	l, err := New(Options{Mode: "production", Level: "warn"})
	require.NoError(t, err)
	assert.False(t, l.SugaredLogger.Desugar().Core().Enabled(zapcore.InfoLevel))
}
