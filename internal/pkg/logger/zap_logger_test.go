package logger

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestZapLoggerFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := NewZapLoggerFrom(zap.New(core))

	l.Info("SESSION", "chat created", map[string]interface{}{"chat_id": "c1"})
	l.Warn("SESSION", "persist failed", nil)
	l.Error("TURN", "stream failed", map[string]interface{}{"error": errors.New("boom")})

	entries := logs.All()
	require.Len(t, entries, 3)

	assert.Equal(t, "chat created", entries[0].Message)
	assert.Equal(t, "SESSION", entries[0].ContextMap()["module"])
	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
	assert.Contains(t, entries[2].ContextMap(), "error_ref")
}

func TestNopLogger(t *testing.T) {
	var l ILogger = NewNopLogger()
	l.Debug("X", "ignored", nil)
	assert.NoError(t, l.Sync())
}
