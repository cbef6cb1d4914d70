package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	testCases := map[string]zapcore.Level{
		"debug":   zap.DebugLevel,
		"info":    zap.InfoLevel,
		"warn":    zap.WarnLevel,
		"error":   zap.ErrorLevel,
		"verbose": zap.InfoLevel,
		"":        zap.InfoLevel,
	}

	for in, want := range testCases {
		assert.Equal(t, want, ParseLevel(in), in)
	}
}

func TestInitLogger_ReplacesGlobals(t *testing.T) {
	prev := zap.L()
	t.Cleanup(func() { zap.ReplaceGlobals(prev) })

	InitLogger("warn")

	assert.False(t, zap.L().Core().Enabled(zap.InfoLevel))
	assert.True(t, zap.L().Core().Enabled(zap.WarnLevel))
}
