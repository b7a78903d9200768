package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		"DEBUG":   zapcore.DebugLevel,
		"warn":    zapcore.WarnLevel,
		"warning": zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
		"info":    zapcore.InfoLevel,
		"":        zapcore.InfoLevel,
		"verbose": zapcore.InfoLevel,
	}
	for in, want := range cases {
		assert.Equal(t, want, ParseLevel(in), "level %q", in)
	}
}

func TestNopBeforeInit(t *testing.T) {
	// Package-level helpers must be callable before Init.
	assert.NotPanics(t, func() {
		Debug("debug before init")
		Named("renderer").Info("named before init")
		Sync()
	})
}

func TestFileOutput(t *testing.T) {
	dir := t.TempDir()
	logFile := filepath.Join(dir, "luv.log")

	cfg := DefaultFileConfig(logFile)
	cfg.Compress = false
	require.NoError(t, InitWithFileConfig("info", cfg, false))
	t.Cleanup(func() {
		_ = InitWithFileConfig("info", FileConfig{}, false)
	})

	Debug("filtered out")
	Info("cloud created", zap.Uint32("points", 512))
	Named("generator").Warn("fallback to grid")
	Sync()

	data, err := os.ReadFile(logFile)
	require.NoError(t, err)
	out := string(data)

	assert.NotContains(t, out, "filtered out")
	assert.Contains(t, out, "cloud created")
	assert.Contains(t, out, `"points":512`)
	assert.Contains(t, out, "fallback to grid")
	assert.Contains(t, out, `"logger":"generator"`)
	assert.Equal(t, 2, strings.Count(strings.TrimSpace(out), "\n")+1)
}

func TestInitWithoutOutputsIsNop(t *testing.T) {
	require.NoError(t, InitWithFileConfig("debug", FileConfig{}, false))
	assert.False(t, Log.Core().Enabled(zapcore.ErrorLevel))
}
