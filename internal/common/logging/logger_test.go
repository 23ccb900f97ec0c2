package logging

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogLevel_String(t *testing.T) {
	tests := []struct {
		level    LogLevel
		expected string
	}{
		{DebugLevel, "DEBUG"},
		{InfoLevel, "INFO"},
		{WarnLevel, "WARN"},
		{ErrorLevel, "ERROR"},
		{LogLevel(99), "UNKNOWN"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.level.String())
		})
	}
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, DebugLevel, ParseLevel("debug"))
	assert.Equal(t, WarnLevel, ParseLevel(" WARNING "))
	assert.Equal(t, ErrorLevel, ParseLevel("Error"))
	assert.Equal(t, InfoLevel, ParseLevel(""))
	assert.Equal(t, InfoLevel, ParseLevel("verbose"))
}

func newBufferLogger(t *testing.T, level LogLevel) (Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	logger, err := NewZapLogger(LogConfig{Level: level, Output: &buf})
	require.NoError(t, err)
	return logger, &buf
}

func TestZapAdapter_LevelFiltering(t *testing.T) {
	logger, buf := newBufferLogger(t, WarnLevel)

	logger.Debug("hidden debug")
	logger.Info("hidden info")
	logger.Warn("remote tier disabled", String("namespace", "api_response"))
	logger.Error("purge failed", errors.New("disk full"))

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "remote tier disabled")
	assert.Contains(t, out, "api_response")
	assert.Contains(t, out, "disk full")
}

func TestZapAdapter_WithFields(t *testing.T) {
	logger, buf := newBufferLogger(t, DebugLevel)

	logger.WithFields(String("component", "cache")).Info("hit", Int("tier", 1))

	out := buf.String()
	assert.Contains(t, out, "cache")
	assert.Contains(t, out, "hit")
}

func TestZapAdapter_WithContext(t *testing.T) {
	logger, buf := newBufferLogger(t, DebugLevel)

	ctx := context.WithValue(context.Background(), RunIDKey, "run-42")
	ctx = context.WithValue(ctx, JournalKey, "SIFIN")
	logger.WithContext(ctx).Info("extraction finished")

	out := buf.String()
	assert.Contains(t, out, "run-42")
	assert.Contains(t, out, "SIFIN")

	assert.Same(t, logger, logger.WithContext(context.Background()))
}

func TestInitGlobalLogger_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.log")

	closer, err := InitGlobalLogger("debug", path)
	require.NoError(t, err)
	t.Cleanup(func() { SetGlobalLogger(NewDefaultLogger()) })

	Component("test").Debug("written to file")
	MustSync()
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "written to file")
}

func TestInitGlobalLogger_BadPath(t *testing.T) {
	_, err := InitGlobalLogger("info", filepath.Join(t.TempDir(), "missing", "dir", "x.log"))
	assert.Error(t, err)
}
