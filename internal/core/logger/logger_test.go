package logger

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"clinic-manager/internal/core/config"
)

func TestJSONLoggerWritesFields(t *testing.T) {
	var buf bytes.Buffer
	l, cleanup := NewWithOptions(Options{Level: "debug", JSON: true, Out: &buf})
	l.Info("patient created", zap.String("id", "p-1"))
	cleanup()

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "patient created", line["msg"])
	assert.Equal(t, "p-1", line["id"])
	assert.Contains(t, line, "ts")
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l, cleanup := NewWithOptions(Options{Level: "warn", JSON: true, Out: &buf})
	l.Info("dropped")
	cleanup()
	assert.Empty(t, buf.String())
}

func TestToWriterForwardsLines(t *testing.T) {
	var buf bytes.Buffer
	l, cleanup := NewWithOptions(Options{Level: "info", JSON: true, Out: &buf})
	w := ToWriter(l, zapcore.InfoLevel)
	_, err := w.Write([]byte("[GIN-debug] listening\n"))
	require.NoError(t, err)
	cleanup()
	assert.Contains(t, buf.String(), "[GIN-debug] listening")
}

func TestFromConfigWithFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "app.log")
	l, cleanup := FromConfig(config.Log{Level: "info", JSON: true, File: file, MaxSizeMB: 1})
	defer cleanup()
	require.NotNil(t, l)
	l.Info("rotating")
}
