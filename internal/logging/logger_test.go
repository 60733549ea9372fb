package logging

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	cfgpkg "github.com/taoyao-code/radio-hub/internal/config"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, ParseLevel("DEBUG"))
	assert.Equal(t, zapcore.WarnLevel, ParseLevel("warning"))
	assert.Equal(t, zapcore.ErrorLevel, ParseLevel("error"))
	assert.Equal(t, zapcore.InfoLevel, ParseLevel("verbose"))
}

func TestNew_JSONFields(t *testing.T) {
	var buf bytes.Buffer
	log := New(cfgpkg.LoggingConfig{Level: "info", Format: "json"}, zapcore.AddSync(&buf))

	log.Debug("hidden")
	log.Info("frame dropped", zap.String("mac", "AA:BB:CC:DD:EE:FF"), zap.Int("len", 3))
	require.NoError(t, log.Sync())

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 1, "debug 级别应被过滤")

	var rec map[string]interface{}
	require.NoError(t, json.Unmarshal(lines[0], &rec))
	assert.Equal(t, "info", rec["level"])
	assert.Equal(t, "frame dropped", rec["msg"])
	assert.Equal(t, "AA:BB:CC:DD:EE:FF", rec["mac"])
	assert.Contains(t, rec, "ts")
}

func TestInitLogger_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hub.log")
	log, err := InitLogger(cfgpkg.LoggingConfig{
		Level:  "info",
		Format: "console",
		Output: "stderr",
		File:   cfgpkg.LumberjackConfig{Filename: path, MaxSizeMB: 1},
	})
	require.NoError(t, err)
	log.Info("hello")
	_ = log.Sync()
	assert.FileExists(t, path)
}
