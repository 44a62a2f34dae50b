package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/HayatoShiba/ppcc/common"
)

func TestToSlogLevel(t *testing.T) {
	tests := []struct {
		name     string
		level    Level
		expected slog.Level
	}{
		{name: "debug", level: LevelDebug, expected: slog.LevelDebug},
		{name: "lower case", level: Level("warn"), expected: slog.LevelWarn},
		{name: "error", level: LevelError, expected: slog.LevelError},
		{name: "unknown falls back to info", level: Level("verbose"), expected: slog.LevelInfo},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, toSlogLevel(tt.level))
		})
	}
}

func TestInitJSONFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "ppcc.log")
	err := Init(Config{Level: LevelDebug, Format: "json", OutputPath: path})
	assert.Nil(t, err)
	defer Close()

	WithBlock(WithTx(WithComponent("lock"), 7), common.NewBlockID("f", 3)).Debug("lock granted")
	assert.Nil(t, Close())

	b, err := os.ReadFile(path)
	assert.Nil(t, err)
	var rec map[string]any
	err = json.Unmarshal(bytes.TrimSpace(b), &rec)
	assert.Nil(t, err)
	assert.Equal(t, "lock granted", rec["msg"])
	assert.Equal(t, "lock", rec["component"])
	assert.Equal(t, float64(7), rec["tx_id"])
	assert.Equal(t, "f", rec["file"])
	assert.Equal(t, float64(3), rec["block"])
}

func TestNew(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, LevelWarn)
	l.Info("hidden")
	l.Warn("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestGetLoggerLazy(t *testing.T) {
	assert.Nil(t, Close())
	assert.NotNil(t, GetLogger())
}
