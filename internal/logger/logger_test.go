package logger

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewLogger(t *testing.T) {
	log, err := NewLogger("debug", "json")
	require.NoError(t, err)
	assert.NotNil(t, log)

	_, err = NewLogger("loud", "console")
	assert.Error(t, err)
}

func TestNewAuditLogger_AppendsJSONLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "api.jsonl")

	log, err := NewAuditLogger(path)
	require.NoError(t, err)
	log.Info("llm call", zap.String("request", "hello"), zap.String("response", "[]"))
	log.Info("llm call", zap.String("request", "again"), zap.String("response", "[]"))
	_ = log.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "hello", entry["request"])
	assert.Contains(t, entry, "time")
}
