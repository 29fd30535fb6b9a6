package utils

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggerWritesDailyJSONFile(t *testing.T) {
	dir := t.TempDir()
	logger, err := NewETLLogger(false, false, dir)
	require.NoError(t, err)

	logger.With("run_id", "run-1").LogTableSynced("actor", 3, 1, 2, 0)
	logger.Debug("not written without verbose")
	require.NoError(t, logger.Close())

	data, err := os.ReadFile(filepath.Join(dir, "etl_log_"+time.Now().Format("2006-01-02")+".log"))
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 1)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "table synced", entry["msg"])
	assert.Equal(t, "run-1", entry["run_id"])
	assert.Equal(t, "actor", entry["table"])
	assert.EqualValues(t, 2, entry["updated"])
}

func TestLoggerCloseReleasesFile(t *testing.T) {
	logger, err := NewETLLogger(false, false, t.TempDir())
	require.NoError(t, err)
	file := logger.file
	require.NotNil(t, file)

	require.NoError(t, logger.Close())
	_, err = file.Write([]byte("late\n"))
	assert.ErrorIs(t, err, os.ErrClosed)

	// a second Close is a no-op
	assert.NoError(t, logger.Close())
}

func TestLoggerRejectsMissingDir(t *testing.T) {
	_, err := NewETLLogger(true, true, filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestNopLogger(t *testing.T) {
	logger := NewNopLogger()
	logger.Info("dropped %d", 1)
	logger.With("k", "v").Warn("dropped")
	assert.NoError(t, logger.Close())
}
