package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger_CreatesDirAndFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "logs")
	log, err := NewLogger(dir)
	require.NoError(t, err)

	log.Info("logging_test_message")
	_ = log.Sync()

	data, err := os.ReadFile(filepath.Join(dir, "mailscore.log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"logging_test_message"`)
	assert.Contains(t, string(data), `"ts":`)
}

func TestNewLogger_BadDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(f, nil, 0o600))

	_, err := NewLogger(filepath.Join(f, "logs"))
	assert.Error(t, err)
}
