package utils

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readWorkspaceLog(t *testing.T) []string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(".patchpilot", "workspace.log"))
	require.NoError(t, err)
	return strings.Split(strings.TrimSpace(string(data)), "\n")
}

func TestLogPlainMode(t *testing.T) {
	t.Chdir(t.TempDir())

	l := GetLogger(true)
	l.Log("snapshot rebuilt")
	require.NoError(t, l.Close())

	lines := readWorkspaceLog(t)
	require.NotEmpty(t, lines)
	assert.Contains(t, lines[len(lines)-1], "snapshot rebuilt")
}

func TestLogJSONMode(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("PATCHPILOT_JSON_LOGS", "1")
	t.Setenv("PATCHPILOT_CORRELATION_ID", "run-7f3a")

	l := GetLogger(true)
	l.Logf("cache rebuilt for %s", "demo")
	l.LogError(errors.New("boom"))
	require.NoError(t, l.Close())

	lines := readWorkspaceLog(t)
	require.Len(t, lines, 2)

	var info map[string]string
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &info))
	assert.Equal(t, "info", info["level"])
	assert.Equal(t, "cache rebuilt for demo", info["msg"])
	assert.Equal(t, "run-7f3a", info["cid"])

	var errRec map[string]string
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &errRec))
	assert.Equal(t, "error", errRec["level"])
	assert.Equal(t, "boom", errRec["error"])
}

func TestAskForConfirmationSkipsWhenNonInteractive(t *testing.T) {
	t.Chdir(t.TempDir())

	l := GetLogger(true)
	assert.True(t, l.AskForConfirmation("overwrite the selection?", true, false))
	assert.False(t, l.AskForConfirmation("overwrite the selection?", false, false))
	_ = l.Close()
}
