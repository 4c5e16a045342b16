package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0644))
	return path
}

func TestDefaults(t *testing.T) {
	cfg := Default()

	assert.True(t, cfg.EnableValidation)
	assert.Equal(t, 2, cfg.MaxRetries)
	assert.True(t, cfg.EnableWebSearchEnrichment)
	assert.Equal(t, 5, cfg.CacheDurationMinutes)
	assert.True(t, cfg.AllowPackageInstall)
	assert.False(t, cfg.AllowRunScript)
	assert.False(t, cfg.AllowVersionControl)
	assert.False(t, cfg.RequireInteractiveConfirmation)
	assert.Equal(t, 120, cfg.InvocationTimeoutSeconds)
	assert.Equal(t, 400, cfg.DocumentLineCeiling)
	assert.Equal(t, DefaultOpenAIBaseURL, cfg.OpenAIBaseURL)
}

func TestLoadFileMissingOptionsKeepDefaults(t *testing.T) {
	path := writeConfig(t, `{"maxRetries": 4}`)

	cfg, err := loadFile(path)

	require.NoError(t, err)
	assert.Equal(t, 4, cfg.MaxRetries)
	assert.True(t, cfg.EnableValidation)
	assert.False(t, cfg.AllowRunScript)
}

func TestLoadFileExplicitFalseWins(t *testing.T) {
	path := writeConfig(t, `{"enableValidation": false, "allowRunScript": true}`)

	cfg, err := loadFile(path)

	require.NoError(t, err)
	assert.False(t, cfg.EnableValidation)
	assert.True(t, cfg.AllowRunScript)
}

func TestLoadFileClampsOutOfRangeValues(t *testing.T) {
	path := writeConfig(t, `{
		"maxRetries": 99,
		"cacheDurationMinutes": 0,
		"invocationTimeoutSeconds": 5,
		"documentLineCeiling": -1,
		"openAIBaseURL": ""
	}`)

	cfg, err := loadFile(path)

	require.NoError(t, err)
	assert.Equal(t, DefaultMaxRetries, cfg.MaxRetries)
	assert.Equal(t, DefaultCacheDurationMinutes, cfg.CacheDurationMinutes)
	assert.Equal(t, DefaultInvocationTimeoutSeconds, cfg.InvocationTimeoutSeconds)
	assert.Equal(t, DefaultDocumentLineCeiling, cfg.DocumentLineCeiling)
	assert.Equal(t, DefaultOpenAIBaseURL, cfg.OpenAIBaseURL)
}

func TestLoadFileZeroRetriesIsValid(t *testing.T) {
	path := writeConfig(t, `{"maxRetries": 0}`)

	cfg, err := loadFile(path)

	require.NoError(t, err)
	assert.Equal(t, 0, cfg.MaxRetries)
}

func TestLoadFileMalformedJSON(t *testing.T) {
	path := writeConfig(t, `{not json`)

	_, err := loadFile(path)

	assert.Error(t, err)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), configDirName, configFileName)
	cfg := Default()
	cfg.MaxRetries = 3
	cfg.Provider = "openai"
	cfg.Model = "gpt-4o-mini"

	require.NoError(t, Save(path, cfg))

	loaded, err := loadFile(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestInitWritesDefaults(t *testing.T) {
	dir := t.TempDir()

	path, err := Init(dir)

	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, configDirName, configFileName), path)
	loaded, err := loadFile(path)
	require.NoError(t, err)
	assert.Equal(t, Default(), loaded)
}

func TestPolicyMapping(t *testing.T) {
	cfg := Default()
	cfg.AllowRunScript = true
	cfg.AllowCreateFile = false
	cfg.RequireInteractiveConfirmation = true

	policy := cfg.Policy()

	assert.True(t, policy.AllowRunScript)
	assert.False(t, policy.AllowCreateFile)
	assert.True(t, policy.RequireInteractiveConfirmation)
	assert.True(t, policy.AllowPackageInstall)
}

func TestDurationHelpers(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "5m0s", cfg.CacheTTL().String())
	assert.Equal(t, "2m0s", cfg.InvocationTimeout().String())
}
