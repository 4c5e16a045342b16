// Package config loads and persists the .patchpilot/config.json settings
// file. The working directory is checked first, then the home directory; a
// default config is written to the home directory when neither exists.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/patchpilot/patchpilot/pkg/actions"
)

const (
	configDirName  = ".patchpilot"
	configFileName = "config.json"
)

// Defaults and ranges for the numeric options. Out-of-range values in the
// file are replaced with the default at load time.
const (
	DefaultMaxRetries               = 2
	maxRetriesCeiling               = 5
	DefaultCacheDurationMinutes     = 5
	minCacheDurationMinutes         = 1
	maxCacheDurationMinutes         = 60
	DefaultInvocationTimeoutSeconds = 120
	minInvocationTimeoutSeconds     = 10
	maxInvocationTimeoutSeconds     = 600
	DefaultDocumentLineCeiling      = 400
	DefaultOpenAIBaseURL            = "https://api.openai.com/v1"
)

// Config is the full option surface. Permission booleans mirror the executor
// policy; runScript and versionControl stay off unless explicitly enabled.
type Config struct {
	EnableValidation          bool `json:"enableValidation"`
	MaxRetries                int  `json:"maxRetries"`
	EnableWebSearchEnrichment bool `json:"enableWebSearchEnrichment"`
	CacheDurationMinutes      int  `json:"cacheDurationMinutes"`

	AllowPackageInstall            bool `json:"allowPackageInstall"`
	AllowCreateFile                bool `json:"allowCreateFile"`
	AllowCreateFolder              bool `json:"allowCreateFolder"`
	AllowModifyFile                bool `json:"allowModifyFile"`
	AllowRunScript                 bool `json:"allowRunScript"`
	AllowVersionControl            bool `json:"allowVersionControl"`
	AllowFormatFile                bool `json:"allowFormatFile"`
	RequireInteractiveConfirmation bool `json:"requireInteractiveConfirmation"`

	InvocationTimeoutSeconds int    `json:"invocationTimeoutSeconds"`
	Provider                 string `json:"provider"`
	Model                    string `json:"model"`
	OpenAIBaseURL            string `json:"openAIBaseURL"`
	DocumentLineCeiling      int    `json:"documentLineCeiling"`
}

// Default returns a config with every option at its default.
func Default() *Config {
	return &Config{
		EnableValidation:          true,
		MaxRetries:                DefaultMaxRetries,
		EnableWebSearchEnrichment: true,
		CacheDurationMinutes:      DefaultCacheDurationMinutes,

		AllowPackageInstall: true,
		AllowCreateFile:     true,
		AllowCreateFolder:   true,
		AllowModifyFile:     true,
		AllowRunScript:      false,
		AllowVersionControl: false,
		AllowFormatFile:     true,

		RequireInteractiveConfirmation: false,

		InvocationTimeoutSeconds: DefaultInvocationTimeoutSeconds,
		OpenAIBaseURL:            DefaultOpenAIBaseURL,
		DocumentLineCeiling:      DefaultDocumentLineCeiling,
	}
}

// Load resolves the config: working directory first, then home directory.
// When neither file exists a default config is written to the home directory.
func Load() (*Config, error) {
	if path := currentConfigPath(); path != "" {
		if _, err := os.Stat(path); err == nil {
			return loadFile(path)
		}
	}
	homePath := homeConfigPath()
	if homePath != "" {
		if _, err := os.Stat(homePath); err == nil {
			return loadFile(homePath)
		}
	}

	cfg := Default()
	if homePath != "" {
		if err := Save(homePath, cfg); err != nil {
			return nil, fmt.Errorf("could not create initial config: %w", err)
		}
	}
	return cfg, nil
}

// Init writes a default config under the given directory and returns its
// path. An empty dir means the working directory.
func Init(dir string) (string, error) {
	if dir == "" {
		dir = "."
	}
	path := filepath.Join(dir, configDirName, configFileName)
	if err := Save(path, Default()); err != nil {
		return "", err
	}
	return path, nil
}

// Save writes the config as indented JSON, creating parent directories.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := json.MarshalIndent(cfg, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Paths returns the working-directory and home-directory config locations,
// in lookup order. Either may be empty when the base directory is unknown.
func Paths() (cwdPath, homePath string) {
	return currentConfigPath(), homeConfigPath()
}

// Policy maps the permission booleans onto the executor capability policy.
func (cfg *Config) Policy() actions.Policy {
	return actions.Policy{
		AllowPackageInstall:            cfg.AllowPackageInstall,
		AllowCreateFile:                cfg.AllowCreateFile,
		AllowCreateFolder:              cfg.AllowCreateFolder,
		AllowModifyFile:                cfg.AllowModifyFile,
		AllowRunScript:                 cfg.AllowRunScript,
		AllowVersionControl:            cfg.AllowVersionControl,
		AllowFormatFile:                cfg.AllowFormatFile,
		RequireInteractiveConfirmation: cfg.RequireInteractiveConfirmation,
	}
}

// CacheTTL returns the snapshot lifetime as a duration.
func (cfg *Config) CacheTTL() time.Duration {
	return time.Duration(cfg.CacheDurationMinutes) * time.Minute
}

// InvocationTimeout returns the per-invocation deadline as a duration.
func (cfg *Config) InvocationTimeout() time.Duration {
	return time.Duration(cfg.InvocationTimeoutSeconds) * time.Second
}

func loadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	// Start from defaults so options missing from older files keep their
	// documented default instead of the zero value.
	cfg := Default()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	cfg.clampRanges()
	return cfg, nil
}

func (cfg *Config) clampRanges() {
	if cfg.MaxRetries < 0 || cfg.MaxRetries > maxRetriesCeiling {
		cfg.MaxRetries = DefaultMaxRetries
	}
	if cfg.CacheDurationMinutes < minCacheDurationMinutes || cfg.CacheDurationMinutes > maxCacheDurationMinutes {
		cfg.CacheDurationMinutes = DefaultCacheDurationMinutes
	}
	if cfg.InvocationTimeoutSeconds < minInvocationTimeoutSeconds || cfg.InvocationTimeoutSeconds > maxInvocationTimeoutSeconds {
		cfg.InvocationTimeoutSeconds = DefaultInvocationTimeoutSeconds
	}
	if cfg.DocumentLineCeiling <= 0 {
		cfg.DocumentLineCeiling = DefaultDocumentLineCeiling
	}
	if cfg.OpenAIBaseURL == "" {
		cfg.OpenAIBaseURL = DefaultOpenAIBaseURL
	}
}

func currentConfigPath() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}
	return filepath.Join(cwd, configDirName, configFileName)
}

func homeConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, configDirName, configFileName)
}
