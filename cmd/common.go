package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/patchpilot/patchpilot/pkg/config"
	"github.com/patchpilot/patchpilot/pkg/events"
	"github.com/patchpilot/patchpilot/pkg/history"
	"github.com/patchpilot/patchpilot/pkg/llm"
	"github.com/patchpilot/patchpilot/pkg/orchestration"
	"github.com/patchpilot/patchpilot/pkg/utils"
	"github.com/patchpilot/patchpilot/pkg/websearch"
	"github.com/patchpilot/patchpilot/pkg/workspace"
)

// pipeline bundles the collaborators a command needs to run edits.
type pipeline struct {
	cfg    *config.Config
	orch   *orchestration.Orchestrator
	cache  *workspace.Cache
	bus    *events.Bus
	store  *history.Store
	logger *utils.Logger
}

// buildPipeline wires the orchestrator and its collaborators from the loaded
// config. providerFlag and modelFlag override the configured values when set.
func buildPipeline(cfg *config.Config, providerFlag, modelFlag, projectRoot string, logger *utils.Logger) (*pipeline, error) {
	provider := llm.SelectProvider(providerFlag, cfg.Provider)
	model := cfg.Model
	if modelFlag != "" {
		model = modelFlag
	}
	invoker, err := llm.NewInvoker(provider, model, cfg.OpenAIBaseURL)
	if err != nil {
		return nil, err
	}

	cache := workspace.NewCache(cfg.CacheTTL())
	var enricher websearch.Searcher
	if cfg.EnableWebSearchEnrichment {
		enricher = websearch.NewJinaSearcher()
	}
	bus := events.NewBus()
	store := history.NewStore(projectRoot)

	orch := orchestration.New(cfg, invoker, cache, enricher, bus)
	orch.Logger = logger
	orch.OnModify = func(path, before, after string) {
		if _, err := store.AppendRevision(history.RevisionRecord{
			Path:   path,
			Before: before,
			After:  after,
		}); err != nil {
			logger.LogError(fmt.Errorf("failed to record revision for %s: %w", path, err))
		}
	}

	return &pipeline{
		cfg:    cfg,
		orch:   orch,
		cache:  cache,
		bus:    bus,
		store:  store,
		logger: logger,
	}, nil
}

// resolveProjectRoot expands an empty or relative root flag into an absolute
// path, defaulting to the working directory.
func resolveProjectRoot(flagValue string) string {
	root := flagValue
	if root == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return ""
		}
		root = cwd
	}
	if abs, err := filepath.Abs(root); err == nil {
		return abs
	}
	return root
}

// bridgeWebsocketURL turns a listen address like ":8097" or "0.0.0.0:8097"
// into the websocket URL a local client should dial.
func bridgeWebsocketURL(addr string) string {
	host := strings.TrimSpace(addr)
	if host == "" {
		host = "127.0.0.1:8097"
	}
	if strings.HasPrefix(host, ":") {
		host = "127.0.0.1" + host
	}
	if strings.HasPrefix(host, "0.0.0.0:") {
		host = "127.0.0.1" + host[len("0.0.0.0"):]
	}
	return "ws://" + host + "/ws"
}

// effectSummary compresses the outcome list for the one-line run summary.
func effectSummary(result orchestration.Result) string {
	if len(result.EffectOutcomes) == 0 {
		return "none"
	}
	var parts []string
	for _, outcome := range result.EffectOutcomes {
		parts = append(parts, fmt.Sprintf("%s: %s", outcome.Request.Summary(), outcome.Status))
	}
	return strings.Join(parts, "; ")
}
