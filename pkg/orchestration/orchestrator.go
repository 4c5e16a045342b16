package orchestration

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/patchpilot/patchpilot/pkg/actions"
	"github.com/patchpilot/patchpilot/pkg/classify"
	"github.com/patchpilot/patchpilot/pkg/config"
	"github.com/patchpilot/patchpilot/pkg/events"
	"github.com/patchpilot/patchpilot/pkg/llm"
	"github.com/patchpilot/patchpilot/pkg/prompts"
	"github.com/patchpilot/patchpilot/pkg/utils"
	"github.com/patchpilot/patchpilot/pkg/validation"
	"github.com/patchpilot/patchpilot/pkg/websearch"
	"github.com/patchpilot/patchpilot/pkg/workspace"
)

// Orchestrator sequences one edit request through classification, context
// lookup, prompt assembly, model invocation, side effects, and validation.
// Invocation failures and validation failures draw from the same retry
// budget: the loop never makes more than maxRetries+1 model calls.
type Orchestrator struct {
	cfg       *config.Config
	invoker   llm.Invoker
	cache     *workspace.Cache
	enricher  websearch.Searcher
	bus       *events.Bus
	engine    *validation.Engine
	assembler prompts.Assembler

	// Logger receives process-step logs; nil disables them.
	Logger *utils.Logger

	// OnModify is forwarded to the side-effect executor so callers can
	// record revisions of files modified as side effects.
	OnModify func(path, before, after string)
}

// New wires an orchestrator from its collaborators. A nil enricher disables
// web enrichment and a nil bus disables progress events; both are valid.
func New(cfg *config.Config, invoker llm.Invoker, cache *workspace.Cache, enricher websearch.Searcher, bus *events.Bus) *Orchestrator {
	return &Orchestrator{
		cfg:       cfg,
		invoker:   invoker,
		cache:     cache,
		enricher:  enricher,
		bus:       bus,
		engine:    validation.NewEngine(),
		assembler: prompts.NewAssembler(cfg.DocumentLineCeiling),
	}
}

// Run drives one request to a terminal state. It always returns a result:
// failures are reported through the result record, never as an error.
func (o *Orchestrator) Run(ctx context.Context, req EditRequest) Result {
	start := time.Now()

	result := Result{
		RunID:          uuid.NewString(),
		State:          StateClassifying,
		EffectOutcomes: []actions.Outcome{},
	}

	// Classification is total and synchronous; the run begins in
	// StateClassifying, so run_started doubles as its progress event.
	result.Profile = classify.Classify(req.InstructionText, req.SelectedCode)
	o.publish(events.EventTypeRunStarted, events.RunStartedEvent(
		result.RunID, req.InstructionText, req.DocumentIdentifier, string(result.Profile.Tier)))
	o.logf("run %s: classified %q as %s", result.RunID, req.DocumentIdentifier, result.Profile.Tier)

	var snapshot *workspace.Snapshot
	if result.Profile.RequiresProjectContext && o.cache != nil {
		o.transition(&result, StateBuildingContext, 0)
		snap, hit := o.cache.Get(req.ProjectRootPath)
		snapshot = &snap
		result.CacheHit = hit
	}

	enrichment := o.enrich(ctx, &result, req)

	executor := actions.NewExecutor(req.ProjectRootPath, o.cfg.Policy(), o.Logger)
	executor.OnModify = o.OnModify

	var priorVerdict *validation.Verdict
	var lastErr error
	lastCategory := FailureInvocation

	for attempt := 0; attempt <= o.cfg.MaxRetries; attempt++ {
		result.RetryCount = attempt

		o.transition(&result, StateAssemblingPrompt, attempt)
		systemMessage, userMessage := o.assembler.Build(result.Profile, req.InstructionText,
			req.SelectedCode, req.FullDocumentText, req.DocumentIdentifier,
			snapshot, enrichment, priorVerdict)

		o.transition(&result, StateInvokingModel, attempt)
		completion, err := o.invoke(ctx, systemMessage, userMessage)
		if err != nil {
			lastErr = err
			lastCategory = FailureInvocation
			if errors.Is(err, context.DeadlineExceeded) {
				lastCategory = FailureTimeout
			}
			o.publish(events.EventTypeError, events.ErrorEvent(result.RunID, "model invocation failed", err))
			o.logError(fmt.Errorf("run %s attempt %d: %w", result.RunID, attempt+1, err))
			continue
		}
		if completion.Truncated {
			o.logf("run %s attempt %d: completion truncated by provider", result.RunID, attempt+1)
		}

		o.transition(&result, StateExecutingSideEffects, attempt)
		requests := actions.Parse(completion.Content)
		candidate := normalizeCandidate(actions.Clean(completion.Content))
		outcomes := executor.ExecuteAll(ctx, requests)
		result.EffectOutcomes = append(result.EffectOutcomes, outcomes...)
		for _, outcome := range outcomes {
			o.publish(events.EventTypeSideEffectApplied, events.SideEffectEvent(
				result.RunID, string(outcome.Request.Kind), string(outcome.Status), outcome.Detail))
		}

		if !o.cfg.EnableValidation {
			return o.succeed(&result, start, candidate)
		}

		o.transition(&result, StateValidating, attempt)
		verdict := o.engine.Validate(candidate, req.DocumentIdentifier)
		result.Verdict = &verdict
		if verdict.IsAcceptable {
			return o.succeed(&result, start, candidate)
		}

		// Keep the rejected candidate: on exhaustion it is still returned
		// for manual review alongside the verdict.
		priorVerdict = &verdict
		result.FinalCode = candidate
		lastCategory = FailureValidation
		o.logf("run %s attempt %d: validation rejected candidate (%d errors, score %d)",
			result.RunID, attempt+1, len(verdict.Errors), verdict.QualityScore)
	}

	attempts := o.cfg.MaxRetries + 1
	result.FailureCategory = lastCategory
	switch lastCategory {
	case FailureValidation:
		result.FailureReason = fmt.Sprintf("validation rejected the candidate after %d attempts", attempts)
		o.transition(&result, StateFailedExhausted, result.RetryCount)
	case FailureTimeout:
		result.FailureReason = fmt.Sprintf("model invocation timed out after %s", o.cfg.InvocationTimeout())
		result.FinalCode = ""
		o.transition(&result, StateFailedFatal, result.RetryCount)
	default:
		result.FailureReason = fmt.Sprintf("model invocation failed: %v", lastErr)
		result.FinalCode = ""
		o.transition(&result, StateFailedFatal, result.RetryCount)
	}

	result.ElapsedSeconds = time.Since(start).Seconds()
	o.publish(events.EventTypeRunCompleted, events.RunCompletedEvent(
		result.RunID, false, result.RetryCount, result.ElapsedSeconds))
	o.logf("run %s: %s (%s) after %d attempts", result.RunID, result.State, result.FailureCategory, attempts)
	return result
}

func (o *Orchestrator) succeed(result *Result, start time.Time, candidate string) Result {
	result.Succeeded = true
	result.FinalCode = candidate
	o.transition(result, StateSucceeded, result.RetryCount)
	result.ElapsedSeconds = time.Since(start).Seconds()
	o.publish(events.EventTypeRunCompleted, events.RunCompletedEvent(
		result.RunID, true, result.RetryCount, result.ElapsedSeconds))
	o.logf("run %s: succeeded with %d retries in %.2fs", result.RunID, result.RetryCount, result.ElapsedSeconds)
	return *result
}

// invoke wraps one model round trip in the configured timeout, bounding the
// only otherwise unbounded suspension point in a run.
func (o *Orchestrator) invoke(ctx context.Context, systemMessage, userMessage string) (*llm.Completion, error) {
	invokeCtx, cancel := context.WithTimeout(ctx, o.cfg.InvocationTimeout())
	defer cancel()
	return o.invoker.Invoke(invokeCtx, systemMessage, userMessage)
}

// enrich queries the web enricher once per run for deep-analysis requests.
// Enrichment is best effort: a failure is absorbed into empty text.
func (o *Orchestrator) enrich(ctx context.Context, result *Result, req EditRequest) string {
	if o.enricher == nil || !o.cfg.EnableWebSearchEnrichment || !result.Profile.RequiresDeepAnalysis {
		return ""
	}
	text, err := o.enricher.Search(ctx, req.InstructionText)
	if err != nil {
		o.publish(events.EventTypeError, events.ErrorEvent(result.RunID, "web search enrichment failed", err))
		o.logError(fmt.Errorf("run %s: enrichment: %w", result.RunID, err))
		return ""
	}
	return text
}

func (o *Orchestrator) transition(result *Result, state State, attempt int) {
	result.State = state
	o.publish(events.EventTypeStateChanged, events.StateChangedEvent(result.RunID, string(state), attempt))
}

func (o *Orchestrator) publish(eventType string, data map[string]interface{}) {
	if o.bus != nil {
		o.bus.Publish(eventType, data)
	}
}

func (o *Orchestrator) logf(format string, v ...interface{}) {
	if o.Logger != nil {
		o.Logger.Logf(format, v...)
	}
}

func (o *Orchestrator) logError(err error) {
	if o.Logger != nil {
		o.Logger.LogError(err)
	}
}

// normalizeCandidate trims whitespace and strips one wrapping markdown fence
// pair, which models sometimes add despite the output constraints. Fences
// inside the candidate are left alone.
func normalizeCandidate(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") || !strings.HasSuffix(trimmed, "```") || len(trimmed) < 7 {
		return trimmed
	}
	body := strings.TrimSuffix(trimmed, "```")
	if idx := strings.Index(body, "\n"); idx >= 0 {
		body = body[idx+1:]
	} else {
		body = strings.TrimPrefix(body, "```")
	}
	return strings.TrimSpace(body)
}
