// Package orchestration drives one edit request from classification through
// model invocation, side effects, and validation, inside a bounded retry
// loop. It is the only package that sequences the others.
package orchestration

import (
	"github.com/patchpilot/patchpilot/pkg/actions"
	"github.com/patchpilot/patchpilot/pkg/classify"
	"github.com/patchpilot/patchpilot/pkg/validation"
)

// State names one phase of a run. The run starts in StateClassifying and
// ends in exactly one of the three terminal states.
type State string

const (
	StateClassifying          State = "classifying"
	StateBuildingContext      State = "building_context"
	StateAssemblingPrompt     State = "assembling_prompt"
	StateInvokingModel        State = "invoking_model"
	StateExecutingSideEffects State = "executing_side_effects"
	StateValidating           State = "validating"

	StateSucceeded       State = "succeeded"
	StateFailedExhausted State = "failed_exhausted"
	StateFailedFatal     State = "failed_fatal"
)

// Failure categories distinguish why a run ended without success. Invocation
// failures and validation failures share one retry budget; the category on
// the result tells them apart after the fact.
const (
	FailureInvocation = "invocation"
	FailureValidation = "validation"
	FailureTimeout    = "timeout"
)

// EditRequest is the immutable input to one run.
type EditRequest struct {
	InstructionText    string `json:"instructionText"`
	SelectedCode       string `json:"selectedCode"`
	FullDocumentText   string `json:"fullDocumentText,omitempty"`
	DocumentIdentifier string `json:"documentIdentifier"`
	ProjectRootPath    string `json:"projectRootPath,omitempty"`
}

// Result is the terminal artifact of one run, immutable once produced.
//
// On StateFailedExhausted the last candidate code is still present in
// FinalCode so the caller can review it alongside the verdict; on
// StateFailedFatal no code is returned.
type Result struct {
	RunID           string              `json:"runId"`
	Succeeded       bool                `json:"succeeded"`
	FinalCode       string              `json:"finalCode,omitempty"`
	Profile         classify.Profile    `json:"profile"`
	CacheHit        bool                `json:"cacheHit"`
	Verdict         *validation.Verdict `json:"verdict,omitempty"`
	RetryCount      int                 `json:"retryCount"`
	EffectOutcomes  []actions.Outcome   `json:"effectOutcomes"`
	ElapsedSeconds  float64             `json:"elapsedSeconds"`
	FailureReason   string              `json:"failureReason,omitempty"`
	FailureCategory string              `json:"failureCategory,omitempty"`
	State           State               `json:"state"`
}
