// Package validation judges candidate code before it is accepted: genuine
// syntax diagnostics block acceptance, quality warnings only lower the score.
package validation

import (
	"path/filepath"
	"strings"
)

// Issue is a blocking syntax diagnostic with a 1-based line and 0-based
// column.
type Issue struct {
	Line       int    `json:"line"`
	Column     int    `json:"column"`
	Message    string `json:"message"`
	Suggestion string `json:"suggestion,omitempty"`
}

// Warning is an advisory finding; warnings never block acceptance.
type Warning struct {
	Line     int    `json:"line"`
	Message  string `json:"message"`
	Category string `json:"category"`
}

// Verdict is the structured judgment for one candidate code string. A fresh
// verdict is produced per validation pass; verdicts are never merged.
type Verdict struct {
	IsAcceptable bool      `json:"isAcceptable"`
	Errors       []Issue   `json:"errors"`
	Warnings     []Warning `json:"warnings"`
	QualityScore int       `json:"qualityScore"`
}

// Warning categories.
const (
	CategoryDebug    = "debug"
	CategoryLeftover = "leftover"
	CategoryStyle    = "style"
)

const longLineLimit = 120

// Engine validates candidate code by file type. Stateless and safe for
// concurrent use; each call parses with its own parser instance.
type Engine struct{}

func NewEngine() *Engine {
	return &Engine{}
}

// Validate inspects candidateCode according to the language implied by
// fileIdentifier's extension. Deterministic: identical inputs yield an
// identical verdict.
func (e *Engine) Validate(candidateCode, fileIdentifier string) Verdict {
	ext := strings.ToLower(filepath.Ext(fileIdentifier))

	var errors []Issue
	var warnings []Warning
	switch {
	case languageForExt(ext) != nil:
		errors = parseSyntax(candidateCode, ext)
		warnings = scanQualitySmells(candidateCode, ext)
	case ext == ".py" || ext == ".pyi":
		errors = pythonChecks(candidateCode)
	default:
		errors, warnings = genericChecks(candidateCode)
	}

	if errors == nil {
		errors = []Issue{}
	}
	if warnings == nil {
		warnings = []Warning{}
	}
	return Verdict{
		IsAcceptable: len(errors) == 0,
		Errors:       errors,
		Warnings:     warnings,
		QualityScore: score(len(errors), len(warnings)),
	}
}

// score starts at 100, subtracts 10 per error and 2 per warning, clamped to
// [0,100].
func score(errorCount, warningCount int) int {
	s := 100 - 10*errorCount - 2*warningCount
	if s < 0 {
		return 0
	}
	if s > 100 {
		return 100
	}
	return s
}
