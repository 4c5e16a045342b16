package prompts

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/patchpilot/patchpilot/pkg/classify"
	"github.com/patchpilot/patchpilot/pkg/utils"
	"github.com/patchpilot/patchpilot/pkg/validation"
	"github.com/patchpilot/patchpilot/pkg/workspace"
)

// defaultDocumentLineCeiling bounds how large the surrounding document can be
// before it is left out of the prompt entirely. The selection itself is always
// sent.
const defaultDocumentLineCeiling = 400

// Assembler builds the messages for edit attempts. The zero value uses the
// default document ceiling.
type Assembler struct {
	// DocumentLineCeiling overrides the default bound on how many lines the
	// surrounding document may have before it is dropped from the prompt.
	DocumentLineCeiling int
}

// NewAssembler returns an Assembler with the given document ceiling. A ceiling
// of zero or less selects the default.
func NewAssembler(documentLineCeiling int) Assembler {
	return Assembler{DocumentLineCeiling: documentLineCeiling}
}

func (a Assembler) ceiling() int {
	if a.DocumentLineCeiling > 0 {
		return a.DocumentLineCeiling
	}
	return defaultDocumentLineCeiling
}

// Message represents a single message in a chat-like conversation with the model.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// editSystemMessage establishes the output contract for every edit request:
// raw code for the selection, optionally followed by action markers. Anything
// else is stripped or fails validation downstream.
const editSystemMessage = `You are an expert code editor embedded in a development tool. You rewrite the selected code according to the user's instruction.

OUTPUT REQUIREMENTS:
- Respond with ONLY the revised code for the selection.
- Do NOT wrap the code in markdown fences.
- Do NOT add prose, explanations, or commentary about your changes.
- Return the COMPLETE revised selection from its first line to its last; never truncate or abbreviate.
- Preserve the indentation, naming, and style of the surrounding file.
- Make only the changes the instruction asks for. Do not refactor or reformat unrelated code.

PROJECT ACTIONS:
When the edit genuinely requires a project-level action, emit a marker on its own line in addition to the code:
  <action:install_package packages="pkg1,pkg2" dev="false" />
  <action:create_file path="relative/path.ext" />
  <action:create_folder path="relative/path" />
  <action:run_script script="script-name" args="optional args" />
Use double quotes exactly as shown. Never emit a marker for an action the edit does not need.`

// Build assembles the system and user messages for a single edit attempt.
// It is pure: identical inputs always produce identical messages.
//
// The trivial tier never receives project context, even when a snapshot is
// available. The full document rides along only when the profile asks for
// project context and the document stays under the line ceiling. A prior
// failed verdict turns into the correction block that steers the retry.
func (a Assembler) Build(profile classify.Profile, instruction, selectedCode, documentText, fileName string, snapshot *workspace.Snapshot, enrichment string, priorVerdict *validation.Verdict) (systemMessage, userMessage string) {
	var user strings.Builder

	if profile.Tier != classify.TierTrivial && snapshot != nil {
		writeContextSection(&user, snapshot)
	}

	if profile.RequiresProjectContext && documentText != "" && utils.CountLines(documentText) <= a.ceiling() {
		fmt.Fprintf(&user, "Full content of `%s` for reference:\n```%s\n%s\n```\n\n", fileName, languageTag(fileName), documentText)
	}

	fmt.Fprintf(&user, "Selected code from `%s`:\n```%s\n%s\n```\n\nInstructions: %s\n", fileName, languageTag(fileName), selectedCode, instruction)

	if enrichment != "" {
		fmt.Fprintf(&user, "\n--- Reference material ---\n%s\n--- End reference material ---\n", enrichment)
	}

	if priorVerdict != nil && !priorVerdict.IsAcceptable {
		user.WriteString("\n")
		user.WriteString(retryFeedback(priorVerdict))
	}

	return editSystemMessage, user.String()
}

// Build assembles messages with the default document ceiling.
func Build(profile classify.Profile, instruction, selectedCode, documentText, fileName string, snapshot *workspace.Snapshot, enrichment string, priorVerdict *validation.Verdict) (systemMessage, userMessage string) {
	return Assembler{}.Build(profile, instruction, selectedCode, documentText, fileName, snapshot, enrichment, priorVerdict)
}

// BuildEditMessages wraps Build into the chat sequence the model providers consume.
func (a Assembler) BuildEditMessages(profile classify.Profile, instruction, selectedCode, documentText, fileName string, snapshot *workspace.Snapshot, enrichment string, priorVerdict *validation.Verdict) []Message {
	system, user := a.Build(profile, instruction, selectedCode, documentText, fileName, snapshot, enrichment, priorVerdict)
	return []Message{
		{Role: "system", Content: system},
		{Role: "user", Content: user},
	}
}

func writeContextSection(b *strings.Builder, snapshot *workspace.Snapshot) {
	b.WriteString("--- Project context ---\n")
	if snapshot.StructureSummary != "" {
		b.WriteString("Structure:\n")
		b.WriteString(snapshot.StructureSummary)
		if !strings.HasSuffix(snapshot.StructureSummary, "\n") {
			b.WriteString("\n")
		}
	}
	if len(snapshot.DetectedPatterns) > 0 {
		fmt.Fprintf(b, "Detected frameworks: %s\n", strings.Join(snapshot.DetectedPatterns, ", "))
	}
	if len(snapshot.DependencySummary) > 0 {
		fmt.Fprintf(b, "Dependencies: %s\n", strings.Join(snapshot.DependencySummary, ", "))
	}
	b.WriteString("--- End project context ---\n\n")
}

// retryFeedback renders the prior verdict as the correction block appended on
// retry attempts: one line per error, with the suggestion when one exists.
func retryFeedback(verdict *validation.Verdict) string {
	var b strings.Builder
	b.WriteString("The previous attempt failed validation with the following issues:\n")
	for _, issue := range verdict.Errors {
		fmt.Fprintf(&b, "line %d, col %d: %s", issue.Line, issue.Column, issue.Message)
		if issue.Suggestion != "" {
			fmt.Fprintf(&b, " (fix: %s)", issue.Suggestion)
		}
		b.WriteString("\n")
	}
	b.WriteString("Provide corrected code that resolves every issue above.\n")
	return b.String()
}

var languageTags = map[string]string{
	".go":    "go",
	".py":    "python",
	".pyi":   "python",
	".js":    "javascript",
	".jsx":   "javascript",
	".mjs":   "javascript",
	".cjs":   "javascript",
	".ts":    "typescript",
	".tsx":   "typescript",
	".mts":   "typescript",
	".cts":   "typescript",
	".rs":    "rust",
	".rb":    "ruby",
	".java":  "java",
	".c":     "c",
	".h":     "c",
	".cpp":   "cpp",
	".cs":    "csharp",
	".php":   "php",
	".sh":    "bash",
	".html":  "html",
	".css":   "css",
	".json":  "json",
	".yaml":  "yaml",
	".yml":   "yaml",
	".md":    "markdown",
	".sql":   "sql",
	".swift": "swift",
	".kt":    "kotlin",
}

// languageTag infers the fenced-block language from the file extension.
// Unknown extensions produce a bare fence.
func languageTag(fileName string) string {
	return languageTags[strings.ToLower(filepath.Ext(fileName))]
}
