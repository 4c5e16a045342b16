// Package classify buckets edit instructions into complexity tiers that
// drive how much project context and latency budget a request is given.
package classify

import "strings"

// Tier is the coarse complexity bucket for one edit request.
type Tier string

const (
	TierTrivial     Tier = "trivial"
	TierModerate    Tier = "moderate"
	TierSubstantial Tier = "substantial"
)

// Profile is the strategy derived from one classification. It is computed
// once per request and never mutated.
type Profile struct {
	Tier                   Tier    `json:"tier"`
	RequiresProjectContext bool    `json:"requiresProjectContext"`
	RequiresDeepAnalysis   bool    `json:"requiresDeepAnalysis"`
	Confidence             float64 `json:"confidence"`
}

// Thresholds for the size-based checks.
const (
	trivialLineLimit       = 10
	substantialLineLimit   = 100
	substantialInstruction = 100
)

// Confidence is a fixed constant per branch; it is advisory only and never
// gates control flow.
const (
	trivialConfidence     = 0.9
	substantialConfidence = 0.8
	moderateConfidence    = 0.6
)

// The three intent keyword sets are disjoint: no keyword string appears in
// more than one set. Matching is case-insensitive substring containment.
var trivialKeywords = []string{
	"typo", "spelling", "whitespace", "indent", "formatting",
	"rename", "add comment", "remove comment", "add a comment",
	"semicolon", "capitalize", "lowercase", "uppercase",
}

var moderateKeywords = []string{
	"update", "change", "modify", "improve", "fix bug", "handle",
	"add logging", "add check", "add test", "clean up",
}

var substantialKeywords = []string{
	"refactor", "restructure", "redesign", "rewrite", "architecture",
	"migrate", "convert", "overhaul", "extract", "split",
	"implement", "add feature", "new feature", "integrate",
}

// Classify maps an instruction and the selected code to a complexity
// profile. It is a pure function with no failure mode.
//
// The trivial check runs first: a short snippet classifies trivial even when
// the instruction carries a substantial keyword. That trades precision for
// latency on small edits and callers rely on it.
func Classify(instructionText, selectedCode string) Profile {
	instructionLower := strings.ToLower(instructionText)
	lineCount := countLines(selectedCode)

	if matchesAny(instructionLower, trivialKeywords) || lineCount < trivialLineLimit {
		return Profile{
			Tier:       TierTrivial,
			Confidence: trivialConfidence,
		}
	}

	if matchesAny(instructionLower, substantialKeywords) ||
		lineCount > substantialLineLimit ||
		len(instructionText) > substantialInstruction {
		return Profile{
			Tier:                   TierSubstantial,
			RequiresProjectContext: true,
			RequiresDeepAnalysis:   true,
			Confidence:             substantialConfidence,
		}
	}

	return Profile{
		Tier:                   TierModerate,
		RequiresProjectContext: true,
		Confidence:             moderateConfidence,
	}
}

func matchesAny(instruction string, keywords []string) bool {
	for _, keyword := range keywords {
		if strings.Contains(instruction, keyword) {
			return true
		}
	}
	return false
}

func countLines(s string) int {
	if s == "" {
		return 0
	}
	n := strings.Count(s, "\n") + 1
	if strings.HasSuffix(s, "\n") {
		n--
	}
	return n
}
