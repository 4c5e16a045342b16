package classify

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyTiers(t *testing.T) {
	longInstruction := "please carefully rework the entire module so that every handler follows the new convention we discussed"
	bigCode := strings.Repeat("value += 1\n", 120)

	tests := []struct {
		name        string
		instruction string
		code        string
		wantTier    Tier
		wantContext bool
		wantDeep    bool
	}{
		{
			name:        "trivial keyword on a one liner",
			instruction: "fix typo",
			code:        `const name = "jhon";`,
			wantTier:    TierTrivial,
		},
		{
			name:        "short snippet is trivial without keywords",
			instruction: "swap the operands",
			code:        "a, b = b, a",
			wantTier:    TierTrivial,
		},
		{
			name:        "trivial keyword wins regardless of instruction length",
			instruction: "fix the typo in the greeting string, the one that has been bothering everyone on the team for weeks now please",
			code:        "print('helo')",
			wantTier:    TierTrivial,
		},
		{
			name:        "substantial keyword on a short snippet still classifies trivial",
			instruction: "refactor this",
			code:        "return a + b",
			wantTier:    TierTrivial,
		},
		{
			name:        "substantial keyword",
			instruction: "refactor to async style",
			code:        strings.Repeat("doWork();\n", 15),
			wantTier:    TierSubstantial,
			wantContext: true,
			wantDeep:    true,
		},
		{
			name:        "large selection is substantial",
			instruction: "tighten this up",
			code:        bigCode,
			wantTier:    TierSubstantial,
			wantContext: true,
			wantDeep:    true,
		},
		{
			name:        "long instruction is substantial",
			instruction: longInstruction,
			code:        strings.Repeat("doWork();\n", 20),
			wantTier:    TierSubstantial,
			wantContext: true,
			wantDeep:    true,
		},
		{
			name:        "everything else is moderate",
			instruction: "fix bug in the loop bounds",
			code:        strings.Repeat("total += prices[i];\n", 20),
			wantTier:    TierModerate,
			wantContext: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			profile := Classify(tt.instruction, tt.code)
			assert.Equal(t, tt.wantTier, profile.Tier)
			assert.Equal(t, tt.wantContext, profile.RequiresProjectContext)
			assert.Equal(t, tt.wantDeep, profile.RequiresDeepAnalysis)
		})
	}
}

func TestClassifyDeterministic(t *testing.T) {
	first := Classify("refactor to async style", strings.Repeat("doWork();\n", 15))
	second := Classify("refactor to async style", strings.Repeat("doWork();\n", 15))
	assert.Equal(t, first, second)
}

func TestClassifyConfidencePerBranch(t *testing.T) {
	assert.Equal(t, trivialConfidence, Classify("fix typo", "x = 1").Confidence)
	assert.Equal(t, substantialConfidence, Classify("refactor everything", strings.Repeat("x\n", 30)).Confidence)
	assert.Equal(t, moderateConfidence, Classify("fix bug here", strings.Repeat("x\n", 30)).Confidence)
}

func TestClassifyCaseInsensitive(t *testing.T) {
	profile := Classify("FIX TYPO please", strings.Repeat("x\n", 30))
	assert.Equal(t, TierTrivial, profile.Tier)
}

func TestKeywordSetsDisjoint(t *testing.T) {
	sets := map[string][]string{
		"trivial":     trivialKeywords,
		"moderate":    moderateKeywords,
		"substantial": substantialKeywords,
	}
	seen := map[string]string{}
	for name, set := range sets {
		for _, keyword := range set {
			if prior, ok := seen[keyword]; ok {
				t.Fatalf("keyword %q appears in both %s and %s", keyword, prior, name)
			}
			seen[keyword] = name
		}
	}
}

func TestCountLines(t *testing.T) {
	assert.Equal(t, 0, countLines(""))
	assert.Equal(t, 1, countLines("a"))
	assert.Equal(t, 1, countLines("a\n"))
	assert.Equal(t, 3, countLines("a\nb\nc"))
}
