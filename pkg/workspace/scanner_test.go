package workspace

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildSnapshotFromPackageJSON(t *testing.T) {
	dir := t.TempDir()
	manifest := `{
  "dependencies": {"react": "^18.2.0", "express": "^4.19.0"},
  "devDependencies": {"typescript": "^5.4.0"}
}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "package.json"), []byte(manifest), 0644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "src"), 0755))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "node_modules"), 0755))

	snap := buildSnapshot(dir)

	assert.Contains(t, snap.StructureSummary, "src/")
	assert.Contains(t, snap.StructureSummary, "package.json")
	assert.NotContains(t, snap.StructureSummary, "node_modules")
	assert.ElementsMatch(t, []string{"react", "express", "typescript"}, snap.DetectedPatterns)
	assert.Equal(t, []string{"express", "react", "typescript"}, snap.DependencySummary)
	assert.False(t, snap.CapturedAt.IsZero())
}

func TestBuildSnapshotDegradesOnMissingRoot(t *testing.T) {
	snap := buildSnapshot(filepath.Join(t.TempDir(), "nope"))
	assert.Empty(t, snap.StructureSummary)
	assert.Empty(t, snap.DetectedPatterns)
	assert.Empty(t, snap.DependencySummary)
	assert.False(t, snap.CapturedAt.IsZero())
}

func TestParseGoMod(t *testing.T) {
	content := `module example.com/demo

go 1.22

require (
	github.com/spf13/cobra v1.8.0
	github.com/stretchr/testify v1.9.0 // indirect
)

require golang.org/x/sync v0.7.0
`
	deps := parseGoMod(content)
	assert.Equal(t, []string{
		"github.com/spf13/cobra",
		"github.com/stretchr/testify",
		"golang.org/x/sync",
	}, deps)
}

func TestParseRequirements(t *testing.T) {
	content := `# web stack
django>=4.2
requests==2.31.0

-r extra.txt
flask[async]~=3.0
`
	deps := parseRequirements(content)
	assert.Equal(t, []string{"django", "requests", "flask"}, deps)
}

func TestParseCargoToml(t *testing.T) {
	content := `[package]
name = "demo"

[dependencies]
tokio = { version = "1", features = ["full"] }
serde = "1.0"

[dev-dependencies]
criterion = "0.5"

[profile.release]
lto = true
`
	deps := parseCargoToml(content)
	assert.Equal(t, []string{"tokio", "serde", "criterion"}, deps)
}

func TestDetectFrameworksQuotedNames(t *testing.T) {
	patterns := detectFrameworks(`{"dependencies": {"vue-router": "4.0.0"}}`)
	assert.NotContains(t, patterns, "vue")

	patterns = detectFrameworks(`{"dependencies": {"vue": "3.4.0"}}`)
	assert.Contains(t, patterns, "vue")
}

func TestParseDependenciesBounded(t *testing.T) {
	content := "module example.com/demo\n\nrequire (\n"
	for i := 0; i < 50; i++ {
		content += "\tgithub.com/example/dep" + string(rune('a'+i%26)) + " v1.0.0\n"
	}
	content += ")\n"
	deps := parseDependencies("go.mod", content)
	assert.Len(t, deps, dependencyLimit)
}
