package workspace

import (
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"
)

// Snapshot is an immutable, time-boxed summary of a project used to enrich
// prompts without re-scanning the filesystem on every request. A stale
// snapshot is superseded by a fresh one, never mutated.
type Snapshot struct {
	StructureSummary  string    `json:"structureSummary"`
	DetectedPatterns  []string  `json:"detectedPatterns"`
	DependencySummary []string  `json:"dependencySummary"`
	CapturedAt        time.Time `json:"capturedAt"`
}

const (
	structureSampleLimit = 25
	dependencyLimit      = 30
)

// manifestNames in priority order; the first one present in the root wins.
var manifestNames = []string{
	"package.json",
	"go.mod",
	"Cargo.toml",
	"requirements.txt",
	"pyproject.toml",
}

// frameworkSignatures is the fixed table of patterns matched against the
// manifest content. JSON package names are quoted so "vue" does not match
// "vue-router".
var frameworkSignatures = []struct {
	name    string
	pattern string
}{
	{"react", `"react"`},
	{"next.js", `"next"`},
	{"vue", `"vue"`},
	{"svelte", `"svelte"`},
	{"angular", `"@angular/core"`},
	{"express", `"express"`},
	{"nestjs", `"@nestjs/core"`},
	{"typescript", `"typescript"`},
	{"jest", `"jest"`},
	{"vitest", `"vitest"`},
	{"django", "django"},
	{"flask", "flask"},
	{"fastapi", "fastapi"},
	{"pytest", "pytest"},
	{"gin", "github.com/gin-gonic/gin"},
	{"echo", "github.com/labstack/echo"},
	{"cobra", "github.com/spf13/cobra"},
	{"actix", "actix-web"},
	{"tokio", "tokio"},
	{"serde", "serde"},
}

// buildSnapshot assembles a snapshot for a project root. Filesystem failures
// degrade the affected section to empty instead of propagating: context
// enrichment is best-effort, never a correctness requirement.
func buildSnapshot(root string) Snapshot {
	snap := Snapshot{
		DetectedPatterns:  []string{},
		DependencySummary: []string{},
		CapturedAt:        time.Now(),
	}
	if root == "" {
		return snap
	}

	snap.StructureSummary = sampleStructure(root)

	manifest, content := readManifest(root)
	if manifest == "" {
		return snap
	}
	snap.DetectedPatterns = detectFrameworks(content)
	snap.DependencySummary = parseDependencies(manifest, content)
	return snap
}

// sampleStructure lists top-level entries, bounded and filtered through the
// ignore rules, directories marked with a trailing slash.
func sampleStructure(root string) string {
	entries, err := os.ReadDir(root)
	if err != nil {
		return ""
	}
	rules := GetIgnoreRules(root)
	var names []string
	for _, entry := range entries {
		name := entry.Name()
		checkPath := name
		if entry.IsDir() {
			checkPath = name + "/"
		}
		if rules.MatchesPath(checkPath) {
			continue
		}
		names = append(names, checkPath)
		if len(names) >= structureSampleLimit {
			break
		}
	}
	return strings.Join(names, ", ")
}

func readManifest(root string) (name, content string) {
	for _, candidate := range manifestNames {
		data, err := os.ReadFile(filepath.Join(root, candidate))
		if err != nil {
			continue
		}
		return candidate, string(data)
	}
	return "", ""
}

func detectFrameworks(content string) []string {
	lowered := strings.ToLower(content)
	var found []string
	for _, sig := range frameworkSignatures {
		if strings.Contains(lowered, sig.pattern) {
			found = append(found, sig.name)
		}
	}
	if found == nil {
		return []string{}
	}
	return found
}

func parseDependencies(manifest, content string) []string {
	var deps []string
	switch manifest {
	case "package.json":
		deps = parsePackageJSON(content)
	case "go.mod":
		deps = parseGoMod(content)
	case "requirements.txt":
		deps = parseRequirements(content)
	case "Cargo.toml":
		deps = parseCargoToml(content)
	default:
		// pyproject.toml feeds framework detection only.
	}
	if len(deps) > dependencyLimit {
		deps = deps[:dependencyLimit]
	}
	if deps == nil {
		return []string{}
	}
	return deps
}

func parsePackageJSON(content string) []string {
	var pkg struct {
		Dependencies    map[string]string `json:"dependencies"`
		DevDependencies map[string]string `json:"devDependencies"`
	}
	if err := json.Unmarshal([]byte(content), &pkg); err != nil {
		return nil
	}
	var deps []string
	for name := range pkg.Dependencies {
		deps = append(deps, name)
	}
	for name := range pkg.DevDependencies {
		deps = append(deps, name)
	}
	sort.Strings(deps)
	return deps
}

func parseGoMod(content string) []string {
	var deps []string
	inBlock := false
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case line == "require (":
			inBlock = true
		case inBlock && line == ")":
			inBlock = false
		case inBlock || strings.HasPrefix(line, "require "):
			line = strings.TrimPrefix(line, "require ")
			fields := strings.Fields(line)
			if len(fields) >= 2 && strings.Contains(fields[0], ".") {
				deps = append(deps, fields[0])
			}
		}
	}
	return deps
}

var requirementName = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*`)

func parseRequirements(content string) []string {
	var deps []string
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "-") {
			continue
		}
		if name := requirementName.FindString(line); name != "" {
			deps = append(deps, name)
		}
	}
	return deps
}

func parseCargoToml(content string) []string {
	var deps []string
	inDeps := false
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "[") {
			inDeps = line == "[dependencies]" || line == "[dev-dependencies]"
			continue
		}
		if !inDeps || line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if idx := strings.Index(line, "="); idx > 0 {
			deps = append(deps, strings.TrimSpace(line[:idx]))
		}
	}
	return deps
}
