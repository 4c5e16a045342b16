package workspace

import (
	"os"
	"path/filepath"
	"strings"

	ignore "github.com/sabhiram/go-gitignore"
)

// GetIgnoreRules compiles the ignore set used when sampling a project's
// structure: essential patchpilot patterns first, then the project's own
// .gitignore when readable, then fallback patterns for common build and
// dependency directories.
func GetIgnoreRules(rootDir string) *ignore.GitIgnore {
	var allLines []string

	allLines = append(allLines, essentialPatterns()...)

	gitIgnorePath := filepath.Join(rootDir, ".gitignore")
	if content, err := os.ReadFile(gitIgnorePath); err == nil {
		allLines = append(allLines, strings.Split(string(content), "\n")...)
	}

	allLines = append(allLines, fallbackPatterns()...)

	var filteredLines []string
	for _, line := range allLines {
		line = strings.TrimSpace(line)
		if line != "" && !strings.HasPrefix(line, "#") {
			filteredLines = append(filteredLines, line)
		}
	}

	return ignore.CompileIgnoreLines(filteredLines...)
}

// essentialPatterns keeps patchpilot from analyzing its own workspace files.
func essentialPatterns() []string {
	return []string{
		".patchpilot/",
		".patchpilot/*",
		"patchpilot",
	}
}

// fallbackPatterns cover dependency and build directories that would bloat
// the structure sample even when a project ships no .gitignore.
func fallbackPatterns() []string {
	return []string{
		// Version control metadata
		".git/",
		".svn/",
		".hg/",

		// Dependency directories
		"node_modules/",
		"vendor/",
		"venv/",
		".venv/",
		"env/",
		"__pycache__/",
		".bundle/",

		// Build output
		"build/",
		"dist/",
		"target/",
		"out/",
		"bin/",
		"obj/",
		".next/",
		".nuxt/",
		"coverage/",
		"htmlcov/",

		// Editor and OS noise
		".idea/",
		".vscode/",
		".DS_Store",
		"Thumbs.db",
		"*.swp",
		"*.swo",

		// Caches and transient files
		".cache/",
		".pytest_cache/",
		".mypy_cache/",
		".parcel-cache/",
		"*.log",
		"*.tmp",
		"*.bak",
		"*.pyc",
		"*.class",
		"*.o",
	}
}
