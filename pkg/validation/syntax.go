package validation

import (
	"context"
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/rust"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

const (
	maxSyntaxErrors = 50
	maxWalkDepth    = 1000
)

// languageForExt maps a file extension to its tree-sitter grammar. A nil
// result routes the file to the non-parsing validators.
func languageForExt(ext string) *sitter.Language {
	switch ext {
	case ".js", ".jsx", ".mjs", ".cjs":
		return javascript.GetLanguage()
	case ".ts", ".mts", ".cts":
		return typescript.GetLanguage()
	case ".tsx":
		return tsx.GetLanguage()
	case ".go":
		return golang.GetLanguage()
	case ".rs":
		return rust.GetLanguage()
	default:
		return nil
	}
}

// parseSyntax parses candidate code with the grammar for ext and collects
// ERROR and MISSING nodes as ordered issues.
func parseSyntax(code, ext string) []Issue {
	lang := languageForExt(ext)
	parser := sitter.NewParser()
	parser.SetLanguage(lang)

	content := []byte(code)
	tree, err := parser.ParseCtx(context.Background(), nil, content)
	if err != nil {
		return []Issue{{Line: 1, Column: 0, Message: fmt.Sprintf("parsing failed: %v", err)}}
	}
	defer tree.Close()

	var issues []Issue
	collectErrors(tree.RootNode(), content, &issues, 0)
	return issues
}

func collectErrors(node *sitter.Node, content []byte, issues *[]Issue, depth int) {
	if depth > maxWalkDepth || len(*issues) >= maxSyntaxErrors {
		return
	}

	if node.IsError() || node.IsMissing() {
		point := node.StartPoint()
		issue := Issue{
			Line:   int(point.Row) + 1,
			Column: int(point.Column),
		}
		if node.IsMissing() {
			issue.Message = fmt.Sprintf("missing %s", node.Type())
			issue.Suggestion = missingSuggestion(node.Type())
		} else {
			issue.Message = errorMessage(node, content)
		}
		*issues = append(*issues, issue)
	}

	for i := 0; i < int(node.ChildCount()); i++ {
		collectErrors(node.Child(i), content, issues, depth+1)
	}
}

func errorMessage(node *sitter.Node, content []byte) string {
	start, end := node.StartByte(), node.EndByte()
	if end > uint32(len(content)) {
		end = uint32(len(content))
	}
	if end > start && end-start < 100 {
		snippet := strings.TrimSpace(string(content[start:end]))
		if snippet != "" {
			if len(snippet) > 50 {
				snippet = snippet[:50] + "..."
			}
			return fmt.Sprintf("unexpected: %s", snippet)
		}
	}
	return "syntax error"
}

func missingSuggestion(nodeType string) string {
	switch nodeType {
	case "}", "]", ")":
		return fmt.Sprintf("add missing closing '%s'", nodeType)
	case "{", "[", "(":
		return fmt.Sprintf("add missing opening '%s'", nodeType)
	case ";":
		return "add missing semicolon"
	case ":":
		return "add missing colon"
	default:
		return fmt.Sprintf("add missing '%s'", nodeType)
	}
}

// debugCalls lists per-language debug statement fragments flagged as smells.
var debugCalls = map[string][]string{
	".js":  {"console.log(", "console.debug(", "debugger"},
	".jsx": {"console.log(", "console.debug(", "debugger"},
	".mjs": {"console.log(", "console.debug(", "debugger"},
	".cjs": {"console.log(", "console.debug(", "debugger"},
	".ts":  {"console.log(", "console.debug(", "debugger"},
	".tsx": {"console.log(", "console.debug(", "debugger"},
	".mts": {"console.log(", "console.debug(", "debugger"},
	".cts": {"console.log(", "console.debug(", "debugger"},
	".go":  {"fmt.Println(", "println("},
	".rs":  {"dbg!(", "println!("},
}

var conflictMarkers = []string{"<<<<<<<", "=======", ">>>>>>>"}

// scanQualitySmells flags debug statements, leftover conflict markers, and
// overlong lines. Findings here are warnings only and never block
// acceptance.
func scanQualitySmells(code, ext string) []Warning {
	var warnings []Warning
	fragments := debugCalls[ext]

	for i, line := range strings.Split(code, "\n") {
		lineNo := i + 1
		trimmed := strings.TrimSpace(line)

		for _, fragment := range fragments {
			if strings.Contains(trimmed, fragment) {
				warnings = append(warnings, Warning{
					Line:     lineNo,
					Message:  fmt.Sprintf("debug statement: %s", strings.TrimSuffix(fragment, "(")),
					Category: CategoryDebug,
				})
				break
			}
		}
		for _, marker := range conflictMarkers {
			if strings.HasPrefix(trimmed, marker) {
				warnings = append(warnings, Warning{
					Line:     lineNo,
					Message:  "leftover conflict marker",
					Category: CategoryLeftover,
				})
				break
			}
		}
		if len(line) > longLineLimit {
			warnings = append(warnings, Warning{
				Line:     lineNo,
				Message:  fmt.Sprintf("line exceeds %d characters", longLineLimit),
				Category: CategoryStyle,
			})
		}
	}
	return warnings
}
