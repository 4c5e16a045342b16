package validation

import (
	"fmt"
	"strings"
)

// pythonBlockKeywords introduce an indented block and must end with a colon.
var pythonBlockKeywords = map[string]bool{
	"if": true, "elif": true, "else": true,
	"for": true, "while": true,
	"def": true, "class": true,
	"try": true, "except": true, "finally": true, "with": true,
}

// pythonChecks applies the line-based heuristics used for
// indentation-significant code: assignment-vs-equality confusion in
// conditionals, missing block-introducer colons, and per-line parenthesis
// imbalance. String literals and comments are excluded from counting.
func pythonChecks(code string) []Issue {
	var issues []Issue

	for i, raw := range strings.Split(code, "\n") {
		lineNo := i + 1
		line := stripLineComment(raw, '#')
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}

		opens, closes := countBareParens(line)
		balanced := opens == closes
		if !balanced {
			issues = append(issues, Issue{
				Line:       lineNo,
				Column:     0,
				Message:    "unbalanced parentheses on line",
				Suggestion: "balance '(' and ')' on this line",
			})
		}

		keyword := blockKeyword(trimmed)
		if keyword == "" {
			continue
		}
		// Continuation lines are exempt from the colon check.
		if balanced && !strings.HasSuffix(trimmed, ":") && !strings.HasSuffix(trimmed, "\\") {
			issues = append(issues, Issue{
				Line:       lineNo,
				Column:     0,
				Message:    fmt.Sprintf("missing colon after '%s' statement", keyword),
				Suggestion: "add ':' at the end of the statement",
			})
		}
		if keyword == "if" || keyword == "elif" || keyword == "while" {
			if col, found := bareAssignment(line); found {
				issues = append(issues, Issue{
					Line:       lineNo,
					Column:     col,
					Message:    "assignment in conditional, did you mean '=='",
					Suggestion: "replace '=' with '=='",
				})
			}
		}
	}
	return issues
}

// stripLineComment removes a trailing comment, honoring simple single-line
// string quoting.
func stripLineComment(line string, marker byte) string {
	var quote byte
	for i := 0; i < len(line); i++ {
		ch := line[i]
		switch {
		case quote != 0:
			if ch == quote && line[i-1] != '\\' {
				quote = 0
			}
		case ch == '"' || ch == '\'':
			quote = ch
		case ch == marker:
			return line[:i]
		}
	}
	return line
}

// countBareParens counts parentheses outside string literals.
func countBareParens(line string) (opens, closes int) {
	var quote byte
	for i := 0; i < len(line); i++ {
		ch := line[i]
		switch {
		case quote != 0:
			if ch == quote && line[i-1] != '\\' {
				quote = 0
			}
		case ch == '"' || ch == '\'':
			quote = ch
		case ch == '(':
			opens++
		case ch == ')':
			closes++
		}
	}
	return opens, closes
}

// blockKeyword returns the block-introducing keyword a line starts with, or
// empty.
func blockKeyword(trimmed string) string {
	fields := strings.Fields(trimmed)
	if len(fields) == 0 {
		return ""
	}
	token := strings.TrimSuffix(fields[0], ":")
	if pythonBlockKeywords[token] {
		return token
	}
	return ""
}

// bareAssignment finds a single '=' in a condition at parenthesis depth
// zero: `if x = 5:` is flagged, keyword arguments like `if f(x=1):` are not.
func bareAssignment(line string) (int, bool) {
	var quote byte
	depth := 0
	for i := 0; i < len(line); i++ {
		ch := line[i]
		switch {
		case quote != 0:
			if ch == quote && line[i-1] != '\\' {
				quote = 0
			}
		case ch == '"' || ch == '\'':
			quote = ch
		case ch == '(' || ch == '[' || ch == '{':
			depth++
		case ch == ')' || ch == ']' || ch == '}':
			depth--
		case ch == '=' && depth == 0:
			if i+1 < len(line) && line[i+1] == '=' {
				i++
				continue
			}
			if i > 0 && strings.ContainsRune("=!<>+-*/%&|^:@", rune(line[i-1])) {
				continue
			}
			return i, true
		}
	}
	return 0, false
}
