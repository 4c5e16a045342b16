package validation

import (
	"fmt"
	"strings"
)

type openDelim struct {
	ch   byte
	line int
	col  int
}

var closingFor = map[byte]byte{')': '(', ']': '[', '}': '{'}

const maxBalanceIssues = 10

// genericChecks handles file types without a dedicated validator: a
// whole-text bracket balance scan plus generic style warnings.
func genericChecks(code string) ([]Issue, []Warning) {
	issues := scanBalance(code)

	var warnings []Warning
	for i, line := range strings.Split(code, "\n") {
		lineNo := i + 1
		if len(line) > longLineLimit {
			warnings = append(warnings, Warning{
				Line:     lineNo,
				Message:  fmt.Sprintf("line exceeds %d characters", longLineLimit),
				Category: CategoryStyle,
			})
		}
		if line != strings.TrimRight(line, " \t") {
			warnings = append(warnings, Warning{
				Line:     lineNo,
				Message:  "trailing whitespace",
				Category: CategoryStyle,
			})
		}
	}
	return issues, warnings
}

// scanBalance matches (), [], and {} across the whole text with a stack,
// skipping string literals. Reported positions are 1-based lines and 0-based
// columns.
func scanBalance(code string) []Issue {
	var issues []Issue
	var stack []openDelim
	var quote byte
	line, col := 1, 0

	for i := 0; i < len(code); i++ {
		ch := code[i]
		if ch == '\n' {
			line++
			col = 0
			// Plain quotes do not span lines; backticks do.
			if quote == '"' || quote == '\'' {
				quote = 0
			}
			continue
		}

		switch {
		case quote != 0:
			if ch == quote && code[i-1] != '\\' {
				quote = 0
			}
		case ch == '"' || ch == '\'' || ch == '`':
			quote = ch
		case ch == '(' || ch == '[' || ch == '{':
			stack = append(stack, openDelim{ch, line, col})
		case ch == ')' || ch == ']' || ch == '}':
			want := closingFor[ch]
			switch {
			case len(stack) == 0:
				issues = append(issues, Issue{
					Line:       line,
					Column:     col,
					Message:    fmt.Sprintf("unmatched '%c'", ch),
					Suggestion: fmt.Sprintf("remove '%c' or add a matching '%c'", ch, want),
				})
			case stack[len(stack)-1].ch != want:
				top := stack[len(stack)-1]
				issues = append(issues, Issue{
					Line:       line,
					Column:     col,
					Message:    fmt.Sprintf("mismatched '%c', expected closing for '%c' from line %d", ch, top.ch, top.line),
					Suggestion: fmt.Sprintf("close the '%c' opened at line %d first", top.ch, top.line),
				})
				stack = stack[:len(stack)-1]
			default:
				stack = stack[:len(stack)-1]
			}
		}
		col++

		if len(issues) >= maxBalanceIssues {
			return issues
		}
	}

	for _, open := range stack {
		issues = append(issues, Issue{
			Line:       open.line,
			Column:     open.col,
			Message:    fmt.Sprintf("unclosed '%c'", open.ch),
			Suggestion: fmt.Sprintf("add a matching '%c'", matchingClose(open.ch)),
		})
		if len(issues) >= maxBalanceIssues {
			break
		}
	}
	return issues
}

func matchingClose(open byte) byte {
	switch open {
	case '(':
		return ')'
	case '[':
		return ']'
	default:
		return '}'
	}
}
