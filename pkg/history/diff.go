package history

import (
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// Color constants for terminal diff output.
const (
	RedColor    = "\x1b[31m"
	GreenColor  = "\x1b[32m"
	YellowColor = "\x1b[33m"
	BoldStyle   = "\x1b[1m"
	ResetColor  = "\x1b[0m"
)

// contextWindow is how many unchanged lines are shown on each side of a
// change; longer equal runs are elided.
const contextWindow = 2

// RenderDiff returns a colored line diff with a stats header, or the empty
// string when the texts are identical.
func RenderDiff(filename, originalCode, newCode string) string {
	if originalCode == newCode {
		return ""
	}

	// Line-mode diff: semantic cleanup is skipped because it regroups spans
	// at character level and breaks the line alignment the renderer needs.
	dmp := diffmatchpatch.New()
	src, dst, lineIndex := dmp.DiffLinesToChars(originalCode, newCode)
	diffs := dmp.DiffMain(src, dst, false)
	diffs = dmp.DiffCharsToLines(diffs, lineIndex)

	var b strings.Builder
	b.WriteString(statsHeader(diffs, filename))

	for i, d := range diffs {
		lines := splitDiffLines(d.Text)
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			for _, line := range lines {
				fmt.Fprintf(&b, "%s- %s%s\n", RedColor, line, ResetColor)
			}
		case diffmatchpatch.DiffInsert:
			for _, line := range lines {
				fmt.Fprintf(&b, "%s+ %s%s\n", GreenColor, line, ResetColor)
			}
		case diffmatchpatch.DiffEqual:
			writeContext(&b, lines, i == 0, i == len(diffs)-1)
		}
	}
	return b.String()
}

// writeContext emits an equal run, keeping contextWindow lines next to the
// adjacent changes and eliding the middle.
func writeContext(b *strings.Builder, lines []string, first, last bool) {
	head, tail := contextWindow, contextWindow
	if first {
		head = 0
	}
	if last {
		tail = 0
	}
	if len(lines) <= head+tail {
		for _, line := range lines {
			fmt.Fprintf(b, "  %s\n", line)
		}
		return
	}
	for _, line := range lines[:head] {
		fmt.Fprintf(b, "  %s\n", line)
	}
	b.WriteString("  ...\n")
	for _, line := range lines[len(lines)-tail:] {
		fmt.Fprintf(b, "  %s\n", line)
	}
}

func statsHeader(diffs []diffmatchpatch.Diff, filename string) string {
	additions, deletions := countChangedLines(diffs)

	var b strings.Builder
	fmt.Fprintf(&b, "%s%s%s%s ", BoldStyle, YellowColor, filename, ResetColor)
	if additions > 0 {
		fmt.Fprintf(&b, "%s%s+%d%s ", BoldStyle, GreenColor, additions, ResetColor)
	}
	if deletions > 0 {
		fmt.Fprintf(&b, "%s%s-%d%s", BoldStyle, RedColor, deletions, ResetColor)
	}
	b.WriteString("\n")
	return b.String()
}

func countChangedLines(diffs []diffmatchpatch.Diff) (additions, deletions int) {
	for _, d := range diffs {
		n := len(splitDiffLines(d.Text))
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			additions += n
		case diffmatchpatch.DiffDelete:
			deletions += n
		}
	}
	return
}

// splitDiffLines splits a diff span into lines, dropping the empty trailing
// element a final newline produces.
func splitDiffLines(text string) []string {
	lines := strings.Split(text, "\n")
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}
