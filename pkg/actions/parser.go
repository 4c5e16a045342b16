package actions

import (
	"regexp"
	"strings"
)

// markerShapes is the closed set of recognized marker forms, scanned in this
// order. Each shape captures its attributes positionally; anything a shape's
// expression does not match is treated as malformed and ignored. Adding a
// side-effect kind means adding exactly one entry here.
var markerShapes = []struct {
	kind  Kind
	re    *regexp.Regexp
	build func(groups []string) (Request, bool)
}{
	{
		kind: KindInstallDependency,
		re:   regexp.MustCompile(`<action:install_package\s+packages="([^"]*)"\s+dev="(true|false)"\s*/>`),
		build: func(groups []string) (Request, bool) {
			packages := splitPackages(groups[1])
			if len(packages) == 0 {
				return Request{}, false
			}
			return Request{
				Kind:     KindInstallDependency,
				Packages: packages,
				DevOnly:  groups[2] == "true",
			}, true
		},
	},
	{
		kind: KindCreateFile,
		re:   regexp.MustCompile(`<action:create_file\s+path="([^"]*)"\s*/>`),
		build: func(groups []string) (Request, bool) {
			if groups[1] == "" {
				return Request{}, false
			}
			return Request{Kind: KindCreateFile, Path: groups[1]}, true
		},
	},
	{
		kind: KindCreateDirectory,
		re:   regexp.MustCompile(`<action:create_folder\s+path="([^"]*)"\s*/>`),
		build: func(groups []string) (Request, bool) {
			if groups[1] == "" {
				return Request{}, false
			}
			return Request{Kind: KindCreateDirectory, Path: groups[1]}, true
		},
	},
	{
		kind: KindRunScript,
		re:   regexp.MustCompile(`<action:run_script\s+script="([^"]*)"(?:\s+args="([^"]*)")?\s*/>`),
		build: func(groups []string) (Request, bool) {
			if groups[1] == "" {
				return Request{}, false
			}
			return Request{Kind: KindRunScript, Script: groups[1], Args: groups[2]}, true
		},
	},
	{
		kind: KindModifyFile,
		re:   regexp.MustCompile(`<action:modify_file\s+path="([^"]*)"\s*/>`),
		build: func(groups []string) (Request, bool) {
			if groups[1] == "" {
				return Request{}, false
			}
			return Request{Kind: KindModifyFile, Path: groups[1]}, true
		},
	},
	{
		kind: KindVersionControl,
		re:   regexp.MustCompile(`<action:git_op\s+kind="(commit|stage|revert)"\s*/>`),
		build: func(groups []string) (Request, bool) {
			return Request{Kind: KindVersionControl, VCSKind: groups[1]}, true
		},
	},
	{
		kind: KindFormatFile,
		re:   regexp.MustCompile(`<action:format_file\s+path="([^"]*)"\s*/>`),
		build: func(groups []string) (Request, bool) {
			if groups[1] == "" {
				return Request{}, false
			}
			return Request{Kind: KindFormatFile, Path: groups[1]}, true
		},
	},
}

// anyMarker matches any self-closing or plain action tag, well-formed or
// not, so malformed markers never leak into code.
var anyMarker = regexp.MustCompile(`<action:[^>]*>`)

// Parse extracts every recognized side-effect request from model output.
// Shapes are scanned in fixed order; within a shape, requests keep document
// order. Malformed markers are silently skipped and never abort the scan.
func Parse(modelOutput string) []Request {
	var requests []Request
	for _, shape := range markerShapes {
		for _, groups := range shape.re.FindAllStringSubmatch(modelOutput, -1) {
			if request, ok := shape.build(groups); ok {
				requests = append(requests, request)
			}
		}
	}
	return requests
}

// Clean strips every action marker, well-formed or malformed, so the
// remaining text can be treated as code. Lines left empty by marker removal
// are dropped.
func Clean(modelOutput string) string {
	if !strings.Contains(modelOutput, "<action:") {
		return modelOutput
	}

	lines := strings.Split(modelOutput, "\n")
	var kept []string
	for _, line := range lines {
		stripped := anyMarker.ReplaceAllString(line, "")
		if stripped != line && strings.TrimSpace(stripped) == "" {
			continue
		}
		kept = append(kept, stripped)
	}
	return strings.Join(kept, "\n")
}

func splitPackages(raw string) []string {
	var packages []string
	for _, name := range strings.Split(raw, ",") {
		name = strings.TrimSpace(name)
		if name != "" {
			packages = append(packages, name)
		}
	}
	return packages
}
