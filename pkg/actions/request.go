// Package actions interprets the side-effect micro-protocol embedded in
// model output and executes the requested project-level effects under a
// permission policy.
package actions

import (
	"fmt"
	"strings"
)

// Kind tags a side-effect request variant.
type Kind string

const (
	KindInstallDependency Kind = "installDependency"
	KindCreateFile        Kind = "createFile"
	KindCreateDirectory   Kind = "createDirectory"
	KindModifyFile        Kind = "modifyFile"
	KindRunScript         Kind = "runScript"
	KindVersionControl    Kind = "versionControlOp"
	KindFormatFile        Kind = "formatFile"
)

// Request is one parsed side-effect request. It carries no result until
// executed. Only the fields for its Kind are populated.
type Request struct {
	Kind Kind `json:"kind"`

	// installDependency
	Packages []string `json:"packages,omitempty"`
	DevOnly  bool     `json:"devOnly,omitempty"`

	// createFile, createDirectory, modifyFile, formatFile
	Path string `json:"path,omitempty"`

	// runScript
	Script string `json:"script,omitempty"`
	Args   string `json:"args,omitempty"`

	// versionControlOp
	VCSKind string `json:"vcsKind,omitempty"`

	// Content is staged data for modifyFile requests constructed
	// programmatically; it never comes from a marker.
	Content string `json:"-"`
}

// Marker re-serializes the request into the grammar it was parsed from. A
// round trip through Parse yields an equivalent request.
func (r Request) Marker() string {
	switch r.Kind {
	case KindInstallDependency:
		return fmt.Sprintf(`<action:install_package packages="%s" dev="%t" />`,
			strings.Join(r.Packages, ","), r.DevOnly)
	case KindCreateFile:
		return fmt.Sprintf(`<action:create_file path="%s" />`, r.Path)
	case KindCreateDirectory:
		return fmt.Sprintf(`<action:create_folder path="%s" />`, r.Path)
	case KindRunScript:
		if r.Args != "" {
			return fmt.Sprintf(`<action:run_script script="%s" args="%s" />`, r.Script, r.Args)
		}
		return fmt.Sprintf(`<action:run_script script="%s" />`, r.Script)
	case KindModifyFile:
		return fmt.Sprintf(`<action:modify_file path="%s" />`, r.Path)
	case KindVersionControl:
		return fmt.Sprintf(`<action:git_op kind="%s" />`, r.VCSKind)
	case KindFormatFile:
		return fmt.Sprintf(`<action:format_file path="%s" />`, r.Path)
	default:
		return ""
	}
}

// Summary renders a short human-readable description for confirmation
// prompts and logs.
func (r Request) Summary() string {
	switch r.Kind {
	case KindInstallDependency:
		scope := "dependency"
		if r.DevOnly {
			scope = "dev dependency"
		}
		return fmt.Sprintf("install %s %s", scope, strings.Join(r.Packages, ", "))
	case KindCreateFile:
		return fmt.Sprintf("create file %s", r.Path)
	case KindCreateDirectory:
		return fmt.Sprintf("create folder %s", r.Path)
	case KindModifyFile:
		return fmt.Sprintf("modify file %s", r.Path)
	case KindRunScript:
		if r.Args != "" {
			return fmt.Sprintf("run script %s %s", r.Script, r.Args)
		}
		return fmt.Sprintf("run script %s", r.Script)
	case KindVersionControl:
		return fmt.Sprintf("version control %s", r.VCSKind)
	case KindFormatFile:
		return fmt.Sprintf("format file %s", r.Path)
	default:
		return string(r.Kind)
	}
}
