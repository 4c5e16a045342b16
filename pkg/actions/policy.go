package actions

// Policy is the capability map gating side-effect execution, one toggle per
// request kind. Script execution and version-control operations default to
// off; that boundary is deliberate and callers must opt in explicitly.
type Policy struct {
	AllowPackageInstall bool `json:"allowPackageInstall"`
	AllowCreateFile     bool `json:"allowCreateFile"`
	AllowCreateFolder   bool `json:"allowCreateFolder"`
	AllowModifyFile     bool `json:"allowModifyFile"`
	AllowRunScript      bool `json:"allowRunScript"`
	AllowVersionControl bool `json:"allowVersionControl"`
	AllowFormatFile     bool `json:"allowFormatFile"`

	// RequireInteractiveConfirmation demands a human yes per request on top
	// of the capability toggles.
	RequireInteractiveConfirmation bool `json:"requireInteractiveConfirmation"`
}

// DefaultPolicy returns the stock capability map.
func DefaultPolicy() Policy {
	return Policy{
		AllowPackageInstall: true,
		AllowCreateFile:     true,
		AllowCreateFolder:   true,
		AllowModifyFile:     true,
		AllowRunScript:      false,
		AllowVersionControl: false,
		AllowFormatFile:     true,
	}
}

// Allows reports whether the policy grants the capability for a request
// kind. Unknown kinds are never allowed.
func (p Policy) Allows(kind Kind) bool {
	switch kind {
	case KindInstallDependency:
		return p.AllowPackageInstall
	case KindCreateFile:
		return p.AllowCreateFile
	case KindCreateDirectory:
		return p.AllowCreateFolder
	case KindModifyFile:
		return p.AllowModifyFile
	case KindRunScript:
		return p.AllowRunScript
	case KindVersionControl:
		return p.AllowVersionControl
	case KindFormatFile:
		return p.AllowFormatFile
	default:
		return false
	}
}
