package actions

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/creack/pty"
	"golang.org/x/term"

	"github.com/patchpilot/patchpilot/pkg/utils"
)

// Status is the terminal state of one executed request.
type Status string

const (
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	StatusDenied    Status = "denied"
)

// Outcome records the result of one side-effect request. The ordered list
// of outcomes is the audit trail of a run: a denial or failure is recorded
// and the batch continues.
type Outcome struct {
	Request   Request `json:"request"`
	Succeeded bool    `json:"succeeded"`
	Status    Status  `json:"status"`
	Detail    string  `json:"detail"`
	Err       string  `json:"error,omitempty"`
}

const detailLimit = 400

// Executor runs side-effect requests against a project root, one at a time,
// in parse order. Every request walks requested → permission checked →
// (confirmed) → executing → succeeded/failed/denied.
type Executor struct {
	projectRoot string
	policy      Policy
	logger      *utils.Logger

	// OnModify is invoked with (path, before, after) right before a
	// modifyFile request writes, so callers can record a revision.
	OnModify func(path, before, after string)

	confirm func(prompt string) bool
}

// NewExecutor builds an executor for one project root. logger may be nil in
// contexts without a workspace log.
func NewExecutor(projectRoot string, policy Policy, logger *utils.Logger) *Executor {
	e := &Executor{projectRoot: projectRoot, policy: policy, logger: logger}
	e.confirm = e.promptConfirm
	return e
}

// ExecuteAll executes requests sequentially in the given order and returns
// one outcome per request.
func (e *Executor) ExecuteAll(ctx context.Context, requests []Request) []Outcome {
	outcomes := make([]Outcome, 0, len(requests))
	for _, request := range requests {
		outcomes = append(outcomes, e.Execute(ctx, request))
	}
	return outcomes
}

// Execute runs one request through the per-request state machine.
func (e *Executor) Execute(ctx context.Context, request Request) Outcome {
	e.transition("requested", request)

	e.transition("permission checked", request)
	if !e.policy.Allows(request.Kind) {
		return Outcome{
			Request: request,
			Status:  StatusDenied,
			Detail:  "denied by permission policy",
		}
	}

	if e.policy.RequireInteractiveConfirmation {
		if !e.confirm(fmt.Sprintf("Allow action: %s?", request.Summary())) {
			return Outcome{
				Request: request,
				Status:  StatusDenied,
				Detail:  "declined by user",
			}
		}
		e.transition("confirmed", request)
	}

	e.transition("executing", request)
	detail, err := e.run(ctx, request)
	if err != nil {
		return Outcome{
			Request: request,
			Status:  StatusFailed,
			Detail:  detail,
			Err:     err.Error(),
		}
	}
	return Outcome{
		Request:   request,
		Succeeded: true,
		Status:    StatusSucceeded,
		Detail:    detail,
	}
}

func (e *Executor) transition(phase string, request Request) {
	if e.logger != nil {
		e.logger.Logf("action %s: %s", phase, request.Summary())
	}
}

// promptConfirm asks through the workspace logger so the question and answer
// land in the log. Without a logger there is no channel to a human, so the
// request is declined.
func (e *Executor) promptConfirm(prompt string) bool {
	if e.logger == nil {
		return false
	}
	return e.logger.AskForConfirmation(prompt, false, false)
}

func (e *Executor) run(ctx context.Context, request Request) (string, error) {
	switch request.Kind {
	case KindInstallDependency:
		return e.install(ctx, request)
	case KindCreateFile:
		return e.createFile(request)
	case KindCreateDirectory:
		return e.createDirectory(request)
	case KindModifyFile:
		return e.modifyFile(request)
	case KindRunScript:
		return e.runScript(ctx, request)
	case KindVersionControl:
		return e.versionControl(ctx, request)
	case KindFormatFile:
		return e.formatFile(ctx, request)
	default:
		return "", fmt.Errorf("unknown request kind %q", request.Kind)
	}
}

func (e *Executor) root() string {
	if e.projectRoot == "" {
		return "."
	}
	return e.projectRoot
}

// resolvePath confines marker-supplied paths to the project root.
func (e *Executor) resolvePath(rel string) (string, error) {
	if filepath.IsAbs(rel) || !filepath.IsLocal(rel) {
		return "", fmt.Errorf("path %q escapes the project root", rel)
	}
	return filepath.Join(e.root(), rel), nil
}

func (e *Executor) install(ctx context.Context, request Request) (string, error) {
	name, args := e.installCommand(request)
	return e.runCommand(ctx, name, args...)
}

// installCommand picks the package manager from the project manifest.
func (e *Executor) installCommand(request Request) (string, []string) {
	root := e.root()
	switch {
	case fileExists(filepath.Join(root, "package.json")):
		args := []string{"install"}
		if request.DevOnly {
			args = append(args, "--save-dev")
		}
		return "npm", append(args, request.Packages...)
	case fileExists(filepath.Join(root, "go.mod")):
		return "go", append([]string{"get"}, request.Packages...)
	case fileExists(filepath.Join(root, "requirements.txt")) || fileExists(filepath.Join(root, "pyproject.toml")):
		return "pip", append([]string{"install"}, request.Packages...)
	case fileExists(filepath.Join(root, "Cargo.toml")):
		return "cargo", append([]string{"add"}, request.Packages...)
	default:
		args := []string{"install"}
		if request.DevOnly {
			args = append(args, "--save-dev")
		}
		return "npm", append(args, request.Packages...)
	}
}

// createFile ensures the file exists; an existing file is left untouched.
func (e *Executor) createFile(request Request) (string, error) {
	path, err := e.resolvePath(request.Path)
	if err != nil {
		return "", err
	}
	if _, statErr := os.Stat(path); statErr == nil {
		return "file already exists", nil
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return "", fmt.Errorf("failed to create parent directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte{}, 0644); err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}
	return "created", nil
}

func (e *Executor) createDirectory(request Request) (string, error) {
	path, err := e.resolvePath(request.Path)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(path, 0755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}
	return "created", nil
}

func (e *Executor) modifyFile(request Request) (string, error) {
	if request.Content == "" {
		return "", fmt.Errorf("no staged content for %s", request.Path)
	}
	path, err := e.resolvePath(request.Path)
	if err != nil {
		return "", err
	}
	before, _ := os.ReadFile(path)
	if e.OnModify != nil {
		e.OnModify(path, string(before), request.Content)
	}
	if err := utils.SaveFile(path, request.Content); err != nil {
		return "", err
	}
	return fmt.Sprintf("wrote %d bytes", len(request.Content)), nil
}

func (e *Executor) runScript(ctx context.Context, request Request) (string, error) {
	name, args := "bash", []string{request.Script}
	if hasManifestScript(e.root(), request.Script) {
		name, args = "npm", []string{"run", request.Script}
	}
	if request.Args != "" {
		args = append(args, strings.Fields(request.Args)...)
	}
	if term.IsTerminal(int(os.Stdout.Fd())) {
		return e.runInPTY(ctx, name, args...)
	}
	return e.runCommand(ctx, name, args...)
}

func (e *Executor) versionControl(ctx context.Context, request Request) (string, error) {
	switch request.VCSKind {
	case "stage":
		return e.runCommand(ctx, "git", "add", "-A")
	case "commit":
		if detail, err := e.runCommand(ctx, "git", "add", "-A"); err != nil {
			return detail, err
		}
		return e.runCommand(ctx, "git", "commit", "-m", "patchpilot: apply generated edit")
	case "revert":
		return e.runCommand(ctx, "git", "checkout", "--", ".")
	default:
		return "", fmt.Errorf("unsupported version control operation %q", request.VCSKind)
	}
}

func (e *Executor) formatFile(ctx context.Context, request Request) (string, error) {
	path, err := e.resolvePath(request.Path)
	if err != nil {
		return "", err
	}
	var name string
	var args []string
	switch strings.ToLower(filepath.Ext(request.Path)) {
	case ".go":
		name, args = "gofmt", []string{"-w", path}
	case ".py", ".pyi":
		name, args = "black", []string{path}
	case ".js", ".jsx", ".mjs", ".cjs", ".ts", ".tsx", ".mts", ".cts", ".css", ".json", ".md":
		name, args = "npx", []string{"prettier", "--write", path}
	default:
		return "", fmt.Errorf("no formatter for %s", request.Path)
	}
	if _, lookErr := exec.LookPath(name); lookErr != nil {
		return "", fmt.Errorf("formatter %s not found: %w", name, lookErr)
	}
	return e.runCommand(ctx, name, args...)
}

func (e *Executor) runCommand(ctx context.Context, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = e.root()
	output, err := cmd.CombinedOutput()
	detail := utils.TruncateString(strings.TrimSpace(string(output)), detailLimit)
	if err != nil {
		return detail, fmt.Errorf("%s %s: %w", name, strings.Join(args, " "), err)
	}
	return detail, nil
}

// runInPTY runs the command under a pseudo-terminal so interactive
// installers and progress bars behave, echoing output while capturing it.
func (e *Executor) runInPTY(ctx context.Context, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = e.root()
	f, err := pty.Start(cmd)
	if err != nil {
		return "", fmt.Errorf("failed to start pty for %s: %w", name, err)
	}
	defer f.Close()

	var buf bytes.Buffer
	// The read side returns an error when the child exits; the copy until
	// then is what matters.
	_, _ = io.Copy(io.MultiWriter(&buf, os.Stdout), f)

	waitErr := cmd.Wait()
	detail := utils.TruncateString(strings.TrimSpace(buf.String()), detailLimit)
	if waitErr != nil {
		return detail, fmt.Errorf("%s %s: %w", name, strings.Join(args, " "), waitErr)
	}
	return detail, nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// hasManifestScript reports whether package.json declares the named script.
func hasManifestScript(root, script string) bool {
	data, err := os.ReadFile(filepath.Join(root, "package.json"))
	if err != nil {
		return false
	}
	var pkg struct {
		Scripts map[string]string `json:"scripts"`
	}
	if err := json.Unmarshal(data, &pkg); err != nil {
		return false
	}
	_, ok := pkg.Scripts[script]
	return ok
}
