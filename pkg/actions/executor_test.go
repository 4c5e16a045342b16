package actions

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecuteDeniedByPolicy(t *testing.T) {
	executor := NewExecutor(t.TempDir(), DefaultPolicy(), nil)

	outcome := executor.Execute(context.Background(), Request{Kind: KindRunScript, Script: "deploy"})

	assert.Equal(t, StatusDenied, outcome.Status)
	assert.False(t, outcome.Succeeded)
	assert.Equal(t, "denied by permission policy", outcome.Detail)
}

func TestExecuteAllContinuesPastDenial(t *testing.T) {
	executor := NewExecutor(t.TempDir(), DefaultPolicy(), nil)

	outcomes := executor.ExecuteAll(context.Background(), []Request{
		{Kind: KindVersionControl, VCSKind: "commit"},
		{Kind: KindCreateFile, Path: "src/new.ts"},
	})

	require.Len(t, outcomes, 2)
	assert.Equal(t, StatusDenied, outcomes[0].Status)
	assert.Equal(t, StatusSucceeded, outcomes[1].Status)
}

func TestExecuteInstallDeniedWhenDisallowed(t *testing.T) {
	policy := DefaultPolicy()
	policy.AllowPackageInstall = false
	executor := NewExecutor(t.TempDir(), policy, nil)

	outcome := executor.Execute(context.Background(), Request{
		Kind:     KindInstallDependency,
		Packages: []string{"left-pad"},
	})

	assert.Equal(t, StatusDenied, outcome.Status)
}

func TestCreateFile(t *testing.T) {
	root := t.TempDir()
	executor := NewExecutor(root, DefaultPolicy(), nil)

	outcome := executor.Execute(context.Background(), Request{Kind: KindCreateFile, Path: "src/new.ts"})

	require.Equal(t, StatusSucceeded, outcome.Status)
	assert.FileExists(t, filepath.Join(root, "src", "new.ts"))

	again := executor.Execute(context.Background(), Request{Kind: KindCreateFile, Path: "src/new.ts"})
	assert.Equal(t, StatusSucceeded, again.Status)
	assert.Equal(t, "file already exists", again.Detail)
}

func TestCreateFileDoesNotTruncate(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "keep.txt")
	require.NoError(t, os.WriteFile(path, []byte("data"), 0644))
	executor := NewExecutor(root, DefaultPolicy(), nil)

	executor.Execute(context.Background(), Request{Kind: KindCreateFile, Path: "keep.txt"})

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "data", string(content))
}

func TestCreateDirectory(t *testing.T) {
	root := t.TempDir()
	executor := NewExecutor(root, DefaultPolicy(), nil)

	outcome := executor.Execute(context.Background(), Request{Kind: KindCreateDirectory, Path: "src/handlers"})

	assert.Equal(t, StatusSucceeded, outcome.Status)
	assert.DirExists(t, filepath.Join(root, "src", "handlers"))
}

func TestPathTraversalRejected(t *testing.T) {
	executor := NewExecutor(t.TempDir(), DefaultPolicy(), nil)

	for _, path := range []string{"../evil.ts", "/etc/passwd", "a/../../evil"} {
		outcome := executor.Execute(context.Background(), Request{Kind: KindCreateFile, Path: path})
		assert.Equal(t, StatusFailed, outcome.Status, "path %s", path)
		assert.Contains(t, outcome.Err, "escapes the project root")
	}
}

func TestModifyFileRecordsRevision(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "main.go")
	require.NoError(t, os.WriteFile(path, []byte("old"), 0644))

	executor := NewExecutor(root, DefaultPolicy(), nil)
	var gotBefore, gotAfter string
	executor.OnModify = func(_, before, after string) {
		gotBefore, gotAfter = before, after
	}

	outcome := executor.Execute(context.Background(), Request{
		Kind:    KindModifyFile,
		Path:    "main.go",
		Content: "new",
	})

	require.Equal(t, StatusSucceeded, outcome.Status)
	assert.Equal(t, "old", gotBefore)
	assert.Equal(t, "new", gotAfter)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "new", string(content))
}

func TestModifyFileWithoutContentFails(t *testing.T) {
	executor := NewExecutor(t.TempDir(), DefaultPolicy(), nil)

	outcome := executor.Execute(context.Background(), Request{Kind: KindModifyFile, Path: "main.go"})

	assert.Equal(t, StatusFailed, outcome.Status)
	assert.Contains(t, outcome.Err, "no staged content")
}

func TestInteractiveConfirmationDeclined(t *testing.T) {
	policy := DefaultPolicy()
	policy.RequireInteractiveConfirmation = true
	executor := NewExecutor(t.TempDir(), policy, nil)
	executor.confirm = func(string) bool { return false }

	outcome := executor.Execute(context.Background(), Request{Kind: KindCreateFile, Path: "a.ts"})

	assert.Equal(t, StatusDenied, outcome.Status)
	assert.Equal(t, "declined by user", outcome.Detail)
}

func TestInteractiveConfirmationAccepted(t *testing.T) {
	policy := DefaultPolicy()
	policy.RequireInteractiveConfirmation = true
	executor := NewExecutor(t.TempDir(), policy, nil)
	executor.confirm = func(string) bool { return true }

	outcome := executor.Execute(context.Background(), Request{Kind: KindCreateFile, Path: "a.ts"})

	assert.Equal(t, StatusSucceeded, outcome.Status)
}

func TestConfirmationWithoutLoggerDenies(t *testing.T) {
	policy := DefaultPolicy()
	policy.RequireInteractiveConfirmation = true
	executor := NewExecutor(t.TempDir(), policy, nil)

	outcome := executor.Execute(context.Background(), Request{Kind: KindCreateFile, Path: "a.ts"})

	assert.Equal(t, StatusDenied, outcome.Status)
}

func TestInstallCommandManagerDetection(t *testing.T) {
	ctx := []struct {
		manifest string
		wantName string
		wantArg  string
	}{
		{"package.json", "npm", "install"},
		{"go.mod", "go", "get"},
		{"requirements.txt", "pip", "install"},
		{"Cargo.toml", "cargo", "add"},
	}

	for _, tc := range ctx {
		t.Run(tc.manifest, func(t *testing.T) {
			root := t.TempDir()
			require.NoError(t, os.WriteFile(filepath.Join(root, tc.manifest), []byte("x"), 0644))
			executor := NewExecutor(root, DefaultPolicy(), nil)

			name, args := executor.installCommand(Request{
				Kind:     KindInstallDependency,
				Packages: []string{"dep"},
			})

			assert.Equal(t, tc.wantName, name)
			require.NotEmpty(t, args)
			assert.Equal(t, tc.wantArg, args[0])
			assert.Equal(t, "dep", args[len(args)-1])
		})
	}
}

func TestInstallCommandDevFlag(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "package.json"), []byte("{}"), 0644))
	executor := NewExecutor(root, DefaultPolicy(), nil)

	_, args := executor.installCommand(Request{
		Kind:     KindInstallDependency,
		Packages: []string{"jest"},
		DevOnly:  true,
	})

	assert.Contains(t, args, "--save-dev")
}

func TestVersionControlUnsupportedKind(t *testing.T) {
	policy := DefaultPolicy()
	policy.AllowVersionControl = true
	executor := NewExecutor(t.TempDir(), policy, nil)

	outcome := executor.Execute(context.Background(), Request{Kind: KindVersionControl, VCSKind: "rebase"})

	assert.Equal(t, StatusFailed, outcome.Status)
	assert.Contains(t, outcome.Err, "unsupported version control operation")
}

func TestFormatFileUnknownExtension(t *testing.T) {
	executor := NewExecutor(t.TempDir(), DefaultPolicy(), nil)

	outcome := executor.Execute(context.Background(), Request{Kind: KindFormatFile, Path: "binary.dat"})

	assert.Equal(t, StatusFailed, outcome.Status)
	assert.Contains(t, outcome.Err, "no formatter")
}

func TestUnknownKindFails(t *testing.T) {
	executor := NewExecutor(t.TempDir(), Policy{}, nil)

	outcome := executor.Execute(context.Background(), Request{Kind: Kind("teleport")})

	assert.Equal(t, StatusDenied, outcome.Status)
}
