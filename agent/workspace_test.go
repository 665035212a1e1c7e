package agent

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func newTestWorkspace(t *testing.T) *LocalWorkspace {
	t.Helper()
	ws, err := NewLocalWorkspace(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalWorkspace: %v", err)
	}
	return ws
}

func TestWorkspaceWriteReadRoundTrip(t *testing.T) {
	ws := newTestWorkspace(t)

	if err := ws.WriteFile("sub/dir/hello.txt", "Hello, World!"); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	got, err := ws.ReadFile("sub/dir/hello.txt")
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if got != "Hello, World!" {
		t.Errorf("content = %q", got)
	}
}

func TestWorkspaceReadMissingFile(t *testing.T) {
	ws := newTestWorkspace(t)

	_, err := ws.ReadFile("nope.txt")
	var te *ToolError
	if !errors.As(err, &te) {
		t.Fatalf("error = %v, want ToolError", err)
	}
	if te.Kind != ToolNotFound {
		t.Errorf("kind = %s, want %s", te.Kind, ToolNotFound)
	}
}

func TestWorkspaceRejectsEscape(t *testing.T) {
	ws := newTestWorkspace(t)

	cases := []string{
		"../outside.txt",
		"sub/../../outside.txt",
		"/etc/passwd",
	}
	for _, path := range cases {
		_, err := ws.ReadFile(path)
		var te *ToolError
		if !errors.As(err, &te) || te.Kind != ToolPermission {
			t.Errorf("ReadFile(%q) error = %v, want permission ToolError", path, err)
		}
		err = ws.WriteFile(path, "x")
		if !errors.As(err, &te) || te.Kind != ToolPermission {
			t.Errorf("WriteFile(%q) error = %v, want permission ToolError", path, err)
		}
	}
}

func TestWorkspaceListFiles(t *testing.T) {
	ws := newTestWorkspace(t)
	for _, f := range []string{"b.txt", "a.txt", "sub/c.txt"} {
		if err := ws.WriteFile(f, "x"); err != nil {
			t.Fatalf("WriteFile(%s): %v", f, err)
		}
	}

	flat, err := ws.ListFiles(".", false)
	if err != nil {
		t.Fatalf("ListFiles: %v", err)
	}
	want := []string{"a.txt", "b.txt", "sub/"}
	if len(flat) != len(want) {
		t.Fatalf("flat = %v, want %v", flat, want)
	}
	for i := range want {
		if flat[i] != want[i] {
			t.Errorf("flat[%d] = %q, want %q", i, flat[i], want[i])
		}
	}

	deep, err := ws.ListFiles(".", true)
	if err != nil {
		t.Fatalf("ListFiles recursive: %v", err)
	}
	found := false
	for _, name := range deep {
		if name == filepath.Join("sub", "c.txt") {
			found = true
		}
	}
	if !found {
		t.Errorf("recursive listing %v missing sub/c.txt", deep)
	}
}

func TestWorkspaceSearchFiles(t *testing.T) {
	ws := newTestWorkspace(t)
	if err := ws.WriteFile("main.go", "package main\n\nfunc main() {}\n"); err != nil {
		t.Fatal(err)
	}
	if err := ws.WriteFile("notes.txt", "nothing here\n"); err != nil {
		t.Fatal(err)
	}

	out, err := ws.SearchFiles(".", `func \w+`, "*.go")
	if err != nil {
		t.Fatalf("SearchFiles: %v", err)
	}
	if !strings.Contains(out, "main.go:3") {
		t.Errorf("output = %q, want a main.go:3 match", out)
	}

	out, err = ws.SearchFiles(".", "absent_pattern", "")
	if err != nil {
		t.Fatalf("SearchFiles: %v", err)
	}
	if out != "No matches found." {
		t.Errorf("output = %q", out)
	}
}

func TestWorkspaceSearchFilesBadRegex(t *testing.T) {
	ws := newTestWorkspace(t)
	_, err := ws.SearchFiles(".", "(unclosed", "")
	var te *ToolError
	if !errors.As(err, &te) {
		t.Fatalf("error = %v, want ToolError", err)
	}
}

func TestWorkspaceExecCommand(t *testing.T) {
	ws := newTestWorkspace(t)

	result, err := ws.ExecCommand(context.Background(), "echo hi; echo oops >&2", 10*time.Second)
	if err != nil {
		t.Fatalf("ExecCommand: %v", err)
	}
	if strings.TrimSpace(result.Stdout) != "hi" {
		t.Errorf("stdout = %q", result.Stdout)
	}
	if strings.TrimSpace(result.Stderr) != "oops" {
		t.Errorf("stderr = %q", result.Stderr)
	}
	if result.ExitCode != 0 {
		t.Errorf("exit code = %d", result.ExitCode)
	}
}

func TestWorkspaceExecCommandNonZeroExit(t *testing.T) {
	ws := newTestWorkspace(t)

	result, err := ws.ExecCommand(context.Background(), "exit 3", 10*time.Second)
	if err != nil {
		t.Fatalf("ExecCommand: %v", err)
	}
	if result.ExitCode != 3 {
		t.Errorf("exit code = %d, want 3", result.ExitCode)
	}
}

func TestWorkspaceExecCommandTimeout(t *testing.T) {
	ws := newTestWorkspace(t)

	result, err := ws.ExecCommand(context.Background(), "sleep 5", 100*time.Millisecond)
	if err != nil {
		t.Fatalf("ExecCommand: %v", err)
	}
	if !result.TimedOut {
		t.Error("expected TimedOut")
	}
}

func TestWorkspaceExecCommandRunsInRoot(t *testing.T) {
	ws := newTestWorkspace(t)

	result, err := ws.ExecCommand(context.Background(), "pwd", 10*time.Second)
	if err != nil {
		t.Fatalf("ExecCommand: %v", err)
	}
	got := strings.TrimSpace(result.Stdout)
	// macOS tempdirs resolve through /private; compare suffixes.
	if !strings.HasSuffix(got, filepath.Base(ws.Root())) {
		t.Errorf("pwd = %q, want workspace root %q", got, ws.Root())
	}
}
