package agent

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"runtime"
	"sort"
	"strings"
	"syscall"
	"time"
)

// ExecResult holds the outcome of a command execution.
type ExecResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
	TimedOut bool
	Duration time.Duration
}

// Output returns combined stdout and stderr.
func (r ExecResult) Output() string {
	switch {
	case r.Stderr == "":
		return r.Stdout
	case r.Stdout == "":
		return r.Stderr
	default:
		return r.Stdout + "\n" + r.Stderr
	}
}

// Workspace abstracts the working directory the tools operate on. All
// relative paths resolve against its root; paths escaping the root are
// rejected.
type Workspace interface {
	Root() string
	Platform() string

	ReadFile(path string) (string, error)
	ReadImage(path string) (data []byte, mediaType string, err error)
	WriteFile(path, content string) error
	ListFiles(path string, recursive bool) ([]string, error)
	SearchFiles(path, pattern, filePattern string) (string, error)

	ExecCommand(ctx context.Context, command string, timeout time.Duration) (*ExecResult, error)
}

// LocalWorkspace runs tools against the local filesystem.
type LocalWorkspace struct {
	root string
}

// NewLocalWorkspace creates a workspace rooted at dir. An empty dir means
// the current directory.
func NewLocalWorkspace(dir string) (*LocalWorkspace, error) {
	if dir == "" {
		var err error
		dir, err = os.Getwd()
		if err != nil {
			return nil, err
		}
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	return &LocalWorkspace{root: abs}, nil
}

func (w *LocalWorkspace) Root() string     { return w.root }
func (w *LocalWorkspace) Platform() string { return runtime.GOOS + "/" + runtime.GOARCH }

// resolve joins path against the root and rejects any result outside it.
func (w *LocalWorkspace) resolve(tool, path string) (string, error) {
	resolved := path
	if !filepath.IsAbs(path) {
		resolved = filepath.Join(w.root, path)
	}
	resolved = filepath.Clean(resolved)
	if resolved != w.root && !strings.HasPrefix(resolved, w.root+string(filepath.Separator)) {
		return "", &ToolError{
			Kind: ToolPermission,
			Tool: tool,
			Path: path,
			Err:  fmt.Errorf("path escapes the working directory"),
		}
	}
	return resolved, nil
}

func (w *LocalWorkspace) ReadFile(path string) (string, error) {
	resolved, err := w.resolve("read_file", path)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(resolved)
	if err != nil {
		return "", classifyFileError("read_file", path, err)
	}
	return string(data), nil
}

// imageMediaTypes maps file extensions to media types for read_image.
var imageMediaTypes = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".webp": "image/webp",
}

func (w *LocalWorkspace) ReadImage(path string) ([]byte, string, error) {
	resolved, err := w.resolve("read_image", path)
	if err != nil {
		return nil, "", err
	}
	mediaType, ok := imageMediaTypes[strings.ToLower(filepath.Ext(path))]
	if !ok {
		return nil, "", &ToolError{
			Kind: ToolIO,
			Tool: "read_image",
			Path: path,
			Err:  fmt.Errorf("unsupported image extension %q", filepath.Ext(path)),
		}
	}
	data, err := os.ReadFile(resolved)
	if err != nil {
		return nil, "", classifyFileError("read_image", path, err)
	}
	return data, mediaType, nil
}

func (w *LocalWorkspace) WriteFile(path, content string) error {
	resolved, err := w.resolve("write_to_file", path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(resolved), 0o755); err != nil {
		return &ToolError{Kind: ToolIO, Tool: "write_to_file", Path: path, Err: err}
	}
	if err := os.WriteFile(resolved, []byte(content), 0o644); err != nil {
		return &ToolError{Kind: ToolIO, Tool: "write_to_file", Path: path, Err: err}
	}
	return nil
}

func (w *LocalWorkspace) ListFiles(path string, recursive bool) ([]string, error) {
	resolved, err := w.resolve("list_files", path)
	if err != nil {
		return nil, err
	}

	if !recursive {
		entries, err := os.ReadDir(resolved)
		if err != nil {
			return nil, classifyFileError("list_files", path, err)
		}
		names := make([]string, 0, len(entries))
		for _, entry := range entries {
			name := entry.Name()
			if entry.IsDir() {
				name += "/"
			}
			names = append(names, name)
		}
		sort.Strings(names)
		return names, nil
	}

	var names []string
	err = filepath.WalkDir(resolved, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if p == resolved {
			return nil
		}
		rel, relErr := filepath.Rel(resolved, p)
		if relErr != nil {
			return relErr
		}
		if d.IsDir() {
			rel += "/"
		}
		names = append(names, rel)
		return nil
	})
	if err != nil {
		return nil, classifyFileError("list_files", path, err)
	}
	sort.Strings(names)
	return names, nil
}

func (w *LocalWorkspace) SearchFiles(path, pattern, filePattern string) (string, error) {
	resolved, err := w.resolve("search_files", path)
	if err != nil {
		return "", err
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return "", &ToolError{Kind: ToolIO, Tool: "search_files", Err: fmt.Errorf("invalid regex %q: %w", pattern, err)}
	}

	var sb strings.Builder
	matches := 0
	err = filepath.WalkDir(resolved, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if filePattern != "" {
			ok, matchErr := filepath.Match(filePattern, d.Name())
			if matchErr != nil || !ok {
				return matchErr
			}
		}
		data, readErr := os.ReadFile(p)
		if readErr != nil {
			return nil // unreadable files are skipped, not fatal
		}
		rel, _ := filepath.Rel(w.root, p)
		for i, line := range strings.Split(string(data), "\n") {
			if re.MatchString(line) {
				fmt.Fprintf(&sb, "%s:%d: %s\n", rel, i+1, line)
				matches++
			}
		}
		return nil
	})
	if err != nil {
		return "", classifyFileError("search_files", path, err)
	}
	if matches == 0 {
		return "No matches found.", nil
	}
	return sb.String(), nil
}

func (w *LocalWorkspace) ExecCommand(ctx context.Context, command string, timeout time.Duration) (*ExecResult, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	shell, shellArg := "/bin/bash", "-c"
	if runtime.GOOS == "windows" {
		shell, shellArg = "cmd.exe", "/c"
	}

	cmd := exec.CommandContext(ctx, shell, shellArg, command)
	cmd.Dir = w.root
	// Own process group so a timed-out command tree can be killed whole.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	runErr := cmd.Run()
	result := &ExecResult{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
	}

	if runErr != nil {
		if ctx.Err() == context.DeadlineExceeded {
			result.TimedOut = true
			result.ExitCode = -1
			if cmd.Process != nil {
				_ = syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
			}
		} else if exitErr, ok := runErr.(*exec.ExitError); ok {
			result.ExitCode = exitErr.ExitCode()
		} else {
			return nil, &ToolError{Kind: ToolExecFailed, Tool: "execute_command", Err: runErr}
		}
	}

	return result, nil
}

// classifyFileError maps an os error to the ToolError taxonomy.
func classifyFileError(tool, path string, err error) error {
	kind := ToolIO
	switch {
	case errors.Is(err, fs.ErrNotExist):
		kind = ToolNotFound
	case errors.Is(err, fs.ErrPermission):
		kind = ToolPermission
	}
	return &ToolError{Kind: kind, Tool: tool, Path: path, Err: err}
}
