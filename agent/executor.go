package agent

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/taskloop/taskloop/llm"
)

// ToolResult is the outcome of executing one invocation. It becomes a
// tool-result turn; a failed execution is ordinary conversation content,
// never fatal to the loop.
type ToolResult struct {
	Tool    string
	Summary string
	OK      bool
	Text    string
	Image   *llm.ImageAttachment
}

// ExecuteTool dispatches a parsed invocation against the workspace. Only
// the filesystem and command tools reach here; ask_followup_question and
// attempt_completion are handled by the driver, and unrecognized names are
// rejected by the parser.
func ExecuteTool(ctx context.Context, inv *Invocation, ws Workspace, cmdTimeout time.Duration) ToolResult {
	switch inv.Name {
	case "read_file":
		return execReadFile(inv, ws)
	case "read_image":
		return execReadImage(inv, ws)
	case "write_to_file":
		return execWriteFile(inv, ws)
	case "replace_in_file":
		return execReplaceInFile(inv, ws)
	case "list_files":
		return execListFiles(inv, ws)
	case "search_files":
		return execSearchFiles(inv, ws)
	case "execute_command":
		return execCommand(ctx, inv, ws, cmdTimeout)
	default:
		return ToolResult{
			Tool:    inv.Name,
			Summary: inv.Name,
			OK:      false,
			Text:    fmt.Sprintf("Tool %q has no executor", inv.Name),
		}
	}
}

func failure(inv *Invocation, summary string, err error) ToolResult {
	return ToolResult{Tool: inv.Name, Summary: summary, OK: false, Text: "Error: " + err.Error()}
}

func execReadFile(inv *Invocation, ws Workspace) ToolResult {
	path := inv.Params["path"]
	summary := fmt.Sprintf("read_file '%s'", path)
	content, err := ws.ReadFile(path)
	if err != nil {
		return failure(inv, summary, err)
	}
	return ToolResult{Tool: inv.Name, Summary: summary, OK: true, Text: TruncateOutput(content, inv.Name)}
}

func execReadImage(inv *Invocation, ws Workspace) ToolResult {
	path := inv.Params["path"]
	summary := fmt.Sprintf("read_image '%s'", path)
	data, mediaType, err := ws.ReadImage(path)
	if err != nil {
		return failure(inv, summary, err)
	}
	return ToolResult{
		Tool:    inv.Name,
		Summary: summary,
		OK:      true,
		Text:    fmt.Sprintf("Read image %s (%s, %d bytes); it is attached to this message", path, mediaType, len(data)),
		Image:   &llm.ImageAttachment{Data: data, MediaType: mediaType},
	}
}

func execWriteFile(inv *Invocation, ws Workspace) ToolResult {
	path := inv.Params["path"]
	content := inv.Params["content"]
	summary := fmt.Sprintf("write_to_file '%s'", path)
	if err := ws.WriteFile(path, content); err != nil {
		return failure(inv, summary, err)
	}
	return ToolResult{
		Tool:    inv.Name,
		Summary: summary,
		OK:      true,
		Text:    fmt.Sprintf("Successfully wrote %d bytes to %s", len(content), path),
	}
}

func execReplaceInFile(inv *Invocation, ws Workspace) ToolResult {
	path := inv.Params["path"]
	summary := fmt.Sprintf("replace_in_file '%s'", path)

	blocks, err := parseSearchReplace(inv.Params["diff"])
	if err != nil {
		return failure(inv, summary, err)
	}

	content, err := ws.ReadFile(path)
	if err != nil {
		return failure(inv, summary, err)
	}

	for i, b := range blocks {
		count := strings.Count(content, b.search)
		if count == 0 {
			return failure(inv, summary, fmt.Errorf("SEARCH block %d not found in %s; it must match the file exactly", i+1, path))
		}
		if count > 1 {
			return failure(inv, summary, fmt.Errorf("SEARCH block %d matches %d locations in %s; include more surrounding lines to make it unique", i+1, count, path))
		}
		content = strings.Replace(content, b.search, b.replace, 1)
	}

	if err := ws.WriteFile(path, content); err != nil {
		return failure(inv, summary, err)
	}
	return ToolResult{
		Tool:    inv.Name,
		Summary: summary,
		OK:      true,
		Text:    fmt.Sprintf("Applied %d replacement(s) to %s", len(blocks), path),
	}
}

func execListFiles(inv *Invocation, ws Workspace) ToolResult {
	path := inv.Params["path"]
	recursive, _ := strconv.ParseBool(inv.Params["recursive"])
	summary := fmt.Sprintf("list_files '%s'", path)

	entries, err := ws.ListFiles(path, recursive)
	if err != nil {
		return failure(inv, summary, err)
	}
	text := strings.Join(entries, "\n")
	if text == "" {
		text = "(empty directory)"
	}
	return ToolResult{Tool: inv.Name, Summary: summary, OK: true, Text: TruncateOutput(text, inv.Name)}
}

func execSearchFiles(inv *Invocation, ws Workspace) ToolResult {
	path := inv.Params["path"]
	summary := fmt.Sprintf("search_files '%s' in '%s'", inv.Params["regex"], path)

	out, err := ws.SearchFiles(path, inv.Params["regex"], inv.Params["file_pattern"])
	if err != nil {
		return failure(inv, summary, err)
	}
	return ToolResult{Tool: inv.Name, Summary: summary, OK: true, Text: TruncateOutput(out, inv.Name)}
}

func execCommand(ctx context.Context, inv *Invocation, ws Workspace, timeout time.Duration) ToolResult {
	command := inv.Params["command"]
	summary := fmt.Sprintf("execute_command '%s'", command)

	result, err := ws.ExecCommand(ctx, command, timeout)
	if err != nil {
		return failure(inv, summary, err)
	}

	var parts []string
	if result.Stdout != "" {
		parts = append(parts, "STDOUT:\n"+result.Stdout)
	}
	if result.Stderr != "" {
		parts = append(parts, "STDERR:\n"+result.Stderr)
	}
	if len(parts) == 0 {
		parts = append(parts, "Command executed successfully (no output)")
	}

	// A non-zero exit is reported to the model, not treated as a loop
	// failure; the model decides how to proceed.
	switch {
	case result.TimedOut:
		parts = append([]string{fmt.Sprintf("Command timed out after %s; partial output follows", timeout)}, parts...)
	case result.ExitCode != 0:
		parts = append([]string{fmt.Sprintf("Command failed with exit code %d", result.ExitCode)}, parts...)
	}

	return ToolResult{
		Tool:    inv.Name,
		Summary: summary,
		OK:      result.ExitCode == 0 && !result.TimedOut,
		Text:    TruncateOutput(strings.Join(parts, "\n"), inv.Name),
	}
}

type searchReplaceBlock struct {
	search  string
	replace string
}

// parseSearchReplace parses the replace_in_file diff format:
//
//	<<<<<<< SEARCH
//	exact lines to find
//	=======
//	replacement lines
//	>>>>>>> REPLACE
func parseSearchReplace(diff string) ([]searchReplaceBlock, error) {
	const (
		markerSearch  = "<<<<<<< SEARCH"
		markerDivide  = "======="
		markerReplace = ">>>>>>> REPLACE"
	)

	var blocks []searchReplaceBlock
	lines := strings.Split(diff, "\n")
	i := 0
	for i < len(lines) {
		line := strings.TrimRight(lines[i], " \t")
		if strings.TrimSpace(line) == "" {
			i++
			continue
		}
		if line != markerSearch {
			return nil, fmt.Errorf("expected %q, got %q", markerSearch, line)
		}
		i++

		var search []string
		for i < len(lines) && strings.TrimRight(lines[i], " \t") != markerDivide {
			search = append(search, lines[i])
			i++
		}
		if i >= len(lines) {
			return nil, fmt.Errorf("SEARCH block is missing the %q divider", markerDivide)
		}
		i++

		var replace []string
		for i < len(lines) && strings.TrimRight(lines[i], " \t") != markerReplace {
			replace = append(replace, lines[i])
			i++
		}
		if i >= len(lines) {
			return nil, fmt.Errorf("SEARCH block is missing the %q terminator", markerReplace)
		}
		i++

		blocks = append(blocks, searchReplaceBlock{
			search:  strings.Join(search, "\n"),
			replace: strings.Join(replace, "\n"),
		})
	}

	if len(blocks) == 0 {
		return nil, fmt.Errorf("diff contains no SEARCH/REPLACE blocks")
	}
	return blocks, nil
}
