package agent

import (
	"fmt"
	"sort"
	"strings"
)

// ParamSpec describes one tool parameter.
type ParamSpec struct {
	Name        string
	Required    bool
	Description string
}

// ToolSpec is one row of the tool table: the name the model must emit, its
// parameter schema, and the documentation block rendered into the system
// prompt. The parser validates against this table, the system prompt is
// generated from it, and the executor dispatches through it, so the three
// can never drift apart.
type ToolSpec struct {
	Name        string
	Description string
	Params      []ParamSpec
	// ReadOnly tools have no side effects and are always auto-approved.
	ReadOnly bool
}

// toolTable is the closed set of tools, in the order they are documented in
// the system prompt.
var toolTable = []ToolSpec{
	{
		Name:        "read_file",
		Description: "Read the contents of a file at the specified path. Use this to examine existing files.",
		Params: []ParamSpec{
			{Name: "path", Required: true, Description: "The path of the file to read (relative to the working directory)"},
		},
		ReadOnly: true,
	},
	{
		Name:        "read_image",
		Description: "Read an image file so it can be inspected in the next turn. Supports png, jpeg, gif and webp.",
		Params: []ParamSpec{
			{Name: "path", Required: true, Description: "The path of the image file to read (relative to the working directory)"},
		},
		ReadOnly: true,
	},
	{
		Name:        "write_to_file",
		Description: "Write content to a file at the specified path. Overwrites an existing file and creates missing parent directories. Always provide the complete file content.",
		Params: []ParamSpec{
			{Name: "path", Required: true, Description: "The path of the file to write (relative to the working directory)"},
			{Name: "content", Required: true, Description: "The complete content to write to the file"},
		},
	},
	{
		Name:        "replace_in_file",
		Description: "Replace an exact section of an existing file. Use SEARCH/REPLACE blocks: the SEARCH text must match the file exactly and must be unique.",
		Params: []ParamSpec{
			{Name: "path", Required: true, Description: "The path of the file to modify (relative to the working directory)"},
			{Name: "diff", Required: true, Description: "One or more SEARCH/REPLACE blocks:\n<<<<<<< SEARCH\n[exact content to find]\n=======\n[new content]\n>>>>>>> REPLACE"},
		},
	},
	{
		Name:        "list_files",
		Description: "List files and directories at the specified path.",
		Params: []ParamSpec{
			{Name: "path", Required: true, Description: "The path of the directory to list (relative to the working directory)"},
			{Name: "recursive", Required: false, Description: "Set to true to list files recursively"},
		},
		ReadOnly: true,
	},
	{
		Name:        "search_files",
		Description: "Perform a regex search across files in the specified directory, returning matching lines with file paths.",
		Params: []ParamSpec{
			{Name: "path", Required: true, Description: "The path of the directory to search (relative to the working directory)"},
			{Name: "regex", Required: true, Description: "The regular expression pattern to search for (Go regexp syntax)"},
			{Name: "file_pattern", Required: false, Description: "Glob pattern to filter files (e.g. *.go)"},
		},
		ReadOnly: true,
	},
	{
		Name:        "execute_command",
		Description: "Execute a shell command in the working directory. Returns the exit status and combined output. Prefer non-interactive commands; long-running commands are killed at the timeout.",
		Params: []ParamSpec{
			{Name: "command", Required: true, Description: "The command to execute"},
		},
	},
	{
		Name:        "ask_followup_question",
		Description: "Ask the user a question to gather additional information needed to complete the task.",
		Params: []ParamSpec{
			{Name: "question", Required: true, Description: "The question to ask the user"},
		},
	},
	{
		Name:        "attempt_completion",
		Description: "Present the final result of the task to the user. Use this only once the task is complete.",
		Params: []ParamSpec{
			{Name: "result", Required: true, Description: "The final result of the task"},
		},
	},
}

// LookupTool returns the spec for a tool name, or false if the name is not
// in the recognized set.
func LookupTool(name string) (ToolSpec, bool) {
	for _, spec := range toolTable {
		if spec.Name == name {
			return spec, true
		}
	}
	return ToolSpec{}, false
}

// ToolNames returns the recognized tool names in documentation order.
func ToolNames() []string {
	names := make([]string, len(toolTable))
	for i, spec := range toolTable {
		names[i] = spec.Name
	}
	return names
}

// requiredParams returns the names of the spec's required parameters.
func (s ToolSpec) requiredParams() []string {
	var names []string
	for _, p := range s.Params {
		if p.Required {
			names = append(names, p.Name)
		}
	}
	return names
}

// Doc renders the system-prompt documentation block for the tool.
func (s ToolSpec) Doc() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "## %s\n", s.Name)
	fmt.Fprintf(&sb, "Description: %s\n", s.Description)
	sb.WriteString("Parameters:\n")
	for _, p := range s.Params {
		req := "optional"
		if p.Required {
			req = "required"
		}
		fmt.Fprintf(&sb, "- %s: (%s) %s\n", p.Name, req, p.Description)
	}
	sb.WriteString("Usage:\n")
	fmt.Fprintf(&sb, "<%s>\n", s.Name)
	for _, p := range s.Params {
		fmt.Fprintf(&sb, "<%s>%s here</%s>\n", p.Name, p.Name, p.Name)
	}
	fmt.Fprintf(&sb, "</%s>", s.Name)
	return sb.String()
}

// RenderInvocation renders an invocation back into the wire format the
// model is instructed to use. Parameters are emitted in schema order, with
// any extras in sorted order after them.
func RenderInvocation(inv *Invocation) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "<%s>\n", inv.Name)

	emitted := map[string]bool{}
	if spec, ok := LookupTool(inv.Name); ok {
		for _, p := range spec.Params {
			if v, present := inv.Params[p.Name]; present {
				fmt.Fprintf(&sb, "<%s>%s</%s>\n", p.Name, v, p.Name)
				emitted[p.Name] = true
			}
		}
	}

	var extras []string
	for name := range inv.Params {
		if !emitted[name] {
			extras = append(extras, name)
		}
	}
	sort.Strings(extras)
	for _, name := range extras {
		fmt.Fprintf(&sb, "<%s>%s</%s>\n", name, inv.Params[name], name)
	}

	fmt.Fprintf(&sb, "</%s>", inv.Name)
	return sb.String()
}
