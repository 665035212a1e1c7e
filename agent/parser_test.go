package agent

import (
	"errors"
	"strings"
	"testing"
)

func TestParseInvocationBasic(t *testing.T) {
	inv, err := ParseInvocation("<read_file>\n<path>main.go</path>\n</read_file>")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inv.Name != "read_file" {
		t.Errorf("name = %q, want read_file", inv.Name)
	}
	if inv.Params["path"] != "main.go" {
		t.Errorf("path = %q, want main.go", inv.Params["path"])
	}
}

func TestParseInvocationWithThinking(t *testing.T) {
	content := "<thinking>\nI should look at the file first.\n</thinking>\n<read_file>\n<path>main.go</path>\n</read_file>"
	inv, err := ParseInvocation(content)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inv.Thinking != "I should look at the file first." {
		t.Errorf("thinking = %q", inv.Thinking)
	}
	if inv.Name != "read_file" {
		t.Errorf("name = %q, want read_file", inv.Name)
	}
}

func TestParseInvocationSurroundingProse(t *testing.T) {
	content := "I'll write the file now.\n\n<write_to_file>\n<path>hello.txt</path>\n<content>Hello, World!</content>\n</write_to_file>\n\nThat should do it."
	inv, err := ParseInvocation(content)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inv.Params["content"] != "Hello, World!" {
		t.Errorf("content = %q", inv.Params["content"])
	}
}

func TestParseInvocationMultilineContent(t *testing.T) {
	body := "package main\n\nfunc main() {\n}"
	content := "<write_to_file>\n<path>main.go</path>\n<content>\n" + body + "\n</content>\n</write_to_file>"
	inv, err := ParseInvocation(content)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inv.Params["content"] != body {
		t.Errorf("content = %q, want %q", inv.Params["content"], body)
	}
}

func TestParseInvocationNoInvocation(t *testing.T) {
	cases := []string{
		"",
		"I am not sure what to do next.",
		"<thinking>only reasoning, no call</thinking>",
	}
	for _, c := range cases {
		if _, err := ParseInvocation(c); !isParseError(err) {
			t.Errorf("ParseInvocation(%q) error = %v, want ParseError", c, err)
		}
	}
}

func TestParseInvocationUnrecognizedTool(t *testing.T) {
	_, err := ParseInvocation("<delete_everything>\n<path>/</path>\n</delete_everything>")
	if !isParseError(err) {
		t.Fatalf("error = %v, want ParseError", err)
	}
	if !strings.Contains(err.Error(), "delete_everything") {
		t.Errorf("error should name the unrecognized tool: %v", err)
	}
}

func TestParseInvocationMultiple(t *testing.T) {
	content := "<read_file>\n<path>a.go</path>\n</read_file>\n<read_file>\n<path>b.go</path>\n</read_file>"
	_, err := ParseInvocation(content)
	if !isParseError(err) {
		t.Fatalf("error = %v, want ParseError", err)
	}
	if !strings.Contains(err.Error(), "multiple") {
		t.Errorf("error should mention multiple invocations: %v", err)
	}
}

func TestParseInvocationUnclosedBlock(t *testing.T) {
	_, err := ParseInvocation("<read_file>\n<path>main.go</path>")
	if !isParseError(err) {
		t.Fatalf("error = %v, want ParseError", err)
	}
}

func TestParseInvocationUnclosedParam(t *testing.T) {
	_, err := ParseInvocation("<read_file>\n<path>main.go\n</read_file>")
	if !isParseError(err) {
		t.Fatalf("error = %v, want ParseError", err)
	}
}

func TestParseInvocationMissingRequiredParam(t *testing.T) {
	_, err := ParseInvocation("<write_to_file>\n<path>x.txt</path>\n</write_to_file>")
	if !isParseError(err) {
		t.Fatalf("error = %v, want ParseError", err)
	}
	if !strings.Contains(err.Error(), "content") {
		t.Errorf("error should name the missing parameter: %v", err)
	}
}

func TestParseInvocationDuplicateParam(t *testing.T) {
	_, err := ParseInvocation("<read_file>\n<path>a.go</path>\n<path>b.go</path>\n</read_file>")
	if !isParseError(err) {
		t.Fatalf("error = %v, want ParseError", err)
	}
}

func TestParseInvocationStrayText(t *testing.T) {
	_, err := ParseInvocation("<read_file>\nplease read\n<path>a.go</path>\n</read_file>")
	if !isParseError(err) {
		t.Fatalf("error = %v, want ParseError", err)
	}
}

func TestParseInvocationOptionalParams(t *testing.T) {
	inv, err := ParseInvocation("<search_files>\n<path>.</path>\n<regex>func main</regex>\n<file_pattern>*.go</file_pattern>\n</search_files>")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inv.Params["file_pattern"] != "*.go" {
		t.Errorf("file_pattern = %q", inv.Params["file_pattern"])
	}

	inv, err = ParseInvocation("<search_files>\n<path>.</path>\n<regex>func main</regex>\n</search_files>")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, present := inv.Params["file_pattern"]; present {
		t.Error("absent optional parameter should not appear in the map")
	}
}

// Rendering an invocation and parsing it back must recover the same name
// and parameters, for every tool in the table.
func TestParseRenderRoundTrip(t *testing.T) {
	for _, spec := range toolTable {
		params := map[string]string{}
		for _, p := range spec.Params {
			params[p.Name] = "value for " + p.Name
		}
		in := &Invocation{Name: spec.Name, Params: params}

		out, err := ParseInvocation(RenderInvocation(in))
		if err != nil {
			t.Errorf("%s: round trip failed: %v", spec.Name, err)
			continue
		}
		if out.Name != in.Name {
			t.Errorf("%s: name = %q", spec.Name, out.Name)
		}
		if len(out.Params) != len(in.Params) {
			t.Errorf("%s: params = %v, want %v", spec.Name, out.Params, in.Params)
		}
		for k, v := range in.Params {
			if out.Params[k] != v {
				t.Errorf("%s: param %s = %q, want %q", spec.Name, k, out.Params[k], v)
			}
		}
	}
}

func isParseError(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}
