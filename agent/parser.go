package agent

import (
	"fmt"
	"regexp"
	"strings"
)

// Invocation is a parsed tool request from one model completion.
type Invocation struct {
	Name     string
	Params   map[string]string
	Raw      string // the source text span of the invocation
	Thinking string // leading reasoning content; logged, never executed
}

var (
	thinkingRe = regexp.MustCompile(`(?s)<thinking>(.*?)</thinking>`)
	tagOpenRe  = regexp.MustCompile(`<([a-z_][a-z0-9_]*)>`)
)

// ParseInvocation extracts exactly one tool invocation from a model
// completion. The calling convention is a tool-name tag pair wrapping one
// tag pair per parameter:
//
//	<write_to_file>
//	<path>hello.txt</path>
//	<content>hi</content>
//	</write_to_file>
//
// A leading <thinking> block is stripped and retained on the result.
// Zero invocations, an unrecognized tool name, a missing required
// parameter, an unclosed block, or more than one invocation all fail with
// a ParseError; the parser never guesses.
func ParseInvocation(content string) (*Invocation, error) {
	thinking := ""
	body := content
	if m := thinkingRe.FindStringSubmatchIndex(content); m != nil {
		thinking = strings.TrimSpace(content[m[2]:m[3]])
		body = content[:m[0]] + content[m[1]:]
	}

	name, inner, raw, rest, err := findInvocation(body)
	if err != nil {
		return nil, err
	}

	// A second well-formed invocation after the first is a malformed turn.
	if n2, _, _, _, err2 := findInvocation(rest); err2 == nil {
		return nil, &ParseError{
			Message: fmt.Sprintf("multiple tool invocations in one response (%s, then %s); emit exactly one", name, n2),
			Raw:     content,
		}
	}

	spec, ok := LookupTool(name)
	if !ok {
		// findInvocation only returns known tools; kept as a guard.
		return nil, &ParseError{Message: fmt.Sprintf("unrecognized tool %q", name), Raw: content}
	}

	params, err := parseParams(name, inner)
	if err != nil {
		return nil, err
	}

	for _, required := range spec.requiredParams() {
		if _, present := params[required]; !present {
			return nil, &ParseError{
				Message: fmt.Sprintf("tool %s is missing required parameter %q", name, required),
				Raw:     content,
			}
		}
	}

	return &Invocation{Name: name, Params: params, Raw: raw, Thinking: thinking}, nil
}

// findInvocation locates the earliest well-formed invocation of a
// recognized tool and returns its name, inner content, raw span, and the
// text following it.
func findInvocation(body string) (name, inner, raw, rest string, err error) {
	earliest := -1
	for _, spec := range toolTable {
		open := "<" + spec.Name + ">"
		idx := strings.Index(body, open)
		if idx < 0 {
			continue
		}
		if earliest < 0 || idx < earliest {
			earliest = idx
			name = spec.Name
		}
	}

	if earliest < 0 {
		return "", "", "", "", diagnoseMissing(body)
	}

	open := "<" + name + ">"
	closeTag := "</" + name + ">"
	innerStart := earliest + len(open)
	closeIdx := strings.Index(body[innerStart:], closeTag)
	if closeIdx < 0 {
		return "", "", "", "", &ParseError{
			Message: fmt.Sprintf("unclosed tool block: <%s> has no matching </%s>", name, name),
			Raw:     body,
		}
	}

	inner = body[innerStart : innerStart+closeIdx]
	rawEnd := innerStart + closeIdx + len(closeTag)
	return name, inner, body[earliest:rawEnd], body[rawEnd:], nil
}

// diagnoseMissing distinguishes an unrecognized tool attempt from a
// response with no tool use at all.
func diagnoseMissing(body string) error {
	for _, m := range tagOpenRe.FindAllStringSubmatch(body, -1) {
		candidate := m[1]
		if candidate == "thinking" {
			continue
		}
		if strings.Contains(body, "</"+candidate+">") {
			return &ParseError{
				Message: fmt.Sprintf("unrecognized tool %q; recognized tools: %s", candidate, strings.Join(ToolNames(), ", ")),
				Raw:     body,
			}
		}
	}
	return &ParseError{Message: "no tool invocation found in response", Raw: body}
}

// parseParams scans the inner content of an invocation for parameter
// blocks. Whitespace between blocks is tolerated; any other stray text,
// an unclosed block, or a duplicated parameter is a ParseError.
func parseParams(tool, inner string) (map[string]string, error) {
	params := make(map[string]string)
	rest := inner

	for {
		loc := tagOpenRe.FindStringSubmatchIndex(rest)
		if loc == nil {
			if strings.TrimSpace(rest) != "" {
				return nil, &ParseError{
					Message: fmt.Sprintf("tool %s: unexpected text outside parameter blocks: %q", tool, strings.TrimSpace(rest)),
					Raw:     inner,
				}
			}
			return params, nil
		}

		if leading := rest[:loc[0]]; strings.TrimSpace(leading) != "" {
			return nil, &ParseError{
				Message: fmt.Sprintf("tool %s: unexpected text before parameter block: %q", tool, strings.TrimSpace(leading)),
				Raw:     inner,
			}
		}

		name := rest[loc[2]:loc[3]]
		closeTag := "</" + name + ">"
		valueStart := loc[1]
		closeIdx := strings.Index(rest[valueStart:], closeTag)
		if closeIdx < 0 {
			return nil, &ParseError{
				Message: fmt.Sprintf("tool %s: unclosed parameter block <%s>", tool, name),
				Raw:     inner,
			}
		}

		if _, dup := params[name]; dup {
			return nil, &ParseError{
				Message: fmt.Sprintf("tool %s: duplicate parameter %q", tool, name),
				Raw:     inner,
			}
		}
		params[name] = strings.TrimSpace(rest[valueStart : valueStart+closeIdx])
		rest = rest[valueStart+closeIdx+len(closeTag):]
	}
}
