package agent

import "fmt"

// ConfigError reports an invalid task configuration. Always fatal, raised
// before the loop starts.
type ConfigError struct {
	Message string
}

func (e *ConfigError) Error() string {
	return "config: " + e.Message
}

// ParseError reports a malformed tool invocation in a model completion.
// Recoverable: the driver feeds a corrective message back to the model, up
// to a bounded retry count.
type ParseError struct {
	Message string
	Raw     string // offending completion text, kept for events
}

func (e *ParseError) Error() string {
	return "parse: " + e.Message
}

// ToolErrorKind classifies tool execution failures.
type ToolErrorKind string

const (
	ToolNotFound   ToolErrorKind = "not_found"
	ToolPermission ToolErrorKind = "permission"
	ToolIO         ToolErrorKind = "io"
	ToolExecFailed ToolErrorKind = "exec_failed"
)

// ToolError reports a failed tool execution. Never fatal to the loop: it is
// rendered into a tool-result turn so the model can self-correct.
type ToolError struct {
	Kind ToolErrorKind
	Tool string
	Path string
	Err  error
}

func (e *ToolError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s (%s): %s: %v", e.Tool, e.Kind, e.Path, e.Err)
	}
	return fmt.Sprintf("%s (%s): %v", e.Tool, e.Kind, e.Err)
}

func (e *ToolError) Unwrap() error {
	return e.Err
}

// BudgetError reports that the turn ceiling was reached. Fatal.
type BudgetError struct {
	Turns int
}

func (e *BudgetError) Error() string {
	return fmt.Sprintf("turn budget exceeded after %d turns", e.Turns)
}
