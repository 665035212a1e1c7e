package agent

import (
	"strings"
	"time"

	"github.com/taskloop/taskloop/llm"
)

// Task is the top-level unit of work: one set of instructions executed
// against one working directory. Immutable after creation.
type Task struct {
	// Instructions is the user's task description.
	Instructions string
	// WorkingDir is the directory all relative tool paths resolve against.
	// Empty means the current directory.
	WorkingDir string
	// Model is the model identifier. Empty means llm.DefaultModel.
	Model string
	// Provider overrides the provider inferred from the model id.
	Provider string

	// Auto suppresses interactive prompts for general actions and removes
	// ask_followup_question from the prompt. Command approval is governed
	// separately by ApproveAllCommands.
	Auto bool
	// ApproveAllCommands auto-approves execute_command (dangerous commands
	// still require confirmation).
	ApproveAllCommands bool

	// MaxTurns is the assistant-turn ceiling; exceeding it fails the task.
	MaxTurns int
	// CommandTimeout bounds each execute_command subprocess.
	CommandTimeout time.Duration
	// MaxParseRetries bounds consecutive malformed completions before the
	// task fails.
	MaxParseRetries int
	// RepeatWindow configures repeat detection: when the last RepeatWindow
	// tool calls form a short cycle, a corrective message is injected.
	// Zero means the default; negative disables detection.
	RepeatWindow int
}

const (
	defaultMaxTurns        = 40
	defaultCommandTimeout  = 60 * time.Second
	defaultMaxParseRetries = 3
	defaultRepeatWindow    = 6
)

// withDefaults fills zero-valued fields.
func (t Task) withDefaults() Task {
	if t.Model == "" {
		t.Model = llm.DefaultModel
	}
	if t.Provider == "" {
		t.Provider = llm.InferProvider(t.Model)
	}
	if t.MaxTurns == 0 {
		t.MaxTurns = defaultMaxTurns
	}
	if t.CommandTimeout == 0 {
		t.CommandTimeout = defaultCommandTimeout
	}
	if t.MaxParseRetries == 0 {
		t.MaxParseRetries = defaultMaxParseRetries
	}
	if t.RepeatWindow == 0 {
		t.RepeatWindow = defaultRepeatWindow
	}
	return t
}

// validate rejects unusable configurations before any work starts.
func (t Task) validate() error {
	if strings.TrimSpace(t.Instructions) == "" {
		return &ConfigError{Message: "instructions must not be empty"}
	}
	if t.MaxTurns < 0 {
		return &ConfigError{Message: "max turns must not be negative"}
	}
	return nil
}
