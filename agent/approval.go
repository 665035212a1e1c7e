package agent

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strings"
)

// Decision is the outcome of the approval gate for one invocation.
type Decision int

const (
	DecisionApprove Decision = iota
	DecisionAsk
	DecisionReject
)

func (d Decision) String() string {
	switch d {
	case DecisionApprove:
		return "approve"
	case DecisionAsk:
		return "ask"
	default:
		return "reject"
	}
}

// ApprovalProvider is the pluggable user-interaction capability. The loop
// never reads input directly, so tests supply a scripted provider.
type ApprovalProvider interface {
	// Confirm asks a yes/no question and returns the user's choice.
	Confirm(prompt string) (bool, error)
	// Ask poses a free-text question and returns the user's answer.
	Ask(question string) (string, error)
}

// dangerousCommandPatterns flags commands that always require explicit
// confirmation, regardless of automation flags.
var dangerousCommandPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\brm\s+(-[^\s]*\s+)*-?[rf]*[rf]\S*\s+/(\s|$)`),
	regexp.MustCompile(`\brm\s+-(rf|fr)\b`),
	regexp.MustCompile(`\bdd\s+if=`),
	regexp.MustCompile(`:\(\)\s*\{\s*:\|:\s*&\s*\}\s*;`),
	regexp.MustCompile(`\b(mkfs|mkfs\.\w+)\b`),
	regexp.MustCompile(`>\s*/dev/(sd|nvme|vd|hd|mmcblk)`),
	regexp.MustCompile(`\b(shutdown|reboot|poweroff|halt)\b`),
	regexp.MustCompile(`\bchmod\s+-R\s+\d+\s+/\s*$`),
	regexp.MustCompile(`\bwipefs\b.*-a\b`),
}

// IsDangerousCommand reports whether a command matches the always-confirm
// pattern list.
func IsDangerousCommand(command string) bool {
	for _, re := range dangerousCommandPatterns {
		if re.MatchString(command) {
			return true
		}
	}
	return false
}

// Gate decides, per invocation, whether execution may proceed without the
// user, must be confirmed, or is refused outright.
type Gate struct {
	// Auto suppresses confirmation for general actions (file writes).
	Auto bool
	// ApproveAllCommands suppresses confirmation for execute_command.
	// Command approval is independent of Auto.
	ApproveAllCommands bool
}

// Decide resolves the approval policy for one invocation.
func (g Gate) Decide(name string, params map[string]string) Decision {
	spec, ok := LookupTool(name)
	if !ok {
		return DecisionReject
	}
	if spec.ReadOnly {
		return DecisionApprove
	}

	switch name {
	case "execute_command":
		if IsDangerousCommand(params["command"]) {
			// Never auto-approved, whatever the flags say.
			return DecisionAsk
		}
		if g.ApproveAllCommands {
			return DecisionApprove
		}
		return DecisionAsk
	case "write_to_file", "replace_in_file":
		if g.Auto {
			return DecisionApprove
		}
		return DecisionAsk
	case "ask_followup_question":
		if g.Auto {
			// Documented as unavailable in automation mode.
			return DecisionReject
		}
		return DecisionAsk
	case "attempt_completion":
		return DecisionApprove
	default:
		return DecisionAsk
	}
}

// TerminalApproval is the interactive ApprovalProvider used by the CLI.
type TerminalApproval struct {
	in  *bufio.Reader
	out io.Writer
}

// NewTerminalApproval creates a provider reading from in and prompting on out.
func NewTerminalApproval(in io.Reader, out io.Writer) *TerminalApproval {
	return &TerminalApproval{in: bufio.NewReader(in), out: out}
}

func (t *TerminalApproval) Confirm(prompt string) (bool, error) {
	fmt.Fprintf(t.out, "%s\nType 'yes' or 'y' to approve: ", prompt)
	line, err := t.in.ReadString('\n')
	if err != nil && line == "" {
		return false, err
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "yes" || answer == "y", nil
}

func (t *TerminalApproval) Ask(question string) (string, error) {
	fmt.Fprintf(t.out, "%s\n> ", question)
	line, err := t.in.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
