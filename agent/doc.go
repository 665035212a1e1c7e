// Package agent implements an autonomous task loop that pairs a large
// language model with a small set of developer tools.
//
// A Task describes one unit of work: instructions, a working directory,
// and policy flags. The Loop drives it through a fixed cycle: render the
// conversation, request a completion, parse exactly one tool invocation
// from the text, gate it through the approval policy, execute it against
// the workspace, append the result, and repeat until the model calls
// attempt_completion, a fatal error occurs, or the turn budget runs out.
//
// Tool calls use an XML-style text convention rather than native function
// calling, which keeps the loop portable across backends. The tool table
// in tools.go is the single source of truth: the system prompt is
// generated from it, the parser validates against it, and the executor
// dispatches through it.
//
// # Architecture
//
//   - Loop: the driver holding conversation state, dispatching tools,
//     emitting events, and enforcing budgets.
//   - Workspace: abstraction for where tools run; LocalWorkspace confines
//     all paths to one directory tree.
//   - Gate: the approval policy deciding which invocations run
//     unattended, which require confirmation, and which are refused.
//   - ApprovalProvider: the pluggable user-interaction channel (terminal
//     for the CLI, scripted fakes in tests).
//   - EventEmitter: typed event stream for host application integration.
//
// # Quick Start
//
//	task := agent.Task{
//	    Instructions: "Create a hello.py file",
//	    WorkingDir:   "/path/to/project",
//	    Auto:         true,
//	}
//	result, err := agent.PerformTask(ctx, task)
package agent
