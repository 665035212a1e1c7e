package agent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/taskloop/taskloop/llm"
)

// Loop drives one task through the agent cycle: render the conversation,
// call the backend, parse the single tool invocation, gate it, execute it,
// append the result, and repeat until completion, a fatal error, or the
// turn budget.
type Loop struct {
	id       string
	task     Task
	client   llm.Client
	ws       Workspace
	approval ApprovalProvider
	gate     Gate
	emitter  *EventEmitter
	retry    llm.RetryPolicy

	conv       *Conversation
	signatures []string
}

// Option configures a Loop.
type Option func(*Loop)

// WithClient sets the backend client (a scripted fake in tests).
func WithClient(c llm.Client) Option {
	return func(l *Loop) { l.client = c }
}

// WithWorkspace sets the workspace the tools operate on.
func WithWorkspace(ws Workspace) Option {
	return func(l *Loop) { l.ws = ws }
}

// WithApproval sets the approval provider. A nil provider means every
// confirmation-requiring action is rejected.
func WithApproval(p ApprovalProvider) Option {
	return func(l *Loop) { l.approval = p }
}

// WithRetryPolicy overrides the backend retry policy.
func WithRetryPolicy(p llm.RetryPolicy) Option {
	return func(l *Loop) { l.retry = p }
}

// New creates a Loop for the task. Without WithClient, a gollm-backed
// client is built from the environment; a missing API key fails here,
// before the loop starts.
func New(task Task, opts ...Option) (*Loop, error) {
	task = task.withDefaults()
	if err := task.validate(); err != nil {
		return nil, err
	}

	l := &Loop{
		id:    uuid.New().String(),
		task:  task,
		gate:  Gate{Auto: task.Auto, ApproveAllCommands: task.ApproveAllCommands},
		retry: llm.DefaultRetryPolicy(),
	}
	for _, opt := range opts {
		opt(l)
	}

	if l.ws == nil {
		ws, err := NewLocalWorkspace(task.WorkingDir)
		if err != nil {
			return nil, &ConfigError{Message: fmt.Sprintf("invalid working directory: %v", err)}
		}
		l.ws = ws
	}

	if l.client == nil {
		key, err := llm.APIKeyFromEnv(task.Provider)
		if err != nil {
			return nil, err
		}
		client, err := llm.NewGollmClient(task.Provider, task.Model, key)
		if err != nil {
			return nil, err
		}
		l.client = client
	}

	l.emitter = NewEventEmitter(l.id, 256)
	l.conv = NewConversation(BuildSystemPrompt(l.ws, task.Auto))
	return l, nil
}

// ID returns the task identifier.
func (l *Loop) ID() string { return l.id }

// Events returns the loop's event channel.
func (l *Loop) Events() <-chan Event { return l.emitter.Events() }

// History returns a copy of the conversation so far.
func (l *Loop) History() []Turn { return l.conv.Turns() }

// Run executes the task to completion and returns the final result text
// from attempt_completion. Parse failures, tool failures, and approval
// rejections are fed back to the model; only configuration, backend
// exhaustion, and budget errors are fatal.
func (l *Loop) Run(ctx context.Context) (string, error) {
	defer l.emitter.Close()

	l.emitter.Emit(EventTaskStart, map[string]interface{}{
		"model":       l.task.Model,
		"working_dir": l.ws.Root(),
	})

	l.conv.Append(NewUserTurn(BuildTaskMessage(l.ws, l.task.Instructions)))

	parseFailures := 0
	for {
		if l.conv.AssistantTurns() >= l.task.MaxTurns {
			return "", l.fail(&BudgetError{Turns: l.task.MaxTurns})
		}
		if err := ctx.Err(); err != nil {
			return "", l.fail(err)
		}

		resp, err := l.complete(ctx)
		if err != nil {
			return "", l.fail(fmt.Errorf("backend call failed: %w", err))
		}
		l.conv.Append(NewAssistantTurn(resp.Text))
		l.emitter.Emit(EventModelResponse, map[string]interface{}{
			"text":  resp.Text,
			"usage": resp.Usage,
		})

		inv, perr := ParseInvocation(resp.Text)
		if perr != nil {
			parseFailures++
			l.emitter.Emit(EventParseRetry, map[string]interface{}{
				"error":   perr.Error(),
				"attempt": parseFailures,
			})
			if parseFailures > l.task.MaxParseRetries {
				return "", l.fail(fmt.Errorf("model kept producing malformed tool calls: %w", perr))
			}
			l.conv.Append(NewCorrectionTurn("invalid_tool_use", correctionFor(perr)))
			continue
		}
		parseFailures = 0

		if inv.Thinking != "" {
			l.emitter.Emit(EventThinking, map[string]interface{}{"text": inv.Thinking})
		}

		switch inv.Name {
		case "attempt_completion":
			result, done := l.handleCompletion(inv)
			if done {
				l.emitter.Emit(EventTaskEnd, map[string]interface{}{"result": result})
				return result, nil
			}
		case "ask_followup_question":
			l.handleFollowup(inv)
		default:
			l.handleTool(ctx, inv)
		}
	}
}

// complete calls the backend under the retry policy.
func (l *Loop) complete(ctx context.Context) (*llm.Response, error) {
	req := llm.Request{
		Model:    l.task.Model,
		Provider: l.task.Provider,
		Messages: l.conv.Render(),
	}
	policy := l.retry
	policy.OnRetry = func(err error, attempt int, delay time.Duration) {
		l.emitter.Emit(EventBackendRetry, map[string]interface{}{
			"error":   err.Error(),
			"attempt": attempt,
			"delay":   delay.String(),
		})
	}
	return llm.Retry(ctx, policy, func(ctx context.Context) (*llm.Response, error) {
		return l.client.Complete(ctx, req)
	})
}

// handleCompletion processes attempt_completion. In interactive mode the
// user may decline and supply feedback, which continues the loop.
func (l *Loop) handleCompletion(inv *Invocation) (string, bool) {
	result := inv.Params["result"]
	if l.task.Auto || l.approval == nil {
		return result, true
	}

	satisfied, err := l.approval.Confirm(fmt.Sprintf("The agent reports the task complete:\n\n%s\n\nIs this result satisfactory?", result))
	if err != nil || satisfied {
		return result, true
	}

	feedback, err := l.approval.Ask("What should be changed?")
	if err != nil || feedback == "" {
		return result, true
	}
	l.conv.Append(NewCorrectionTurn("attempt_completion", "The user was not satisfied with the result. Feedback:\n"+feedback))
	return "", false
}

// handleFollowup surfaces the model's question to the user; the answer
// becomes the next turn. In automation mode the tool is unavailable.
func (l *Loop) handleFollowup(inv *Invocation) {
	question := inv.Params["question"]
	summary := "ask_followup_question"

	if l.task.Auto || l.approval == nil {
		l.conv.Append(NewCorrectionTurn(summary, "ask_followup_question is not available in automation mode; proceed using your best judgment"))
		return
	}

	l.emitter.Emit(EventFollowupAsked, map[string]interface{}{"question": question})
	answer, err := l.approval.Ask(question)
	if err != nil || answer == "" {
		answer = "(no answer provided)"
	}
	l.conv.Append(NewCorrectionTurn(summary, "The user replied:\n"+answer))
}

// handleTool gates and executes one filesystem or command invocation.
func (l *Loop) handleTool(ctx context.Context, inv *Invocation) {
	summary := inv.Name
	if path, ok := inv.Params["path"]; ok {
		summary = fmt.Sprintf("%s '%s'", inv.Name, path)
	} else if command, ok := inv.Params["command"]; ok {
		summary = fmt.Sprintf("%s '%s'", inv.Name, command)
	}

	switch l.gate.Decide(inv.Name, inv.Params) {
	case DecisionReject:
		l.emitter.Emit(EventApprovalDenied, map[string]interface{}{"tool": inv.Name})
		l.conv.Append(NewCorrectionTurn(summary, "This action was rejected by policy"))
		return
	case DecisionAsk:
		if l.approval == nil {
			l.emitter.Emit(EventApprovalDenied, map[string]interface{}{"tool": inv.Name})
			l.conv.Append(NewCorrectionTurn(summary, "This action requires approval, but no approval channel is available; it was not executed"))
			return
		}
		l.emitter.Emit(EventApprovalAsked, map[string]interface{}{"tool": inv.Name, "summary": summary})
		approved, err := l.approval.Confirm("Approval required: " + summary)
		if err != nil || !approved {
			l.emitter.Emit(EventApprovalDenied, map[string]interface{}{"tool": inv.Name})
			l.conv.Append(NewCorrectionTurn(summary, "The user declined to approve this action; it was not executed"))
			return
		}
	}

	l.emitter.Emit(EventToolStart, map[string]interface{}{"tool": inv.Name, "summary": summary})
	result := ExecuteTool(ctx, inv, l.ws, l.task.CommandTimeout)
	l.emitter.Emit(EventToolEnd, map[string]interface{}{
		"tool": inv.Name,
		"ok":   result.OK,
	})
	l.conv.Append(NewToolResultTurn(result))

	l.signatures = append(l.signatures, invocationSignature(inv))
	if l.task.RepeatWindow > 0 && DetectRepeat(l.signatures, l.task.RepeatWindow) {
		warning := fmt.Sprintf("Your last %d tool calls repeat the same pattern. Re-read the most recent results and try a different approach.", l.task.RepeatWindow)
		l.emitter.Emit(EventRepeatWarning, map[string]interface{}{"window": l.task.RepeatWindow})
		l.conv.Append(NewCorrectionTurn("repeat_detected", warning))
	}
}

// fail emits the error and closes out the task.
func (l *Loop) fail(err error) error {
	l.emitter.Emit(EventError, map[string]interface{}{"error": err.Error()})
	l.emitter.Emit(EventTaskEnd, map[string]interface{}{"failed": true})
	return err
}

// correctionFor renders a parse failure into the corrective message sent
// back to the model.
func correctionFor(err error) string {
	message := err.Error()
	var pe *ParseError
	if errors.As(err, &pe) {
		message = pe.Message
	}
	return fmt.Sprintf("Your response could not be parsed as a tool call: %s.\n\nRespond with exactly one tool call in the documented format:\n<tool_name>\n<parameter>value</parameter>\n</tool_name>", message)
}

// PerformTask is the programmatic entry point: it builds a Loop for the
// task and runs it to completion, returning the final result text.
func PerformTask(ctx context.Context, task Task, opts ...Option) (string, error) {
	loop, err := New(task, opts...)
	if err != nil {
		return "", err
	}
	// Drain events so emission never stalls on an unread channel.
	go func() {
		for range loop.Events() {
		}
	}()
	return loop.Run(ctx)
}
