package agent

import (
	"fmt"
	"time"

	"github.com/taskloop/taskloop/llm"
)

// TurnKind discriminates between turn types.
type TurnKind string

const (
	TurnUser       TurnKind = "user"
	TurnAssistant  TurnKind = "assistant"
	TurnToolResult TurnKind = "tool_result"
)

// Turn is one entry in the conversation history. Turns are append-only and
// never mutated once appended.
type Turn struct {
	Kind      TurnKind
	Timestamp time.Time
	Content   string
	// Summary labels a tool-result turn (e.g. "read_file 'main.go'").
	Summary string
	// Image carries the binary payload of a read_image result.
	Image *llm.ImageAttachment
}

// NewUserTurn creates a user turn.
func NewUserTurn(content string) Turn {
	return Turn{Kind: TurnUser, Timestamp: time.Now(), Content: content}
}

// NewAssistantTurn creates an assistant turn holding the raw completion.
func NewAssistantTurn(content string) Turn {
	return Turn{Kind: TurnAssistant, Timestamp: time.Now(), Content: content}
}

// NewToolResultTurn creates a turn from an executed tool result.
func NewToolResultTurn(result ToolResult) Turn {
	return Turn{
		Kind:      TurnToolResult,
		Timestamp: time.Now(),
		Summary:   result.Summary,
		Content:   result.Text,
		Image:     result.Image,
	}
}

// NewCorrectionTurn creates a tool-result-shaped turn carrying a corrective
// message (parse failures, approval rejections, repeat warnings).
func NewCorrectionTurn(summary, message string) Turn {
	return Turn{Kind: TurnToolResult, Timestamp: time.Now(), Summary: summary, Content: message}
}

// Conversation is the ordered, append-only history for one task. It is
// owned by the loop driver; nothing mutates it from outside.
type Conversation struct {
	system string
	turns  []Turn
}

// NewConversation creates a conversation opening with the given system
// prompt.
func NewConversation(system string) *Conversation {
	return &Conversation{system: system}
}

// Append adds a turn to the history.
func (c *Conversation) Append(turn Turn) {
	c.turns = append(c.turns, turn)
}

// Turns returns a copy of the history.
func (c *Conversation) Turns() []Turn {
	out := make([]Turn, len(c.turns))
	copy(out, c.turns)
	return out
}

// Len returns the number of turns.
func (c *Conversation) Len() int { return len(c.turns) }

// AssistantTurns counts the assistant turns, which is the loop's turn
// budget unit.
func (c *Conversation) AssistantTurns() int {
	n := 0
	for _, t := range c.turns {
		if t.Kind == TurnAssistant {
			n++
		}
	}
	return n
}

// Render produces the backend request messages: the system prompt first,
// then the history in order. Tool-result turns are rendered as user
// messages labeled with their summary, which is how the text protocol
// feeds results back to the model.
func (c *Conversation) Render() []llm.Message {
	messages := make([]llm.Message, 0, len(c.turns)+1)
	messages = append(messages, llm.SystemMessage(c.system))

	for _, turn := range c.turns {
		switch turn.Kind {
		case TurnUser:
			messages = append(messages, llm.UserMessage(turn.Content))
		case TurnAssistant:
			messages = append(messages, llm.AssistantMessage(turn.Content))
		case TurnToolResult:
			msg := llm.UserMessage(fmt.Sprintf("[%s] Result:\n%s", turn.Summary, turn.Content))
			if turn.Image != nil {
				msg.Images = append(msg.Images, *turn.Image)
			}
			messages = append(messages, msg)
		}
	}
	return messages
}
