package agent

import (
	"strings"
	"testing"

	"github.com/taskloop/taskloop/llm"
)

func TestConversationRenderOrder(t *testing.T) {
	conv := NewConversation("system prompt")
	conv.Append(NewUserTurn("do the task"))
	conv.Append(NewAssistantTurn("<read_file>\n<path>a.go</path>\n</read_file>"))
	conv.Append(NewToolResultTurn(ToolResult{
		Tool:    "read_file",
		Summary: "read_file 'a.go'",
		OK:      true,
		Text:    "package main",
	}))

	messages := conv.Render()
	if len(messages) != 4 {
		t.Fatalf("len = %d, want 4", len(messages))
	}
	if messages[0].Role != llm.RoleSystem || messages[0].Text != "system prompt" {
		t.Errorf("messages[0] = %+v", messages[0])
	}
	if messages[1].Role != llm.RoleUser {
		t.Errorf("messages[1].Role = %s", messages[1].Role)
	}
	if messages[2].Role != llm.RoleAssistant {
		t.Errorf("messages[2].Role = %s", messages[2].Role)
	}
	if messages[3].Role != llm.RoleUser {
		t.Errorf("messages[3].Role = %s, tool results render as user messages", messages[3].Role)
	}
	if !strings.Contains(messages[3].Text, "[read_file 'a.go'] Result:") {
		t.Errorf("messages[3].Text = %q", messages[3].Text)
	}
	if !strings.Contains(messages[3].Text, "package main") {
		t.Errorf("messages[3].Text = %q", messages[3].Text)
	}
}

func TestConversationRenderAttachesImages(t *testing.T) {
	conv := NewConversation("s")
	conv.Append(NewToolResultTurn(ToolResult{
		Tool:    "read_image",
		Summary: "read_image 'x.png'",
		OK:      true,
		Text:    "Read image x.png",
		Image:   &llm.ImageAttachment{Data: []byte{1, 2, 3}, MediaType: "image/png"},
	}))

	messages := conv.Render()
	if len(messages) != 2 {
		t.Fatalf("len = %d", len(messages))
	}
	if len(messages[1].Images) != 1 || messages[1].Images[0].MediaType != "image/png" {
		t.Errorf("images = %+v", messages[1].Images)
	}
}

func TestConversationTurnsReturnsCopy(t *testing.T) {
	conv := NewConversation("s")
	conv.Append(NewUserTurn("one"))

	turns := conv.Turns()
	turns[0].Content = "mutated"

	if conv.Turns()[0].Content != "one" {
		t.Error("Turns must return a copy")
	}
}

func TestConversationAssistantTurns(t *testing.T) {
	conv := NewConversation("s")
	if conv.AssistantTurns() != 0 {
		t.Errorf("AssistantTurns = %d", conv.AssistantTurns())
	}
	conv.Append(NewUserTurn("u"))
	conv.Append(NewAssistantTurn("a1"))
	conv.Append(NewCorrectionTurn("invalid_tool_use", "fix it"))
	conv.Append(NewAssistantTurn("a2"))
	if conv.AssistantTurns() != 2 {
		t.Errorf("AssistantTurns = %d, want 2", conv.AssistantTurns())
	}
}
