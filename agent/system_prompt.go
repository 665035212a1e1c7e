package agent

import (
	"fmt"
	"strings"
	"time"
)

// maxEnvironmentFiles bounds the recursive listing embedded in the task
// message so a large working directory cannot swamp the context.
const maxEnvironmentFiles = 500

// BuildSystemPrompt assembles the system prompt: task framing, the tool
// calling convention, per-tool documentation generated from the tool
// table, the rules, and the environment block. Keeping the documentation
// generated from the same table the parser validates against means the
// prompt and the parser cannot drift apart.
//
// When auto is set, ask_followup_question is omitted entirely: automation
// mode has no user to ask.
func BuildSystemPrompt(ws Workspace, auto bool) string {
	var sb strings.Builder

	sb.WriteString(`You are a skilled software engineer. You accomplish tasks iteratively: in each turn you use exactly one tool, then wait for its result before deciding your next step.

====

TOOL USE

You have access to a set of tools. You use one tool per message and receive the result in the next message. The tool call must be the last thing in your message.

# Tool Use Formatting

Tool use is formatted using XML-style tags. The tool name is enclosed in opening and closing tags, and each parameter is similarly enclosed within its own set of tags:

<tool_name>
<parameter1_name>value1</parameter1_name>
<parameter2_name>value2</parameter2_name>
</tool_name>

For example:

<read_file>
<path>src/main.go</path>
</read_file>

Always adhere to this format to ensure your tool use is parsed correctly. Never include more than one tool call in a message.

You may optionally begin your message with your reasoning wrapped in <thinking></thinking> tags before the tool call.

# Tools

`)

	for _, spec := range toolTable {
		if auto && spec.Name == "ask_followup_question" {
			continue
		}
		sb.WriteString(spec.Doc())
		sb.WriteString("\n\n")
	}

	sb.WriteString(`====

RULES

- All file paths are relative to the working directory. Do not use paths outside it.
- Do not use ~ or $HOME to refer to the home directory.
- When you use write_to_file, always provide the COMPLETE content of the file.
- Before using replace_in_file, read the file first so your SEARCH blocks match exactly.
- A failed command or tool is reported back to you; examine the error and adjust instead of repeating the identical call.
- When the task is complete, use attempt_completion to present the result. Do not end with questions or offers of further assistance.
`)
	if !auto {
		sb.WriteString("- If you need more information from the user, use ask_followup_question sparingly.\n")
	}

	sb.WriteString("\n====\n\n")
	sb.WriteString(environmentBlock(ws))
	return sb.String()
}

// environmentBlock renders the static environment description.
func environmentBlock(ws Workspace) string {
	var sb strings.Builder
	sb.WriteString("ENVIRONMENT\n\n")
	fmt.Fprintf(&sb, "Working directory: %s\n", ws.Root())
	fmt.Fprintf(&sb, "Platform: %s\n", ws.Platform())
	fmt.Fprintf(&sb, "Today's date: %s\n", time.Now().Format("2006-01-02"))
	return sb.String()
}

// BuildTaskMessage renders the opening user message: the instructions
// wrapped in a task tag plus a snapshot of the working directory contents.
func BuildTaskMessage(ws Workspace, instructions string) string {
	var sb strings.Builder
	sb.WriteString("<task>\n")
	sb.WriteString(instructions)
	sb.WriteString("\n</task>\n\n")
	sb.WriteString(environmentDetails(ws))
	return sb.String()
}

// environmentDetails lists the working directory files recursively, the
// way the model sees the workspace at task start.
func environmentDetails(ws Workspace) string {
	var sb strings.Builder
	sb.WriteString("<environment_details>\n")
	fmt.Fprintf(&sb, "Current Working Directory: %s\n\n", ws.Root())
	sb.WriteString("# Working Directory Files (Recursive)\n")

	files, err := ws.ListFiles(".", true)
	switch {
	case err != nil:
		fmt.Fprintf(&sb, "(unable to list files: %v)\n", err)
	case len(files) == 0:
		sb.WriteString("(empty)\n")
	default:
		shown := files
		if len(shown) > maxEnvironmentFiles {
			shown = shown[:maxEnvironmentFiles]
		}
		for _, f := range shown {
			sb.WriteString(f)
			sb.WriteString("\n")
		}
		if len(files) > maxEnvironmentFiles {
			fmt.Fprintf(&sb, "(... %d more files not shown)\n", len(files)-maxEnvironmentFiles)
		}
	}

	sb.WriteString("</environment_details>")
	return sb.String()
}
