package agent

import "fmt"

// Per-tool output ceilings in characters. Command and search output can be
// arbitrarily large; file reads get the most headroom.
var toolOutputLimits = map[string]int{
	"read_file":       50000,
	"execute_command": 30000,
	"search_files":    20000,
	"list_files":      20000,
}

const defaultOutputLimit = 30000

// TruncateOutput bounds tool output before it enters the conversation,
// keeping the head and tail and replacing the middle with a marker. The
// model is told how much was removed so it can re-run the tool with
// narrower parameters.
func TruncateOutput(output, toolName string) string {
	limit, ok := toolOutputLimits[toolName]
	if !ok {
		limit = defaultOutputLimit
	}
	if len(output) <= limit {
		return output
	}

	half := limit / 2
	removed := len(output) - limit
	return output[:half] +
		fmt.Sprintf("\n\n[output truncated: %d characters removed from the middle; re-run the tool with more targeted parameters to see specific parts]\n\n", removed) +
		output[len(output)-half:]
}
