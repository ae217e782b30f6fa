package agent

import (
	"fmt"
	"strings"
)

// BuildSystemPrompt assembles the system turn content: role framing, the
// decision grammar with per-tool documentation, and a snapshot of the
// current workspace and todo list. The agent rebuilds it each iteration so
// the snapshot stays current.
func BuildSystemPrompt(registry *Registry, tc *ToolContext) string {
	var sb strings.Builder
	sb.WriteString("You are a coding agent. You work inside an isolated in-memory workspace ")
	sb.WriteString("using only the tools documented below. Plan with the todo tools on ")
	sb.WriteString("multi-step tasks and mark items done as you go.\n\n")

	sb.WriteString(registry.ProtocolDocs())

	sb.WriteString("\n## Current workspace\n")
	entries := tc.Workspace().List("")
	if len(entries) == 0 {
		sb.WriteString("(empty)\n")
	} else {
		for _, e := range entries {
			fmt.Fprintf(&sb, "- %s (%d bytes)\n", e.Path, e.Size)
		}
	}

	if tc.Projects != nil {
		fmt.Fprintf(&sb, "\nActive project: %s\n", tc.Projects.Current())
	}

	sb.WriteString("\n## Todo list\n")
	sb.WriteString(tc.Todos.Render())
	sb.WriteString("\n")

	return sb.String()
}
