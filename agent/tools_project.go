package agent

import (
	"context"
	"strings"
)

// ProjectTools returns the project switching tool.
func ProjectTools() []Tool {
	return []Tool{
		&funcTool{
			name:        "switch_project",
			description: "Switch the active project, swapping in that project's workspace. Creates the project if it does not exist.",
			params: []ParameterSpec{
				{Name: "name", Type: "string", Required: true, Description: "Project name."},
			},
			run: switchProject,
		},
	}
}

func switchProject(_ context.Context, args map[string]interface{}, tc *ToolContext) ToolResult {
	name, ok := GetStringArg(args, "name")
	if !ok || strings.TrimSpace(name) == "" {
		return Fail("switch_project requires a name argument")
	}
	if tc.Projects == nil {
		return Fail("no project switcher is configured for this conversation")
	}
	ws, err := tc.Projects.Switch(name)
	if err != nil {
		return Fail("cannot switch to project %s: %v", name, err)
	}
	tc.SetWorkspace(ws)
	return Ok("Switched to project " + name)
}
