package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/loomhq/loom/workspace"
)

// funcTool adapts a plain function into the Tool interface. All built-in
// tools use it.
type funcTool struct {
	name        string
	description string
	params      []ParameterSpec
	run         func(ctx context.Context, args map[string]interface{}, tc *ToolContext) ToolResult
}

func (t *funcTool) Name() string                { return t.name }
func (t *funcTool) Description() string         { return t.description }
func (t *funcTool) Parameters() []ParameterSpec { return t.params }

func (t *funcTool) Execute(ctx context.Context, args map[string]interface{}, tc *ToolContext) ToolResult {
	return t.run(ctx, args, tc)
}

// CoreTools returns every built-in tool: file, code, todo, and project
// management.
func CoreTools() []Tool {
	tools := FileTools()
	tools = append(tools, CodeTools()...)
	tools = append(tools, TodoTools()...)
	tools = append(tools, ProjectTools()...)
	return tools
}

// FileTools returns the workspace file manipulation tools.
func FileTools() []Tool {
	return []Tool{
		&funcTool{
			name:        "write_file",
			description: "Create or overwrite a text file in the workspace.",
			params: []ParameterSpec{
				{Name: "path", Type: "string", Required: true, Description: "Workspace-relative file path."},
				{Name: "content", Type: "string", Required: true, Description: "Full file content."},
			},
			run: writeFile,
		},
		&funcTool{
			name:        "read_file",
			description: "Read a file from the workspace. Binary files are returned as data URLs.",
			params: []ParameterSpec{
				{Name: "path", Type: "string", Required: true, Description: "Workspace-relative file path."},
			},
			run: readFile,
		},
		&funcTool{
			name:        "delete_file",
			description: "Delete a file from the workspace.",
			params: []ParameterSpec{
				{Name: "path", Type: "string", Required: true, Description: "Workspace-relative file path."},
			},
			run: deleteFile,
		},
		&funcTool{
			name:        "list_files",
			description: "List workspace files with their sizes, optionally under a directory.",
			params: []ParameterSpec{
				{Name: "dir", Type: "string", Required: false, Description: "Directory prefix to list. Defaults to the whole workspace."},
			},
			run: listFiles,
		},
	}
}

func writeFile(_ context.Context, args map[string]interface{}, tc *ToolContext) ToolResult {
	path, ok := GetStringArg(args, "path")
	if !ok || path == "" {
		return Fail("write_file requires a path argument")
	}
	content, ok := GetStringArg(args, "content")
	if !ok {
		return Fail("write_file requires a content argument")
	}
	if err := tc.Workspace().Write(path, content); err != nil {
		var quota *workspace.QuotaExceededError
		if errors.As(err, &quota) {
			return Fail("cannot write %s: %v", path, err)
		}
		return Fail("%v", err)
	}
	normalized, _ := workspace.Normalize(path)
	return Ok(fmt.Sprintf("Wrote %d bytes to %s", len(content), normalized))
}

func readFile(_ context.Context, args map[string]interface{}, tc *ToolContext) ToolResult {
	path, ok := GetStringArg(args, "path")
	if !ok || path == "" {
		return Fail("read_file requires a path argument")
	}
	content, err := tc.Workspace().Read(path)
	if err != nil {
		return Fail("%v", err)
	}
	return Ok(content)
}

func deleteFile(_ context.Context, args map[string]interface{}, tc *ToolContext) ToolResult {
	path, ok := GetStringArg(args, "path")
	if !ok || path == "" {
		return Fail("delete_file requires a path argument")
	}
	if err := tc.Workspace().Delete(path); err != nil {
		return Fail("%v", err)
	}
	normalized, _ := workspace.Normalize(path)
	return Ok("Deleted " + normalized)
}

func listFiles(_ context.Context, args map[string]interface{}, tc *ToolContext) ToolResult {
	dir, _ := GetStringArg(args, "dir")
	entries := tc.Workspace().List(dir)
	if len(entries) == 0 {
		return Ok("No files.")
	}
	var sb strings.Builder
	for _, e := range entries {
		kind := ""
		if e.IsBinary {
			kind = " (binary)"
		}
		fmt.Fprintf(&sb, "%s (%d bytes)%s\n", e.Path, e.Size, kind)
	}
	return Ok(strings.TrimRight(sb.String(), "\n"))
}
