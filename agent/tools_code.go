package agent

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// resultRounding keeps elapsed times in tool output readable.
const resultRounding = time.Millisecond

// CodeTools returns the sandboxed code execution tool.
func CodeTools() []Tool {
	return []Tool{
		&funcTool{
			name:        "run_code",
			description: "Execute a JavaScript snippet in an isolated sandbox and return its console output.",
			params: []ParameterSpec{
				{Name: "code", Type: "string", Required: true, Description: "JavaScript source to execute."},
			},
			run: runCode,
		},
	}
}

func runCode(ctx context.Context, args map[string]interface{}, tc *ToolContext) ToolResult {
	source, ok := GetStringArg(args, "code")
	if !ok || source == "" {
		return Fail("run_code requires a code argument")
	}

	result, err := tc.Sandbox.Run(ctx, source)
	elapsed := fmt.Sprintf("[%s]", result.Elapsed.Round(resultRounding))
	if err != nil {
		var sb strings.Builder
		sb.WriteString("Execution failed ")
		sb.WriteString(elapsed)
		sb.WriteString(": ")
		sb.WriteString(result.Error)
		if result.Output != "" {
			sb.WriteString("\nPartial output:\n")
			sb.WriteString(result.Output)
		}
		return ToolResult{Success: false, Output: result.Output, Error: sb.String()}
	}

	if result.Output == "" {
		return Ok("Execution finished " + elapsed + " with no output.")
	}
	return Ok(result.Output + "\n" + elapsed)
}
