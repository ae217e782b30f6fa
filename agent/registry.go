package agent

import (
	"context"
	"fmt"
	"strings"
)

// ParameterSpec documents one tool argument for the protocol prompt.
type ParameterSpec struct {
	Name        string
	Type        string
	Required    bool
	Description string
}

// ToolResult is the uniform outcome of one tool execution. Tools never
// return Go errors to the loop; failures are data the model reasons about.
type ToolResult struct {
	Success bool   `json:"success"`
	Output  string `json:"output,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Ok builds a successful ToolResult.
func Ok(output string) ToolResult {
	return ToolResult{Success: true, Output: output}
}

// Fail builds a failed ToolResult.
func Fail(format string, args ...interface{}) ToolResult {
	return ToolResult{Success: false, Error: fmt.Sprintf(format, args...)}
}

// Tool is one capability the model can invoke through a Decision Document.
type Tool interface {
	Name() string
	Description() string
	Parameters() []ParameterSpec
	Execute(ctx context.Context, args map[string]interface{}, tc *ToolContext) ToolResult
}

// Registry maps tool names to implementations. It is immutable after
// construction.
type Registry struct {
	tools map[string]Tool
	order []string
}

// NewRegistry builds a Registry from the given tools. Registration order is
// preserved for documentation rendering. A duplicate name, or a tool named
// after the stop sentinel, is a construction error.
func NewRegistry(tools ...Tool) (*Registry, error) {
	r := &Registry{tools: make(map[string]Tool, len(tools))}
	for _, tool := range tools {
		name := tool.Name()
		if name == StopTool {
			return nil, &DuplicateToolError{Name: name}
		}
		if _, exists := r.tools[name]; exists {
			return nil, &DuplicateToolError{Name: name}
		}
		r.tools[name] = tool
		r.order = append(r.order, name)
	}
	return r, nil
}

// Lookup returns the tool registered under name.
func (r *Registry) Lookup(name string) (Tool, bool) {
	tool, ok := r.tools[name]
	return tool, ok
}

// Names returns the registered tool names in registration order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}

// Dispatch executes one action and always returns a ToolResult. Unknown
// tools and panicking tools become failed results so a single bad action
// cannot take down the loop.
func (r *Registry) Dispatch(ctx context.Context, action Action, tc *ToolContext) (result ToolResult) {
	tool, ok := r.tools[action.Tool]
	if !ok {
		return Fail("Unknown tool: %s", action.Tool)
	}

	defer func() {
		if rec := recover(); rec != nil {
			tc.Logger.Error().
				Str("tool", action.Tool).
				Interface("panic", rec).
				Msg("tool panicked during execution")
			result = Fail("tool %s panicked: %v", action.Tool, rec)
		}
	}()

	return tool.Execute(ctx, action.Args, tc)
}

// ProtocolDocs renders the decision grammar and the per-tool documentation
// block embedded in the system prompt.
func (r *Registry) ProtocolDocs() string {
	var sb strings.Builder
	sb.WriteString("Respond to every message with ONLY a JSON decision document:\n\n")
	sb.WriteString("{\n")
	sb.WriteString("  \"mode\": \"parallel\" | \"sequential\",\n")
	sb.WriteString("  \"actions\": [{\"tool\": \"<name>\", \"args\": {...}}],\n")
	sb.WriteString("  \"reasoning\": \"<optional, brief>\"\n")
	sb.WriteString("}\n\n")
	sb.WriteString("Use parallel mode only for actions that do not depend on each other.\n")
	sb.WriteString("To finish, respond with the single action {\"tool\": \"stop\", \"args\": {\"message\": \"<your answer to the user>\"}}\n")
	sb.WriteString("in sequential mode, or with an empty actions array. \"stop\" must be the\n")
	sb.WriteString("only action or the last one, and never appears in a parallel batch.\n\n")
	sb.WriteString("Available tools:\n\n")
	for _, name := range r.order {
		tool := r.tools[name]
		sb.WriteString(fmt.Sprintf("## %s\n%s\n", tool.Name(), tool.Description()))
		params := tool.Parameters()
		if len(params) == 0 {
			sb.WriteString("Arguments: none\n\n")
			continue
		}
		sb.WriteString("Arguments:\n")
		for _, p := range params {
			req := "optional"
			if p.Required {
				req = "required"
			}
			sb.WriteString(fmt.Sprintf("- %s (%s, %s): %s\n", p.Name, p.Type, req, p.Description))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

// GetStringArg extracts a string argument.
func GetStringArg(args map[string]interface{}, key string) (string, bool) {
	v, ok := args[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// GetIntArg extracts an integer argument. JSON numbers decode as float64;
// a fractional value is rejected.
func GetIntArg(args map[string]interface{}, key string) (int, bool) {
	v, ok := args[key]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		if n != float64(int(n)) {
			return 0, false
		}
		return int(n), true
	case int:
		return n, true
	}
	return 0, false
}

// GetBoolArg extracts a boolean argument.
func GetBoolArg(args map[string]interface{}, key string) (bool, bool) {
	v, ok := args[key]
	if !ok {
		return false, false
	}
	b, ok := v.(bool)
	return b, ok
}
