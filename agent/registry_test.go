package agent

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/loomhq/loom/sandbox"
	"github.com/loomhq/loom/workspace"
)

func testToolContext() *ToolContext {
	return NewToolContext(workspace.New(), NewTodoList(), sandbox.New())
}

func TestNewRegistryRejectsDuplicates(t *testing.T) {
	tools := FileTools()
	_, err := NewRegistry(append(tools, tools[0])...)
	var dup *DuplicateToolError
	if !errors.As(err, &dup) {
		t.Fatalf("expected *DuplicateToolError, got %v", err)
	}
	if dup.Name != tools[0].Name() {
		t.Errorf("duplicate name = %q", dup.Name)
	}
}

func TestNewRegistryRejectsStopName(t *testing.T) {
	_, err := NewRegistry(&funcTool{name: "stop", description: "nope"})
	if err == nil {
		t.Fatal("expected error for reserved name")
	}
}

func TestDispatchUnknownTool(t *testing.T) {
	r, err := NewRegistry(FileTools()...)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	result := r.Dispatch(context.Background(), Action{Tool: "teleport", Args: map[string]interface{}{}}, testToolContext())
	if result.Success {
		t.Error("expected failure")
	}
	if result.Error != "Unknown tool: teleport" {
		t.Errorf("error = %q", result.Error)
	}
}

func TestDispatchRecoversFromPanic(t *testing.T) {
	bomb := &funcTool{
		name:        "bomb",
		description: "always panics",
		run: func(context.Context, map[string]interface{}, *ToolContext) ToolResult {
			panic("kaboom")
		},
	}
	r, err := NewRegistry(bomb)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	result := r.Dispatch(context.Background(), Action{Tool: "bomb"}, testToolContext())
	if result.Success {
		t.Error("expected failure")
	}
	if !strings.Contains(result.Error, "kaboom") {
		t.Errorf("error should carry the panic value: %q", result.Error)
	}
}

func TestProtocolDocsListsTools(t *testing.T) {
	r, err := NewRegistry(CoreTools()...)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	docs := r.ProtocolDocs()
	for _, name := range []string{"write_file", "read_file", "run_code", "add_todo", "switch_project", "stop"} {
		if !strings.Contains(docs, name) {
			t.Errorf("protocol docs missing %s", name)
		}
	}
}

func TestNamesPreservesRegistrationOrder(t *testing.T) {
	r, err := NewRegistry(FileTools()...)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	names := r.Names()
	want := []string{"write_file", "read_file", "delete_file", "list_files"}
	if len(names) != len(want) {
		t.Fatalf("names = %v", names)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("names[%d] = %q, want %q", i, names[i], want[i])
		}
	}
}

func TestGetIntArgRejectsFractions(t *testing.T) {
	args := map[string]interface{}{"n": 1.5}
	if _, ok := GetIntArg(args, "n"); ok {
		t.Error("fractional value should not parse as int")
	}
	args["n"] = float64(3)
	n, ok := GetIntArg(args, "n")
	if !ok || n != 3 {
		t.Errorf("got %d, %v", n, ok)
	}
}
