package agent

import (
	"context"
	"fmt"
)

// TodoTools returns the task list management tools.
func TodoTools() []Tool {
	return []Tool{
		&funcTool{
			name:        "add_todo",
			description: "Add a task to the todo list.",
			params: []ParameterSpec{
				{Name: "task", Type: "string", Required: true, Description: "Task description."},
			},
			run: addTodo,
		},
		&funcTool{
			name:        "complete_todo",
			description: "Mark a todo item as done by its 1-based index.",
			params: []ParameterSpec{
				{Name: "index", Type: "integer", Required: true, Description: "1-based item index as shown by list_todos."},
			},
			run: completeTodo,
		},
		&funcTool{
			name:        "list_todos",
			description: "Show the current todo list.",
			run:         listTodos,
		},
	}
}

func addTodo(_ context.Context, args map[string]interface{}, tc *ToolContext) ToolResult {
	task, ok := GetStringArg(args, "task")
	if !ok || task == "" {
		return Fail("add_todo requires a task argument")
	}
	tc.Todos.Add(task)
	return Ok(fmt.Sprintf("Added todo %d: %s", len(tc.Todos.Items()), task))
}

func completeTodo(_ context.Context, args map[string]interface{}, tc *ToolContext) ToolResult {
	index, ok := GetIntArg(args, "index")
	if !ok {
		return Fail("complete_todo requires an integer index argument")
	}
	if err := tc.Todos.Complete(index); err != nil {
		return Fail("%v", err)
	}
	return Ok(fmt.Sprintf("Completed todo %d", index))
}

func listTodos(_ context.Context, _ map[string]interface{}, tc *ToolContext) ToolResult {
	return Ok(tc.Todos.Render())
}
