package agent

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// TodoItem is one task on the conversation's plan.
type TodoItem struct {
	Task      string    `json:"task"`
	Completed bool      `json:"completed"`
	CreatedAt time.Time `json:"created_at"`
}

// TodoList is the ordered task list the model manages through the todo
// tools. Items keep insertion order; completion marks in place.
type TodoList struct {
	mu    sync.Mutex
	items []TodoItem
}

// NewTodoList creates an empty TodoList.
func NewTodoList() *TodoList {
	return &TodoList{}
}

// Add appends a task.
func (l *TodoList) Add(task string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.items = append(l.items, TodoItem{Task: task, CreatedAt: time.Now()})
}

// Complete marks the 1-based item as done. Completing an already completed
// item is a no-op, not an error.
func (l *TodoList) Complete(index int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if index < 1 || index > len(l.items) {
		return fmt.Errorf("no todo item at index %d", index)
	}
	l.items[index-1].Completed = true
	return nil
}

// Items returns a copy of the list.
func (l *TodoList) Items() []TodoItem {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]TodoItem, len(l.items))
	copy(out, l.items)
	return out
}

// Restore replaces the list contents, used when rehydrating a conversation.
func (l *TodoList) Restore(items []TodoItem) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.items = make([]TodoItem, len(items))
	copy(l.items, items)
}

// Clear removes all items.
func (l *TodoList) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.items = nil
}

// Render formats the list as the checkbox block embedded in the system
// prompt and returned by list_todos.
func (l *TodoList) Render() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.items) == 0 {
		return "No todo items."
	}
	var sb strings.Builder
	for i, item := range l.items {
		mark := " "
		if item.Completed {
			mark = "x"
		}
		fmt.Fprintf(&sb, "%d. [%s] %s\n", i+1, mark, item.Task)
	}
	return strings.TrimRight(sb.String(), "\n")
}
