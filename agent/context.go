package agent

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/loomhq/loom/sandbox"
	"github.com/loomhq/loom/workspace"
)

// ProjectSwitcher swaps the active workspace when the model changes project
// context. Implementations own persistence of the inactive workspaces.
type ProjectSwitcher interface {
	// Switch activates the named project and returns its workspace,
	// creating the project if it does not exist.
	Switch(name string) (*workspace.Workspace, error)
	// Current returns the active project name.
	Current() string
	// Names lists known project names.
	Names() []string
}

// ToolContext carries the per-conversation resources every tool execution
// receives. Tools must not retain it beyond a single Execute call. The
// active workspace is read through Workspace and replaced through
// SetWorkspace; parallel dispatch runs tools in goroutines, so the pointer
// is never touched directly.
type ToolContext struct {
	Todos    *TodoList
	Sandbox  *sandbox.Sandbox
	Projects ProjectSwitcher
	Logger   zerolog.Logger

	mu        sync.RWMutex
	workspace *workspace.Workspace
}

// NewToolContext assembles a ToolContext. Projects is optional; without it
// the switch_project tool reports failure instead of switching.
func NewToolContext(ws *workspace.Workspace, todos *TodoList, sb *sandbox.Sandbox, opts ...ToolContextOption) *ToolContext {
	tc := &ToolContext{
		workspace: ws,
		Todos:     todos,
		Sandbox:   sb,
		Logger:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(tc)
	}
	return tc
}

// Workspace returns the active workspace.
func (tc *ToolContext) Workspace() *workspace.Workspace {
	tc.mu.RLock()
	defer tc.mu.RUnlock()
	return tc.workspace
}

// SetWorkspace swaps the active workspace.
func (tc *ToolContext) SetWorkspace(ws *workspace.Workspace) {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	tc.workspace = ws
}

// ToolContextOption configures a ToolContext.
type ToolContextOption func(*ToolContext)

// WithProjects attaches a project switcher.
func WithProjects(p ProjectSwitcher) ToolContextOption {
	return func(tc *ToolContext) {
		tc.Projects = p
	}
}

// WithLogger attaches a logger used by tool dispatch and the loop.
func WithLogger(logger zerolog.Logger) ToolContextOption {
	return func(tc *ToolContext) {
		tc.Logger = logger
	}
}
