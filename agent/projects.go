package agent

import (
	"sort"
	"sync"

	"github.com/loomhq/loom/workspace"
)

// DefaultProject is the project every conversation starts in.
const DefaultProject = "default"

// ProjectManager is the in-memory ProjectSwitcher: one workspace per
// project name, created on first switch, all retained for the lifetime of
// the manager.
type ProjectManager struct {
	mu      sync.Mutex
	current string
	spaces  map[string]*workspace.Workspace
	opts    []workspace.Option
}

// NewProjectManager creates a manager with the default project active.
// The workspace options apply to every project it creates.
func NewProjectManager(opts ...workspace.Option) *ProjectManager {
	m := &ProjectManager{
		current: DefaultProject,
		spaces:  make(map[string]*workspace.Workspace),
		opts:    opts,
	}
	m.spaces[DefaultProject] = workspace.New(opts...)
	return m
}

// Switch activates the named project, creating it if needed.
func (m *ProjectManager) Switch(name string) (*workspace.Workspace, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ws, ok := m.spaces[name]
	if !ok {
		ws = workspace.New(m.opts...)
		m.spaces[name] = ws
	}
	m.current = name
	return ws, nil
}

// Current returns the active project name.
func (m *ProjectManager) Current() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// Names lists known projects sorted by name.
func (m *ProjectManager) Names() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, 0, len(m.spaces))
	for name := range m.spaces {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Workspace returns the active project's workspace.
func (m *ProjectManager) Workspace() *workspace.Workspace {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.spaces[m.current]
}
