package agent

import "fmt"

// ParseExhaustedError is returned when the model fails to produce a valid
// Decision Document within the per-iteration attempt budget. It is fatal to
// the conversation turn.
type ParseExhaustedError struct {
	Attempts int
	Last     *ValidationError
}

func (e *ParseExhaustedError) Error() string {
	return fmt.Sprintf("model failed to produce a valid decision document after %d attempts: %v", e.Attempts, e.Last)
}

func (e *ParseExhaustedError) Unwrap() error {
	if e.Last == nil {
		return nil
	}
	return e.Last
}

// DuplicateToolError is returned by NewRegistry when two tools claim the
// same name, or a tool claims the reserved stop sentinel.
type DuplicateToolError struct {
	Name string
}

func (e *DuplicateToolError) Error() string {
	return fmt.Sprintf("tool name already registered: %s", e.Name)
}
