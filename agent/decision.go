package agent

// DispatchMode declares how the actions of one Decision Document execute.
type DispatchMode string

const (
	ModeParallel   DispatchMode = "parallel"
	ModeSequential DispatchMode = "sequential"
)

// StopTool is the reserved sentinel name that signals loop termination.
// It is never registered and never dispatched.
const StopTool = "stop"

// Action is one entry in a Decision Document's action list. On the wire a
// stop sentinel has the same shape as a real tool invocation; IsStop is the
// discriminator.
type Action struct {
	Tool string                 `json:"tool"`
	Args map[string]interface{} `json:"args"`
}

// IsStop reports whether the action is the stop sentinel.
func (a Action) IsStop() bool {
	return a.Tool == StopTool
}

// DecisionDocument is the structured answer the model must produce each
// iteration: an execution mode plus the tool calls to run.
type DecisionDocument struct {
	Mode      DispatchMode `json:"mode"`
	Actions   []Action     `json:"actions"`
	Reasoning string       `json:"reasoning,omitempty"`
}

// Invocations returns the real tool invocations (stop sentinels removed)
// and whether a stop was requested. An empty action list also counts as a
// stop request.
func (d *DecisionDocument) Invocations() ([]Action, bool) {
	if len(d.Actions) == 0 {
		return nil, true
	}
	var calls []Action
	stop := false
	for _, a := range d.Actions {
		if a.IsStop() {
			stop = true
			continue
		}
		calls = append(calls, a)
	}
	return calls, stop
}
