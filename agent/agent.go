package agent

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/loomhq/loom/llm"
)

// State describes where the loop currently is.
type State string

const (
	StateIdle                 State = "idle"
	StateAwaitingModel        State = "awaiting_model"
	StateValidating           State = "validating"
	StateDispatching          State = "dispatching"
	StateStopped              State = "stopped"
	StateMaxIterationsReached State = "max_iterations_reached"
	StateFatalError           State = "fatal_error"
)

// ModelClient is the narrow model dependency of the loop: conversation in,
// raw text out. Transport failures surface as errors and are not retried
// here.
type ModelClient interface {
	Generate(ctx context.Context, messages []llm.Message) (string, error)
}

// clientModel adapts an llm.Client to ModelClient.
type clientModel struct {
	client llm.Client
	model  string
}

func (m *clientModel) Generate(ctx context.Context, messages []llm.Message) (string, error) {
	resp, err := m.client.Complete(ctx, llm.Request{Model: m.model, Messages: messages})
	if err != nil {
		return "", err
	}
	return resp.Text, nil
}

// ModelFromClient wraps an llm.Client as a ModelClient. An empty model name
// uses the client's default.
func ModelFromClient(client llm.Client, model string) ModelClient {
	return &clientModel{client: client, model: model}
}

// Outcome is the result of one ProcessRequest call.
type Outcome struct {
	// Message is the final answer for the user.
	Message string
	// ShouldFollowUpTitle is set on the first request of a conversation,
	// signalling the host to derive a conversation title.
	ShouldFollowUpTitle bool
	// Iterations is the number of decide-dispatch cycles consumed.
	Iterations int
	// HitIterationLimit marks a forced completion at the iteration ceiling.
	HitIterationLimit bool
}

// Agent runs the orchestration loop for one conversation. It is not safe
// for concurrent ProcessRequest calls.
type Agent struct {
	id       string
	model    ModelClient
	registry *Registry
	tc       *ToolContext
	emitter  *EventEmitter
	config   Config
	logger   zerolog.Logger

	mu         sync.Mutex
	state      State
	systemTurn Turn
	history    []Turn
	loop       *loopTracker
	createdAt  time.Time
}

// New creates an Agent. A nil emitter disables event delivery.
func New(model ModelClient, registry *Registry, tc *ToolContext, emitter *EventEmitter, opts ...AgentOption) *Agent {
	a := &Agent{
		id:        uuid.NewString(),
		model:     model,
		registry:  registry,
		tc:        tc,
		emitter:   emitter,
		config:    DefaultConfig(),
		logger:    tc.Logger,
		state:     StateIdle,
		createdAt: time.Now(),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.loop = newLoopTracker(a.config.LoopWindow)
	return a
}

// AgentOption configures an Agent.
type AgentOption func(*Agent)

// WithConfig overrides the default limits.
func WithConfig(cfg Config) AgentOption {
	return func(a *Agent) {
		a.config = cfg.normalized()
	}
}

// WithID fixes the conversation ID, used when rehydrating.
func WithID(id string) AgentOption {
	return func(a *Agent) {
		a.id = id
	}
}

// ID returns the conversation ID.
func (a *Agent) ID() string { return a.id }

// State returns the current loop state.
func (a *Agent) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

func (a *Agent) setState(s State) {
	a.mu.Lock()
	a.state = s
	a.mu.Unlock()
}

// History returns a copy of the conversation history. The system turn is
// not part of it.
func (a *Agent) History() []Turn {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]Turn, len(a.history))
	copy(out, a.history)
	return out
}

func (a *Agent) append(turn Turn) {
	a.mu.Lock()
	a.history = append(a.history, turn)
	a.mu.Unlock()
}

// ProcessRequest runs the loop for one user request and returns the final
// answer. Model transport failures and exhausted decision retries are
// fatal; everything else, including failed tools and the iteration
// ceiling, resolves into a normal Outcome.
func (a *Agent) ProcessRequest(ctx context.Context, request string) (*Outcome, error) {
	firstRequest := len(a.History()) == 0
	a.append(NewUserTurn(request))
	a.emitter.Emit(EventRequestStart, map[string]interface{}{"request": request})

	outcome := &Outcome{ShouldFollowUpTitle: firstRequest}

	for iteration := 1; iteration <= a.config.MaxIterations; iteration++ {
		outcome.Iterations = iteration

		doc, err := a.decideNext(ctx)
		if err != nil {
			a.setState(StateFatalError)
			a.emitter.Emit(EventError, map[string]interface{}{"error": err.Error()})
			return nil, err
		}

		invocations, stop := doc.Invocations()

		if len(invocations) > 0 {
			a.setState(StateDispatching)
			switch doc.Mode {
			case ModeParallel:
				a.dispatchParallel(ctx, invocations)
			default:
				a.dispatchSequential(ctx, invocations)
			}
			a.loop.record(invocations)
			if a.loop.looping() {
				a.emitter.Emit(EventLoopDetected, nil)
				a.append(NewUserTurn("You appear to be repeating the same actions without progress. Change your approach or stop with a summary of what you found."))
			}
		}

		if stop {
			a.setState(StateStopped)
			outcome.Message = stopMessage(doc)
			a.append(NewAssistantTurn(outcome.Message))
			a.emitter.Emit(EventRequestEnd, map[string]interface{}{"iterations": iteration})
			return outcome, nil
		}
	}

	a.setState(StateMaxIterationsReached)
	a.emitter.Emit(EventIterationLimit, map[string]interface{}{"limit": a.config.MaxIterations})
	outcome.HitIterationLimit = true
	outcome.Message = fmt.Sprintf("I stopped after %d iterations without finishing. The work so far is preserved in the workspace; ask me to continue if you want more.", a.config.MaxIterations)
	a.append(NewAssistantTurn(outcome.Message))
	a.emitter.Emit(EventRequestEnd, map[string]interface{}{"iterations": outcome.Iterations})
	return outcome, nil
}

// decideNext obtains one valid Decision Document, retrying malformed model
// output with corrective messages. The original call counts as attempt one;
// the attempt budget therefore bounds total model calls per chain.
func (a *Agent) decideNext(ctx context.Context) (*DecisionDocument, error) {
	var lastInvalid *ValidationError

	for attempt := 1; attempt <= a.config.MaxParseAttempts; attempt++ {
		a.setState(StateAwaitingModel)
		a.mu.Lock()
		a.systemTurn = NewSystemTurn(BuildSystemPrompt(a.registry, a.tc))
		messages := ConvertToMessages(a.systemTurn, TrimHistory(a.history, a.config.HistoryWindow))
		a.mu.Unlock()

		a.emitter.Emit(EventModelCall, map[string]interface{}{"attempt": attempt})
		raw, err := a.model.Generate(ctx, messages)
		if err != nil {
			return nil, fmt.Errorf("model call failed: %w", err)
		}
		a.append(NewAssistantTurn(raw))

		a.setState(StateValidating)
		doc, err := ValidateDecision(raw)
		if err == nil {
			a.emitter.Emit(EventDecisionValid, map[string]interface{}{"mode": string(doc.Mode), "actions": len(doc.Actions)})
			return doc, nil
		}

		verr, ok := err.(*ValidationError)
		if !ok {
			return nil, err
		}
		lastInvalid = verr
		a.logger.Warn().Int("attempt", attempt).Strs("violations", verr.Violations).Msg("invalid decision document")
		a.emitter.Emit(EventDecisionInvalid, map[string]interface{}{"attempt": attempt, "violations": verr.Violations})

		if attempt < a.config.MaxParseAttempts {
			a.append(NewUserTurn(verr.CorrectionMessage()))
		}
	}

	return nil, &ParseExhaustedError{Attempts: a.config.MaxParseAttempts, Last: lastInvalid}
}

// dispatchSequential runs actions in order, appending one tool turn per
// result. A failed action does not abort the rest; the model sees every
// outcome and decides.
func (a *Agent) dispatchSequential(ctx context.Context, actions []Action) {
	for _, action := range actions {
		callID := uuid.NewString()
		a.emitter.Emit(EventToolStart, map[string]interface{}{"tool": action.Tool, "call_id": callID})
		result := a.registry.Dispatch(ctx, action, a.tc)
		a.emitter.Emit(EventToolEnd, map[string]interface{}{"tool": action.Tool, "call_id": callID, "success": result.Success})
		a.append(NewToolTurn(renderResult(action.Tool, result), callID))
	}
}

// dispatchParallel runs actions concurrently, then folds the results into a
// single user turn in action order so the model sees one coherent batch
// summary.
func (a *Agent) dispatchParallel(ctx context.Context, actions []Action) {
	results := make([]ToolResult, len(actions))
	var wg sync.WaitGroup
	for i, action := range actions {
		wg.Add(1)
		go func(i int, action Action) {
			defer wg.Done()
			a.emitter.Emit(EventToolStart, map[string]interface{}{"tool": action.Tool})
			results[i] = a.registry.Dispatch(ctx, action, a.tc)
			a.emitter.Emit(EventToolEnd, map[string]interface{}{"tool": action.Tool, "success": results[i].Success})
		}(i, action)
	}
	wg.Wait()

	parts := make([]string, len(actions))
	for i, action := range actions {
		parts[i] = renderResult(action.Tool, results[i])
	}
	a.append(NewUserTurn("Parallel results:\n" + strings.Join(parts, "\n")))
}

// renderResult formats one tool outcome for the conversation, applying the
// per-tool truncation pipeline.
func renderResult(tool string, result ToolResult) string {
	var body string
	if result.Success {
		body = result.Output
		if body == "" {
			body = "ok"
		}
	} else {
		body = "ERROR: " + result.Error
	}
	return tool + ": " + TruncateToolOutput(body, tool)
}

// stopMessage extracts the final user-facing answer from a stop decision.
func stopMessage(doc *DecisionDocument) string {
	for _, action := range doc.Actions {
		if !action.IsStop() {
			continue
		}
		if msg, ok := GetStringArg(action.Args, "message"); ok && msg != "" {
			return msg
		}
	}
	if doc.Reasoning != "" {
		return doc.Reasoning
	}
	return "Done."
}
