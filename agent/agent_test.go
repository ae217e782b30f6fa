package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/loomhq/loom/llm"
	"github.com/loomhq/loom/sandbox"
)

// scriptedModel replays canned responses in order.
type scriptedModel struct {
	responses []string
	calls     int
	err       error
	seen      [][]llm.Message
}

func (m *scriptedModel) Generate(_ context.Context, messages []llm.Message) (string, error) {
	m.seen = append(m.seen, messages)
	if m.err != nil {
		return "", m.err
	}
	if m.calls >= len(m.responses) {
		return "", fmt.Errorf("script exhausted after %d calls", m.calls)
	}
	resp := m.responses[m.calls]
	m.calls++
	return resp, nil
}

func newTestAgent(t *testing.T, model ModelClient) *Agent {
	t.Helper()
	registry, err := NewRegistry(CoreTools()...)
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	return New(model, registry, testToolContext(), nil)
}

func stopDecision(message string) string {
	return fmt.Sprintf(`{"mode":"sequential","actions":[{"tool":"stop","args":{"message":%q}}]}`, message)
}

func TestProcessRequestImmediateStop(t *testing.T) {
	model := &scriptedModel{responses: []string{stopDecision("all done")}}
	a := newTestAgent(t, model)

	outcome, err := a.ProcessRequest(context.Background(), "do nothing")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.Message != "all done" {
		t.Errorf("message = %q", outcome.Message)
	}
	if !outcome.ShouldFollowUpTitle {
		t.Error("first request should ask for a title")
	}
	if a.State() != StateStopped {
		t.Errorf("state = %q", a.State())
	}
}

func TestProcessRequestEmptyActionsStops(t *testing.T) {
	model := &scriptedModel{responses: []string{`{"mode":"sequential","actions":[],"reasoning":"nothing to do"}`}}
	a := newTestAgent(t, model)

	outcome, err := a.ProcessRequest(context.Background(), "hi")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.Message != "nothing to do" {
		t.Errorf("message = %q", outcome.Message)
	}
	if outcome.Iterations != 1 {
		t.Errorf("iterations = %d", outcome.Iterations)
	}
}

func TestProcessRequestRecoversFromMalformedResponse(t *testing.T) {
	model := &scriptedModel{responses: []string{
		"I will now read the file.",
		stopDecision("recovered"),
	}}
	a := newTestAgent(t, model)

	outcome, err := a.ProcessRequest(context.Background(), "go")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.Message != "recovered" {
		t.Errorf("message = %q", outcome.Message)
	}
	if model.calls != 2 {
		t.Errorf("calls = %d", model.calls)
	}

	var corrected bool
	for _, turn := range a.History() {
		if turn.Role == RoleUser && strings.Contains(turn.Content, "not a valid decision document") {
			corrected = true
		}
	}
	if !corrected {
		t.Error("a corrective turn should be appended before the retry")
	}
}

func TestProcessRequestParseRetryBound(t *testing.T) {
	model := &scriptedModel{responses: []string{
		"bad", "bad", "bad", "bad", "bad", "bad", "bad",
	}}
	a := newTestAgent(t, model)

	_, err := a.ProcessRequest(context.Background(), "go")
	var exhausted *ParseExhaustedError
	if !errors.As(err, &exhausted) {
		t.Fatalf("expected *ParseExhaustedError, got %v", err)
	}
	if model.calls != 5 {
		t.Errorf("exactly five model calls allowed per recovery chain, got %d", model.calls)
	}
	if a.State() != StateFatalError {
		t.Errorf("state = %q", a.State())
	}
}

func TestProcessRequestSequentialToolsThenStop(t *testing.T) {
	decision := `{"mode":"sequential","actions":[
		{"tool":"write_file","args":{"path":"hello.txt","content":"hi"}},
		{"tool":"stop","args":{"message":"file written"}}
	]}`
	model := &scriptedModel{responses: []string{decision}}
	a := newTestAgent(t, model)

	outcome, err := a.ProcessRequest(context.Background(), "make hello.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.Message != "file written" {
		t.Errorf("message = %q", outcome.Message)
	}
	if !a.tc.Workspace().Exists("hello.txt") {
		t.Error("tool should have run before the stop")
	}

	var toolTurns int
	for _, turn := range a.History() {
		if turn.Role == RoleTool {
			toolTurns++
			if turn.ToolCallID == "" {
				t.Error("tool turns carry a call ID")
			}
		}
	}
	if toolTurns != 1 {
		t.Errorf("tool turns = %d", toolTurns)
	}
}

func TestProcessRequestParallelBatchSurvivesFailures(t *testing.T) {
	first := `{"mode":"parallel","actions":[
		{"tool":"write_file","args":{"path":"a.txt","content":"A"}},
		{"tool":"teleport","args":{}},
		{"tool":"write_file","args":{"path":"b.txt","content":"B"}}
	]}`
	model := &scriptedModel{responses: []string{first, stopDecision("done")}}
	a := newTestAgent(t, model)

	outcome, err := a.ProcessRequest(context.Background(), "go")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.Message != "done" {
		t.Errorf("message = %q", outcome.Message)
	}
	if !a.tc.Workspace().Exists("a.txt") || !a.tc.Workspace().Exists("b.txt") {
		t.Error("sibling actions must complete despite one failure")
	}

	var batch string
	for _, turn := range a.History() {
		if turn.Role == RoleUser && strings.Contains(turn.Content, "Parallel results:") {
			batch = turn.Content
		}
	}
	if batch == "" {
		t.Fatal("parallel results should fold into one turn")
	}
	if !strings.Contains(batch, "Unknown tool: teleport") {
		t.Errorf("failed action should appear in the batch summary: %q", batch)
	}
	idxA := strings.Index(batch, "a.txt")
	idxB := strings.Index(batch, "b.txt")
	if idxA < 0 || idxB < 0 || idxA > idxB {
		t.Error("batch summary keeps action order")
	}
}

func TestProcessRequestIterationLimit(t *testing.T) {
	model := &scriptedModel{responses: []string{
		`{"mode":"sequential","actions":[{"tool":"list_files","args":{}}]}`,
		`{"mode":"sequential","actions":[{"tool":"list_todos","args":{}}]}`,
		`{"mode":"sequential","actions":[{"tool":"list_files","args":{"dir":"src"}}]}`,
	}}
	registry, err := NewRegistry(CoreTools()...)
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	cfg := DefaultConfig()
	cfg.MaxIterations = 3
	a := New(model, registry, testToolContext(), nil, WithConfig(cfg))

	outcome, err := a.ProcessRequest(context.Background(), "wander forever")
	if err != nil {
		t.Fatalf("iteration limit is a warning completion, not an error: %v", err)
	}
	if !outcome.HitIterationLimit {
		t.Error("limit flag should be set")
	}
	if outcome.Iterations != 3 {
		t.Errorf("iterations = %d", outcome.Iterations)
	}
	if a.State() != StateMaxIterationsReached {
		t.Errorf("state = %q", a.State())
	}
}

func TestProcessRequestTransportErrorPropagates(t *testing.T) {
	model := &scriptedModel{err: errors.New("connection refused")}
	a := newTestAgent(t, model)

	_, err := a.ProcessRequest(context.Background(), "go")
	if err == nil || !strings.Contains(err.Error(), "connection refused") {
		t.Fatalf("transport errors must propagate, got %v", err)
	}
	if a.State() != StateFatalError {
		t.Errorf("state = %q", a.State())
	}
}

func TestShouldFollowUpTitleOnlyOnFirstRequest(t *testing.T) {
	model := &scriptedModel{responses: []string{stopDecision("one"), stopDecision("two")}}
	a := newTestAgent(t, model)

	first, err := a.ProcessRequest(context.Background(), "first")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := a.ProcessRequest(context.Background(), "second")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !first.ShouldFollowUpTitle || second.ShouldFollowUpTitle {
		t.Errorf("title flags = %v, %v", first.ShouldFollowUpTitle, second.ShouldFollowUpTitle)
	}
}

func TestProcessRequestStopInParallelGetsCorrected(t *testing.T) {
	model := &scriptedModel{responses: []string{
		`{"mode":"parallel","actions":[{"tool":"list_files","args":{}},{"tool":"stop","args":{"message":"early"}}]}`,
		stopDecision("proper"),
	}}
	a := newTestAgent(t, model)

	outcome, err := a.ProcessRequest(context.Background(), "go")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.Message != "proper" {
		t.Errorf("message = %q", outcome.Message)
	}
	if model.calls != 2 {
		t.Errorf("calls = %d", model.calls)
	}
}

func TestSystemTurnStaysOutOfHistory(t *testing.T) {
	model := &scriptedModel{responses: []string{stopDecision("ok")}}
	a := newTestAgent(t, model)

	if _, err := a.ProcessRequest(context.Background(), "go"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, turn := range a.History() {
		if turn.Role == RoleSystem {
			t.Error("system content must live only in its dedicated slot")
		}
	}
	if len(model.seen) == 0 || model.seen[0][0].Role != llm.RoleSystem {
		t.Error("outgoing context should start with the system message")
	}
}

func TestParallelSwitchProjectWithSiblingWrites(t *testing.T) {
	first := `{"mode":"parallel","actions":[
		{"tool":"switch_project","args":{"name":"side"}},
		{"tool":"write_file","args":{"path":"a.txt","content":"A"}},
		{"tool":"write_file","args":{"path":"b.txt","content":"B"}}
	]}`
	model := &scriptedModel{responses: []string{first, stopDecision("done")}}
	registry, err := NewRegistry(CoreTools()...)
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	pm := NewProjectManager()
	tc := NewToolContext(pm.Workspace(), NewTodoList(), sandbox.New(), WithProjects(pm))
	a := New(model, registry, tc, nil)

	// Swapping the workspace while sibling writes run concurrently must be
	// safe; which workspace each write lands in is allowed to vary.
	outcome, err := a.ProcessRequest(context.Background(), "go")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.Message != "done" {
		t.Errorf("message = %q", outcome.Message)
	}
	if pm.Current() != "side" {
		t.Errorf("current project = %q", pm.Current())
	}

	defaultWS, _ := pm.Switch(DefaultProject)
	sideWS, _ := pm.Switch("side")
	for _, path := range []string{"a.txt", "b.txt"} {
		if !defaultWS.Exists(path) && !sideWS.Exists(path) {
			t.Errorf("%s should exist in exactly one project workspace", path)
		}
	}
}
