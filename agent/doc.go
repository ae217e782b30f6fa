// Package agent implements the agentic orchestration engine: the loop that
// turns a natural-language request into a bounded sequence of tool
// invocations against a virtual workspace.
//
// Each iteration sends the conversation to the model, validates the model's
// raw text answer as a Decision Document (recovering from malformed output
// with corrective retries), dispatches the document's tool calls under the
// declared concurrency mode, and appends the results before the next
// iteration. A stop sentinel, an empty action list, or the iteration ceiling
// terminates the loop.
//
// # Architecture
//
//   - Agent: the orchestrator holding the conversation history, the single
//     mutable system turn, and the loop state machine.
//   - Registry: name -> Tool dispatch, fixed at construction.
//   - ToolContext: the per-conversation resources (workspace, todos,
//     sandbox, project switcher) threaded through every tool execution.
//   - Validator: fence-stripping, JSON-schema checking, and the
//     stop-placement invariant for Decision Documents.
//   - EventEmitter: typed event stream for host application integration.
//
// # Quick Start
//
//	client, _ := llm.NewGollmClient("anthropic")
//	registry, _ := agent.NewRegistry(agent.CoreTools()...)
//	tc := agent.NewToolContext(workspace.New(), agent.NewTodoList(), sandbox.New())
//	a := agent.New(agent.ModelFromClient(client, ""), registry, tc, nil)
//
//	outcome, err := a.ProcessRequest(ctx, "Create a hello.js file and run it")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(outcome.Message)
package agent
