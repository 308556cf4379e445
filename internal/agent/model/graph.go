package model

import (
	"github.com/cloudwego/eino/schema"
)

// DecisionKind says how the router handles a turn.
type DecisionKind string

const (
	// DecisionAcknowledge answers a confirmation without dispatching.
	DecisionAcknowledge DecisionKind = "acknowledge"
	// DecisionDispatch runs Capability directly.
	DecisionDispatch DecisionKind = "dispatch"
	// DecisionDelegate hands the turn to the tool-calling agent loop.
	DecisionDelegate DecisionKind = "delegate"
)

// Decision is the router's verdict for one user message.
type Decision struct {
	Kind       DecisionKind
	Capability Capability
	Intent     Intent
	Reply      string
}

// TurnState stores per-turn state for the router graph.
// Concurrency model:
//   - Registered as Graph Local State via compose.WithGenLocalState.
//   - Read and written only inside state handlers or compose.ProcessState,
//     which eino serializes, so no extra locking is needed.
type TurnState struct {
	Session              *Session
	Message              string
	Decision             Decision
	History              []*schema.Message // mutated only inside Eino state handlers
	ToolCallCount        int
	ToolCallLimitReached bool
	ToolCallIDSeq        int // synthesizes tool_call_id when the provider omits it

	// Accumulated LLM cost (USD) across model invocations for this turn
	TotalCostUSD float64
}

// TurnInput is what the router graph is invoked with.
type TurnInput struct {
	Session *Session
	Message string
}

// TurnOutput is the router graph's result for one turn.
type TurnOutput struct {
	Reply    string
	Session  *Session
	Decision Decision
	Result   *HandlerResult
	CostUSD  float64
}
