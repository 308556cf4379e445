package nodes

import (
	"github.com/HeliosCommand/server/internal/agent/model"
)

// DefaultMaxToolCalls bounds the agent loop when CONVERSATION_TOOL_MAX_CALLS is unset.
const DefaultMaxToolCalls = 3

// toolBudget is the number of capability tool calls one turn may make.
type toolBudget int

func newToolBudget(n int) toolBudget {
	if n <= 0 {
		return DefaultMaxToolCalls
	}
	return toolBudget(n)
}

// exhaust flags the turn once the budget is used up. It reports true only on the call that sets the flag.
func (b toolBudget) exhaust(state *model.TurnState) bool {
	if state.ToolCallLimitReached || state.ToolCallCount < int(b) {
		return false
	}
	state.ToolCallLimitReached = true
	return true
}

// spend counts one tool execution and reports whether it overran the budget.
func (b toolBudget) spend(state *model.TurnState) bool {
	state.ToolCallCount++
	if state.ToolCallCount > int(b) {
		state.ToolCallLimitReached = true
		return true
	}
	return false
}
