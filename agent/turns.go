package agent

import (
	"time"

	"github.com/loomhq/loom/llm"
)

// Role identifies who produced a turn.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Turn is a single entry in the conversation history. At most one system
// turn exists per conversation; it lives in a dedicated slot on the Agent
// and is mutated in place rather than appended.
type Turn struct {
	Role       Role      `json:"role"`
	Content    string    `json:"content"`
	ToolCallID string    `json:"tool_call_id,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// NewSystemTurn creates a system Turn.
func NewSystemTurn(content string) Turn {
	return Turn{Role: RoleSystem, Content: content, Timestamp: time.Now()}
}

// NewUserTurn creates a user Turn.
func NewUserTurn(content string) Turn {
	return Turn{Role: RoleUser, Content: content, Timestamp: time.Now()}
}

// NewAssistantTurn creates an assistant Turn.
func NewAssistantTurn(content string) Turn {
	return Turn{Role: RoleAssistant, Content: content, Timestamp: time.Now()}
}

// NewToolTurn creates a tool result Turn.
func NewToolTurn(content, toolCallID string) Turn {
	return Turn{Role: RoleTool, Content: content, ToolCallID: toolCallID, Timestamp: time.Now()}
}

// TrimHistory keeps the most recent window turns. The history never contains
// the system turn, so trimming cannot remove it.
func TrimHistory(history []Turn, window int) []Turn {
	if window <= 0 || len(history) <= window {
		return history
	}
	return history[len(history)-window:]
}

// ConvertToMessages renders the system turn plus history into the outgoing
// model context.
func ConvertToMessages(system Turn, history []Turn) []llm.Message {
	messages := make([]llm.Message, 0, len(history)+1)
	if system.Content != "" {
		messages = append(messages, llm.SystemMessage(system.Content))
	}
	for _, turn := range history {
		switch turn.Role {
		case RoleUser:
			messages = append(messages, llm.UserMessage(turn.Content))
		case RoleAssistant:
			messages = append(messages, llm.AssistantMessage(turn.Content))
		case RoleTool:
			messages = append(messages, llm.ToolMessage(turn.Content))
		case RoleSystem:
			// System content travels only through the dedicated slot.
		}
	}
	return messages
}
