package agent

import (
	"encoding/json"
	"fmt"
	"time"
)

// ConversationMetadata identifies a persisted conversation.
type ConversationMetadata struct {
	ID           string    `json:"id"`
	Name         string    `json:"name,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	LastModified time.Time `json:"last_modified"`
}

// ConversationRecord is the portable snapshot of one conversation: history,
// todos, and the serialized workspace. It round-trips through JSON.
type ConversationRecord struct {
	Metadata  ConversationMetadata `json:"metadata"`
	Turns     []Turn               `json:"turns"`
	Todos     []TodoItem           `json:"todos"`
	Workspace map[string]string    `json:"workspace"`
}

// Export captures the agent's current conversation as a record.
func (a *Agent) Export(name string) *ConversationRecord {
	return &ConversationRecord{
		Metadata: ConversationMetadata{
			ID:           a.id,
			Name:         name,
			CreatedAt:    a.createdAt,
			LastModified: time.Now(),
		},
		Turns:     a.History(),
		Todos:     a.tc.Todos.Items(),
		Workspace: a.tc.Workspace().Serialize(),
	}
}

// Rehydrate restores a previously exported conversation into the agent,
// replacing its history, todo list, and workspace contents.
func (a *Agent) Rehydrate(record *ConversationRecord) error {
	if record == nil {
		return fmt.Errorf("nil conversation record")
	}
	a.tc.Workspace().Reset()
	if err := a.tc.Workspace().WriteFromSerialized(record.Workspace); err != nil {
		return fmt.Errorf("restoring workspace: %w", err)
	}
	a.tc.Todos.Restore(record.Todos)

	a.mu.Lock()
	a.id = record.Metadata.ID
	a.createdAt = record.Metadata.CreatedAt
	a.history = make([]Turn, len(record.Turns))
	copy(a.history, record.Turns)
	a.state = StateIdle
	a.mu.Unlock()
	return nil
}

// MarshalRecord encodes a record as indented JSON for storage.
func MarshalRecord(record *ConversationRecord) ([]byte, error) {
	return json.MarshalIndent(record, "", "  ")
}

// UnmarshalRecord decodes a stored record.
func UnmarshalRecord(data []byte) (*ConversationRecord, error) {
	var record ConversationRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("decoding conversation record: %w", err)
	}
	return &record, nil
}
