package model

import "time"

const (
	OutboxEntityConversationMessage = "project_conversation_message"
	OutboxStatusAssistantFinalized  = "assistant_finalized"
	OutboxEventAssistantFinalized   = "project.assistant_message_finalized"
)

// OutboxRecord is an event intent written in the same transaction as the
// state change it describes. Relaying it to a topic happens elsewhere.
type OutboxRecord struct {
	ID          string
	EntityType  string
	EntityID    string
	DatastoreID *string
	OldStatus   *string
	NewStatus   string
	Payload     map[string]any
	OccurredAt  time.Time
}

// NewAssistantFinalizedOutbox describes a COMPLETED assistant message.
func NewAssistantFinalizedOutbox(id string, project *Project, msg *ConversationMessage, occurredAt time.Time) *OutboxRecord {
	var usage any
	if msg.Usage != nil {
		usage = map[string]any(msg.Usage)
	}
	var datastoreID *string
	if project != nil {
		datastoreID = project.DatastoreID
	}
	return &OutboxRecord{
		ID:          id,
		EntityType:  OutboxEntityConversationMessage,
		EntityID:    msg.ID,
		DatastoreID: datastoreID,
		OldStatus:   nil,
		NewStatus:   OutboxStatusAssistantFinalized,
		Payload: map[string]any{
			"event_name":        OutboxEventAssistantFinalized,
			"project_id":        msg.ProjectID,
			"conversation_id":   msg.ConversationID,
			"message_id":        msg.ID,
			"parent_message_id": msg.ParentID(),
			"provider":          msg.ProviderName(),
			"model":             msg.ModelName(),
			"usage_json":        usage,
		},
		OccurredAt: occurredAt.UTC(),
	}
}
