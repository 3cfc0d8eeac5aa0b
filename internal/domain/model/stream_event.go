package model

type StreamEventType string

const (
	StreamAssistantChunk     StreamEventType = "ASSISTANT_CHUNK"
	StreamAssistantCompleted StreamEventType = "ASSISTANT_COMPLETED"
	StreamAssistantError     StreamEventType = "ASSISTANT_ERROR"
)

type StreamEventPayload struct {
	ConversationID  string  `json:"conversation_id"`
	MessageID       string  `json:"message_id"`
	Delta           *string `json:"delta,omitempty"`
	FriendlyMessage *string `json:"friendly_message,omitempty"`
}

// StreamEvent is the envelope published to the workspace stream topic for
// live viewers.
type StreamEvent struct {
	EventType StreamEventType    `json:"event_type"`
	Payload   StreamEventPayload `json:"payload"`
}

func NewChunkEvent(conversationID, messageID, delta string) StreamEvent {
	return StreamEvent{
		EventType: StreamAssistantChunk,
		Payload:   StreamEventPayload{ConversationID: conversationID, MessageID: messageID, Delta: &delta},
	}
}

func NewCompletedEvent(conversationID, messageID string) StreamEvent {
	return StreamEvent{
		EventType: StreamAssistantCompleted,
		Payload:   StreamEventPayload{ConversationID: conversationID, MessageID: messageID},
	}
}

func NewErrorEvent(conversationID, messageID, friendly string) StreamEvent {
	return StreamEvent{
		EventType: StreamAssistantError,
		Payload:   StreamEventPayload{ConversationID: conversationID, MessageID: messageID, FriendlyMessage: &friendly},
	}
}
