package model

import (
	"fmt"
	"strings"

	"workspace-assistant/internal/domain"
)

// EventTypeGenerateAssistantResponse is the only job type consumed from the
// workspace jobs topic.
const EventTypeGenerateAssistantResponse = "GENERATE_ASSISTANT_RESPONSE"

// AIJob asks for one assistant reply to one user message.
type AIJob struct {
	ConversationID string `json:"conversation_id"`
	ProjectID      string `json:"project_id"`
	UserMessageID  string `json:"user_message_id"`
}

// JobEnvelope is the wire format of the workspace jobs topic.
type JobEnvelope struct {
	EventType string `json:"event_type"`
	Payload   AIJob  `json:"payload"`
}

// Normalize trims surrounding whitespace from every field.
func (j AIJob) Normalize() AIJob {
	return AIJob{
		ConversationID: strings.TrimSpace(j.ConversationID),
		ProjectID:      strings.TrimSpace(j.ProjectID),
		UserMessageID:  strings.TrimSpace(j.UserMessageID),
	}
}

// Validate reports ErrMalformedJob when any required field is blank.
func (j AIJob) Validate() error {
	n := j.Normalize()
	var missing []string
	if n.ConversationID == "" {
		missing = append(missing, "conversation_id")
	}
	if n.ProjectID == "" {
		missing = append(missing, "project_id")
	}
	if n.UserMessageID == "" {
		missing = append(missing, "user_message_id")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", domain.ErrMalformedJob, strings.Join(missing, ", "))
	}
	return nil
}
