package model

import (
	"strings"
	"time"
)

// Project carries the per-project LLM overrides.
type Project struct {
	ID               string
	Name             string
	DatastoreID      *string
	LLMModelOverride *string
	LLMSystemPrompt  *string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// SystemPrompt returns the trimmed custom prompt, or "" when none is set.
func (p *Project) SystemPrompt() string {
	if p == nil || p.LLMSystemPrompt == nil {
		return ""
	}
	return strings.TrimSpace(*p.LLMSystemPrompt)
}

// ModelOverride returns the trimmed per-project model, or "" when none is set.
func (p *Project) ModelOverride() string {
	if p == nil || p.LLMModelOverride == nil {
		return ""
	}
	return strings.TrimSpace(*p.LLMModelOverride)
}
