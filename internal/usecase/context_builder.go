package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"workspace-assistant/internal/domain"
	"workspace-assistant/internal/domain/model"
	"workspace-assistant/internal/domain/ports/adapter"
	"workspace-assistant/internal/domain/ports/repository"
)

// DefaultProjectSystemPrompt is used when a project has no prompt of its own.
const DefaultProjectSystemPrompt = "You are Lucy, an intelligent AI assistant helping with this project."

// ContextBuildResult is the prompt assembled for one conversation.
type ContextBuildResult struct {
	Conversation *model.Conversation
	Project      *model.Project
	// Messages starts with exactly one system message.
	Messages     []adapter.ChatMessage
	PromptTokens int
}

// TokenCounter estimates the prompt size of messages.
type TokenCounter interface {
	Count(messages []adapter.ChatMessage) int
}

// Compile-time check
var _ ContextBuilder = (*contextBuilder)(nil)

type ContextBuilder interface {
	BuildContext(ctx context.Context, conversationID string) (*ContextBuildResult, error)
}

type contextBuilder struct {
	conversations repository.ConversationRepository
	projects      repository.ProjectRepository
	messages      repository.ConversationMessageRepository
	window        int
	tokens        TokenCounter
}

// NewContextBuilder returns a builder reading at most window messages.
// tokens may be nil.
func NewContextBuilder(
	conversations repository.ConversationRepository,
	projects repository.ProjectRepository,
	messages repository.ConversationMessageRepository,
	window int,
	tokens TokenCounter,
) *contextBuilder {
	if window <= 0 {
		window = 20
	}
	return &contextBuilder{
		conversations: conversations,
		projects:      projects,
		messages:      messages,
		window:        window,
		tokens:        tokens,
	}
}

func (b *contextBuilder) BuildContext(ctx context.Context, conversationID string) (*ContextBuildResult, error) {
	conv, err := b.conversations.FindActiveByID(ctx, nil, conversationID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("conversation %s: %w", conversationID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("load conversation: %w", err)
	}
	project, err := b.projects.FindByID(ctx, nil, conv.ProjectID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("project %s: %w", conv.ProjectID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("load project: %w", err)
	}
	rows, err := b.messages.ListRecent(ctx, nil, conversationID, b.window)
	if err != nil {
		return nil, fmt.Errorf("list recent messages: %w", err)
	}

	prompt := project.SystemPrompt()
	if prompt == "" {
		prompt = DefaultProjectSystemPrompt
	}
	msgs := make([]adapter.ChatMessage, 0, len(rows)+1)
	msgs = append(msgs, adapter.ChatMessage{Role: adapter.RoleSystem, Content: prompt})
	for _, row := range rows {
		content := strings.TrimSpace(row.ContentText)
		if content == "" || row.Status == model.MessageError {
			continue
		}
		msgs = append(msgs, adapter.ChatMessage{Role: string(row.Role), Content: content})
	}

	res := &ContextBuildResult{Conversation: conv, Project: project, Messages: msgs}
	if b.tokens != nil {
		res.PromptTokens = b.tokens.Count(msgs)
	}
	return res, nil
}
