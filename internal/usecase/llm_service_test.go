package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"workspace-assistant/internal/config"
	"workspace-assistant/internal/domain"
	"workspace-assistant/internal/domain/model"
	"workspace-assistant/internal/domain/ports/adapter"
)

// deadlineProbe records whether StreamChat saw a deadline and whether its
// context is cancelled when the stream is closed.
type deadlineProbe struct {
	hadDeadline bool
	ctx         context.Context
}

func (p *deadlineProbe) Name() string { return "probe" }
func (p *deadlineProbe) StreamChat(ctx context.Context, _ []adapter.ChatMessage, _ string, _ float64) (adapter.ChatStream, error) {
	_, p.hadDeadline = ctx.Deadline()
	p.ctx = ctx
	return &scriptedStream{}, nil
}

func TestBuildRequest_ModelOverride(t *testing.T) {
	s := seedBuilderStore()
	override := " gpt-4.1 "
	s.addProject(model.Project{ID: "p1", LLMModelOverride: &override})
	b := NewContextBuilder(memConversationRepo{s}, memProjectRepo{s}, memMessageRepo{s}, 20, nil)
	svc := NewLLMService(b, &fakeFactory{}, config.LLMConfig{DefaultProvider: "openai", DefaultModel: "gpt-4o-mini", Temperature: 0.3})

	req, err := svc.BuildRequest(context.Background(), "c1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.Provider != "openai" || req.Model != "gpt-4.1" || req.Temperature != 0.3 {
		t.Errorf("unexpected request %+v", req)
	}

	s.addProject(model.Project{ID: "p1"})
	req, _ = svc.BuildRequest(context.Background(), "c1")
	if req.Model != "gpt-4o-mini" {
		t.Errorf("expected default model, got %s", req.Model)
	}
}

func TestStreamChat_UsesFactoryAndTimeout(t *testing.T) {
	probe := &deadlineProbe{}
	factory := &fakeFactory{provider: probe}
	svc := NewLLMService(nil, factory, config.LLMConfig{StreamTimeout: time.Minute})
	req := &LLMRequest{Provider: "openai", Model: "m", Context: &ContextBuildResult{}}

	stream, err := svc.StreamChat(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(factory.names) != 1 || factory.names[0] != "openai" {
		t.Errorf("expected factory to resolve openai, got %v", factory.names)
	}
	if !probe.hadDeadline {
		t.Error("expected stream timeout to set a deadline")
	}
	_ = stream.Close()
	if !errors.Is(probe.ctx.Err(), context.Canceled) {
		t.Errorf("expected stream context to be released on close, got %v", probe.ctx.Err())
	}
}

func TestStreamChat_FactoryError(t *testing.T) {
	svc := NewLLMService(nil, &fakeFactory{err: domain.ErrUnsupportedProvider}, config.LLMConfig{})
	_, err := svc.StreamChat(context.Background(), &LLMRequest{Provider: "x", Context: &ContextBuildResult{}})
	if !errors.Is(err, domain.ErrUnsupportedProvider) {
		t.Fatalf("expected ErrUnsupportedProvider, got %v", err)
	}
}
