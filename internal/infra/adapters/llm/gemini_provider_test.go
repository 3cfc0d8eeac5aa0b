package llm

import (
	"errors"
	"io"
	"iter"
	"testing"

	"google.golang.org/genai"

	"workspace-assistant/internal/domain/ports/adapter"
)

func TestToGenAIContents_LiftsSystemAndMapsRoles(t *testing.T) {
	system, contents := toGenAIContents([]adapter.ChatMessage{
		{Role: adapter.RoleSystem, Content: "be brief"},
		{Role: adapter.RoleUser, Content: "hi"},
		{Role: adapter.RoleAssistant, Content: "hello"},
	})
	if system == nil || len(system.Parts) != 1 || system.Parts[0].Text != "be brief" {
		t.Fatalf("unexpected system instruction: %+v", system)
	}
	if len(contents) != 2 {
		t.Fatalf("expected 2 contents, got %d", len(contents))
	}
	if contents[0].Role != genai.RoleUser || contents[1].Role != genai.RoleModel {
		t.Errorf("unexpected roles: %s, %s", contents[0].Role, contents[1].Role)
	}
}

func geminiChunk(text string, usage *genai.GenerateContentResponseUsageMetadata) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Role: genai.RoleModel, Parts: []*genai.Part{{Text: text}}},
		}},
		UsageMetadata: usage,
	}
}

func TestGeminiStream_EmitsUsageOnceAtEnd(t *testing.T) {
	seq := iter.Seq2[*genai.GenerateContentResponse, error](func(yield func(*genai.GenerateContentResponse, error) bool) {
		if !yield(geminiChunk("Hel", &genai.GenerateContentResponseUsageMetadata{PromptTokenCount: 2, TotalTokenCount: 3}), nil) {
			return
		}
		yield(geminiChunk("lo", &genai.GenerateContentResponseUsageMetadata{PromptTokenCount: 2, CandidatesTokenCount: 2, TotalTokenCount: 4}), nil)
	})
	s := newGeminiStream(seq)
	defer s.Close()

	var text string
	var usages []map[string]any
	for {
		ev, err := s.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		text += ev.Delta
		if ev.Usage != nil {
			usages = append(usages, ev.Usage)
		}
	}
	if text != "Hello" {
		t.Errorf("expected Hello, got %q", text)
	}
	if len(usages) != 1 || usages[0]["total_tokens"] != int32(4) {
		t.Errorf("expected a single final usage event, got %v", usages)
	}
}

func TestGeminiStream_ConvertsAPIError(t *testing.T) {
	seq := iter.Seq2[*genai.GenerateContentResponse, error](func(yield func(*genai.GenerateContentResponse, error) bool) {
		if !yield(geminiChunk("partial", nil), nil) {
			return
		}
		yield(nil, genai.APIError{Code: 429, Message: "Resource has been exhausted", Status: "RESOURCE_EXHAUSTED"})
	})
	s := newGeminiStream(seq)
	defer s.Close()

	if ev, err := s.Recv(); err != nil || ev.Delta != "partial" {
		t.Fatalf("expected partial delta, got %+v %v", ev, err)
	}
	_, err := s.Recv()
	var pe *adapter.ProviderError
	if !errors.As(err, &pe) {
		t.Fatalf("expected ProviderError, got %v", err)
	}
	if pe.Kind != adapter.ProviderErrRateLimit || pe.Type != "RESOURCE_EXHAUSTED" || pe.Provider != ProviderGemini {
		t.Errorf("unexpected provider error: %+v", pe)
	}
}
