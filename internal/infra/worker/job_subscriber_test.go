package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"workspace-assistant/internal/domain/model"
	"workspace-assistant/internal/usecase"
)

type chanSubscriber struct {
	mu    sync.Mutex
	chans []chan []byte
	calls int
}

func (s *chanSubscriber) Subscribe(ctx context.Context, topic string) (<-chan []byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.calls >= len(s.chans) {
		return nil, errors.New("no more subscriptions")
	}
	ch := s.chans[s.calls]
	s.calls++
	return ch, nil
}

func (s *chanSubscriber) subscribeCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type recordingResponder struct {
	mu   sync.Mutex
	jobs []model.AIJob
	seen chan model.AIJob
	err  error
}

func (r *recordingResponder) Handle(_ context.Context, job model.AIJob) (usecase.Outcome, error) {
	r.mu.Lock()
	r.jobs = append(r.jobs, job)
	r.mu.Unlock()
	r.seen <- job
	if r.err != nil {
		return usecase.OutcomeError, r.err
	}
	return usecase.OutcomeCompleted, nil
}

func TestJobSubscriber_DispatchesOnlyAssistantJobs(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	msgs := make(chan []byte, 4)
	sub := &chanSubscriber{chans: []chan []byte{msgs}}
	responder := &recordingResponder{seen: make(chan model.AIJob, 4), err: errors.New("db down")}
	pool := NewPool(2, silentLogger())
	pool.Start(ctx)

	s := NewJobSubscriber(sub, "project_workspace_jobs", pool, responder, silentLogger())
	go s.Run(ctx)

	msgs <- []byte(`not json`)
	msgs <- []byte(`{"event_type":"SOMETHING_ELSE","payload":{"conversation_id":"c0"}}`)
	msgs <- []byte(`{"event_type":"GENERATE_ASSISTANT_RESPONSE","payload":{"conversation_id":"c1","project_id":"p1","user_message_id":"m1"}}`)
	msgs <- []byte(`{"event_type":"GENERATE_ASSISTANT_RESPONSE","payload":{"conversation_id":"c2","project_id":"p1","user_message_id":"m2"}}`)

	got := map[string]bool{}
	for i := 0; i < 2; i++ {
		select {
		case job := <-responder.seen:
			got[job.ConversationID] = true
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for jobs")
		}
	}
	if !got["c1"] || !got["c2"] || len(got) != 2 {
		t.Errorf("unexpected dispatched jobs %v", got)
	}

	select {
	case job := <-responder.seen:
		t.Fatalf("unexpected extra job %+v", job)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestJobSubscriber_ResubscribesWhenChannelCloses(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	first := make(chan []byte)
	second := make(chan []byte, 1)
	sub := &chanSubscriber{chans: []chan []byte{first, second}}
	responder := &recordingResponder{seen: make(chan model.AIJob, 1)}
	pool := NewPool(1, silentLogger())
	pool.Start(ctx)

	s := NewJobSubscriber(sub, "jobs", pool, responder, silentLogger())
	done := make(chan struct{})
	go func() { s.Run(ctx); close(done) }()

	close(first)
	second <- []byte(`{"event_type":"GENERATE_ASSISTANT_RESPONSE","payload":{"conversation_id":"c9","project_id":"p","user_message_id":"m"}}`)

	select {
	case job := <-responder.seen:
		if job.ConversationID != "c9" {
			t.Errorf("unexpected job %+v", job)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for job after resubscribe")
	}
	if sub.subscribeCalls() != 2 {
		t.Errorf("expected 2 subscribe calls, got %d", sub.subscribeCalls())
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
