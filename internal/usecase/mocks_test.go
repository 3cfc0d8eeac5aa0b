package usecase

import (
	"context"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"workspace-assistant/internal/domain"
	"workspace-assistant/internal/domain/model"
	"workspace-assistant/internal/domain/ports/adapter"
	"workspace-assistant/internal/domain/ports/repository"
)

// memStore is an in-memory database shared by the repository fakes. WithTx
// snapshots it and restores the snapshot when fn fails.
type memStore struct {
	mu            sync.Mutex
	conversations map[string]model.Conversation
	projects      map[string]model.Project
	messages      map[string]model.ConversationMessage
	outbox        []model.OutboxRecord

	createErr   error
	finalizeErr error
	txCount     int
}

func newMemStore() *memStore {
	return &memStore{
		conversations: map[string]model.Conversation{},
		projects:      map[string]model.Project{},
		messages:      map[string]model.ConversationMessage{},
	}
}

type memSnapshot struct {
	conversations map[string]model.Conversation
	messages      map[string]model.ConversationMessage
	outbox        []model.OutboxRecord
}

func (s *memStore) snapshot() memSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := memSnapshot{
		conversations: make(map[string]model.Conversation, len(s.conversations)),
		messages:      make(map[string]model.ConversationMessage, len(s.messages)),
		outbox:        append([]model.OutboxRecord(nil), s.outbox...),
	}
	for k, v := range s.conversations {
		snap.conversations[k] = v
	}
	for k, v := range s.messages {
		snap.messages[k] = v
	}
	return snap
}

func (s *memStore) restore(snap memSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conversations = snap.conversations
	s.messages = snap.messages
	s.outbox = snap.outbox
}

func (s *memStore) WithTx(ctx context.Context, _ pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	snap := s.snapshot()
	s.mu.Lock()
	s.txCount++
	s.mu.Unlock()
	if err := fn(ctx, "mem-tx"); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

func (s *memStore) addConversation(c model.Conversation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conversations[c.ID] = c
}

func (s *memStore) addProject(p model.Project) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.projects[p.ID] = p
}

func (s *memStore) addMessage(m model.ConversationMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages[m.ID] = m
}

func (s *memStore) assistantReplies(conversationID string) []model.ConversationMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.ConversationMessage
	for _, m := range s.messages {
		if m.ConversationID == conversationID && m.Role == model.RoleAssistant {
			out = append(out, m)
		}
	}
	return out
}

func (s *memStore) conversation(id string) model.Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conversations[id]
}

func (s *memStore) outboxRecords() []model.OutboxRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.OutboxRecord(nil), s.outbox...)
}

// --- repositories ---

type memConversationRepo struct{ s *memStore }

func (r memConversationRepo) FindByID(_ context.Context, _ repository.Tx, id string) (*model.Conversation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.conversations[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &c, nil
}

func (r memConversationRepo) FindActiveByID(ctx context.Context, tx repository.Tx, id string) (*model.Conversation, error) {
	c, err := r.FindByID(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if !c.IsActive() {
		return nil, domain.ErrNotFound
	}
	return c, nil
}

func (r memConversationRepo) IncrementOnAssistantCreated(_ context.Context, _ repository.Tx, id string, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.conversations[id]
	if !ok {
		return domain.ErrNotFound
	}
	c.MessageCount++
	c.LastMessageAt = &at
	c.UpdatedAt = at
	r.s.conversations[id] = c
	return nil
}

func (r memConversationRepo) TouchOnAssistantFinalized(_ context.Context, _ repository.Tx, id string, preview *string, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.conversations[id]
	if !ok {
		return nil
	}
	c.LastMessagePreview = preview
	c.LastMessageAt = &at
	c.UpdatedAt = at
	r.s.conversations[id] = c
	return nil
}

type memProjectRepo struct{ s *memStore }

func (r memProjectRepo) FindByID(_ context.Context, _ repository.Tx, id string) (*model.Project, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.projects[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &p, nil
}

type memMessageRepo struct{ s *memStore }

func (r memMessageRepo) FindAssistantByParent(_ context.Context, _ repository.Tx, conversationID, parentID string) (*model.ConversationMessage, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, m := range r.s.messages {
		if m.ConversationID == conversationID && m.Role == model.RoleAssistant && m.ParentID() == parentID {
			cp := m
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r memMessageRepo) Create(_ context.Context, _ repository.Tx, msg *model.ConversationMessage) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.createErr != nil {
		return r.s.createErr
	}
	if msg.Role == model.RoleAssistant {
		for _, m := range r.s.messages {
			if m.ConversationID == msg.ConversationID && m.Role == model.RoleAssistant && m.ParentID() == msg.ParentID() {
				return domain.ErrAlreadyExists
			}
		}
	}
	r.s.messages[msg.ID] = *msg
	return nil
}

func (r memMessageRepo) ListRecent(_ context.Context, _ repository.Tx, conversationID string, limit int) ([]*model.ConversationMessage, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var all []*model.ConversationMessage
	for _, m := range r.s.messages {
		if m.ConversationID == conversationID {
			cp := m
			all = append(all, &cp)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.Before(all[j].CreatedAt) })
	if len(all) > limit {
		all = all[len(all)-limit:]
	}
	return all, nil
}

func (r memMessageRepo) Finalize(_ context.Context, _ repository.Tx, msg *model.ConversationMessage) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.finalizeErr != nil {
		return r.s.finalizeErr
	}
	cur, ok := r.s.messages[msg.ID]
	if !ok || cur.Status != model.MessageStreaming {
		return domain.ErrInvalidTransition
	}
	r.s.messages[msg.ID] = *msg
	return nil
}

type memOutboxRepo struct{ s *memStore }

func (r memOutboxRepo) Insert(_ context.Context, _ repository.Tx, rec *model.OutboxRecord) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.outbox = append(r.s.outbox, *rec)
	return nil
}

// --- providers ---

// scriptedProvider replays events and then ends with failErr, or io.EOF.
type scriptedProvider struct {
	mu      sync.Mutex
	events  []adapter.StreamEvent
	openErr error
	failErr error
	calls   int
	last    []adapter.ChatMessage
	model   string
}

func (p *scriptedProvider) Name() string { return "scripted" }

func (p *scriptedProvider) StreamChat(_ context.Context, messages []adapter.ChatMessage, model string, _ float64) (adapter.ChatStream, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	p.last = messages
	p.model = model
	if p.openErr != nil {
		return nil, p.openErr
	}
	return &scriptedStream{events: append([]adapter.StreamEvent(nil), p.events...), failErr: p.failErr}, nil
}

func (p *scriptedProvider) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

type scriptedStream struct {
	events  []adapter.StreamEvent
	failErr error
	closed  bool
}

func (s *scriptedStream) Recv() (adapter.StreamEvent, error) {
	if len(s.events) > 0 {
		ev := s.events[0]
		s.events = s.events[1:]
		return ev, nil
	}
	if s.failErr != nil {
		return adapter.StreamEvent{}, s.failErr
	}
	return adapter.StreamEvent{}, io.EOF
}

func (s *scriptedStream) Close() error { s.closed = true; return nil }

type fakeFactory struct {
	provider adapter.LLMProvider
	err      error
	names    []string
}

func (f *fakeFactory) Create(_ context.Context, name string) (adapter.LLMProvider, error) {
	f.names = append(f.names, name)
	if f.err != nil {
		return nil, f.err
	}
	return f.provider, nil
}

// --- broker ---

type publishedEvent struct {
	topic string
	event model.StreamEvent
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, topic string, v any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if ev, ok := v.(model.StreamEvent); ok {
		p.events = append(p.events, publishedEvent{topic: topic, event: ev})
	}
	return p.err
}

func (p *recordingPublisher) types() []model.StreamEventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]model.StreamEventType, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.event.EventType)
	}
	return out
}

type fakeLocker struct {
	held     map[string]bool
	err      error
	unlocked []string
}

func (l *fakeLocker) TryLock(_ context.Context, key string, _ time.Duration) (string, bool, error) {
	if l.err != nil {
		return "", false, l.err
	}
	if l.held[key] {
		return "", false, nil
	}
	l.held[key] = true
	return "tok-" + key, true, nil
}

func (l *fakeLocker) Unlock(_ context.Context, key, _ string) error {
	delete(l.held, key)
	l.unlocked = append(l.unlocked, key)
	return nil
}

// newTestLogger creates a silent zerolog.Logger for use in tests.
func newTestLogger() *zerolog.Logger {
	logger := zerolog.New(io.Discard)
	return &logger
}
