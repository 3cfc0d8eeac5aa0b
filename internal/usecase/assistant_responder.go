package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"workspace-assistant/internal/domain"
	"workspace-assistant/internal/domain/model"
	"workspace-assistant/internal/domain/ports/adapter"
	"workspace-assistant/internal/domain/ports/repository"
	"workspace-assistant/internal/infra/logging"
	"workspace-assistant/internal/infra/metrics"
)

// Outcome is how a job ended.
type Outcome string

const (
	OutcomeDropped   Outcome = "dropped"
	OutcomeDuplicate Outcome = "duplicate"
	OutcomeCompleted Outcome = "completed"
	OutcomeFailed    Outcome = "failed"
	// OutcomeError is returned together with a non-nil error.
	OutcomeError Outcome = "error"
)

// finalizeTimeout bounds the terminal write when the job context is already done.
const finalizeTimeout = 10 * time.Second

// Compile-time check
var _ AssistantResponder = (*assistantResponder)(nil)

type AssistantResponder interface {
	// Handle produces at most one assistant reply for job. Provider failures
	// are absorbed into an ERROR message and OutcomeFailed; a non-nil error
	// means the job could not be processed at all.
	Handle(ctx context.Context, job model.AIJob) (Outcome, error)
}

type ResponderConfig struct {
	StreamTopic string
	// LockTTL enables the in-flight job lock when positive.
	LockTTL time.Duration
}

type assistantResponder struct {
	tm            repository.TransactionManager
	conversations repository.ConversationRepository
	messages      repository.ConversationMessageRepository
	outbox        repository.OutboxRepository
	llm           LLMService
	publisher     adapter.Publisher
	locker        adapter.JobLocker
	cfg           ResponderConfig
	log           *zerolog.Logger

	now        func() time.Time
	newID      func() string
	newEventID func() string
}

// NewAssistantResponder wires the job orchestration. locker may be nil.
func NewAssistantResponder(
	tm repository.TransactionManager,
	conversations repository.ConversationRepository,
	messages repository.ConversationMessageRepository,
	outbox repository.OutboxRepository,
	llm LLMService,
	publisher adapter.Publisher,
	locker adapter.JobLocker,
	cfg ResponderConfig,
	logger *zerolog.Logger,
) *assistantResponder {
	return &assistantResponder{
		tm:            tm,
		conversations: conversations,
		messages:      messages,
		outbox:        outbox,
		llm:           llm,
		publisher:     publisher,
		locker:        locker,
		cfg:           cfg,
		log:           logger,
		now:           func() time.Time { return time.Now().UTC() },
		newID:         uuid.NewString,
		newEventID:    func() string { return ulid.Make().String() },
	}
}

func (r *assistantResponder) Handle(ctx context.Context, job model.AIJob) (Outcome, error) {
	job = job.Normalize()
	if err := job.Validate(); err != nil {
		r.log.Warn().Err(err).
			Str("conversation_id", job.ConversationID).
			Str("project_id", job.ProjectID).
			Str("user_message_id", job.UserMessageID).
			Msg("dropping invalid assistant job")
		return OutcomeDropped, nil
	}

	ctx = logging.WithConversationID(ctx, job.ConversationID)
	ctx = logging.WithUserMessageID(ctx, job.UserMessageID)
	log := logging.With(ctx, r.log)
	defer logging.TraceDuration(log, "AssistantResponder.Handle")()

	if r.locker != nil && r.cfg.LockTTL > 0 {
		key := job.ConversationID + ":" + job.UserMessageID
		token, ok, err := r.locker.TryLock(ctx, key, r.cfg.LockTTL)
		switch {
		case err != nil:
			// the unique index still guarantees a single reply
			log.Warn().Err(err).Msg("job lock unavailable, continuing without it")
		case !ok:
			log.Info().Msg("assistant job already in flight, skipping")
			return OutcomeDuplicate, nil
		default:
			defer func() {
				if err := r.locker.Unlock(context.WithoutCancel(ctx), key, token); err != nil {
					log.Warn().Err(err).Msg("release job lock")
				}
			}()
		}
	}

	existing, err := r.messages.FindAssistantByParent(ctx, nil, job.ConversationID, job.UserMessageID)
	switch {
	case err == nil:
		log.Info().
			Str("existing_message_id", existing.ID).
			Str("status", string(existing.Status)).
			Msg("skipping duplicate assistant job")
		return OutcomeDuplicate, nil
	case !errors.Is(err, domain.ErrNotFound):
		return OutcomeError, fmt.Errorf("lookup existing reply: %w", err)
	}

	req, err := r.llm.BuildRequest(ctx, job.ConversationID)
	if err != nil {
		return OutcomeError, fmt.Errorf("build llm request: %w", err)
	}
	log.Debug().
		Str("provider", req.Provider).
		Str("model", req.Model).
		Int("context_messages", len(req.Context.Messages)).
		Int("prompt_tokens", req.Context.PromptTokens).
		Msg("llm request built")
	metrics.ObservePromptTokens(req.Model, req.Context.PromptTokens)

	msg, dup, err := r.createStreamingMessage(ctx, job, req)
	if err != nil {
		return OutcomeError, err
	}
	if dup {
		log.Info().Msg("assistant reply created concurrently, skipping")
		return OutcomeDuplicate, nil
	}
	ctx = logging.WithMessageID(ctx, msg.ID)
	log = logging.With(ctx, r.log)

	started := time.Now()
	text, usage, streamErr := r.stream(ctx, log, req, msg)
	latency := int(time.Since(started).Milliseconds())
	if streamErr != nil {
		metrics.ObserveChatUsage(req.Provider, req.Model, 0, 0, 0, latency, false)
		return r.finalizeFailed(ctx, log, req, msg, text, streamErr)
	}
	metrics.ObserveChatUsage(req.Provider, req.Model,
		usageInt(usage, "prompt_tokens"), usageInt(usage, "completion_tokens"), usageInt(usage, "total_tokens"),
		latency, true)
	return r.finalizeCompleted(ctx, log, req, msg, text, usage)
}

// createStreamingMessage inserts the placeholder reply and bumps the
// conversation counters together. dup reports a lost race on the unique index.
func (r *assistantResponder) createStreamingMessage(ctx context.Context, job model.AIJob, req *LLMRequest) (*model.ConversationMessage, bool, error) {
	now := r.now()
	msg := model.NewStreamingAssistantMessage(r.newID(), job.ConversationID, job.ProjectID, job.UserMessageID, req.Provider, req.Model, now)
	err := r.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		if err := r.messages.Create(ctx, tx, msg); err != nil {
			return err
		}
		return r.conversations.IncrementOnAssistantCreated(ctx, tx, job.ConversationID, now)
	})
	switch {
	case errors.Is(err, domain.ErrAlreadyExists):
		return nil, true, nil
	case errors.Is(err, domain.ErrNotFound):
		return nil, false, fmt.Errorf("conversation %s: %w", job.ConversationID, err)
	case err != nil:
		return nil, false, fmt.Errorf("create streaming message: %w", err)
	}
	return msg, false, nil
}

// stream relays deltas in arrival order and returns whatever text arrived,
// even on failure.
func (r *assistantResponder) stream(ctx context.Context, log *zerolog.Logger, req *LLMRequest, msg *model.ConversationMessage) (string, model.Usage, error) {
	s, err := r.llm.StreamChat(ctx, req)
	if err != nil {
		return "", nil, err
	}
	defer func() { _ = s.Close() }()

	var b strings.Builder
	var usage model.Usage
	for {
		ev, err := s.Recv()
		if errors.Is(err, io.EOF) {
			return b.String(), usage, nil
		}
		if err != nil {
			return b.String(), usage, err
		}
		if ev.Delta != "" {
			b.WriteString(ev.Delta)
			metrics.IncStreamChunk()
			r.publish(ctx, log, model.NewChunkEvent(msg.ConversationID, msg.ID, ev.Delta))
		}
		if ev.Usage != nil {
			usage = model.Usage(ev.Usage)
		}
	}
}

func (r *assistantResponder) finalizeCompleted(ctx context.Context, log *zerolog.Logger, req *LLMRequest, msg *model.ConversationMessage, text string, usage model.Usage) (Outcome, error) {
	ctx, cancel := finalizeContext(ctx)
	defer cancel()

	now := r.now()
	if err := msg.Complete(text, usage, now); err != nil {
		return OutcomeError, err
	}
	rec := model.NewAssistantFinalizedOutbox(r.newEventID(), req.Context.Project, msg, now)
	err := r.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		if err := r.messages.Finalize(ctx, tx, msg); err != nil {
			return err
		}
		if err := r.conversations.TouchOnAssistantFinalized(ctx, tx, msg.ConversationID, model.TrimPreview(text, model.PreviewLimit), now); err != nil {
			return err
		}
		return r.outbox.Insert(ctx, tx, rec)
	})
	if err != nil {
		return OutcomeError, fmt.Errorf("finalize completed reply: %w", err)
	}

	r.publish(ctx, log, model.NewCompletedEvent(msg.ConversationID, msg.ID))
	log.Info().Int("chars", len(text)).Msg("assistant reply completed")
	return OutcomeCompleted, nil
}

func (r *assistantResponder) finalizeFailed(ctx context.Context, log *zerolog.Logger, req *LLMRequest, msg *model.ConversationMessage, partial string, cause error) (Outcome, error) {
	ctx, cancel := finalizeContext(ctx)
	defer cancel()

	friendly := FriendlyErrorMessage(cause)
	diag := ProviderDiagnostic(cause)
	if partial != "" {
		diag["partial_text"] = partial
	}
	kind := fmt.Sprint(diag["kind"])
	metrics.IncProviderError(req.Provider, kind)
	log.Error().Err(cause).Str("kind", kind).Msg("llm streaming failed")

	now := r.now()
	if err := msg.Fail(friendly, diag, now); err != nil {
		return OutcomeError, err
	}
	err := r.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		if err := r.messages.Finalize(ctx, tx, msg); err != nil {
			return err
		}
		return r.conversations.TouchOnAssistantFinalized(ctx, tx, msg.ConversationID, model.TrimPreview(friendly, model.PreviewLimit), now)
	})
	if err != nil {
		return OutcomeError, fmt.Errorf("finalize failed reply: %w", err)
	}

	r.publish(ctx, log, model.NewErrorEvent(msg.ConversationID, msg.ID, friendly))
	return OutcomeFailed, nil
}

// publish is best-effort; live viewers may miss events.
func (r *assistantResponder) publish(ctx context.Context, log *zerolog.Logger, ev model.StreamEvent) {
	if err := r.publisher.Publish(ctx, r.cfg.StreamTopic, ev); err != nil {
		metrics.IncStreamPublishFailure(string(ev.EventType))
		log.Warn().Err(err).Str("event_type", string(ev.EventType)).Msg("stream publish failed")
	}
}

// finalizeContext keeps terminal writes possible after the job context ended,
// so a reply is never left STREAMING by a shutdown.
func finalizeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx.Err() == nil {
		return ctx, func() {}
	}
	return context.WithTimeout(context.WithoutCancel(ctx), finalizeTimeout)
}

func usageInt(u model.Usage, key string) int {
	switch v := u[key].(type) {
	case int:
		return v
	case int32:
		return int(v)
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}
