package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"workspace-assistant/internal/domain/model"
	"workspace-assistant/internal/domain/ports/adapter"
	"workspace-assistant/internal/infra/logging"
	"workspace-assistant/internal/infra/metrics"
	"workspace-assistant/internal/usecase"
)

const (
	minResubscribeDelay = 500 * time.Millisecond
	maxResubscribeDelay = 30 * time.Second
)

// JobSubscriber consumes the workspace jobs topic and runs each assistant job
// on the pool. One failing job never stops the loop.
type JobSubscriber struct {
	sub       adapter.Subscriber
	topic     string
	pool      *Pool
	responder usecase.AssistantResponder
	log       *zerolog.Logger
}

func NewJobSubscriber(sub adapter.Subscriber, topic string, pool *Pool, responder usecase.AssistantResponder, logger *zerolog.Logger) *JobSubscriber {
	l := logger.With().Str("component", "job_subscriber").Str("topic", topic).Logger()
	return &JobSubscriber{sub: sub, topic: topic, pool: pool, responder: responder, log: &l}
}

// Run blocks until ctx is done, resubscribing with backoff whenever the
// subscription is lost.
func (s *JobSubscriber) Run(ctx context.Context) {
	delay := minResubscribeDelay
	for {
		msgs, err := s.sub.Subscribe(ctx, s.topic)
		if err == nil {
			s.log.Info().Msg("consuming assistant jobs")
			delay = minResubscribeDelay
			s.consume(ctx, msgs)
		}
		if ctx.Err() != nil {
			s.log.Info().Msg("job subscriber stopping")
			return
		}
		s.log.Warn().Err(err).Dur("retry_in", delay).Msg("job subscription lost")
		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
		if delay *= 2; delay > maxResubscribeDelay {
			delay = maxResubscribeDelay
		}
	}
}

func (s *JobSubscriber) consume(ctx context.Context, msgs <-chan []byte) {
	for {
		select {
		case <-ctx.Done():
			return
		case raw, ok := <-msgs:
			if !ok {
				return
			}
			s.dispatch(ctx, raw)
		}
	}
}

func (s *JobSubscriber) dispatch(ctx context.Context, raw []byte) {
	var env model.JobEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		metrics.IncJobIgnored("undecodable")
		s.log.Warn().Err(err).Int("bytes", len(raw)).Msg("dropping undecodable job message")
		return
	}
	if env.EventType != model.EventTypeGenerateAssistantResponse {
		metrics.IncJobIgnored("event_type")
		s.log.Debug().Str("event_type", env.EventType).Msg("ignoring job message")
		return
	}

	job := env.Payload
	err := s.pool.Submit(ctx, func(ctx context.Context) error {
		s.process(ctx, job)
		return nil
	})
	if err != nil {
		metrics.IncJobIgnored("submit")
		s.log.Warn().Err(err).
			Str("conversation_id", job.ConversationID).
			Str("user_message_id", job.UserMessageID).
			Msg("could not submit assistant job")
	}
}

func (s *JobSubscriber) process(ctx context.Context, job model.AIJob) {
	ctx = logging.WithTraceID(ctx, uuid.NewString())
	outcome, err := s.responder.Handle(ctx, job)
	metrics.IncAIJob(string(outcome))
	if err != nil {
		log := logging.With(ctx, s.log)
		log.Error().Err(err).
			Str("conversation_id", job.ConversationID).
			Str("project_id", job.ProjectID).
			Str("user_message_id", job.UserMessageID).
			Msg("assistant job failed")
		return
	}
	s.log.Debug().
		Str("conversation_id", job.ConversationID).
		Str("user_message_id", job.UserMessageID).
		Str("outcome", string(outcome)).
		Msg("assistant job done")
}
