//go:build integration

package postgres

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"workspace-assistant/internal/domain/model"
)

func TestOutboxRepo_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode.")
	}
	cleanup(t)

	ctx := context.Background()
	repo := NewOutboxRepo(testPool)
	at := time.Date(2026, 5, 6, 7, 8, 9, 0, time.UTC)
	ds := "ds-1"
	project := &model.Project{ID: "p1", DatastoreID: &ds}
	msg := model.NewStreamingAssistantMessage("a1", "c1", "p1", "u1", "openai", "gpt-4o-mini", at)
	_ = msg.Complete("done", model.Usage{"tokens": 3}, at)

	rec := model.NewAssistantFinalizedOutbox("o1", project, msg, at)
	if err := repo.Insert(ctx, nil, rec); err != nil {
		t.Fatalf("insert outbox: %v", err)
	}

	var entityType, newStatus string
	var datastore *string
	var raw []byte
	err := testPool.QueryRow(ctx,
		`SELECT entity_type, new_status, datastore_id, payload FROM event_outbox WHERE id = 'o1'`).
		Scan(&entityType, &newStatus, &datastore, &raw)
	if err != nil {
		t.Fatalf("query outbox: %v", err)
	}
	if entityType != model.OutboxEntityConversationMessage || newStatus != model.OutboxStatusAssistantFinalized {
		t.Errorf("unexpected outbox row: %s %s", entityType, newStatus)
	}
	if datastore == nil || *datastore != "ds-1" {
		t.Errorf("expected datastore ds-1, got %v", datastore)
	}
	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if payload["message_id"] != "a1" || payload["event_name"] != model.OutboxEventAssistantFinalized {
		t.Errorf("unexpected payload: %v", payload)
	}
}
