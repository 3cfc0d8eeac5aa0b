package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestIncAIJob_NormalizesOutcome(t *testing.T) {
	before := testutil.ToFloat64(aiJobsProcessedTotal.WithLabelValues("completed"))
	IncAIJob(" Completed ")
	if got := testutil.ToFloat64(aiJobsProcessedTotal.WithLabelValues("completed")); got != before+1 {
		t.Errorf("expected counter to grow by one, got %v -> %v", before, got)
	}
}

func TestObserveChatUsage_AddsTokens(t *testing.T) {
	before := testutil.ToFloat64(aiTokensTotal.WithLabelValues("openai", "gpt-4o-mini"))
	ObserveChatUsage("OpenAI", "gpt-4o-mini", 3, 2, 5, 120, true)
	if got := testutil.ToFloat64(aiTokensTotal.WithLabelValues("openai", "gpt-4o-mini")); got != before+5 {
		t.Errorf("expected total tokens to grow by 5, got %v -> %v", before, got)
	}
}

func TestCollectorsRegisterCleanly(t *testing.T) {
	reg := prometheus.NewRegistry()
	if err := RegisterWith(reg); err != nil {
		t.Fatalf("register collectors: %v", err)
	}
	if err := RegisterWith(reg); err == nil {
		t.Error("expected duplicate registration to fail")
	}
	SetDBPoolStats(10, 4, 6)
	if got := testutil.ToFloat64(dbPoolStats.WithLabelValues("in_use")); got != 6 {
		t.Errorf("expected in_use 6, got %v", got)
	}
}
