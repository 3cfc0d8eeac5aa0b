package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		aiTokensIn,
		aiTokensOut,
		aiTokensTotal,
		aiStreamLatencyMs,
		aiProviderErrors,
		aiPromptTokensEstimate,
	)
}

var (
	aiTokensIn = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_tokens_in",
			Help: "Sum of prompt (input) tokens per provider/model.",
		},
		[]string{"provider", "model"},
	)

	aiTokensOut = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_tokens_out",
			Help: "Sum of completion (output) tokens per provider/model.",
		},
		[]string{"provider", "model"},
	)

	aiTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_tokens_total",
			Help: "Sum of total tokens per provider/model.",
		},
		[]string{"provider", "model"},
	)

	aiStreamLatencyMs = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ai_stream_latency_ms",
			Help:    "Provider stream duration in milliseconds, from open to close.",
			Buckets: []float64{100, 250, 500, 1000, 2000, 4000, 8000, 16000, 32000, 64000},
		},
		[]string{"provider", "model", "success"},
	)

	aiProviderErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_provider_errors_total",
			Help: "Provider failures recorded on assistant messages, by kind.",
		},
		[]string{"provider", "kind"},
	)

	aiPromptTokensEstimate = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ai_prompt_tokens_estimate",
			Help:    "Estimated prompt tokens of the assembled conversation context.",
			Buckets: prometheus.ExponentialBuckets(64, 2, 10),
		},
		[]string{"model"},
	)
)

func ObserveChatUsage(provider, model string, tokensIn, tokensOut, tokensTotal int, latencyMs int, success bool) {
	lbl := []string{norm(provider), norm(model)}
	aiTokensIn.WithLabelValues(lbl...).Add(float64(tokensIn))
	aiTokensOut.WithLabelValues(lbl...).Add(float64(tokensOut))
	aiTokensTotal.WithLabelValues(lbl...).Add(float64(tokensTotal))
	aiStreamLatencyMs.WithLabelValues(norm(provider), norm(model), strconv.FormatBool(success)).
		Observe(float64(latencyMs))
}

func IncProviderError(provider, kind string) {
	aiProviderErrors.WithLabelValues(norm(provider), norm(kind)).Inc()
}

func ObservePromptTokens(model string, tokens int) {
	aiPromptTokensEstimate.WithLabelValues(norm(model)).Observe(float64(tokens))
}
