package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(aiJobsProcessedTotal, streamChunksPublishedTotal, streamPublishFailuresTotal, workerTaskPanicsTotal, jobsIgnoredTotal)
}

var aiJobsProcessedTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "ai_jobs_processed_total",
		Help: "Total number of assistant response jobs processed, labeled by outcome.",
	},
	[]string{"outcome"}, // completed|failed|duplicate|dropped|error
)

var streamChunksPublishedTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "stream_chunks_published_total",
		Help: "Assistant chunk events published to the live stream topic.",
	},
)

var streamPublishFailuresTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "stream_publish_failures_total",
		Help: "Live stream events that could not be published, by event type.",
	},
	[]string{"event_type"},
)

func IncAIJob(outcome string) {
	aiJobsProcessedTotal.WithLabelValues(norm(outcome)).Inc()
}

func IncStreamChunk() {
	streamChunksPublishedTotal.Inc()
}

func IncStreamPublishFailure(eventType string) {
	streamPublishFailuresTotal.WithLabelValues(norm(eventType)).Inc()
}

var workerTaskPanicsTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "worker_task_panics_total",
		Help: "Worker pool tasks that panicked and were recovered.",
	},
)

var jobsIgnoredTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "jobs_ignored_total",
		Help: "Messages read from the jobs topic that were not dispatched, by reason.",
	},
	[]string{"reason"}, // undecodable|event_type|submit
)

func IncWorkerPanic() {
	workerTaskPanicsTotal.Inc()
}

func IncJobIgnored(reason string) {
	jobsIgnoredTotal.WithLabelValues(norm(reason)).Inc()
}
