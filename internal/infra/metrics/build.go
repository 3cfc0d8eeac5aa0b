package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(buildInfo) }

var buildInfo = prometheus.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "workspace_assistant_build_info",
		Help: "A constant metric with labels for version, commit and default llm provider.",
	},
	[]string{"version", "commit", "default_provider"},
)

func SetBuildInfo(version, commit, defaultProvider string) {
	buildInfo.WithLabelValues(version, commit, norm(defaultProvider)).Set(1)
}
