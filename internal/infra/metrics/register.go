package metrics

import (
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once
	collectors   []prometheus.Collector
)

// register queues collectors from each file's init.
func register(cs ...prometheus.Collector) {
	collectors = append(collectors, cs...)
}

// RegisterWith adds every queued collector to reg.
func RegisterWith(reg prometheus.Registerer) error {
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// MustRegister registers the queued collectors with the default registry once.
func MustRegister() {
	registerOnce.Do(func() {
		if err := RegisterWith(prometheus.DefaultRegisterer); err != nil {
			panic(err)
		}
	})
}

// norm lowercases label values so provider names from config and jobs match.
func norm(s string) string { return strings.ToLower(strings.TrimSpace(s)) }
