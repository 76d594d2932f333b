// Package metrics holds the Prometheus counters for thread state operations.
package metrics

import (
	"fmt"
	"sort"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "threadstate"

// Metrics holds all counters. A nil *Metrics is not valid; use New(nil) for
// unregistered counters.
type Metrics struct {
	ConfigurationWrites     prometheus.Counter
	ConfigurationUnchanged  prometheus.Counter
	ConfigurationCacheHits  prometheus.Counter
	ConfigurationCacheMiss  prometheus.Counter
	ConfigurationCacheStale prometheus.Counter
	DurationsClamped        prometheus.Counter
	VerificationEvents      *prometheus.CounterVec
	OutboxEnqueued          prometheus.Counter
}

// New creates all counters and registers them with reg. A nil reg leaves the
// counters unregistered, which tests use to avoid global state.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ConfigurationWrites: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "configuration_writes_total",
			Help:      "Disappearing message configurations persisted",
		}),
		ConfigurationUnchanged: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "configuration_unchanged_total",
			Help:      "Configuration applies skipped because nothing changed",
		}),
		ConfigurationCacheHits: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "configuration_cache_hits_total",
			Help:      "Configuration fetches served from the read cache",
		}),
		ConfigurationCacheMiss: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "configuration_cache_misses_total",
			Help:      "Configuration fetches that read the database",
		}),
		ConfigurationCacheStale: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "configuration_cache_stale_total",
			Help:      "Cached configurations dropped because the row version moved",
		}),
		DurationsClamped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "durations_clamped_total",
			Help:      "Durations clamped to the policy maximum",
		}),
		VerificationEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "verification_events_total",
			Help:      "Verification state changes recorded, by new state",
		}, []string{"state"}),
		OutboxEnqueued: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outbox_enqueued_total",
			Help:      "Sync notifications enqueued",
		}),
	}
}

// Sample is one gathered counter value.
type Sample struct {
	Name   string  `json:"name"`
	Labels string  `json:"labels,omitempty"`
	Value  float64 `json:"value"`
}

// Snapshot gathers every counter from g, sorted by name then labels.
func Snapshot(g prometheus.Gatherer) ([]Sample, error) {
	families, err := g.Gather()
	if err != nil {
		return nil, fmt.Errorf("gather metrics: %w", err)
	}

	samples := []Sample{}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			if m.GetCounter() == nil {
				continue
			}
			pairs := make([]string, 0, len(m.GetLabel()))
			for _, lp := range m.GetLabel() {
				pairs = append(pairs, lp.GetName()+"="+lp.GetValue())
			}
			samples = append(samples, Sample{
				Name:   mf.GetName(),
				Labels: strings.Join(pairs, ","),
				Value:  m.GetCounter().GetValue(),
			})
		}
	}

	sort.Slice(samples, func(i, j int) bool {
		if samples[i].Name != samples[j].Name {
			return samples[i].Name < samples[j].Name
		}
		return samples[i].Labels < samples[j].Labels
	})
	return samples, nil
}
