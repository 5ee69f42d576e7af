// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package firewall

import "github.com/prometheus/client_golang/prometheus"

// Metrics is the prometheus collector set for engine mutations, grounded
// on the teacher's internal/ebpf/metrics/prometheus.go struct-of-collectors
// pattern. It gives the text-only status report of spec.md §4.5.4 a
// scrapeable counterpart without changing what the core computes.
type Metrics struct {
	RuleCount       *prometheus.GaugeVec   // by family
	Reloads         *prometheus.CounterVec // by family
	IncrementalOps  *prometheus.CounterVec // by family, op (append/delete)
	CommandFailures *prometheus.CounterVec // by binary
}

// NewMetrics creates and registers the engine's collectors against reg.
// Pass prometheus.NewRegistry() in tests to avoid touching the global
// default registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RuleCount: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "ufwgo",
			Name:      "rule_count",
			Help:      "Number of rules currently held in the rule list, by address family.",
		}, []string{"family"}),
		Reloads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ufwgo",
			Name:      "reloads_total",
			Help:      "Full restore-script reloads applied to the kernel, by address family.",
		}, []string{"family"}),
		IncrementalOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ufwgo",
			Name:      "incremental_ops_total",
			Help:      "Incremental -A/-D operations applied to the kernel, by address family and op.",
		}, []string{"family", "op"}),
		CommandFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ufwgo",
			Name:      "command_failures_total",
			Help:      "Non-zero exits from packet-filter binaries, by binary.",
		}, []string{"binary"}),
	}
	if reg != nil {
		reg.MustRegister(m.RuleCount, m.Reloads, m.IncrementalOps, m.CommandFailures)
	}
	return m
}

func familyLabel(v6 bool) string {
	if v6 {
		return "v6"
	}
	return "v4"
}

// observe is nil-safe so an Engine constructed without metrics (e.g. in
// unit tests that don't care about observability) doesn't need a stub.
func (m *Metrics) observeRuleCount(v6 bool, n int) {
	if m == nil {
		return
	}
	m.RuleCount.WithLabelValues(familyLabel(v6)).Set(float64(n))
}

func (m *Metrics) observeReload(v6 bool) {
	if m == nil {
		return
	}
	m.Reloads.WithLabelValues(familyLabel(v6)).Inc()
}

func (m *Metrics) observeIncremental(v6 bool, op string) {
	if m == nil {
		return
	}
	m.IncrementalOps.WithLabelValues(familyLabel(v6), op).Inc()
}

func (m *Metrics) observeCommandFailure(binary string) {
	if m == nil {
		return
	}
	m.CommandFailures.WithLabelValues(binary).Inc()
}
