package pbkernel

import "github.com/prometheus/client_golang/prometheus"

// Prometheus gauges mirroring the counters constraints.hpp's PropEngine
// accumulates and prints via printStats. Gleaned from
// operator-lifecycle-manager's pkg/metrics (package-level prometheus vars plus
// a Register() the caller invokes once at startup); gauges rather than
// counters since ExportMetrics sets them from a PropEngine's own running
// total rather than incrementing them inline, so a process hosting more than
// one engine reports each engine's last-exported snapshot, not a sum.
var (
	visitTotal = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "pbkernel_visit_total",
		Help: "Number of redundancy/RUP checks attempted.",
	})
	visitSatTotal = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "pbkernel_visit_sat_total",
		Help: "Number of redundancy checks short-circuited by an already-conflicting trail.",
	})
	visitRequiredTotal = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "pbkernel_visit_required_total",
		Help: "Number of redundancy checks that required deriving a conflict under the negated candidate.",
	})
	lookupRequestsTotal = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "pbkernel_lookup_requests_total",
		Help: "Number of constraint dedup lookups performed by Attach/Find.",
	})
	hashCollisionsTotal = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "pbkernel_hash_collisions_total",
		Help: "Number of constraint dedup lookups that landed in a bucket with more than one entry.",
	})
)

// RegisterMetrics registers this package's gauges with the default Prometheus
// registry. Call it once per process before serving /metrics.
func RegisterMetrics() {
	prometheus.MustRegister(
		visitTotal,
		visitSatTotal,
		visitRequiredTotal,
		lookupRequestsTotal,
		hashCollisionsTotal,
	)
}

// ExportMetrics pushes e's current EngineStats onto the package's registered
// gauges.
func (e *PropEngine) ExportMetrics() {
	visitTotal.Set(float64(e.Stats.Visit))
	visitSatTotal.Set(float64(e.Stats.VisitSat))
	visitRequiredTotal.Set(float64(e.Stats.VisitRequired))
	lookupRequestsTotal.Set(float64(e.Stats.LookupRequests))
	hashCollisionsTotal.Set(float64(e.Stats.HashCollisions))
}
