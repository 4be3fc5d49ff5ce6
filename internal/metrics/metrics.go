// Package metrics exposes the coordinator's running totals as Prometheus
// gauges/counters for live introspection during long runs, in addition to
// the structured record internal/export writes at the end of a run.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry bundles every gauge/counter the coordinator updates. A nil
// *Registry is valid and every method becomes a no-op, so wiring Prometheus
// in is entirely optional.
type Registry struct {
	reg *prometheus.Registry

	BlocksProduced   prometheus.Counter
	CoinsIssued      prometheus.Counter
	Difficulty       prometheus.Gauge
	MempoolSize      prometheus.Gauge
	BlockTimeHist    prometheus.Histogram
	ProducerShare    *prometheus.CounterVec
	PropagationHops  prometheus.Histogram
}

// New creates and registers a fresh metric set against its own registry (not
// the global default one, so repeated simulation runs in the same process
// never collide on duplicate registration).
func New() *Registry {
	reg := prometheus.NewRegistry()
	r := &Registry{
		reg: reg,
		BlocksProduced: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chainsim_blocks_produced_total", Help: "Total blocks accepted onto the canonical chain.",
		}),
		CoinsIssued: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chainsim_coins_issued_total", Help: "Total coins minted by block rewards.",
		}),
		Difficulty: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "chainsim_difficulty", Help: "Current chain difficulty (drives PoW delay sampling).",
		}),
		MempoolSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "chainsim_mempool_size", Help: "Pending transactions awaiting inclusion.",
		}),
		BlockTimeHist: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name: "chainsim_block_time_seconds", Help: "Observed inter-block delay.",
			Buckets: prometheus.DefBuckets,
		}),
		ProducerShare: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "chainsim_producer_blocks_total", Help: "Blocks produced per producer id.",
		}, []string{"producer_id"}),
		PropagationHops: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name: "chainsim_propagation_hops", Help: "BFS hop depth reached per propagated block.",
			Buckets: prometheus.LinearBuckets(0, 1, 10),
		}),
	}
	reg.MustRegister(r.BlocksProduced, r.CoinsIssued, r.Difficulty, r.MempoolSize, r.BlockTimeHist, r.ProducerShare, r.PropagationHops)
	return r
}

// Registerer exposes the underlying *prometheus.Registry for an HTTP
// exposition handler (promhttp.HandlerFor), left to the caller to wire up;
// the core engine never opens a listener itself.
func (r *Registry) Registerer() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.reg
}

// ObserveBlock records one accepted block's metrics. Safe to call on a nil
// *Registry.
func (r *Registry) ObserveBlock(producerID int, delay, difficulty, reward float64, mempoolLen, propagationHops int) {
	if r == nil {
		return
	}
	r.BlocksProduced.Inc()
	r.CoinsIssued.Add(reward)
	r.Difficulty.Set(difficulty)
	r.MempoolSize.Set(float64(mempoolLen))
	r.BlockTimeHist.Observe(delay)
	r.ProducerShare.WithLabelValues(strconv.Itoa(producerID)).Inc()
	r.PropagationHops.Observe(float64(propagationHops))
}
