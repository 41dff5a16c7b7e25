package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PricingMetrics records quote composition and discount resolution outcomes.
type PricingMetrics struct {
	quoteDuration    *prometheus.HistogramVec
	discountOutcomes *prometheus.CounterVec
	mergeOutcomes    *prometheus.CounterVec
}

// NewPricingMetrics registers the pricing metrics on the provided registerer.
func NewPricingMetrics(reg prometheus.Registerer) *PricingMetrics {
	if reg == nil {
		return &PricingMetrics{}
	}
	quoteDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pricing_quote_duration_seconds",
		Help:    "Duration of price quote composition in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"outcome"})
	discountOutcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "discount_resolutions_total",
		Help: "Discount validation outcomes by type and reason.",
	}, []string{"type", "outcome"})
	mergeOutcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cart_merges_total",
		Help: "Cart merge executions by conflict strategy and outcome.",
	}, []string{"strategy", "outcome"})
	reg.MustRegister(quoteDuration, discountOutcomes, mergeOutcomes)
	return &PricingMetrics{
		quoteDuration:    quoteDuration,
		discountOutcomes: discountOutcomes,
		mergeOutcomes:    mergeOutcomes,
	}
}

// ObserveQuote records how long a quote took and whether it succeeded.
func (p *PricingMetrics) ObserveQuote(outcome string, duration time.Duration) {
	if p == nil || p.quoteDuration == nil {
		return
	}
	p.quoteDuration.WithLabelValues(normalizeLabel(outcome)).Observe(duration.Seconds())
}

// IncDiscountOutcome counts a discount resolution result.
func (p *PricingMetrics) IncDiscountOutcome(discountType, outcome string) {
	if p == nil || p.discountOutcomes == nil {
		return
	}
	p.discountOutcomes.WithLabelValues(normalizeLabel(discountType), normalizeLabel(outcome)).Inc()
}

// IncMergeOutcome counts a cart merge result.
func (p *PricingMetrics) IncMergeOutcome(strategy, outcome string) {
	if p == nil || p.mergeOutcomes == nil {
		return
	}
	p.mergeOutcomes.WithLabelValues(normalizeLabel(strategy), normalizeLabel(outcome)).Inc()
}
