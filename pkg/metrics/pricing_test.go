package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestPricingMetricsExports(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewPricingMetrics(reg)

	metrics.ObserveQuote("success", 120*time.Millisecond)
	metrics.IncDiscountOutcome("percentage", "applied")
	metrics.IncDiscountOutcome("percentage", "rejected")
	metrics.IncMergeOutcome("combined", "success")

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "cart_merges_total", "strategy", "combined"); err != nil {
		t.Fatalf("fetch merges: %v", err)
	} else if got != 1 {
		t.Fatalf("expected merges=1, got %f", got)
	}

	if got, err := fetchHistogramSum(mfs, "pricing_quote_duration_seconds", "outcome", "success"); err != nil {
		t.Fatalf("fetch quote duration: %v", err)
	} else if got <= 0 {
		t.Fatalf("expected duration sum > 0, got %f", got)
	}

	mf := findMetricFamily(mfs, "discount_resolutions_total")
	if mf == nil {
		t.Fatal("expected discount_resolutions_total metric family")
	}
	if len(mf.GetMetric()) != 2 {
		t.Fatalf("expected two discount outcome series, got %d", len(mf.GetMetric()))
	}
}

func TestPricingMetricsNilSafe(t *testing.T) {
	var metrics *PricingMetrics
	metrics.ObserveQuote("success", time.Millisecond)
	metrics.IncDiscountOutcome("fixed_amount", "applied")
	metrics.IncMergeOutcome("user", "failure")
}
