// Package report turns a ranked factor list into the auditable payload the
// narrative and chat collaborators consume: key-metric deltas, the full
// ranking, and summary/detail tables for every high-IV factor.
package report

import (
	"math"
	"time"

	"github.com/revlens/revlens/internal/domain"
	"github.com/revlens/revlens/internal/metrics"
)

// DayAggregate holds the key metrics of one day.
type DayAggregate struct {
	Date           time.Time `json:"date"`
	GrossSales     float64   `json:"gross_sales"`
	RefundAbs      float64   `json:"refund"`
	CouponCost     float64   `json:"coupon_cost"`
	AdCost         float64   `json:"ad_cost"`
	InfluencerCost float64   `json:"influencer_cost"`
	TotalCost      float64   `json:"total_cost"`
	Profit         float64   `json:"profit"`
}

// Change is one metric's today/baseline pair with its percent change.
type Change struct {
	Today    float64 `json:"today"`
	Baseline float64 `json:"baseline"`
	Pct      float64 `json:"pct"`
}

// Aggregator computes key metrics through the metric registry, so shared
// dependencies (gross sales feeding net sales and profit) resolve once.
type Aggregator struct {
	registry *metrics.Registry
}

// NewAggregator wires an aggregator to a registry. Nil selects the default
// e-commerce registry.
func NewAggregator(r *metrics.Registry) *Aggregator {
	if r == nil {
		r = metrics.Default()
	}
	return &Aggregator{registry: r}
}

// AggregateDay computes one day's key metrics. Gross sales, refunds and
// coupon cost come from the registry; ad and influencer spend are summed
// from their cost tables, which degrade to zero when absent.
func (a *Aggregator) AggregateDay(ds *domain.Dataset, day time.Time) (DayAggregate, error) {
	ctx := metrics.Context{Data: ds, Start: day, End: day}

	gross, err := a.registry.ComputeMetric("gross_sales", ctx)
	if err != nil {
		return DayAggregate{}, err
	}
	refund, err := a.registry.ComputeMetric("refund_amount", ctx)
	if err != nil {
		return DayAggregate{}, err
	}
	coupon, err := a.registry.ComputeMetric("coupon_cost", ctx)
	if err != nil {
		return DayAggregate{}, err
	}

	agg := DayAggregate{
		Date:           domain.DayOf(day),
		GrossSales:     gross.ValueOn(day),
		RefundAbs:      math.Abs(refund.ValueOn(day)),
		CouponCost:     coupon.ValueOn(day),
		AdCost:         sumCosts(ds.AdCosts, day),
		InfluencerCost: sumCosts(ds.InfluencerCosts, day),
	}
	agg.TotalCost = agg.RefundAbs + agg.CouponCost + agg.AdCost + agg.InfluencerCost
	agg.Profit = agg.GrossSales - agg.TotalCost
	return agg, nil
}

// Changes builds the per-metric change summary between two day aggregates.
func Changes(today, baseline DayAggregate) map[string]Change {
	pair := func(t, b float64) Change {
		return Change{Today: t, Baseline: b, Pct: PercentChange(t, b)}
	}
	return map[string]Change{
		"gross_sales":     pair(today.GrossSales, baseline.GrossSales),
		"refund":          pair(today.RefundAbs, baseline.RefundAbs),
		"coupon_cost":     pair(today.CouponCost, baseline.CouponCost),
		"ad_cost":         pair(today.AdCost, baseline.AdCost),
		"influencer_cost": pair(today.InfluencerCost, baseline.InfluencerCost),
		"total_cost":      pair(today.TotalCost, baseline.TotalCost),
		"profit":          pair(today.Profit, baseline.Profit),
	}
}

// PercentChange is (today-baseline)/baseline*100 with asymmetric zero
// handling: 0 when both sides are zero, a signed 100 when only the baseline
// is zero. Downstream copy depends on this exact behavior; do not replace it
// with an epsilon denominator.
func PercentChange(today, baseline float64) float64 {
	if baseline == 0 {
		if today == 0 {
			return 0
		}
		if today > 0 {
			return 100
		}
		return -100
	}
	return (today - baseline) / baseline * 100
}

func sumCosts(entries []domain.CostEntry, day time.Time) float64 {
	var total float64
	for _, e := range entries {
		if domain.SameDay(e.Date, day) {
			total += e.Amount
		}
	}
	return total
}
