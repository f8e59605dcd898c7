package report

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/revlens/revlens/internal/domain"
)

var (
	today    = mustDay("2026-02-20")
	baseline = mustDay("2026-02-19")
)

func mustDay(s string) time.Time {
	t, err := domain.ParseDay(s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestPercentChange(t *testing.T) {
	cases := []struct {
		name     string
		today    float64
		baseline float64
		want     float64
	}{
		{"both zero", 0, 0, 0},
		{"from zero up", 100, 0, 100},
		{"from zero down", -50, 0, -100},
		{"plain increase", 120, 100, 20},
		{"plain decrease", 80, 100, -20},
		{"negative baseline", -50, -100, -50},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.InDelta(t, tc.want, PercentChange(tc.today, tc.baseline), 1e-9)
		})
	}
}

func TestAggregateDay(t *testing.T) {
	ds := &domain.Dataset{
		Transactions: []domain.Transaction{
			{OrderTS: today.Add(9 * time.Hour), OrderID: "o1", GrossAmount: 1000, DiscountAmount: 50},
			{OrderTS: today.Add(10 * time.Hour), OrderID: "o2", GrossAmount: 500},
			{OrderTS: baseline, OrderID: "o3", GrossAmount: 9999}, // other day, ignored
		},
		Adjustments: []domain.Adjustment{
			{EventTS: today.Add(12 * time.Hour), Amount: -200, ProductID: "P1"},
		},
		AdCosts:         []domain.CostEntry{{Date: today, Amount: 300}},
		InfluencerCosts: []domain.CostEntry{{Date: today, Amount: 100}},
	}

	agg, err := NewAggregator(nil).AggregateDay(ds, today)
	require.NoError(t, err)

	assert.InDelta(t, 1500.0, agg.GrossSales, 1e-9)
	assert.InDelta(t, 200.0, agg.RefundAbs, 1e-9, "refunds are reported as absolute cost")
	assert.InDelta(t, 50.0, agg.CouponCost, 1e-9)
	assert.InDelta(t, 300.0, agg.AdCost, 1e-9)
	assert.InDelta(t, 100.0, agg.InfluencerCost, 1e-9)
	assert.InDelta(t, 650.0, agg.TotalCost, 1e-9)
	assert.InDelta(t, 850.0, agg.Profit, 1e-9)
	assert.Equal(t, domain.DayOf(today), agg.Date)
}

func TestAggregateDayEmptyTables(t *testing.T) {
	agg, err := NewAggregator(nil).AggregateDay(&domain.Dataset{}, today)
	require.NoError(t, err)
	assert.Zero(t, agg.GrossSales)
	assert.Zero(t, agg.TotalCost)
	assert.Zero(t, agg.Profit)
}

func TestChanges(t *testing.T) {
	todayAgg := DayAggregate{GrossSales: 120, RefundAbs: 10, AdCost: 40}
	baseAgg := DayAggregate{GrossSales: 100, RefundAbs: 0, AdCost: 50}

	changes := Changes(todayAgg, baseAgg)
	for _, key := range []string{"gross_sales", "refund", "coupon_cost", "ad_cost", "influencer_cost", "total_cost", "profit"} {
		assert.Contains(t, changes, key)
	}
	assert.InDelta(t, 20.0, changes["gross_sales"].Pct, 1e-9)
	assert.InDelta(t, 100.0, changes["refund"].Pct, 1e-9, "baseline zero maps to signed 100")
	assert.InDelta(t, -20.0, changes["ad_cost"].Pct, 1e-9)
	assert.InDelta(t, 120.0, changes["gross_sales"].Today, 1e-9)
	assert.InDelta(t, 100.0, changes["gross_sales"].Baseline, 1e-9)
}
