package rank

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

func factorKeys(entries []Entry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Factor.Key)
	}
	return out
}

func TestRankEmptyDatasetKeepsRegistrationOrder(t *testing.T) {
	// Every factor degenerates to IV 0; the stable sort must leave the
	// candidates exactly as registered.
	b := NewBuilder(nil, DefaultOptions())
	entries := b.Rank(&domain.Dataset{}, today, baseline)

	require.Len(t, entries, len(DefaultFactors()))
	assert.Equal(t,
		[]string{"channel", "campaign", "influencer", "product", "coupon_cost", "refund_amount"},
		factorKeys(entries))
	for _, e := range entries {
		assert.Zero(t, e.IV, e.Factor.Key)
	}
}

func TestRankMembershipShiftWins(t *testing.T) {
	// Influencer-tagged rows exist only on today; its membership factor must
	// rank first with strictly positive IV while untouched factors stay 0.
	ds := &domain.Dataset{
		Transactions: []domain.Transaction{
			{OrderTS: today, OrderID: "t1", GrossAmount: 500000, InfluencerID: "INF01"},
			{OrderTS: today, OrderID: "t2", GrossAmount: 500000, InfluencerID: "INF01"},
			{OrderTS: today, OrderID: "t3", GrossAmount: 449000, InfluencerID: "INF01"},
			{OrderTS: today, OrderID: "t4", GrossAmount: 300000},
			{OrderTS: today, OrderID: "t5", GrossAmount: 200000},
			{OrderTS: baseline, OrderID: "b1", GrossAmount: 250000},
			{OrderTS: baseline, OrderID: "b2", GrossAmount: 250000},
			{OrderTS: baseline, OrderID: "b3", GrossAmount: 250000},
			{OrderTS: baseline, OrderID: "b4", GrossAmount: 250000},
			{OrderTS: baseline, OrderID: "b5", GrossAmount: 250000},
		},
	}

	entries := NewBuilder(nil, DefaultOptions()).Rank(ds, today, baseline)
	require.NotEmpty(t, entries)
	assert.Equal(t, "influencer", entries[0].Factor.Key)
	assert.Greater(t, entries[0].IV, 0.0)

	for _, e := range entries {
		assert.GreaterOrEqual(t, e.IV, 0.0, e.Factor.Key)
	}
}

func TestRankIgnoresRowsOutsideBothDays(t *testing.T) {
	stray := mustDay("2026-01-01")
	ds := &domain.Dataset{
		Transactions: []domain.Transaction{
			{OrderTS: stray, OrderID: "s1", GrossAmount: 1, InfluencerID: "INF99"},
			{OrderTS: stray, OrderID: "s2", GrossAmount: 1, InfluencerID: "INF99"},
		},
	}
	entries := NewBuilder(nil, DefaultOptions()).Rank(ds, today, baseline)
	for _, e := range entries {
		assert.Zero(t, e.IV, e.Factor.Key)
	}
}

func TestCostFactorBaselineAnchoredTwoBins(t *testing.T) {
	// Baseline refunds sit at 10 and 90; today's all land at 50. With two
	// quantile bins the single interior breakpoint comes from the baseline
	// alone and the factor must still produce a positive IV.
	ds := &domain.Dataset{
		Adjustments: []domain.Adjustment{
			{EventTS: baseline, Amount: 10},
			{EventTS: baseline, Amount: 10},
			{EventTS: baseline, Amount: 10},
			{EventTS: baseline, Amount: 90},
			{EventTS: baseline, Amount: 90},
			{EventTS: baseline, Amount: 90},
			{EventTS: today, Amount: 50},
			{EventTS: today, Amount: 50},
			{EventTS: today, Amount: 50},
			{EventTS: today, Amount: 50},
			{EventTS: today, Amount: 50},
			{EventTS: today, Amount: 50},
		},
	}

	entries := NewBuilder(nil, Options{CostBins: 2, MaxCategoryBins: 20}).Rank(ds, today, baseline)
	iv, found := 0.0, false
	for _, e := range entries {
		if e.Factor.Key == "refund_amount" {
			iv, found = e.IV, true
		}
	}
	require.True(t, found)
	assert.Greater(t, iv, 0.0)
}

func TestCostFactorDegeneratesToZero(t *testing.T) {
	// A flat baseline distribution yields no interior breakpoints; the factor
	// reports 0 instead of failing the ranking.
	ds := &domain.Dataset{
		Adjustments: []domain.Adjustment{
			{EventTS: baseline, Amount: -100},
			{EventTS: baseline, Amount: -100},
			{EventTS: today, Amount: -900},
		},
	}
	entries := NewBuilder(nil, DefaultOptions()).Rank(ds, today, baseline)
	for _, e := range entries {
		if e.Factor.Key == "refund_amount" {
			assert.Zero(t, e.IV)
		}
	}
}

func TestCompositionDetectsMixShift(t *testing.T) {
	// Both days sell products, but the mix flips entirely between the days.
	ds := &domain.Dataset{
		Transactions: []domain.Transaction{
			{OrderTS: today, OrderID: "t1", GrossAmount: 10, ProductID: "A"},
			{OrderTS: today, OrderID: "t2", GrossAmount: 10, ProductID: "A"},
			{OrderTS: today, OrderID: "t3", GrossAmount: 10, ProductID: "A"},
			{OrderTS: baseline, OrderID: "b1", GrossAmount: 10, ProductID: "B"},
			{OrderTS: baseline, OrderID: "b2", GrossAmount: 10, ProductID: "B"},
			{OrderTS: baseline, OrderID: "b3", GrossAmount: 10, ProductID: "B"},
		},
	}
	entries := NewBuilder(nil, DefaultOptions()).Rank(ds, today, baseline)
	for _, e := range entries {
		if e.Factor.Key == "product" {
			assert.Greater(t, e.IV, 0.0)
		}
	}
}

func TestRankSortedDescending(t *testing.T) {
	ds := &domain.Dataset{
		Transactions: []domain.Transaction{
			{OrderTS: today, OrderID: "t1", GrossAmount: 10, InfluencerID: "I1", ProductID: "A"},
			{OrderTS: today, OrderID: "t2", GrossAmount: 10, InfluencerID: "I1", ProductID: "A"},
			{OrderTS: today, OrderID: "t3", GrossAmount: 10, ProductID: "B"},
			{OrderTS: baseline, OrderID: "b1", GrossAmount: 10, ProductID: "B"},
			{OrderTS: baseline, OrderID: "b2", GrossAmount: 10, ProductID: "B"},
			{OrderTS: baseline, OrderID: "b3", GrossAmount: 10, ProductID: "A"},
		},
	}
	entries := NewBuilder(nil, DefaultOptions()).Rank(ds, today, baseline)
	for i := 1; i < len(entries); i++ {
		assert.GreaterOrEqual(t, entries[i-1].IV, entries[i].IV)
	}
}
