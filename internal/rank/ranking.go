// Package rank stacks today and baseline rows under a binary snapshot label
// and ranks candidate factors by how well they separate the two days,
// measured as Information Value.
package rank

import (
	"math"
	"sort"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/revlens/revlens/internal/domain"
	"github.com/revlens/revlens/internal/stats"
)

// Kind tells the drill-down layer which aggregate a factor explains.
type Kind string

const (
	KindRevenue Kind = "revenue"
	KindCost    Kind = "cost"
)

// Mode selects the IV recipe for a factor.
type Mode string

const (
	// ModeMembership asks whether rows carry any value for the attribute.
	ModeMembership Mode = "membership"
	// ModeComposition uses the literal attribute value, so IV measures how
	// the dimension's mix shifted between the two days.
	ModeComposition Mode = "composition"
	// ModeCost quantile-bins a monetary column with breakpoints anchored to
	// the baseline day's distribution.
	ModeCost Mode = "cost"
)

// Factor is one ranking candidate.
type Factor struct {
	Key       string
	Label     string
	Kind      Kind
	Mode      Mode
	Attribute domain.Attribute
}

// Entry is a ranked factor with its Information Value.
type Entry struct {
	Factor Factor  `json:"factor"`
	IV     float64 `json:"iv"`
}

// Options tune the ranking pass.
type Options struct {
	// CostBins is the quantile count for cost columns (reference uses 10).
	CostBins int
	// MaxCategoryBins caps the bin count handed to the evaluator for
	// composition factors.
	MaxCategoryBins int
}

// DefaultOptions mirrors the reference implementation.
func DefaultOptions() Options {
	return Options{CostBins: 10, MaxCategoryBins: 20}
}

// DefaultFactors is the standard candidate set in registration order:
// membership dimensions first, then product composition, then cost columns.
func DefaultFactors() []Factor {
	return []Factor{
		{Key: "channel", Label: "channel (revenue)", Kind: KindRevenue, Mode: ModeMembership, Attribute: domain.AttrChannel},
		{Key: "campaign", Label: "campaign (revenue)", Kind: KindRevenue, Mode: ModeMembership, Attribute: domain.AttrCampaign},
		{Key: "influencer", Label: "influencer (revenue)", Kind: KindRevenue, Mode: ModeMembership, Attribute: domain.AttrInfluencer},
		{Key: "product", Label: "product mix (revenue)", Kind: KindRevenue, Mode: ModeComposition, Attribute: domain.AttrProduct},
		{Key: "coupon_cost", Label: "coupon cost (cost)", Kind: KindCost, Mode: ModeCost},
		{Key: "refund_amount", Label: "refund amount (cost)", Kind: KindCost, Mode: ModeCost},
	}
}

// Builder ranks factors for (today, baseline) pairs.
type Builder struct {
	factors []Factor
	opts    Options
}

// NewBuilder creates a ranking builder. Nil factors selects DefaultFactors.
func NewBuilder(factors []Factor, opts Options) *Builder {
	if factors == nil {
		factors = DefaultFactors()
	}
	if opts.CostBins < 2 {
		opts.CostBins = DefaultOptions().CostBins
	}
	if opts.MaxCategoryBins < 2 {
		opts.MaxCategoryBins = DefaultOptions().MaxCategoryBins
	}
	return &Builder{factors: factors, opts: opts}
}

// Rank computes IV for every candidate factor and returns them sorted
// descending. A factor that cannot be evaluated contributes IV = 0 instead
// of failing the ranking; ties keep registration order (stable sort).
func (b *Builder) Rank(ds *domain.Dataset, today, baseline time.Time) []Entry {
	entries := make([]Entry, 0, len(b.factors))
	for _, f := range b.factors {
		iv := b.factorIV(ds, f, today, baseline)
		if math.IsNaN(iv) || math.IsInf(iv, 0) {
			iv = 0
		}
		entries = append(entries, Entry{Factor: f, IV: iv})
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].IV > entries[j].IV })
	return entries
}

func (b *Builder) factorIV(ds *domain.Dataset, f Factor, today, baseline time.Time) float64 {
	var (
		iv  float64
		err error
	)
	switch f.Mode {
	case ModeMembership:
		iv, err = b.membershipIV(ds, f.Attribute, today, baseline)
	case ModeComposition:
		iv, err = b.compositionIV(ds, f.Attribute, today, baseline)
	case ModeCost:
		iv, err = b.costIV(ds, f.Key, today, baseline)
	}
	if err != nil {
		// Degenerate statistics are recovered locally so one uninformative
		// factor cannot abort the whole ranking.
		log.Debug().Err(err).Str("factor", f.Key).Msg("factor IV degenerate, using 0")
		return 0
	}
	return iv
}

// membershipIV computes IV of a 0/1 "row has this attribute" variable
// against the snapshot label.
func (b *Builder) membershipIV(ds *domain.Dataset, attr domain.Attribute, today, baseline time.Time) (float64, error) {
	var levels []string
	var label []int
	for _, t := range ds.Transactions {
		y, in := snapshotLabel(t.OrderTS, today, baseline)
		if !in {
			continue
		}
		member := "0"
		if domain.HasValue(t.Attr(attr)) {
			member = "1"
		}
		levels = append(levels, member)
		label = append(label, y)
	}
	return singleIV(string(attr), stats.Variable{Name: string(attr), Levels: levels}, label, 2)
}

// compositionIV computes IV of the literal attribute value against the
// snapshot label, so a shift in the dimension's mix registers even when
// membership is unchanged.
func (b *Builder) compositionIV(ds *domain.Dataset, attr domain.Attribute, today, baseline time.Time) (float64, error) {
	var levels []string
	var label []int
	distinct := make(map[string]struct{})
	for _, t := range ds.Transactions {
		y, in := snapshotLabel(t.OrderTS, today, baseline)
		if !in {
			continue
		}
		v := t.Attr(attr)
		if !domain.HasValue(v) {
			v = ""
		}
		levels = append(levels, v)
		label = append(label, y)
		distinct[v] = struct{}{}
	}
	bins := len(distinct)
	if bins > b.opts.MaxCategoryBins {
		bins = b.opts.MaxCategoryBins
	}
	if bins < 2 {
		bins = 2
	}
	return singleIV(string(attr), stats.Variable{Name: string(attr), Levels: levels}, label, bins)
}

// costIV bins a monetary column with quantile breakpoints derived from the
// baseline day only, then measures how today's rows migrated across those
// fixed intervals. Anchoring to the baseline is deliberate: IV is not
// symmetric under swapping the two days.
func (b *Builder) costIV(ds *domain.Dataset, key string, today, baseline time.Time) (float64, error) {
	var values []float64
	var label []int
	var baselineValues []float64

	add := func(ts time.Time, v float64) {
		y, in := snapshotLabel(ts, today, baseline)
		if !in {
			return
		}
		values = append(values, v)
		label = append(label, y)
		if y == 0 {
			baselineValues = append(baselineValues, v)
		}
	}

	switch key {
	case "coupon_cost":
		for _, t := range ds.Transactions {
			add(t.OrderTS, t.DiscountAmount)
		}
	case "refund_amount":
		for _, a := range ds.Adjustments {
			add(a.EventTS, a.Amount)
		}
	}

	breaks := stats.InteriorBreakpoints(baselineValues, b.opts.CostBins)
	if len(breaks) == 0 {
		return 0, nil
	}
	levels := stats.BinByBreakpoints(values, breaks)
	return singleIV(key, stats.Variable{Name: key, Levels: levels}, label, len(breaks)+1)
}

func singleIV(name string, v stats.Variable, label []int, bins int) (float64, error) {
	_, ivs, err := stats.Evaluate([]stats.Variable{v}, label, bins)
	if err != nil {
		return 0, err
	}
	for _, entry := range ivs {
		if entry.Variable == name {
			return entry.IV, nil
		}
	}
	return 0, nil
}

// snapshotLabel maps a timestamp to the binary snapshot label: 1 for today,
// 0 for baseline, excluded otherwise.
func snapshotLabel(ts, today, baseline time.Time) (int, bool) {
	switch {
	case domain.SameDay(ts, today):
		return 1, true
	case domain.SameDay(ts, baseline):
		return 0, true
	default:
		return 0, false
	}
}
