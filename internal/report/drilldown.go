package report

import (
	"sort"
	"time"

	"github.com/revlens/revlens/internal/domain"
	"github.com/revlens/revlens/internal/rank"
)

// SummaryRow is one of the two rows of a factor's summary table.
type SummaryRow struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}

// DetailRow compares one member of a factor between the two days. Members
// missing on one day carry zero there rather than being dropped.
type DetailRow struct {
	Member   string  `json:"member"`
	Name     string  `json:"name,omitempty"`
	Today    float64 `json:"today"`
	Baseline float64 `json:"baseline"`
}

// FactorTables is the drill-down for one high-IV factor: a two-row summary
// and a top-N detail table.
type FactorTables struct {
	Factor  string       `json:"factor"`
	IV      float64      `json:"iv"`
	Summary []SummaryRow `json:"summary"`
	Detail  []DetailRow  `json:"detail"`
}

// BuildDrilldowns expands every ranking entry whose IV strictly exceeds
// threshold into summary/detail tables.
func BuildDrilldowns(ds *domain.Dataset, today, baseline time.Time, ranking []rank.Entry, threshold float64, topN int) []FactorTables {
	if topN <= 0 {
		topN = 5
	}
	var out []FactorTables
	for _, e := range ranking {
		if e.IV <= threshold {
			continue
		}
		tables := buildFactorTables(ds, today, baseline, e, topN)
		out = append(out, tables)
	}
	return out
}

func buildFactorTables(ds *domain.Dataset, today, baseline time.Time, e rank.Entry, topN int) FactorTables {
	t := FactorTables{Factor: e.Factor.Label, IV: e.IV}
	switch {
	case e.Factor.Key == "refund_amount":
		t.Summary = refundSummary(ds, today, baseline)
		t.Detail = refundDetail(ds, today, baseline, topN)
	case e.Factor.Key == "coupon_cost":
		t.Summary = couponSummary(ds, today, baseline)
		t.Detail = couponDetail(ds, today, baseline, topN)
	default:
		// Revenue-side factors share a total-sales summary and group the
		// detail by the factor's own attribute.
		t.Summary = salesSummary(ds, today, baseline)
		t.Detail = salesDetail(ds, today, baseline, e.Factor.Attribute, topN)
	}
	return t
}

func salesSummary(ds *domain.Dataset, today, baseline time.Time) []SummaryRow {
	return twoRows(today, baseline,
		sumSales(ds, today),
		sumSales(ds, baseline))
}

func refundSummary(ds *domain.Dataset, today, baseline time.Time) []SummaryRow {
	return twoRows(today, baseline,
		sumAdjustments(ds, today),
		sumAdjustments(ds, baseline))
}

func couponSummary(ds *domain.Dataset, today, baseline time.Time) []SummaryRow {
	return twoRows(today, baseline,
		sumDiscounts(ds, today),
		sumDiscounts(ds, baseline))
}

func twoRows(today, baseline time.Time, todayVal, baselineVal float64) []SummaryRow {
	return []SummaryRow{
		{Date: domain.DayOf(today), Value: todayVal},
		{Date: domain.DayOf(baseline), Value: baselineVal},
	}
}

// salesDetail groups sales by the attribute's members and keeps the topN by
// today's value, largest contributors first. Rows without a value for the
// attribute are not members and are excluded.
func salesDetail(ds *domain.Dataset, today, baseline time.Time, attr domain.Attribute, topN int) []DetailRow {
	todayTotals := make(map[string]float64)
	baselineTotals := make(map[string]float64)
	for _, tx := range ds.Transactions {
		v := tx.Attr(attr)
		if !domain.HasValue(v) {
			continue
		}
		switch {
		case domain.SameDay(tx.OrderTS, today):
			todayTotals[v] += tx.GrossAmount
		case domain.SameDay(tx.OrderTS, baseline):
			baselineTotals[v] += tx.GrossAmount
		}
	}
	rows := mergeMembers(todayTotals, baselineTotals)
	if attr == domain.AttrProduct {
		enrichNames(ds, rows)
	}
	sortDetail(rows, false)
	return clip(rows, topN)
}

// refundDetail groups adjustments by product and keeps the topN by today's
// value ascending: the most negative refunds surface first.
func refundDetail(ds *domain.Dataset, today, baseline time.Time, topN int) []DetailRow {
	todayTotals := make(map[string]float64)
	baselineTotals := make(map[string]float64)
	for _, a := range ds.Adjustments {
		member := a.ProductID
		if !domain.HasValue(member) {
			member = "<unattributed>"
		}
		switch {
		case domain.SameDay(a.EventTS, today):
			todayTotals[member] += a.Amount
		case domain.SameDay(a.EventTS, baseline):
			baselineTotals[member] += a.Amount
		}
	}
	rows := mergeMembers(todayTotals, baselineTotals)
	enrichNames(ds, rows)
	sortDetail(rows, true)
	return clip(rows, topN)
}

func couponDetail(ds *domain.Dataset, today, baseline time.Time, topN int) []DetailRow {
	todayTotals := make(map[string]float64)
	baselineTotals := make(map[string]float64)
	for _, tx := range ds.Transactions {
		if !domain.HasValue(tx.CouponID) {
			continue
		}
		switch {
		case domain.SameDay(tx.OrderTS, today):
			todayTotals[tx.CouponID] += tx.DiscountAmount
		case domain.SameDay(tx.OrderTS, baseline):
			baselineTotals[tx.CouponID] += tx.DiscountAmount
		}
	}
	rows := mergeMembers(todayTotals, baselineTotals)
	sortDetail(rows, false)
	return clip(rows, topN)
}

// mergeMembers outer-joins the two per-member maps, zero-filling whichever
// day is missing a member.
func mergeMembers(todayTotals, baselineTotals map[string]float64) []DetailRow {
	members := make(map[string]struct{}, len(todayTotals)+len(baselineTotals))
	for m := range todayTotals {
		members[m] = struct{}{}
	}
	for m := range baselineTotals {
		members[m] = struct{}{}
	}
	rows := make([]DetailRow, 0, len(members))
	for m := range members {
		rows = append(rows, DetailRow{
			Member:   m,
			Today:    todayTotals[m],
			Baseline: baselineTotals[m],
		})
	}
	// Deterministic base order before the value sort.
	sort.Slice(rows, func(i, j int) bool { return rows[i].Member < rows[j].Member })
	return rows
}

func enrichNames(ds *domain.Dataset, rows []DetailRow) {
	if len(ds.Products) == 0 {
		return
	}
	for i := range rows {
		if name := ds.ProductName(rows[i].Member); name != rows[i].Member {
			rows[i].Name = name
		}
	}
}

func sortDetail(rows []DetailRow, ascending bool) {
	sort.SliceStable(rows, func(i, j int) bool {
		if ascending {
			return rows[i].Today < rows[j].Today
		}
		return rows[i].Today > rows[j].Today
	})
}

func clip(rows []DetailRow, topN int) []DetailRow {
	if len(rows) > topN {
		rows = rows[:topN]
	}
	return rows
}

func sumSales(ds *domain.Dataset, day time.Time) float64 {
	var total float64
	for _, tx := range ds.Transactions {
		if domain.SameDay(tx.OrderTS, day) {
			total += tx.GrossAmount
		}
	}
	return total
}

func sumAdjustments(ds *domain.Dataset, day time.Time) float64 {
	var total float64
	for _, a := range ds.Adjustments {
		if domain.SameDay(a.EventTS, day) {
			total += a.Amount
		}
	}
	return total
}

func sumDiscounts(ds *domain.Dataset, day time.Time) float64 {
	var total float64
	for _, tx := range ds.Transactions {
		if domain.SameDay(tx.OrderTS, day) {
			total += tx.DiscountAmount
		}
	}
	return total
}
