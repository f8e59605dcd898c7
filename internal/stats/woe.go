// Package stats computes Weight-of-Evidence and Information Value for
// variables against a binary label. Shares are kept in percent units, so IV
// values land on the 0..~100 scale the drill-down threshold is calibrated to.
package stats

import (
	"fmt"
	"math"
	"sort"
	"strconv"
)

// missingLevel is the bin every absent value falls into.
const missingLevel = "<missing>"

// Variable is one column to evaluate. Exactly one of Numeric or Levels must
// be set; NaN entries in Numeric and empty strings in Levels count as missing.
type Variable struct {
	Name    string
	Numeric []float64
	Levels  []string
}

func (v Variable) length() int {
	if v.Numeric != nil {
		return len(v.Numeric)
	}
	return len(v.Levels)
}

// BinStat is the per-bin breakdown of one variable.
type BinStat struct {
	Variable     string  `json:"variable"`
	Bin          string  `json:"bin"`
	N            int     `json:"n"`
	Events       int     `json:"events"`
	NonEvents    int     `json:"non_events"`
	PctEvents    float64 `json:"pct_events"`
	PctNonEvents float64 `json:"pct_non_events"`
	WoE          float64 `json:"woe"`
	IV           float64 `json:"iv"`
}

// VariableIV is the summed Information Value of one variable.
type VariableIV struct {
	Variable string  `json:"variable"`
	IV       float64 `json:"iv"`
}

// Evaluate computes WoE/IV for each variable against the binary label.
// Numeric variables with more distinct values than bins are quantile-binned
// against their own distribution; everything else bins by distinct value.
// A label with fewer than two classes yields IV = 0 for every variable.
func Evaluate(vars []Variable, label []int, bins int) ([]BinStat, []VariableIV, error) {
	if bins < 2 {
		return nil, nil, fmt.Errorf("bins must be >= 2, got %d", bins)
	}
	for _, v := range vars {
		if v.Numeric != nil && v.Levels != nil {
			return nil, nil, fmt.Errorf("variable %q sets both numeric and categorical data", v.Name)
		}
		if v.length() != len(label) {
			return nil, nil, fmt.Errorf("variable %q has %d rows, label has %d", v.Name, v.length(), len(label))
		}
	}

	if !labelHasBothClasses(label) {
		ivs := make([]VariableIV, len(vars))
		for i, v := range vars {
			ivs[i] = VariableIV{Variable: v.Name, IV: 0}
		}
		return nil, ivs, nil
	}

	var allBins []BinStat
	ivs := make([]VariableIV, 0, len(vars))
	for _, v := range vars {
		levels := v.Levels
		if v.Numeric != nil {
			levels = binNumeric(v.Numeric, bins)
		}
		binStats := tabulate(v.Name, levels, label)
		total := 0.0
		for _, b := range binStats {
			total += b.IV
		}
		allBins = append(allBins, binStats...)
		ivs = append(ivs, VariableIV{Variable: v.Name, IV: total})
	}
	return allBins, ivs, nil
}

func labelHasBothClasses(label []int) bool {
	var pos, neg bool
	for _, y := range label {
		if y != 0 {
			pos = true
		} else {
			neg = true
		}
		if pos && neg {
			return true
		}
	}
	return false
}

// tabulate groups rows by level and applies the smoothed WoE/IV formulas.
// The 0.5 added to Events and NonEvents keeps the log-odds finite when a bin
// holds only one class; as a consequence every bin's IV term is non-negative.
func tabulate(name string, levels []string, label []int) []BinStat {
	type counts struct{ n, events int }
	byLevel := make(map[string]*counts)
	order := make([]string, 0)
	for i, lv := range levels {
		if lv == "" {
			lv = missingLevel
		}
		c, ok := byLevel[lv]
		if !ok {
			c = &counts{}
			byLevel[lv] = c
			order = append(order, lv)
		}
		c.n++
		if label[i] != 0 {
			c.events++
		}
	}
	sort.Strings(order)

	sumE, sumNE := 0.0, 0.0
	for _, lv := range order {
		c := byLevel[lv]
		sumE += float64(c.events) + 0.5
		sumNE += float64(c.n-c.events) + 0.5
	}

	out := make([]BinStat, 0, len(order))
	for _, lv := range order {
		c := byLevel[lv]
		nonEvents := c.n - c.events
		pctE := (float64(c.events) + 0.5) * 100 / sumE
		pctNE := (float64(nonEvents) + 0.5) * 100 / sumNE
		woe := math.Log(pctE / pctNE)
		out = append(out, BinStat{
			Variable:     name,
			Bin:          lv,
			N:            c.n,
			Events:       c.events,
			NonEvents:    nonEvents,
			PctEvents:    pctE,
			PctNonEvents: pctNE,
			WoE:          woe,
			IV:           (pctE - pctNE) * woe,
		})
	}
	return out
}

// binNumeric maps numeric values onto quantile interval labels when the
// column has more distinct values than bins, otherwise onto the stringified
// values themselves. NaN maps to the missing level either way.
func binNumeric(values []float64, bins int) []string {
	finite := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			finite = append(finite, v)
		}
	}
	if distinctCount(finite) <= bins {
		out := make([]string, len(values))
		for i, v := range values {
			if math.IsNaN(v) {
				out[i] = missingLevel
				continue
			}
			out[i] = strconv.FormatFloat(v, 'g', -1, 64)
		}
		return out
	}

	edges := quantileEdges(finite, bins)
	out := make([]string, len(values))
	for i, v := range values {
		if math.IsNaN(v) {
			out[i] = missingLevel
			continue
		}
		out[i] = intervalLabel(edges, intervalIndex(edges, v))
	}
	return out
}

// quantileEdges returns bins+1 quantile cut points over the values' own
// distribution with duplicates collapsed. Collapsing can shrink the
// effective bin count; that is the documented contract, not a defect.
func quantileEdges(values []float64, bins int) []float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	edges := make([]float64, 0, bins+1)
	for k := 0; k <= bins; k++ {
		q := percentile(sorted, float64(k)*100/float64(bins))
		if len(edges) == 0 || q > edges[len(edges)-1] {
			edges = append(edges, q)
		}
	}
	return edges
}

// percentile computes the p-th percentile with linear interpolation over an
// already sorted slice.
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 1 {
		return sorted[0]
	}
	h := float64(len(sorted)-1) * p / 100
	lo := int(math.Floor(h))
	if lo >= len(sorted)-1 {
		return sorted[len(sorted)-1]
	}
	frac := h - float64(lo)
	return sorted[lo] + (sorted[lo+1]-sorted[lo])*frac
}

// intervalIndex places v into right-closed intervals delimited by edges.
// Values at or below the first interior edge land in interval 0.
func intervalIndex(edges []float64, v float64) int {
	idx := 0
	for k := 1; k < len(edges)-1; k++ {
		if v > edges[k] {
			idx = k
		}
	}
	return idx
}

func intervalLabel(edges []float64, idx int) string {
	lo := strconv.FormatFloat(edges[idx], 'g', 6, 64)
	hi := strconv.FormatFloat(edges[idx+1], 'g', 6, 64)
	if idx == 0 {
		return "[" + lo + ", " + hi + "]"
	}
	return "(" + lo + ", " + hi + "]"
}

func distinctCount(values []float64) int {
	seen := make(map[float64]struct{}, len(values))
	for _, v := range values {
		seen[v] = struct{}{}
	}
	return len(seen)
}

// InteriorBreakpoints returns the deduplicated interior quantile breakpoints
// of values for the requested bin count. This is the baseline-anchored half
// of cost binning: callers derive breakpoints from the baseline day only and
// reuse them to bin both days.
func InteriorBreakpoints(values []float64, bins int) []float64 {
	if len(values) < 2 || bins < 2 {
		return nil
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	breaks := make([]float64, 0, bins-1)
	for k := 1; k < bins; k++ {
		q := percentile(sorted, float64(k)*100/float64(bins))
		if len(breaks) == 0 || q > breaks[len(breaks)-1] {
			breaks = append(breaks, q)
		}
	}
	return breaks
}

// BinByBreakpoints assigns each value the label of its right-closed interval
// among (-inf, b1], (b1, b2], ..., (bk, +inf).
func BinByBreakpoints(values, breaks []float64) []string {
	out := make([]string, len(values))
	for i, v := range values {
		idx := sort.SearchFloat64s(breaks, v)
		// SearchFloat64s returns the first j with breaks[j] >= v, which
		// puts v == breaks[j] into the lower (right-closed) interval.
		out[i] = strconv.Itoa(idx)
	}
	return out
}
