package metrics

import (
	"sort"
	"time"

	"github.com/revlens/revlens/internal/domain"
)

// Default builds the standard e-commerce registry: gross sales, orders,
// refunds, net sales, coupon cost, profit proxy and an estimated payment
// fee. Dependencies form a DAG (net_sales and profit_proxy both reach
// gross_sales).
func Default() *Registry {
	r := NewRegistry("ecommerce")

	mustRegister(r, Metric{
		Key:         "gross_sales",
		Title:       "Gross Sales",
		Description: "Sum of item gross amounts per day.",
		Category:    "Sales",
		Subcategory: "Revenue",
		Tags:        []string{"kpi", "daily", "core"},
		Compute:     computeGrossSales,
	})
	mustRegister(r, Metric{
		Key:         "orders",
		Title:       "Orders",
		Description: "Distinct orders per day.",
		Category:    "Sales",
		Subcategory: "Volume",
		Tags:        []string{"kpi", "daily", "core"},
		Compute:     computeOrders,
	})
	mustRegister(r, Metric{
		Key:         "refund_amount",
		Title:       "Refund",
		Description: "Sum of adjustment amounts per day (negative).",
		Category:    "Post-sale",
		Subcategory: "Refunds",
		Tags:        []string{"kpi", "daily", "core"},
		Compute:     computeRefundAmount,
	})
	mustRegister(r, Metric{
		Key:         "net_sales",
		Title:       "Net Sales",
		Description: "Gross sales plus (negative) refunds.",
		Category:    "Profitability",
		Subcategory: "Revenue",
		Tags:        []string{"kpi", "daily", "core"},
		DependsOn:   []string{"gross_sales", "refund_amount"},
		Compute:     computeNetSales,
	})
	mustRegister(r, Metric{
		Key:         "coupon_cost",
		Title:       "Coupon Cost",
		Description: "Sum of item discount amounts per day.",
		Category:    "Discount",
		Subcategory: "Coupons",
		Tags:        []string{"daily"},
		Compute:     computeCouponCost,
	})
	mustRegister(r, Metric{
		Key:         "profit_proxy",
		Title:       "Profit (proxy)",
		Description: "Net sales minus coupon cost.",
		Category:    "Profitability",
		Subcategory: "Profit",
		Tags:        []string{"kpi", "daily"},
		DependsOn:   []string{"net_sales", "coupon_cost"},
		Compute:     computeProfitProxy,
	})
	mustRegister(r, Metric{
		Key:         "payment_fee",
		Title:       "Payment Fee (est.)",
		Description: "Estimated processor fee at 3.3% of gross sales.",
		Category:    "Profitability",
		Subcategory: "Fees",
		Tags:        []string{"daily"},
		DependsOn:   []string{"gross_sales"},
		Compute:     computePaymentFee,
	})

	return r
}

// mustRegister panics on registration errors. Default's graph is static, so
// a failure here is a programming bug, not a runtime condition.
func mustRegister(r *Registry, m Metric) {
	if err := r.Register(m); err != nil {
		panic(err)
	}
}

func computeGrossSales(ctx Context, _ map[string]Series) (Series, error) {
	return sumByDay(ctx, func(t domain.Transaction) (time.Time, float64) {
		return t.OrderTS, t.GrossAmount
	}), nil
}

func computeCouponCost(ctx Context, _ map[string]Series) (Series, error) {
	return sumByDay(ctx, func(t domain.Transaction) (time.Time, float64) {
		return t.OrderTS, t.DiscountAmount
	}), nil
}

func computeOrders(ctx Context, _ map[string]Series) (Series, error) {
	type dayKey struct{ day, order string }
	seen := make(map[dayKey]struct{})
	counts := make(map[time.Time]float64)
	for _, t := range ctx.Data.Transactions {
		if !ctx.InRange(t.OrderTS) {
			continue
		}
		day := domain.DayOf(t.OrderTS)
		k := dayKey{domain.FormatDay(day), t.OrderID}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		counts[day]++
	}
	return seriesFromMap(counts), nil
}

func computeRefundAmount(ctx Context, _ map[string]Series) (Series, error) {
	totals := make(map[time.Time]float64)
	for _, a := range ctx.Data.Adjustments {
		if !ctx.InRange(a.EventTS) {
			continue
		}
		totals[domain.DayOf(a.EventTS)] += a.Amount
	}
	return seriesFromMap(totals), nil
}

func computeNetSales(_ Context, deps map[string]Series) (Series, error) {
	return combine(deps["gross_sales"], deps["refund_amount"], func(g, r float64) float64 {
		return g + r
	}), nil
}

func computeProfitProxy(_ Context, deps map[string]Series) (Series, error) {
	return combine(deps["net_sales"], deps["coupon_cost"], func(n, c float64) float64 {
		return n - c
	}), nil
}

func computePaymentFee(_ Context, deps map[string]Series) (Series, error) {
	gross := deps["gross_sales"]
	out := make(Series, len(gross))
	for i, p := range gross {
		out[i] = Point{Date: p.Date, Value: p.Value * 0.033}
	}
	return out, nil
}

func sumByDay(ctx Context, pick func(domain.Transaction) (time.Time, float64)) Series {
	totals := make(map[time.Time]float64)
	for _, t := range ctx.Data.Transactions {
		ts, v := pick(t)
		if !ctx.InRange(ts) {
			continue
		}
		totals[domain.DayOf(ts)] += v
	}
	return seriesFromMap(totals)
}

func seriesFromMap(totals map[time.Time]float64) Series {
	out := make(Series, 0, len(totals))
	for day, v := range totals {
		out = append(out, Point{Date: day, Value: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

// combine outer-joins two series by day, filling absent days with zero.
func combine(a, b Series, op func(av, bv float64) float64) Series {
	days := make(map[time.Time]struct{})
	for _, p := range a {
		days[domain.DayOf(p.Date)] = struct{}{}
	}
	for _, p := range b {
		days[domain.DayOf(p.Date)] = struct{}{}
	}
	out := make(Series, 0, len(days))
	for day := range days {
		out = append(out, Point{Date: day, Value: op(a.ValueOn(day), b.ValueOn(day))})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}
