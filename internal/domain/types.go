package domain

import (
	"fmt"
	"strings"
	"time"
)

// Transaction is a single order-item row. Categorical attributes use the
// empty string for "not present"; use HasValue before treating one as set.
type Transaction struct {
	OrderTS        time.Time `json:"order_ts"`
	OrderID        string    `json:"order_id"`
	GrossAmount    float64   `json:"gross_amount"`
	DiscountAmount float64   `json:"discount_amount"`
	Channel        string    `json:"channel,omitempty"`
	CampaignID     string    `json:"campaign_id,omitempty"`
	InfluencerID   string    `json:"influencer_id,omitempty"`
	CouponID       string    `json:"coupon_id,omitempty"`
	ProductID      string    `json:"product_id,omitempty"`
}

// Adjustment is a post-sale correction row. Refunds carry negative amounts.
type Adjustment struct {
	EventTS    time.Time `json:"event_ts"`
	Amount     float64   `json:"amount"`
	ProductID  string    `json:"product_id,omitempty"`
	ReasonCode string    `json:"reason_code,omitempty"`
}

// CostEntry is one dated spend row (advertising or influencer fees).
type CostEntry struct {
	Date   time.Time `json:"date"`
	Amount float64   `json:"amount"`
}

// Product is one catalog row used to enrich detail tables with names.
type Product struct {
	ProductID string `json:"product_id"`
	Name      string `json:"product_name"`
	SellerID  string `json:"seller_id,omitempty"`
}

// Dataset bundles every input table for one attribution request. The engine
// treats it as read-only; anything that needs to mutate works on a Clone.
type Dataset struct {
	Transactions    []Transaction
	Adjustments     []Adjustment
	AdCosts         []CostEntry
	InfluencerCosts []CostEntry
	Products        []Product
}

// Clone returns a deep copy so repeated report builds never observe
// cross-call mutation of the source tables.
func (d *Dataset) Clone() *Dataset {
	if d == nil {
		return &Dataset{}
	}
	out := &Dataset{
		Transactions:    make([]Transaction, len(d.Transactions)),
		Adjustments:     make([]Adjustment, len(d.Adjustments)),
		AdCosts:         make([]CostEntry, len(d.AdCosts)),
		InfluencerCosts: make([]CostEntry, len(d.InfluencerCosts)),
		Products:        make([]Product, len(d.Products)),
	}
	copy(out.Transactions, d.Transactions)
	copy(out.Adjustments, d.Adjustments)
	copy(out.AdCosts, d.AdCosts)
	copy(out.Products, d.Products)
	copy(out.InfluencerCosts, d.InfluencerCosts)
	return out
}

// ProductName resolves a product id to its catalog name, falling back to the
// raw id when the catalog is absent or does not know the id.
func (d *Dataset) ProductName(id string) string {
	for _, p := range d.Products {
		if p.ProductID == id && p.Name != "" {
			return p.Name
		}
	}
	return id
}

// Attribute identifies one categorical dimension of a transaction.
type Attribute string

const (
	AttrChannel    Attribute = "channel"
	AttrCampaign   Attribute = "campaign"
	AttrInfluencer Attribute = "influencer"
	AttrCoupon     Attribute = "coupon"
	AttrProduct    Attribute = "product"
)

// Attr returns the raw value of the given categorical attribute.
func (t Transaction) Attr(a Attribute) string {
	switch a {
	case AttrChannel:
		return t.Channel
	case AttrCampaign:
		return t.CampaignID
	case AttrInfluencer:
		return t.InfluencerID
	case AttrCoupon:
		return t.CouponID
	case AttrProduct:
		return t.ProductID
	}
	return ""
}

// HasValue reports whether a categorical value counts as present. Upstream
// exports use empty strings and the literal "NONE" interchangeably for
// missing, so both normalize to absent.
func HasValue(s string) bool {
	s = strings.TrimSpace(s)
	return s != "" && !strings.EqualFold(s, "NONE")
}

const dayLayout = "2006-01-02"

// DayOf truncates a timestamp to its calendar day in UTC.
func DayOf(ts time.Time) time.Time {
	y, m, d := ts.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// SameDay reports whether ts falls on the given calendar day.
func SameDay(ts, day time.Time) bool {
	return DayOf(ts).Equal(DayOf(day))
}

// ParseDay parses a YYYY-MM-DD date.
func ParseDay(s string) (time.Time, error) {
	t, err := time.Parse(dayLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (want YYYY-MM-DD): %w", s, err)
	}
	return t, nil
}

// FormatDay renders a day as YYYY-MM-DD.
func FormatDay(t time.Time) string {
	return DayOf(t).Format(dayLayout)
}
