package source

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/revlens/revlens/internal/domain"
)

// CSVSource reads the tables from a directory of CSV exports. This is the
// development seam standing in for the upstream ingestion collaborator:
// order_items.csv and adjustments.csv are required, the rest are optional.
type CSVSource struct {
	Dir string
}

// NewCSVSource creates a CSV source rooted at dir.
func NewCSVSource(dir string) *CSVSource {
	return &CSVSource{Dir: dir}
}

// Load reads every table. Missing optional files yield empty slices.
func (s *CSVSource) Load(ctx context.Context) (*domain.Dataset, error) {
	ds := &domain.Dataset{}

	if err := s.loadTransactions(ds); err != nil {
		return nil, err
	}
	if err := s.loadAdjustments(ds); err != nil {
		return nil, err
	}
	if err := s.loadCosts("ad_costs.csv", &ds.AdCosts); err != nil {
		return nil, err
	}
	if err := s.loadCosts("influencer_costs.csv", &ds.InfluencerCosts); err != nil {
		return nil, err
	}
	if err := s.loadProducts(ds); err != nil {
		return nil, err
	}

	log.Debug().
		Int("transactions", len(ds.Transactions)).
		Int("adjustments", len(ds.Adjustments)).
		Int("products", len(ds.Products)).
		Str("dir", s.Dir).
		Msg("csv tables loaded")
	return ds, nil
}

type table struct {
	name string
	cols map[string]int
	rows [][]string
}

// column returns the index of a required column or a SchemaError.
func (t *table) column(name string) (int, error) {
	idx, ok := t.cols[name]
	if !ok {
		return 0, &SchemaError{Table: t.name, Column: name}
	}
	return idx, nil
}

// optional returns the column index, or -1 when the column is absent so
// lookups through it read as empty.
func (t *table) optional(name string) (int, bool) {
	idx, ok := t.cols[name]
	if !ok {
		return -1, false
	}
	return idx, true
}

func (s *CSVSource) read(file string) (*table, bool, error) {
	path := filepath.Join(s.Dir, file)
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	header, err := r.Read()
	if err == io.EOF {
		return &table{name: file, cols: map[string]int{}}, true, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read %s header: %w", path, err)
	}

	t := &table{name: file, cols: make(map[string]int, len(header))}
	for i, h := range header {
		t.cols[strings.TrimSpace(h)] = i
	}
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, false, fmt.Errorf("read %s: %w", path, err)
		}
		t.rows = append(t.rows, rec)
	}
	return t, true, nil
}

func (s *CSVSource) loadTransactions(ds *domain.Dataset) error {
	t, ok, err := s.read("order_items.csv")
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("order_items.csv not found in %s", s.Dir)
	}

	tsIdx, err := t.column("order_ts")
	if err != nil {
		return err
	}
	// The export carries either gross_amount or the older net_sales_amount.
	amtIdx, hasGross := t.optional("gross_amount")
	if !hasGross {
		var legacy bool
		amtIdx, legacy = t.optional("net_sales_amount")
		if !legacy {
			return &SchemaError{Table: t.name, Column: "gross_amount"}
		}
	}

	orderIdx, _ := t.optional("order_id")
	discIdx, hasDisc := t.optional("discount_amount")
	channelIdx, _ := t.optional("channel")
	campaignIdx, _ := t.optional("ad_id")
	influencerIdx, _ := t.optional("influencer_id")
	couponIdx, _ := t.optional("coupon_id")
	productIdx, _ := t.optional("product_id")

	for _, rec := range t.rows {
		ts, err := parseTimestamp(cell(rec, tsIdx))
		if err != nil {
			return fmt.Errorf("%s: %w", t.name, err)
		}
		tx := domain.Transaction{
			OrderTS:      ts,
			OrderID:      cell(rec, orderIdx),
			GrossAmount:  parseFloat(cell(rec, amtIdx)),
			Channel:      cell(rec, channelIdx),
			CampaignID:   cell(rec, campaignIdx),
			InfluencerID: cell(rec, influencerIdx),
			CouponID:     cell(rec, couponIdx),
			ProductID:    cell(rec, productIdx),
		}
		if hasDisc {
			tx.DiscountAmount = parseFloat(cell(rec, discIdx))
		}
		ds.Transactions = append(ds.Transactions, tx)
	}
	return nil
}

func (s *CSVSource) loadAdjustments(ds *domain.Dataset) error {
	t, ok, err := s.read("adjustments.csv")
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("adjustments.csv not found in %s", s.Dir)
	}

	tsIdx, err := t.column("event_ts")
	if err != nil {
		return err
	}
	amtIdx, err := t.column("amount")
	if err != nil {
		return err
	}
	productIdx, _ := t.optional("product_id")
	reasonIdx, _ := t.optional("reason_code")

	for _, rec := range t.rows {
		ts, err := parseTimestamp(cell(rec, tsIdx))
		if err != nil {
			return fmt.Errorf("%s: %w", t.name, err)
		}
		ds.Adjustments = append(ds.Adjustments, domain.Adjustment{
			EventTS:    ts,
			Amount:     parseFloat(cell(rec, amtIdx)),
			ProductID:  cell(rec, productIdx),
			ReasonCode: cell(rec, reasonIdx),
		})
	}
	return nil
}

func (s *CSVSource) loadCosts(file string, into *[]domain.CostEntry) error {
	t, ok, err := s.read(file)
	if err != nil {
		return err
	}
	if !ok {
		// Optional cost feeds degrade to zero.
		return nil
	}

	dateIdx, hasDate := t.optional("date")
	if !hasDate {
		dateIdx, hasDate = t.optional("event_ts")
	}
	amtIdx, hasAmt := t.optional("amount")
	if !hasAmt {
		amtIdx, hasAmt = t.optional("cost")
	}
	if !hasDate || !hasAmt {
		log.Warn().Str("table", file).Msg("cost table present but missing date/amount columns, ignoring")
		return nil
	}

	for _, rec := range t.rows {
		ts, err := parseTimestamp(cell(rec, dateIdx))
		if err != nil {
			return fmt.Errorf("%s: %w", file, err)
		}
		*into = append(*into, domain.CostEntry{Date: ts, Amount: parseFloat(cell(rec, amtIdx))})
	}
	return nil
}

func (s *CSVSource) loadProducts(ds *domain.Dataset) error {
	t, ok, err := s.read("products.csv")
	if err != nil || !ok {
		return err
	}
	idIdx, hasID := t.optional("product_id")
	if !hasID {
		return nil
	}
	nameIdx, _ := t.optional("product_name")
	sellerIdx, _ := t.optional("seller_id")

	for _, rec := range t.rows {
		ds.Products = append(ds.Products, domain.Product{
			ProductID: cell(rec, idIdx),
			Name:      cell(rec, nameIdx),
			SellerID:  cell(rec, sellerIdx),
		})
	}
	return nil
}

var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable timestamp %q", s)
}

func parseFloat(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return v
}

func cell(rec []string, idx int) string {
	if idx < 0 || idx >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[idx])
}
