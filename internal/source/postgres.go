package source

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/revlens/revlens/internal/domain"
)

// PostgresSource loads the tables from a Postgres warehouse. Read-only: the
// engine never writes computed results back.
type PostgresSource struct {
	db      *sqlx.DB
	timeout time.Duration
}

// OpenPostgres connects to Postgres and wraps it as a table source.
func OpenPostgres(dsn string, timeout time.Duration) (*PostgresSource, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &PostgresSource{db: db, timeout: timeout}, nil
}

// NewPostgresSource wraps an existing connection (used by tests).
func NewPostgresSource(db *sqlx.DB, timeout time.Duration) *PostgresSource {
	return &PostgresSource{db: db, timeout: timeout}
}

// Close releases the connection pool.
func (s *PostgresSource) Close() error { return s.db.Close() }

type txRow struct {
	OrderTS        time.Time       `db:"order_ts"`
	OrderID        sql.NullString  `db:"order_id"`
	GrossAmount    float64         `db:"gross_amount"`
	DiscountAmount sql.NullFloat64 `db:"discount_amount"`
	Channel        sql.NullString  `db:"channel"`
	AdID           sql.NullString  `db:"ad_id"`
	InfluencerID   sql.NullString  `db:"influencer_id"`
	CouponID       sql.NullString  `db:"coupon_id"`
	ProductID      sql.NullString  `db:"product_id"`
}

type adjRow struct {
	EventTS    time.Time      `db:"event_ts"`
	Amount     float64        `db:"amount"`
	ProductID  sql.NullString `db:"product_id"`
	ReasonCode sql.NullString `db:"reason_code"`
}

type costRow struct {
	Date   time.Time `db:"date"`
	Amount float64   `db:"amount"`
}

type productRow struct {
	ProductID string         `db:"product_id"`
	Name      sql.NullString `db:"product_name"`
	SellerID  sql.NullString `db:"seller_id"`
}

// Load reads every table inside one timeout window. The cost and catalog
// tables are optional: an undefined-table error degrades to an empty slice.
func (s *PostgresSource) Load(ctx context.Context) (*domain.Dataset, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	ds := &domain.Dataset{}

	var txs []txRow
	err := s.db.SelectContext(ctx, &txs, `
		SELECT order_ts, order_id, gross_amount, discount_amount,
		       channel, ad_id, influencer_id, coupon_id, product_id
		FROM order_items`)
	if err != nil {
		return nil, fmt.Errorf("load order_items: %w", err)
	}
	for _, r := range txs {
		ds.Transactions = append(ds.Transactions, domain.Transaction{
			OrderTS:        r.OrderTS,
			OrderID:        r.OrderID.String,
			GrossAmount:    r.GrossAmount,
			DiscountAmount: r.DiscountAmount.Float64,
			Channel:        r.Channel.String,
			CampaignID:     r.AdID.String,
			InfluencerID:   r.InfluencerID.String,
			CouponID:       r.CouponID.String,
			ProductID:      r.ProductID.String,
		})
	}

	var adjs []adjRow
	err = s.db.SelectContext(ctx, &adjs, `
		SELECT event_ts, amount, product_id, reason_code
		FROM adjustments`)
	if err != nil {
		return nil, fmt.Errorf("load adjustments: %w", err)
	}
	for _, r := range adjs {
		ds.Adjustments = append(ds.Adjustments, domain.Adjustment{
			EventTS:    r.EventTS,
			Amount:     r.Amount,
			ProductID:  r.ProductID.String,
			ReasonCode: r.ReasonCode.String,
		})
	}

	ds.AdCosts = s.loadCosts(ctx, "ad_costs")
	ds.InfluencerCosts = s.loadCosts(ctx, "influencer_costs")

	var products []productRow
	if err := s.db.SelectContext(ctx, &products, `
		SELECT product_id, product_name, seller_id FROM products`); err == nil {
		for _, r := range products {
			ds.Products = append(ds.Products, domain.Product{
				ProductID: r.ProductID,
				Name:      r.Name.String,
				SellerID:  r.SellerID.String,
			})
		}
	}

	return ds, nil
}

func (s *PostgresSource) loadCosts(ctx context.Context, tableName string) []domain.CostEntry {
	var rows []costRow
	query := fmt.Sprintf(`SELECT date, amount FROM %s`, tableName)
	if err := s.db.SelectContext(ctx, &rows, query); err != nil {
		// Optional feed; absence is not an error.
		return nil
	}
	out := make([]domain.CostEntry, 0, len(rows))
	for _, r := range rows {
		out = append(out, domain.CostEntry{Date: r.Date, Amount: r.Amount})
	}
	return out
}
