package source

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"github.com/revlens/revlens/internal/domain"
)

// ClickHouseSource loads the tables from a ClickHouse warehouse, the usual
// home for order-item event streams at volume.
type ClickHouseSource struct {
	conn driver.Conn
}

// OpenClickHouse connects using a DSN like clickhouse://host:9000/db.
func OpenClickHouse(ctx context.Context, dsn string) (*ClickHouseSource, error) {
	opts, err := clickhouse.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse clickhouse dsn: %w", err)
	}
	opts.DialTimeout = 10 * time.Second
	conn, err := clickhouse.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open clickhouse: %w", err)
	}
	if err := conn.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping clickhouse: %w", err)
	}
	return &ClickHouseSource{conn: conn}, nil
}

// NewClickHouseSource wraps an existing connection.
func NewClickHouseSource(conn driver.Conn) *ClickHouseSource {
	return &ClickHouseSource{conn: conn}
}

// Close releases the connection.
func (s *ClickHouseSource) Close() error { return s.conn.Close() }

// Load reads every table; cost and catalog tables degrade to empty.
func (s *ClickHouseSource) Load(ctx context.Context) (*domain.Dataset, error) {
	ds := &domain.Dataset{}

	rows, err := s.conn.Query(ctx, `
		SELECT order_ts, order_id, gross_amount, discount_amount,
		       channel, ad_id, influencer_id, coupon_id, product_id
		FROM order_items`)
	if err != nil {
		return nil, fmt.Errorf("load order_items: %w", err)
	}
	for rows.Next() {
		var tx domain.Transaction
		if err := rows.Scan(&tx.OrderTS, &tx.OrderID, &tx.GrossAmount, &tx.DiscountAmount,
			&tx.Channel, &tx.CampaignID, &tx.InfluencerID, &tx.CouponID, &tx.ProductID); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan order_items: %w", err)
		}
		ds.Transactions = append(ds.Transactions, tx)
	}
	rows.Close()

	rows, err = s.conn.Query(ctx, `
		SELECT event_ts, amount, product_id, reason_code FROM adjustments`)
	if err != nil {
		return nil, fmt.Errorf("load adjustments: %w", err)
	}
	for rows.Next() {
		var a domain.Adjustment
		if err := rows.Scan(&a.EventTS, &a.Amount, &a.ProductID, &a.ReasonCode); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan adjustments: %w", err)
		}
		ds.Adjustments = append(ds.Adjustments, a)
	}
	rows.Close()

	ds.AdCosts = s.loadCosts(ctx, "ad_costs")
	ds.InfluencerCosts = s.loadCosts(ctx, "influencer_costs")

	if rows, err := s.conn.Query(ctx, `
		SELECT product_id, product_name, seller_id FROM products`); err == nil {
		for rows.Next() {
			var p domain.Product
			if err := rows.Scan(&p.ProductID, &p.Name, &p.SellerID); err != nil {
				break
			}
			ds.Products = append(ds.Products, p)
		}
		rows.Close()
	}

	return ds, nil
}

func (s *ClickHouseSource) loadCosts(ctx context.Context, tableName string) []domain.CostEntry {
	rows, err := s.conn.Query(ctx, fmt.Sprintf(`SELECT date, amount FROM %s`, tableName))
	if err != nil {
		return nil
	}
	defer rows.Close()

	var out []domain.CostEntry
	for rows.Next() {
		var e domain.CostEntry
		if err := rows.Scan(&e.Date, &e.Amount); err != nil {
			return out
		}
		out = append(out, e)
	}
	return out
}
