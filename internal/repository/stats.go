package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"backend/internal/domain"
	"backend/internal/ledger"

	"github.com/jackc/pgx/v5"
)

// applyStatisticsTx moves the singleton totals by one sale's contribution.
// sign is +1 on create/re-apply and -1 on reversal; both run inside the
// sale's transaction so a later failure rolls them back too.
func applyStatisticsTx(ctx context.Context, tx pgx.Tx, c ledger.Contribution, sign float64) error {
	if _, err := tx.Exec(ctx, `
		UPDATE statistics
		SET
			gross_profit_total = gross_profit_total + $1,
			net_profit_total = net_profit_total + $2,
			total_spent = total_spent + $3
		WHERE id = 1
	`, sign*c.Gross, sign*c.Net, sign*c.Spent); err != nil {
		return fmt.Errorf("apply statistics delta: %w", err)
	}
	return nil
}

// adjustCountersTx moves the per-category and per-brand sale counters by
// delta units. A sale of N units counts as N, not 1.
func adjustCountersTx(ctx context.Context, tx pgx.Tx, categoryID *int64, brand *string, delta int) error {
	if delta == 0 {
		return nil
	}

	if categoryID != nil {
		if delta > 0 {
			if _, err := tx.Exec(ctx, `
				INSERT INTO sales_counters (category_id, sale_count)
				VALUES ($1, $2)
				ON CONFLICT (category_id) WHERE category_id IS NOT NULL
				DO UPDATE SET sale_count = sales_counters.sale_count + EXCLUDED.sale_count
			`, *categoryID, delta); err != nil {
				return fmt.Errorf("increment category counter %d: %w", *categoryID, err)
			}
		} else {
			if _, err := tx.Exec(ctx, `
				UPDATE sales_counters
				SET sale_count = sale_count + $2
				WHERE category_id = $1
			`, *categoryID, delta); err != nil {
				return fmt.Errorf("decrement category counter %d: %w", *categoryID, err)
			}
		}
	}

	if brand != nil {
		name := strings.TrimSpace(*brand)
		if name == "" {
			return nil
		}
		if delta > 0 {
			if _, err := tx.Exec(ctx, `
				INSERT INTO sales_counters (brand, sale_count)
				VALUES ($1, $2)
				ON CONFLICT (brand) WHERE brand IS NOT NULL
				DO UPDATE SET sale_count = sales_counters.sale_count + EXCLUDED.sale_count
			`, name, delta); err != nil {
				return fmt.Errorf("increment brand counter %q: %w", name, err)
			}
		} else {
			if _, err := tx.Exec(ctx, `
				UPDATE sales_counters
				SET sale_count = sale_count + $2
				WHERE brand = $1
			`, name, delta); err != nil {
				return fmt.Errorf("decrement brand counter %q: %w", name, err)
			}
		}
	}

	return nil
}

// GetStatisticsSummary reads the incrementally-maintained totals and derives
// the read-only projections on top of them: estimated future profit from
// unsold stock, and the leading category and brand from the counters. The
// estimate is never persisted and never feeds back into the totals.
func (r *Repository) GetStatisticsSummary(ctx context.Context) (domain.StatisticsSummary, error) {
	var summary domain.StatisticsSummary

	if err := r.pool.QueryRow(ctx, `
		SELECT
			gross_profit_total::double precision,
			net_profit_total::double precision,
			total_spent::double precision
		FROM statistics
		WHERE id = 1
	`).Scan(&summary.GrossProfitTotal, &summary.NetProfitTotal, &summary.TotalSpent); err != nil {
		return domain.StatisticsSummary{}, fmt.Errorf("read statistics totals: %w", err)
	}

	var simpleEstimate float64
	if err := r.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(value * quantity), 0)::double precision
		FROM items
		WHERE NOT has_variants
			AND NOT is_sold
			AND value IS NOT NULL
			AND quantity IS NOT NULL
			AND quantity > 0
	`).Scan(&simpleEstimate); err != nil {
		return domain.StatisticsSummary{}, fmt.Errorf("estimate simple items: %w", err)
	}

	var variantEstimate float64
	if err := r.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(i.value * u.unsold_quantity), 0)::double precision
		FROM items i
		JOIN (
			SELECT item_id, SUM(quantity) AS unsold_quantity
			FROM variants
			WHERE NOT is_sold AND quantity > 0
			GROUP BY item_id
		) u ON u.item_id = i.item_id
		WHERE i.has_variants AND i.value IS NOT NULL
	`).Scan(&variantEstimate); err != nil {
		return domain.StatisticsSummary{}, fmt.Errorf("estimate variant items: %w", err)
	}
	summary.EstimatedProfit = simpleEstimate + variantEstimate

	err := r.pool.QueryRow(ctx, `
		SELECT c.name
		FROM sales_counters sc
		JOIN categories c ON c.category_id = sc.category_id
		WHERE sc.category_id IS NOT NULL AND sc.sale_count > 0
		ORDER BY sc.sale_count DESC, c.name ASC
		LIMIT 1
	`).Scan(&summary.TopCategory)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return domain.StatisticsSummary{}, fmt.Errorf("top category: %w", err)
	}

	err = r.pool.QueryRow(ctx, `
		SELECT brand
		FROM sales_counters
		WHERE brand IS NOT NULL AND sale_count > 0
		ORDER BY sale_count DESC, brand ASC
		LIMIT 1
	`).Scan(&summary.TopBrand)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return domain.StatisticsSummary{}, fmt.Errorf("top brand: %w", err)
	}

	return summary, nil
}

func (r *Repository) ListSalesCounters(ctx context.Context) ([]domain.SalesCounter, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT counter_id, category_id, brand, sale_count
		FROM sales_counters
		ORDER BY sale_count DESC, counter_id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list sales counters: %w", err)
	}
	defer rows.Close()

	counters := make([]domain.SalesCounter, 0)
	for rows.Next() {
		var counter domain.SalesCounter
		if err := rows.Scan(&counter.CounterID, &counter.CategoryID, &counter.Brand, &counter.SaleCount); err != nil {
			return nil, fmt.Errorf("scan sales counter: %w", err)
		}
		counters = append(counters, counter)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sales counters: %w", err)
	}
	return counters, nil
}

