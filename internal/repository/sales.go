package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"backend/internal/domain"
	"backend/internal/ledger"

	"github.com/jackc/pgx/v5"
)

// ErrVariantRequired rejects a sale against an item that tracks variants
// without naming which variant was sold.
var ErrVariantRequired = errors.New("variant_id is required for items with variants")

type SaleCreateInput struct {
	ItemID       int64
	VariantID    *int64
	PlatformID   int64
	SaleDate     time.Time
	QuantitySold int
	TotalPrice   float64
	SoldByUser   string
}

type SaleUpdateInput struct {
	PlatformID   int64
	SaleDate     time.Time
	QuantitySold int
	TotalPrice   float64
	SoldByUser   string
}

// stockHolder is the row the sale takes stock from: the variant when the
// sale names one, otherwise the item itself. Resolved under FOR UPDATE so
// quantity and cost basis stay valid for the rest of the transaction.
type stockHolder struct {
	itemID     int64
	variantID  *int64
	quantity   int
	costPrice  *float64
	brand      *string
	categoryID *int64
}

func resolveHolderTx(ctx context.Context, tx pgx.Tx, itemID int64, variantID *int64) (stockHolder, error) {
	holder := stockHolder{itemID: itemID, variantID: variantID}

	if variantID != nil {
		err := tx.QueryRow(ctx, `
			SELECT v.quantity, v.purchase_price::double precision, i.brand, i.category_id
			FROM variants v
			JOIN items i ON i.item_id = v.item_id
			WHERE v.variant_id = $1 AND v.item_id = $2
			FOR UPDATE
		`, *variantID, itemID).Scan(&holder.quantity, &holder.costPrice, &holder.brand, &holder.categoryID)
		if errors.Is(err, pgx.ErrNoRows) {
			return stockHolder{}, ErrNotFound
		}
		if err != nil {
			return stockHolder{}, fmt.Errorf("load variant %d: %w", *variantID, err)
		}
		return holder, nil
	}

	var hasVariants bool
	err := tx.QueryRow(ctx, `
		SELECT COALESCE(quantity, 0), purchase_price::double precision, brand, category_id, has_variants
		FROM items
		WHERE item_id = $1
		FOR UPDATE
	`, itemID).Scan(&holder.quantity, &holder.costPrice, &holder.brand, &holder.categoryID, &hasVariants)
	if errors.Is(err, pgx.ErrNoRows) {
		return stockHolder{}, ErrNotFound
	}
	if err != nil {
		return stockHolder{}, fmt.Errorf("load item %d: %w", itemID, err)
	}
	if hasVariants {
		return stockHolder{}, ErrVariantRequired
	}
	return holder, nil
}

// setStockLevelTx writes an already-computed stock level and the sold flag it
// implies, then keeps the parent item's flag consistent for variant holders:
// selling out the last variant marks the item sold, and a variant coming back
// in stock un-marks it.
func setStockLevelTx(ctx context.Context, tx pgx.Tx, holder stockHolder, level int) error {
	sold := ledger.SoldOut(level)

	if holder.variantID == nil {
		if _, err := tx.Exec(ctx, `
			UPDATE items
			SET quantity = $2, is_sold = $3, updated_at = NOW()
			WHERE item_id = $1
		`, holder.itemID, level, sold); err != nil {
			return fmt.Errorf("set item %d stock: %w", holder.itemID, err)
		}
		return nil
	}

	if _, err := tx.Exec(ctx, `
		UPDATE variants
		SET quantity = $2, is_sold = $3
		WHERE variant_id = $1
	`, *holder.variantID, level, sold); err != nil {
		return fmt.Errorf("set variant %d stock: %w", *holder.variantID, err)
	}
	return rollupItemSoldTx(ctx, tx, holder.itemID, sold)
}

func rollupItemSoldTx(ctx context.Context, tx pgx.Tx, itemID int64, variantSold bool) error {
	if !variantSold {
		if _, err := tx.Exec(ctx,
			"UPDATE items SET is_sold = FALSE, updated_at = NOW() WHERE item_id = $1 AND is_sold",
			itemID,
		); err != nil {
			return fmt.Errorf("clear item %d sold flag: %w", itemID, err)
		}
		return nil
	}

	var remaining int
	if err := tx.QueryRow(ctx,
		"SELECT COUNT(*) FROM variants WHERE item_id = $1 AND NOT is_sold",
		itemID,
	).Scan(&remaining); err != nil {
		return fmt.Errorf("count unsold variants of item %d: %w", itemID, err)
	}
	if remaining == 0 {
		if _, err := tx.Exec(ctx,
			"UPDATE items SET is_sold = TRUE, updated_at = NOW() WHERE item_id = $1",
			itemID,
		); err != nil {
			return fmt.Errorf("mark item %d sold: %w", itemID, err)
		}
	}
	return nil
}

// CreateSale records a sale, snapshots the cost basis, adds the sale's
// contribution to the statistics totals and the category/brand counters, and
// decrements stock on the holder. Everything happens in one transaction; an
// insufficient-stock failure rolls the statistics writes back with it.
func (r *Repository) CreateSale(ctx context.Context, input SaleCreateInput) (int64, error) {
	tx, err := r.begin(ctx, "create sale")
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	holder, err := resolveHolderTx(ctx, tx, input.ItemID, input.VariantID)
	if err != nil {
		return 0, err
	}
	if err := ledger.CheckDecrement(holder.quantity, input.QuantitySold); err != nil {
		return 0, err
	}

	costBasis := ledger.CostBasis(nil, holder.costPrice)
	contribution := ledger.ContributionFor(input.TotalPrice, costBasis, input.QuantitySold)

	var saleID int64
	err = tx.QueryRow(ctx, `
		INSERT INTO sales_log (
			item_id,
			variant_id,
			platform_id,
			sale_date,
			quantity_sold,
			total_price,
			sold_by_user,
			purchase_price_snapshot
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING sale_id
	`,
		input.ItemID,
		input.VariantID,
		input.PlatformID,
		input.SaleDate,
		input.QuantitySold,
		input.TotalPrice,
		input.SoldByUser,
		costBasis,
	).Scan(&saleID)
	if err != nil {
		if isForeignKeyViolation(err) {
			return 0, ErrNotFound
		}
		return 0, fmt.Errorf("insert sale: %w", err)
	}

	if err := applyStatisticsTx(ctx, tx, contribution, 1); err != nil {
		return 0, err
	}
	if err := adjustCountersTx(ctx, tx, holder.categoryID, holder.brand, input.QuantitySold); err != nil {
		return 0, err
	}

	if err := decrementStockTx(ctx, tx, holder, input.QuantitySold); err != nil {
		return 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit create sale tx: %w", err)
	}
	return saleID, nil
}

// decrementStockTx takes quantity from the holder with a conditional update:
// the stock check sits in the WHERE clause, so two concurrent sales against
// the same low-stock holder cannot both pass it.
func decrementStockTx(ctx context.Context, tx pgx.Tx, holder stockHolder, quantity int) error {
	if holder.variantID == nil {
		cmd, err := tx.Exec(ctx, `
			UPDATE items
			SET
				quantity = COALESCE(quantity, 0) - $2,
				is_sold = COALESCE(quantity, 0) - $2 <= 0,
				updated_at = NOW()
			WHERE item_id = $1 AND COALESCE(quantity, 0) >= $2
		`, holder.itemID, quantity)
		if err != nil {
			return fmt.Errorf("decrement item %d stock: %w", holder.itemID, err)
		}
		if cmd.RowsAffected() == 0 {
			return &ledger.InsufficientStockError{Available: holder.quantity}
		}
		return nil
	}

	cmd, err := tx.Exec(ctx, `
		UPDATE variants
		SET
			quantity = quantity - $2,
			is_sold = quantity - $2 <= 0
		WHERE variant_id = $1 AND quantity >= $2
	`, *holder.variantID, quantity)
	if err != nil {
		return fmt.Errorf("decrement variant %d stock: %w", *holder.variantID, err)
	}
	if cmd.RowsAffected() == 0 {
		return &ledger.InsufficientStockError{Available: holder.quantity}
	}
	return rollupItemSoldTx(ctx, tx, holder.itemID, ledger.SoldOut(holder.quantity-quantity))
}

// UpdateSale rewrites a sale record: the old contribution comes out of the
// statistics and counters, stock moves by the net quantity change, and the
// cost basis is re-snapshotted from the holder's current purchase price.
func (r *Repository) UpdateSale(ctx context.Context, saleID int64, input SaleUpdateInput) error {
	tx, err := r.begin(ctx, "update sale")
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var (
		itemID      int64
		variantID   *int64
		oldQuantity int
		oldTotal    float64
		oldSnapshot *float64
	)
	err = tx.QueryRow(ctx, `
		SELECT item_id, variant_id, quantity_sold, total_price::double precision,
			purchase_price_snapshot::double precision
		FROM sales_log
		WHERE sale_id = $1
		FOR UPDATE
	`, saleID).Scan(&itemID, &variantID, &oldQuantity, &oldTotal, &oldSnapshot)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("load sale %d: %w", saleID, err)
	}

	holder, err := resolveHolderTx(ctx, tx, itemID, variantID)
	if err != nil {
		return err
	}

	oldCost := ledger.CostBasis(oldSnapshot, holder.costPrice)
	oldContribution := ledger.ContributionFor(oldTotal, oldCost, oldQuantity)
	if err := applyStatisticsTx(ctx, tx, oldContribution, -1); err != nil {
		return err
	}
	if err := adjustCountersTx(ctx, tx, holder.categoryID, holder.brand, -oldQuantity); err != nil {
		return err
	}

	level, err := ledger.AdjustedLevel(holder.quantity, oldQuantity, input.QuantitySold)
	if err != nil {
		return err
	}
	if err := setStockLevelTx(ctx, tx, holder, level); err != nil {
		return err
	}

	// The new snapshot reads the holder's current purchase price, not the
	// one stored with the old record: editing a sale re-prices it.
	newCost := ledger.CostBasis(nil, holder.costPrice)
	newContribution := ledger.ContributionFor(input.TotalPrice, newCost, input.QuantitySold)

	if _, err := tx.Exec(ctx, `
		UPDATE sales_log
		SET
			platform_id = $2,
			sale_date = $3,
			quantity_sold = $4,
			total_price = $5,
			sold_by_user = $6,
			purchase_price_snapshot = $7
		WHERE sale_id = $1
	`,
		saleID,
		input.PlatformID,
		input.SaleDate,
		input.QuantitySold,
		input.TotalPrice,
		input.SoldByUser,
		newCost,
	); err != nil {
		if isForeignKeyViolation(err) {
			return ErrNotFound
		}
		return fmt.Errorf("update sale %d: %w", saleID, err)
	}

	if err := applyStatisticsTx(ctx, tx, newContribution, 1); err != nil {
		return err
	}
	if err := adjustCountersTx(ctx, tx, holder.categoryID, holder.brand, input.QuantitySold); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit update sale tx: %w", err)
	}
	return nil
}

// DeleteSale removes a sale record, returns its quantity to the holder, and
// subtracts its contribution from the statistics and counters. Restores have
// no stock ceiling.
func (r *Repository) DeleteSale(ctx context.Context, saleID int64) error {
	tx, err := r.begin(ctx, "delete sale")
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var (
		itemID       int64
		variantID    *int64
		quantitySold int
		totalPrice   float64
		snapshot     *float64
		itemPrice    *float64
		brand        *string
		categoryID   *int64
	)
	err = tx.QueryRow(ctx, `
		SELECT s.item_id, s.variant_id, s.quantity_sold, s.total_price::double precision,
			s.purchase_price_snapshot::double precision,
			i.purchase_price::double precision, i.brand, i.category_id
		FROM sales_log s
		JOIN items i ON i.item_id = s.item_id
		WHERE s.sale_id = $1
		FOR UPDATE
	`, saleID).Scan(&itemID, &variantID, &quantitySold, &totalPrice, &snapshot, &itemPrice, &brand, &categoryID)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("load sale %d: %w", saleID, err)
	}

	holder := stockHolder{itemID: itemID, variantID: variantID, brand: brand, categoryID: categoryID}
	currentPrice := itemPrice
	if variantID != nil {
		err = tx.QueryRow(ctx,
			"SELECT quantity, purchase_price::double precision FROM variants WHERE variant_id = $1 FOR UPDATE",
			*variantID,
		).Scan(&holder.quantity, &currentPrice)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("load variant %d: %w", *variantID, err)
		}
	} else {
		if err := tx.QueryRow(ctx,
			"SELECT COALESCE(quantity, 0) FROM items WHERE item_id = $1",
			itemID,
		).Scan(&holder.quantity); err != nil {
			return fmt.Errorf("load item %d stock: %w", itemID, err)
		}
	}

	// Rows predating the snapshot column fall back to the holder's current
	// purchase price.
	cost := ledger.CostBasis(snapshot, currentPrice)
	contribution := ledger.ContributionFor(totalPrice, cost, quantitySold)

	if err := setStockLevelTx(ctx, tx, holder, ledger.RestoredLevel(holder.quantity, quantitySold)); err != nil {
		return err
	}
	if err := applyStatisticsTx(ctx, tx, contribution, -1); err != nil {
		return err
	}
	if err := adjustCountersTx(ctx, tx, categoryID, brand, -quantitySold); err != nil {
		return err
	}

	if _, err := tx.Exec(ctx, "DELETE FROM sales_log WHERE sale_id = $1", saleID); err != nil {
		return fmt.Errorf("delete sale %d: %w", saleID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit delete sale tx: %w", err)
	}
	return nil
}

const saleEntryColumns = `
	s.sale_id,
	s.item_id,
	i.name,
	s.variant_id,
	v.variant_name,
	p.name,
	s.sale_date,
	s.quantity_sold,
	s.total_price::double precision,
	s.sold_by_user,
	s.purchase_price_snapshot::double precision
`

func (r *Repository) ListSalesByItem(ctx context.Context, itemID int64) ([]domain.SaleEntry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+saleEntryColumns+`
		FROM sales_log s
		JOIN items i ON i.item_id = s.item_id
		JOIN platforms p ON p.platform_id = s.platform_id
		LEFT JOIN variants v ON v.variant_id = s.variant_id
		WHERE s.item_id = $1
		ORDER BY s.sale_date DESC, s.sale_id DESC
	`, itemID)
	if err != nil {
		return nil, fmt.Errorf("list sales for item %d: %w", itemID, err)
	}
	defer rows.Close()
	return collectSaleEntries(rows)
}

func (r *Repository) ListSales(ctx context.Context, limit, offset int) ([]domain.SaleEntry, error) {
	limit = normalizeLimit(limit)
	offset = normalizeOffset(offset)

	rows, err := r.pool.Query(ctx, `
		SELECT `+saleEntryColumns+`
		FROM sales_log s
		JOIN items i ON i.item_id = s.item_id
		JOIN platforms p ON p.platform_id = s.platform_id
		LEFT JOIN variants v ON v.variant_id = s.variant_id
		ORDER BY s.sale_date DESC, s.sale_id DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list sales: %w", err)
	}
	defer rows.Close()
	return collectSaleEntries(rows)
}

func collectSaleEntries(rows pgx.Rows) ([]domain.SaleEntry, error) {
	entries := make([]domain.SaleEntry, 0)
	for rows.Next() {
		var entry domain.SaleEntry
		if err := rows.Scan(
			&entry.SaleID,
			&entry.ItemID,
			&entry.ItemName,
			&entry.VariantID,
			&entry.VariantName,
			&entry.PlatformName,
			&entry.SaleDate,
			&entry.QuantitySold,
			&entry.TotalPrice,
			&entry.SoldByUser,
			&entry.PurchasePriceSnapshot,
		); err != nil {
			return nil, fmt.Errorf("scan sale entry: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sale entries: %w", err)
	}
	return entries, nil
}
