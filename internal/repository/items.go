package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"backend/internal/domain"

	"github.com/jackc/pgx/v5"
)

type ItemCreateInput struct {
	Name          string
	CategoryID    *int64
	Brand         *string
	Description   *string
	Value         *float64
	SalePrice     *float64
	HasVariants   bool
	Quantity      *int
	PurchasePrice *float64
	Platforms     []int64
}

type ItemPatchInput struct {
	Name          *string
	CategoryID    *int64
	Brand         *string
	Description   *string
	Value         *float64
	SalePrice     *float64
	Quantity      *int
	PurchasePrice *float64
}

const itemColumns = `
	item_id,
	unique_code,
	name,
	category_id,
	brand,
	description,
	value::double precision,
	sale_price::double precision,
	has_variants,
	quantity,
	purchase_price::double precision,
	is_sold,
	created_at,
	updated_at
`

func (r *Repository) ListItems(ctx context.Context, search string, limit, offset int) ([]domain.Item, error) {
	limit = normalizeLimit(limit)
	offset = normalizeOffset(offset)
	search = strings.TrimSpace(search)

	rows, err := r.pool.Query(ctx, `
		SELECT `+itemColumns+`
		FROM items
		WHERE ($1 = '' OR name ILIKE '%' || $1 || '%' OR unique_code = $1)
		ORDER BY created_at DESC, item_id DESC
		LIMIT $2 OFFSET $3
	`, search, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()

	items := make([]domain.Item, 0, limit)
	for rows.Next() {
		item, err := scanItemRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate items: %w", err)
	}
	return items, nil
}

func (r *Repository) GetItemByID(ctx context.Context, id int64) (*domain.Item, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+itemColumns+`
		FROM items
		WHERE item_id = $1
	`, id)
	item, err := scanItemRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get item %d: %w", id, err)
	}
	return &item, nil
}

// CreateItem inserts the item and, when it has no variants, its platform
// links, in one transaction. Unique code collisions retry with a fresh code.
func (r *Repository) CreateItem(ctx context.Context, input ItemCreateInput) (domain.Item, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return domain.Item{}, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}

	quantity := input.Quantity
	purchasePrice := input.PurchasePrice
	if input.HasVariants {
		// Quantities and cost live on the variants instead.
		quantity = nil
		purchasePrice = nil
	}

	// A failed statement aborts the whole transaction, so a unique_code
	// collision retries from begin rather than re-running the insert.
	for attempt := 0; ; attempt++ {
		item, err := r.createItemOnce(ctx, name, input, quantity, purchasePrice)
		if err == nil {
			return item, nil
		}
		if isUniqueViolation(err) && attempt < 4 {
			continue
		}
		if isForeignKeyViolation(err) {
			return domain.Item{}, ErrNotFound
		}
		return domain.Item{}, fmt.Errorf("create item: %w", err)
	}
}

func (r *Repository) createItemOnce(ctx context.Context, name string, input ItemCreateInput, quantity *int, purchasePrice *float64) (domain.Item, error) {
	tx, err := r.begin(ctx, "create item")
	if err != nil {
		return domain.Item{}, err
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx, `
		INSERT INTO items (
			unique_code,
			name,
			category_id,
			brand,
			description,
			value,
			sale_price,
			has_variants,
			quantity,
			purchase_price
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING `+itemColumns+`
	`,
		newUniqueCode(),
		name,
		input.CategoryID,
		input.Brand,
		input.Description,
		input.Value,
		input.SalePrice,
		input.HasVariants,
		quantity,
		purchasePrice,
	)
	item, err := scanItemRow(row)
	if err != nil {
		return domain.Item{}, err
	}

	if !input.HasVariants && len(input.Platforms) > 0 {
		if err := replaceItemPlatformsTx(ctx, tx, item.ItemID, input.Platforms); err != nil {
			return domain.Item{}, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.Item{}, fmt.Errorf("commit create item tx: %w", err)
	}
	return item, nil
}

func (r *Repository) PatchItem(ctx context.Context, id int64, input ItemPatchInput) (*domain.Item, error) {
	tx, err := r.begin(ctx, "patch item")
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx, `
		SELECT `+itemColumns+`
		FROM items
		WHERE item_id = $1
		FOR UPDATE
	`, id)
	item, err := scanItemRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load item for patch: %w", err)
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: name cannot be empty", ErrInvalidInput)
		}
		item.Name = name
	}
	if input.CategoryID != nil {
		item.CategoryID = input.CategoryID
	}
	if input.Brand != nil {
		item.Brand = input.Brand
	}
	if input.Description != nil {
		item.Description = input.Description
	}
	if input.Value != nil {
		item.Value = input.Value
	}
	if input.SalePrice != nil {
		item.SalePrice = input.SalePrice
	}
	if input.Quantity != nil {
		if item.HasVariants {
			return nil, fmt.Errorf("%w: quantity is tracked on variants for this item", ErrInvalidInput)
		}
		if *input.Quantity < 0 {
			return nil, fmt.Errorf("%w: quantity cannot be negative", ErrInvalidInput)
		}
		item.Quantity = input.Quantity
	}
	if input.PurchasePrice != nil {
		if item.HasVariants {
			return nil, fmt.Errorf("%w: purchase_price is tracked on variants for this item", ErrInvalidInput)
		}
		if *input.PurchasePrice < 0 {
			return nil, fmt.Errorf("%w: purchase_price cannot be negative", ErrInvalidInput)
		}
		item.PurchasePrice = input.PurchasePrice
	}

	row = tx.QueryRow(ctx, `
		UPDATE items
		SET
			name = $2,
			category_id = $3,
			brand = $4,
			description = $5,
			value = $6,
			sale_price = $7,
			quantity = $8,
			purchase_price = $9,
			updated_at = NOW()
		WHERE item_id = $1
		RETURNING `+itemColumns+`
	`,
		id,
		item.Name,
		item.CategoryID,
		item.Brand,
		item.Description,
		item.Value,
		item.SalePrice,
		item.Quantity,
		item.PurchasePrice,
	)
	updated, err := scanItemRow(row)
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("update item: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit patch item tx: %w", err)
	}
	return &updated, nil
}

// DeleteItem removes the item and, by cascade, its variants and platform
// links. Items with sales history are refused; the log must stay resolvable.
func (r *Repository) DeleteItem(ctx context.Context, id int64) error {
	tx, err := r.begin(ctx, "delete item")
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var hasSales bool
	if err := tx.QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM sales_log WHERE item_id = $1)",
		id,
	).Scan(&hasSales); err != nil {
		return fmt.Errorf("check item sales history: %w", err)
	}
	if hasSales {
		return ErrSalesHistory
	}

	cmd, err := tx.Exec(ctx, "DELETE FROM items WHERE item_id = $1", id)
	if err != nil {
		return fmt.Errorf("delete item %d: %w", id, err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit delete item tx: %w", err)
	}
	return nil
}

// ReplaceItemPlatforms swaps the full set of platform listings for an item.
func (r *Repository) ReplaceItemPlatforms(ctx context.Context, itemID int64, platformIDs []int64) error {
	tx, err := r.begin(ctx, "replace item platforms")
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var exists bool
	if err := tx.QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM items WHERE item_id = $1)",
		itemID,
	).Scan(&exists); err != nil {
		return fmt.Errorf("check item %d: %w", itemID, err)
	}
	if !exists {
		return ErrNotFound
	}

	if err := replaceItemPlatformsTx(ctx, tx, itemID, platformIDs); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit replace item platforms tx: %w", err)
	}
	return nil
}

func (r *Repository) ListItemPlatforms(ctx context.Context, itemID int64) ([]domain.Platform, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT p.platform_id, p.name
		FROM item_platforms ip
		JOIN platforms p ON p.platform_id = ip.platform_id
		WHERE ip.item_id = $1
		ORDER BY p.name ASC
	`, itemID)
	if err != nil {
		return nil, fmt.Errorf("list item platforms: %w", err)
	}
	defer rows.Close()

	platforms := make([]domain.Platform, 0)
	for rows.Next() {
		var p domain.Platform
		if err := rows.Scan(&p.PlatformID, &p.Name); err != nil {
			return nil, fmt.Errorf("scan item platform: %w", err)
		}
		platforms = append(platforms, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate item platforms: %w", err)
	}
	return platforms, nil
}

// Set replacement is an ordered two-step inside the caller's transaction:
// clear, then insert the new set.
func replaceItemPlatformsTx(ctx context.Context, tx pgx.Tx, itemID int64, platformIDs []int64) error {
	if _, err := tx.Exec(ctx, "DELETE FROM item_platforms WHERE item_id = $1", itemID); err != nil {
		return fmt.Errorf("clear item platforms: %w", err)
	}
	for _, platformID := range platformIDs {
		if _, err := tx.Exec(ctx, `
			INSERT INTO item_platforms (item_id, platform_id)
			VALUES ($1, $2)
			ON CONFLICT DO NOTHING
		`, itemID, platformID); err != nil {
			if isForeignKeyViolation(err) {
				return ErrNotFound
			}
			return fmt.Errorf("insert item platform %d: %w", platformID, err)
		}
	}
	return nil
}

func scanItemRow(row pgx.Row) (domain.Item, error) {
	var item domain.Item
	if err := row.Scan(
		&item.ItemID,
		&item.UniqueCode,
		&item.Name,
		&item.CategoryID,
		&item.Brand,
		&item.Description,
		&item.Value,
		&item.SalePrice,
		&item.HasVariants,
		&item.Quantity,
		&item.PurchasePrice,
		&item.IsSold,
		&item.CreatedAt,
		&item.UpdatedAt,
	); err != nil {
		return domain.Item{}, err
	}
	return item, nil
}
