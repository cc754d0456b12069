package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"backend/internal/domain"

	"github.com/jackc/pgx/v5"
)

type VariantCreateInput struct {
	VariantName   string
	Description   *string
	PurchasePrice float64
	Quantity      int
	Platforms     []int64
}

type VariantPatchInput struct {
	VariantName   *string
	Description   *string
	PurchasePrice *float64
	Quantity      *int
}

const variantColumns = `
	variant_id,
	item_id,
	variant_name,
	description,
	purchase_price::double precision,
	quantity,
	is_sold,
	created_at
`

func (r *Repository) ListVariants(ctx context.Context, itemID int64) ([]domain.Variant, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+variantColumns+`
		FROM variants
		WHERE item_id = $1
		ORDER BY variant_name ASC
	`, itemID)
	if err != nil {
		return nil, fmt.Errorf("list variants for item %d: %w", itemID, err)
	}
	defer rows.Close()

	variants := make([]domain.Variant, 0)
	for rows.Next() {
		variant, err := scanVariantRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan variant: %w", err)
		}
		variants = append(variants, variant)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate variants: %w", err)
	}
	return variants, nil
}

func (r *Repository) GetVariantByID(ctx context.Context, id int64) (*domain.Variant, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+variantColumns+`
		FROM variants
		WHERE variant_id = $1
	`, id)
	variant, err := scanVariantRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get variant %d: %w", id, err)
	}
	return &variant, nil
}

// CreateVariant inserts a variant and its platform links in one transaction.
// The owning item must exist and be flagged has_variants.
func (r *Repository) CreateVariant(ctx context.Context, itemID int64, input VariantCreateInput) (domain.Variant, error) {
	name := strings.TrimSpace(input.VariantName)
	if name == "" {
		return domain.Variant{}, fmt.Errorf("%w: variant_name is required", ErrInvalidInput)
	}
	if input.Quantity < 0 {
		return domain.Variant{}, fmt.Errorf("%w: quantity cannot be negative", ErrInvalidInput)
	}
	if input.PurchasePrice < 0 {
		return domain.Variant{}, fmt.Errorf("%w: purchase_price cannot be negative", ErrInvalidInput)
	}

	tx, err := r.begin(ctx, "create variant")
	if err != nil {
		return domain.Variant{}, err
	}
	defer tx.Rollback(ctx)

	var hasVariants bool
	err = tx.QueryRow(ctx,
		"SELECT has_variants FROM items WHERE item_id = $1 FOR UPDATE",
		itemID,
	).Scan(&hasVariants)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Variant{}, ErrNotFound
	}
	if err != nil {
		return domain.Variant{}, fmt.Errorf("load item %d for variant: %w", itemID, err)
	}
	if !hasVariants {
		return domain.Variant{}, fmt.Errorf("%w: item %d does not track variants", ErrInvalidInput, itemID)
	}

	row := tx.QueryRow(ctx, `
		INSERT INTO variants (item_id, variant_name, description, purchase_price, quantity, is_sold)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+variantColumns+`
	`, itemID, name, input.Description, input.PurchasePrice, input.Quantity, input.Quantity <= 0)
	variant, err := scanVariantRow(row)
	if err != nil {
		return domain.Variant{}, fmt.Errorf("create variant: %w", err)
	}

	// An unsold variant means the parent cannot be fully sold anymore.
	if input.Quantity > 0 {
		if _, err := tx.Exec(ctx,
			"UPDATE items SET is_sold = FALSE, updated_at = NOW() WHERE item_id = $1",
			itemID,
		); err != nil {
			return domain.Variant{}, fmt.Errorf("refresh item sold flag: %w", err)
		}
	}

	if len(input.Platforms) > 0 {
		if err := replaceVariantPlatformsTx(ctx, tx, variant.VariantID, input.Platforms); err != nil {
			return domain.Variant{}, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.Variant{}, fmt.Errorf("commit create variant tx: %w", err)
	}
	return variant, nil
}

func (r *Repository) PatchVariant(ctx context.Context, id int64, input VariantPatchInput) (*domain.Variant, error) {
	tx, err := r.begin(ctx, "patch variant")
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx, `
		SELECT `+variantColumns+`
		FROM variants
		WHERE variant_id = $1
		FOR UPDATE
	`, id)
	variant, err := scanVariantRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load variant for patch: %w", err)
	}

	if input.VariantName != nil {
		name := strings.TrimSpace(*input.VariantName)
		if name == "" {
			return nil, fmt.Errorf("%w: variant_name cannot be empty", ErrInvalidInput)
		}
		variant.VariantName = name
	}
	if input.Description != nil {
		variant.Description = input.Description
	}
	if input.PurchasePrice != nil {
		if *input.PurchasePrice < 0 {
			return nil, fmt.Errorf("%w: purchase_price cannot be negative", ErrInvalidInput)
		}
		variant.PurchasePrice = *input.PurchasePrice
	}
	if input.Quantity != nil {
		if *input.Quantity < 0 {
			return nil, fmt.Errorf("%w: quantity cannot be negative", ErrInvalidInput)
		}
		variant.Quantity = *input.Quantity
		variant.IsSold = variant.Quantity <= 0
	}

	row = tx.QueryRow(ctx, `
		UPDATE variants
		SET
			variant_name = $2,
			description = $3,
			purchase_price = $4,
			quantity = $5,
			is_sold = $6
		WHERE variant_id = $1
		RETURNING `+variantColumns+`
	`, id, variant.VariantName, variant.Description, variant.PurchasePrice, variant.Quantity, variant.IsSold)
	updated, err := scanVariantRow(row)
	if err != nil {
		return nil, fmt.Errorf("update variant: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit patch variant tx: %w", err)
	}
	return &updated, nil
}

func (r *Repository) DeleteVariant(ctx context.Context, id int64) error {
	tx, err := r.begin(ctx, "delete variant")
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var hasSales bool
	if err := tx.QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM sales_log WHERE variant_id = $1)",
		id,
	).Scan(&hasSales); err != nil {
		return fmt.Errorf("check variant sales history: %w", err)
	}
	if hasSales {
		return ErrSalesHistory
	}

	cmd, err := tx.Exec(ctx, "DELETE FROM variants WHERE variant_id = $1", id)
	if err != nil {
		return fmt.Errorf("delete variant %d: %w", id, err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit delete variant tx: %w", err)
	}
	return nil
}

func (r *Repository) ReplaceVariantPlatforms(ctx context.Context, variantID int64, platformIDs []int64) error {
	tx, err := r.begin(ctx, "replace variant platforms")
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var exists bool
	if err := tx.QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM variants WHERE variant_id = $1)",
		variantID,
	).Scan(&exists); err != nil {
		return fmt.Errorf("check variant %d: %w", variantID, err)
	}
	if !exists {
		return ErrNotFound
	}

	if err := replaceVariantPlatformsTx(ctx, tx, variantID, platformIDs); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit replace variant platforms tx: %w", err)
	}
	return nil
}

func replaceVariantPlatformsTx(ctx context.Context, tx pgx.Tx, variantID int64, platformIDs []int64) error {
	if _, err := tx.Exec(ctx, "DELETE FROM variant_platforms WHERE variant_id = $1", variantID); err != nil {
		return fmt.Errorf("clear variant platforms: %w", err)
	}
	for _, platformID := range platformIDs {
		if _, err := tx.Exec(ctx, `
			INSERT INTO variant_platforms (variant_id, platform_id)
			VALUES ($1, $2)
			ON CONFLICT DO NOTHING
		`, variantID, platformID); err != nil {
			if isForeignKeyViolation(err) {
				return ErrNotFound
			}
			return fmt.Errorf("insert variant platform %d: %w", platformID, err)
		}
	}
	return nil
}

func scanVariantRow(row pgx.Row) (domain.Variant, error) {
	var variant domain.Variant
	if err := row.Scan(
		&variant.VariantID,
		&variant.ItemID,
		&variant.VariantName,
		&variant.Description,
		&variant.PurchasePrice,
		&variant.Quantity,
		&variant.IsSold,
		&variant.CreatedAt,
	); err != nil {
		return domain.Variant{}, err
	}
	return variant, nil
}
