package repository

import (
	"context"
	"fmt"
	"strings"

	"backend/internal/domain"
)

func (r *Repository) ListCategories(ctx context.Context) ([]domain.Category, error) {
	rows, err := r.pool.Query(ctx, "SELECT category_id, name FROM categories ORDER BY name ASC")
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	categories := make([]domain.Category, 0)
	for rows.Next() {
		var c domain.Category
		if err := rows.Scan(&c.CategoryID, &c.Name); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate categories: %w", err)
	}
	return categories, nil
}

func (r *Repository) CreateCategory(ctx context.Context, name string) (domain.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Category{}, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}

	var created domain.Category
	err := r.pool.QueryRow(ctx, `
		INSERT INTO categories (name)
		VALUES ($1)
		ON CONFLICT ON CONSTRAINT uq_categories_name
		DO UPDATE SET name = EXCLUDED.name
		RETURNING category_id, name
	`, name).Scan(&created.CategoryID, &created.Name)
	if err != nil {
		return domain.Category{}, fmt.Errorf("create category: %w", err)
	}
	return created, nil
}

func (r *Repository) ListPlatforms(ctx context.Context) ([]domain.Platform, error) {
	rows, err := r.pool.Query(ctx, "SELECT platform_id, name FROM platforms ORDER BY name ASC")
	if err != nil {
		return nil, fmt.Errorf("list platforms: %w", err)
	}
	defer rows.Close()

	platforms := make([]domain.Platform, 0)
	for rows.Next() {
		var p domain.Platform
		if err := rows.Scan(&p.PlatformID, &p.Name); err != nil {
			return nil, fmt.Errorf("scan platform: %w", err)
		}
		platforms = append(platforms, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate platforms: %w", err)
	}
	return platforms, nil
}

func (r *Repository) CreatePlatform(ctx context.Context, name string) (domain.Platform, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Platform{}, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}

	var created domain.Platform
	err := r.pool.QueryRow(ctx, `
		INSERT INTO platforms (name)
		VALUES ($1)
		ON CONFLICT ON CONSTRAINT uq_platforms_name
		DO UPDATE SET name = EXCLUDED.name
		RETURNING platform_id, name
	`, name).Scan(&created.PlatformID, &created.Name)
	if err != nil {
		return domain.Platform{}, fmt.Errorf("create platform: %w", err)
	}
	return created, nil
}
