package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"backend/internal/domain"
	"backend/internal/repository"
)

// ErrInvalidInput marks request payloads rejected before touching the database.
var ErrInvalidInput = repository.ErrInvalidInput

type Service struct {
	repo *repository.Repository
}

func New(repo *repository.Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}

func (s *Service) ListItems(ctx context.Context, search string, limit, offset int) ([]domain.Item, error) {
	return s.repo.ListItems(ctx, search, limit, offset)
}

func (s *Service) GetItem(ctx context.Context, id int64) (*domain.Item, error) {
	return s.repo.GetItemByID(ctx, id)
}

func (s *Service) CreateItem(ctx context.Context, input repository.ItemCreateInput) (domain.Item, error) {
	input.Name = strings.TrimSpace(input.Name)
	if input.Name == "" {
		return domain.Item{}, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if !input.HasVariants {
		if input.Quantity != nil && *input.Quantity < 0 {
			return domain.Item{}, fmt.Errorf("%w: quantity cannot be negative", ErrInvalidInput)
		}
		if input.PurchasePrice != nil && *input.PurchasePrice < 0 {
			return domain.Item{}, fmt.Errorf("%w: purchase_price cannot be negative", ErrInvalidInput)
		}
	}
	return s.repo.CreateItem(ctx, input)
}

func (s *Service) PatchItem(ctx context.Context, id int64, input repository.ItemPatchInput) (*domain.Item, error) {
	return s.repo.PatchItem(ctx, id, input)
}

func (s *Service) DeleteItem(ctx context.Context, id int64) error {
	return s.repo.DeleteItem(ctx, id)
}

func (s *Service) ListVariants(ctx context.Context, itemID int64) ([]domain.Variant, error) {
	return s.repo.ListVariants(ctx, itemID)
}

func (s *Service) CreateVariant(ctx context.Context, itemID int64, input repository.VariantCreateInput) (domain.Variant, error) {
	return s.repo.CreateVariant(ctx, itemID, input)
}

func (s *Service) GetVariant(ctx context.Context, id int64) (*domain.Variant, error) {
	return s.repo.GetVariantByID(ctx, id)
}

func (s *Service) PatchVariant(ctx context.Context, id int64, input repository.VariantPatchInput) (*domain.Variant, error) {
	return s.repo.PatchVariant(ctx, id, input)
}

func (s *Service) DeleteVariant(ctx context.Context, id int64) error {
	return s.repo.DeleteVariant(ctx, id)
}

func (s *Service) ReplaceItemPlatforms(ctx context.Context, itemID int64, platformIDs []int64) error {
	return s.repo.ReplaceItemPlatforms(ctx, itemID, platformIDs)
}

func (s *Service) ListItemPlatforms(ctx context.Context, itemID int64) ([]domain.Platform, error) {
	return s.repo.ListItemPlatforms(ctx, itemID)
}

func (s *Service) ReplaceVariantPlatforms(ctx context.Context, variantID int64, platformIDs []int64) error {
	return s.repo.ReplaceVariantPlatforms(ctx, variantID, platformIDs)
}

// CreateSale validates the request shape; stock and reference checks happen
// inside the repository transaction.
func (s *Service) CreateSale(ctx context.Context, input repository.SaleCreateInput) (int64, error) {
	if err := validateSaleFields(input.PlatformID, input.SaleDate, input.QuantitySold, input.TotalPrice); err != nil {
		return 0, err
	}
	if input.ItemID <= 0 {
		return 0, fmt.Errorf("%w: item_id is required", ErrInvalidInput)
	}
	input.SoldByUser = strings.TrimSpace(input.SoldByUser)
	return s.repo.CreateSale(ctx, input)
}

func (s *Service) UpdateSale(ctx context.Context, saleID int64, input repository.SaleUpdateInput) error {
	if err := validateSaleFields(input.PlatformID, input.SaleDate, input.QuantitySold, input.TotalPrice); err != nil {
		return err
	}
	input.SoldByUser = strings.TrimSpace(input.SoldByUser)
	return s.repo.UpdateSale(ctx, saleID, input)
}

func (s *Service) DeleteSale(ctx context.Context, saleID int64) error {
	return s.repo.DeleteSale(ctx, saleID)
}

func (s *Service) ListSalesByItem(ctx context.Context, itemID int64) ([]domain.SaleEntry, error) {
	return s.repo.ListSalesByItem(ctx, itemID)
}

func (s *Service) ListSales(ctx context.Context, limit, offset int) ([]domain.SaleEntry, error) {
	return s.repo.ListSales(ctx, limit, offset)
}

func (s *Service) StatisticsSummary(ctx context.Context) (domain.StatisticsSummary, error) {
	return s.repo.GetStatisticsSummary(ctx)
}

func (s *Service) ListSalesCounters(ctx context.Context) ([]domain.SalesCounter, error) {
	return s.repo.ListSalesCounters(ctx)
}

func (s *Service) ListCategories(ctx context.Context) ([]domain.Category, error) {
	return s.repo.ListCategories(ctx)
}

func (s *Service) CreateCategory(ctx context.Context, name string) (domain.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Category{}, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	return s.repo.CreateCategory(ctx, name)
}

func (s *Service) ListPlatforms(ctx context.Context) ([]domain.Platform, error) {
	return s.repo.ListPlatforms(ctx)
}

func (s *Service) CreatePlatform(ctx context.Context, name string) (domain.Platform, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Platform{}, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	return s.repo.CreatePlatform(ctx, name)
}

func validateSaleFields(platformID int64, saleDate time.Time, quantity int, totalPrice float64) error {
	if platformID <= 0 {
		return fmt.Errorf("%w: platform_id is required", ErrInvalidInput)
	}
	if saleDate.IsZero() {
		return fmt.Errorf("%w: sale_date is required", ErrInvalidInput)
	}
	if quantity <= 0 {
		return fmt.Errorf("%w: quantity_sold must be positive", ErrInvalidInput)
	}
	if totalPrice < 0 {
		return fmt.Errorf("%w: total_price cannot be negative", ErrInvalidInput)
	}
	return nil
}
