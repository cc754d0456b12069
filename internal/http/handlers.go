package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"backend/internal/excel"
	"backend/internal/ledger"
	"backend/internal/repository"
	"backend/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

type Handler struct {
	svc    *service.Service
	logger zerolog.Logger
}

func NewHandler(svc *service.Service, logger zerolog.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Ping(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, "database unreachable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

// --- items ---

func (h *Handler) ListItems(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	limit, err := parseOptionalInt(query.Get("limit"), 200)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	offset, err := parseOptionalInt(query.Get("offset"), 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	items, err := h.svc.ListItems(r.Context(), query.Get("search"), limit, offset)
	if err != nil {
		h.internalError(w, r, "list items", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items, "count": len(items)})
}

func (h *Handler) GetItem(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	item, err := h.svc.GetItem(r.Context(), id)
	if err != nil {
		h.respondError(w, r, "get item", err, "item not found")
		return
	}
	writeJSON(w, http.StatusOK, item)
}

type createItemRequest struct {
	Name          string   `json:"name"`
	CategoryID    *int64   `json:"category_id"`
	Brand         *string  `json:"brand"`
	Description   *string  `json:"description"`
	Value         *float64 `json:"value"`
	SalePrice     *float64 `json:"sale_price"`
	HasVariants   *bool    `json:"has_variants"`
	Quantity      *int     `json:"quantity"`
	PurchasePrice *float64 `json:"purchase_price"`
	Platforms     []int64  `json:"platforms"`
}

func (h *Handler) CreateItem(w http.ResponseWriter, r *http.Request) {
	var req createItemRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Name) == "" || req.HasVariants == nil {
		writeError(w, http.StatusBadRequest, "name and has_variants are required")
		return
	}

	created, err := h.svc.CreateItem(r.Context(), repository.ItemCreateInput{
		Name:          req.Name,
		CategoryID:    req.CategoryID,
		Brand:         req.Brand,
		Description:   req.Description,
		Value:         req.Value,
		SalePrice:     req.SalePrice,
		HasVariants:   *req.HasVariants,
		Quantity:      req.Quantity,
		PurchasePrice: req.PurchasePrice,
		Platforms:     req.Platforms,
	})
	if err != nil {
		h.respondError(w, r, "create item", err, "category or platform not found")
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

type patchItemRequest struct {
	Name          *string  `json:"name"`
	CategoryID    *int64   `json:"category_id"`
	Brand         *string  `json:"brand"`
	Description   *string  `json:"description"`
	Value         *float64 `json:"value"`
	SalePrice     *float64 `json:"sale_price"`
	Quantity      *int     `json:"quantity"`
	PurchasePrice *float64 `json:"purchase_price"`
}

func (h *Handler) PatchItem(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req patchItemRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	updated, err := h.svc.PatchItem(r.Context(), id, repository.ItemPatchInput{
		Name:          req.Name,
		CategoryID:    req.CategoryID,
		Brand:         req.Brand,
		Description:   req.Description,
		Value:         req.Value,
		SalePrice:     req.SalePrice,
		Quantity:      req.Quantity,
		PurchasePrice: req.PurchasePrice,
	})
	if err != nil {
		h.respondError(w, r, "patch item", err, "item or category not found")
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *Handler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.svc.DeleteItem(r.Context(), id); err != nil {
		h.respondError(w, r, "delete item", err, "item not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type platformSetRequest struct {
	Platforms []int64 `json:"platforms"`
}

func (h *Handler) ListItemPlatforms(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	platforms, err := h.svc.ListItemPlatforms(r.Context(), id)
	if err != nil {
		h.internalError(w, r, "list item platforms", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"platforms": platforms})
}

func (h *Handler) ReplaceItemPlatforms(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req platformSetRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.svc.ReplaceItemPlatforms(r.Context(), id, req.Platforms); err != nil {
		h.respondError(w, r, "replace item platforms", err, "item or platform not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- variants ---

func (h *Handler) ListVariants(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	variants, err := h.svc.ListVariants(r.Context(), id)
	if err != nil {
		h.internalError(w, r, "list variants", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"variants": variants, "count": len(variants)})
}

type createVariantRequest struct {
	VariantName   string   `json:"variant_name"`
	Description   *string  `json:"description"`
	PurchasePrice *float64 `json:"purchase_price"`
	Quantity      *int     `json:"quantity"`
	Platforms     []int64  `json:"platforms"`
}

func (h *Handler) CreateVariant(w http.ResponseWriter, r *http.Request) {
	itemID, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req createVariantRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.VariantName) == "" || req.PurchasePrice == nil || req.Quantity == nil {
		writeError(w, http.StatusBadRequest, "variant_name, purchase_price and quantity are required")
		return
	}

	created, err := h.svc.CreateVariant(r.Context(), itemID, repository.VariantCreateInput{
		VariantName:   req.VariantName,
		Description:   req.Description,
		PurchasePrice: *req.PurchasePrice,
		Quantity:      *req.Quantity,
		Platforms:     req.Platforms,
	})
	if err != nil {
		h.respondError(w, r, "create variant", err, "item not found")
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *Handler) GetVariant(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	variant, err := h.svc.GetVariant(r.Context(), id)
	if err != nil {
		h.respondError(w, r, "get variant", err, "variant not found")
		return
	}
	writeJSON(w, http.StatusOK, variant)
}

type patchVariantRequest struct {
	VariantName   *string  `json:"variant_name"`
	Description   *string  `json:"description"`
	PurchasePrice *float64 `json:"purchase_price"`
	Quantity      *int     `json:"quantity"`
}

func (h *Handler) PatchVariant(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req patchVariantRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	updated, err := h.svc.PatchVariant(r.Context(), id, repository.VariantPatchInput{
		VariantName:   req.VariantName,
		Description:   req.Description,
		PurchasePrice: req.PurchasePrice,
		Quantity:      req.Quantity,
	})
	if err != nil {
		h.respondError(w, r, "patch variant", err, "variant not found")
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *Handler) DeleteVariant(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.svc.DeleteVariant(r.Context(), id); err != nil {
		h.respondError(w, r, "delete variant", err, "variant not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ReplaceVariantPlatforms(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req platformSetRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.svc.ReplaceVariantPlatforms(r.Context(), id, req.Platforms); err != nil {
		h.respondError(w, r, "replace variant platforms", err, "variant or platform not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- sales ---

type createSaleRequest struct {
	ItemID       int64    `json:"item_id"`
	VariantID    *int64   `json:"variant_id"`
	PlatformID   int64    `json:"platform_id"`
	SaleDate     string   `json:"sale_date"`
	QuantitySold int      `json:"quantity_sold"`
	TotalPrice   *float64 `json:"total_price"`
	SoldByUser   string   `json:"sold_by_user"`
}

func (h *Handler) CreateSale(w http.ResponseWriter, r *http.Request) {
	var req createSaleRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.ItemID <= 0 || req.PlatformID <= 0 || req.SaleDate == "" || req.QuantitySold <= 0 || req.TotalPrice == nil {
		writeError(w, http.StatusBadRequest, "item_id, platform_id, sale_date, quantity_sold and total_price are required")
		return
	}
	saleDate, err := parseSaleDate(req.SaleDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	saleID, err := h.svc.CreateSale(r.Context(), repository.SaleCreateInput{
		ItemID:       req.ItemID,
		VariantID:    req.VariantID,
		PlatformID:   req.PlatformID,
		SaleDate:     saleDate,
		QuantitySold: req.QuantitySold,
		TotalPrice:   *req.TotalPrice,
		SoldByUser:   req.SoldByUser,
	})
	if err != nil {
		h.respondSaleError(w, r, "create sale", err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"sale_id": saleID})
}

type updateSaleRequest struct {
	PlatformID   int64    `json:"platform_id"`
	SaleDate     string   `json:"sale_date"`
	QuantitySold int      `json:"quantity_sold"`
	TotalPrice   *float64 `json:"total_price"`
	SoldByUser   string   `json:"sold_by_user"`
}

func (h *Handler) UpdateSale(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req updateSaleRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.PlatformID <= 0 || req.SaleDate == "" || req.QuantitySold <= 0 || req.TotalPrice == nil {
		writeError(w, http.StatusBadRequest, "platform_id, sale_date, quantity_sold and total_price are required")
		return
	}
	saleDate, err := parseSaleDate(req.SaleDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	err = h.svc.UpdateSale(r.Context(), id, repository.SaleUpdateInput{
		PlatformID:   req.PlatformID,
		SaleDate:     saleDate,
		QuantitySold: req.QuantitySold,
		TotalPrice:   *req.TotalPrice,
		SoldByUser:   req.SoldByUser,
	})
	if err != nil {
		h.respondSaleError(w, r, "update sale", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sale_id": id})
}

func (h *Handler) DeleteSale(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.svc.DeleteSale(r.Context(), id); err != nil {
		h.respondError(w, r, "delete sale", err, "sale not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ListItemSales(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	sales, err := h.svc.ListSalesByItem(r.Context(), id)
	if err != nil {
		h.internalError(w, r, "list item sales", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sales": sales, "count": len(sales)})
}

func (h *Handler) ListSales(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	limit, err := parseOptionalInt(query.Get("limit"), 200)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	offset, err := parseOptionalInt(query.Get("offset"), 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	sales, err := h.svc.ListSales(r.Context(), limit, offset)
	if err != nil {
		h.internalError(w, r, "list sales", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sales": sales, "count": len(sales)})
}

// --- statistics ---

func (h *Handler) StatisticsSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.svc.StatisticsSummary(r.Context())
	if err != nil {
		h.internalError(w, r, "statistics summary", err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (h *Handler) ListSalesCounters(w http.ResponseWriter, r *http.Request) {
	counters, err := h.svc.ListSalesCounters(r.Context())
	if err != nil {
		h.internalError(w, r, "list sales counters", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"counters": counters})
}

// --- lookups ---

type createNameRequest struct {
	Name string `json:"name"`
}

func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.svc.ListCategories(r.Context())
	if err != nil {
		h.internalError(w, r, "list categories", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"categories": categories})
}

func (h *Handler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var req createNameRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	created, err := h.svc.CreateCategory(r.Context(), req.Name)
	if err != nil {
		h.respondError(w, r, "create category", err, "category not found")
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *Handler) ListPlatforms(w http.ResponseWriter, r *http.Request) {
	platforms, err := h.svc.ListPlatforms(r.Context())
	if err != nil {
		h.internalError(w, r, "list platforms", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"platforms": platforms})
}

func (h *Handler) CreatePlatform(w http.ResponseWriter, r *http.Request) {
	var req createNameRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	created, err := h.svc.CreatePlatform(r.Context(), req.Name)
	if err != nil {
		h.respondError(w, r, "create platform", err, "platform not found")
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// --- reports ---

func (h *Handler) ExportSalesReport(w http.ResponseWriter, r *http.Request) {
	sales, err := h.svc.ListSales(r.Context(), 1000, 0)
	if err != nil {
		h.internalError(w, r, "export sales report", err)
		return
	}
	file, err := excel.BuildSalesReport(sales)
	if err != nil {
		h.internalError(w, r, "build sales report", err)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="sales.xlsx"`)
	if err := file.Write(w); err != nil {
		h.logger.Error().Err(err).Str("op", "export sales report").Msg("stream workbook")
	}
}

// --- error mapping ---

// respondSaleError maps ledger errors onto the API contract: business-rule
// violations are 4xx with structured detail, everything else is logged 500.
func (h *Handler) respondSaleError(w http.ResponseWriter, r *http.Request, op string, err error) {
	var insufficient *ledger.InsufficientStockError
	if errors.As(err, &insufficient) {
		writeJSON(w, http.StatusConflict, map[string]any{
			"error":        insufficient.Error(),
			"max_sellable": insufficient.Available,
		})
		return
	}
	var invalid *ledger.InvalidQuantityError
	if errors.As(err, &invalid) {
		writeJSON(w, http.StatusConflict, map[string]any{
			"error":        invalid.Error(),
			"max_sellable": invalid.MaxSellable,
		})
		return
	}
	if errors.Is(err, repository.ErrVariantRequired) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.respondError(w, r, op, err, "sale, item or variant not found")
}

func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, op string, err error, notFoundMessage string) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, notFoundMessage)
	case errors.Is(err, repository.ErrSalesHistory):
		writeError(w, http.StatusConflict, "sales history references this record")
	case errors.Is(err, service.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		h.internalError(w, r, op, err)
	}
}

func (h *Handler) internalError(w http.ResponseWriter, r *http.Request, op string, err error) {
	h.logger.Error().Err(err).Str("op", op).Str("path", r.URL.Path).Msg("internal error")
	writeError(w, http.StatusInternalServerError, "internal error")
}

// --- helpers ---

func decodeJSON(r *http.Request, target any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(target); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id")
	}
	return id, nil
}

func parseOptionalInt(raw string, fallback int) (int, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return fallback, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid integer value: %s", raw)
	}
	if parsed < 0 {
		return 0, fmt.Errorf("value cannot be negative")
	}
	return parsed, nil
}

func parseSaleDate(raw string) (time.Time, error) {
	value := strings.TrimSpace(raw)
	for _, layout := range []string{"2006-01-02", time.RFC3339} {
		if parsed, err := time.Parse(layout, value); err == nil {
			return parsed.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid sale_date: %s", raw)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": message})
}
