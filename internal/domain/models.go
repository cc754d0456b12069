package domain

import "time"

type Category struct {
	CategoryID int64  `json:"category_id"`
	Name       string `json:"name"`
}

type Platform struct {
	PlatformID int64  `json:"platform_id"`
	Name       string `json:"name"`
}

type Item struct {
	ItemID        int64     `json:"item_id"`
	UniqueCode    string    `json:"unique_code"`
	Name          string    `json:"name"`
	CategoryID    *int64    `json:"category_id,omitempty"`
	Brand         *string   `json:"brand,omitempty"`
	Description   *string   `json:"description,omitempty"`
	Value         *float64  `json:"value,omitempty"`
	SalePrice     *float64  `json:"sale_price,omitempty"`
	HasVariants   bool      `json:"has_variants"`
	Quantity      *int      `json:"quantity,omitempty"`
	PurchasePrice *float64  `json:"purchase_price,omitempty"`
	IsSold        bool      `json:"is_sold"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type Variant struct {
	VariantID     int64     `json:"variant_id"`
	ItemID        int64     `json:"item_id"`
	VariantName   string    `json:"variant_name"`
	Description   *string   `json:"description,omitempty"`
	PurchasePrice float64   `json:"purchase_price"`
	Quantity      int       `json:"quantity"`
	IsSold        bool      `json:"is_sold"`
	CreatedAt     time.Time `json:"created_at"`
}

// SaleEntry is a sale row joined with its platform, item, and variant names
// for listing and export.
type SaleEntry struct {
	SaleID                int64     `json:"sale_id"`
	ItemID                int64     `json:"item_id"`
	ItemName              string    `json:"item_name"`
	VariantID             *int64    `json:"variant_id,omitempty"`
	VariantName           *string   `json:"variant_name,omitempty"`
	PlatformName          string    `json:"platform_name"`
	SaleDate              time.Time `json:"sale_date"`
	QuantitySold          int       `json:"quantity_sold"`
	TotalPrice            float64   `json:"total_price"`
	SoldByUser            string    `json:"sold_by_user"`
	PurchasePriceSnapshot *float64  `json:"purchase_price_snapshot,omitempty"`
}

type StatisticsSummary struct {
	GrossProfitTotal float64 `json:"gross_profit_total"`
	NetProfitTotal   float64 `json:"net_profit_total"`
	TotalSpent       float64 `json:"total_spent"`
	EstimatedProfit  float64 `json:"estimated_profit"`
	TopCategory      *string `json:"top_category,omitempty"`
	TopBrand         *string `json:"top_brand,omitempty"`
}

type SalesCounter struct {
	CounterID  int64   `json:"counter_id"`
	CategoryID *int64  `json:"category_id,omitempty"`
	Brand      *string `json:"brand,omitempty"`
	SaleCount  int     `json:"sale_count"`
}
