// Package ledger holds the arithmetic behind the sale ledger: per-sale
// statistics contributions, stock adjustment bounds, and the sold-out rule.
// The repository applies these numbers inside its transactions; keeping the
// math here means the consistency rules can be exercised without a database.
package ledger

import "fmt"

// Contribution is what one sale record adds to the running statistics totals.
type Contribution struct {
	Gross float64
	Net   float64
	Spent float64
}

// ContributionFor computes the statistics contribution of a sale of quantity
// units at totalPrice, with costBasis captured per unit at sale time.
func ContributionFor(totalPrice, costBasis float64, quantity int) Contribution {
	spent := costBasis * float64(quantity)
	return Contribution{
		Gross: totalPrice,
		Net:   totalPrice - spent,
		Spent: spent,
	}
}

// Totals is the singleton statistics row. Add and Remove mirror how sale
// creation and deletion mutate it; an update is Remove(old) then Add(new).
type Totals struct {
	Gross float64
	Net   float64
	Spent float64
}

func (t *Totals) Add(c Contribution) {
	t.Gross += c.Gross
	t.Net += c.Net
	t.Spent += c.Spent
}

func (t *Totals) Remove(c Contribution) {
	t.Gross -= c.Gross
	t.Net -= c.Net
	t.Spent -= c.Spent
}

// SoldOut reports whether a stock level marks its holder as sold.
func SoldOut(level int) bool {
	return level <= 0
}

// InsufficientStockError rejects a sale that asks for more units than the
// holder has. Available is the stock level observed under the row lock.
type InsufficientStockError struct {
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock: only %d available", e.Available)
}

// InvalidQuantityError rejects a sale update whose new quantity would drive
// stock negative. MaxSellable is current stock plus the quantity the old
// record already holds, i.e. the largest quantity the update could carry.
type InvalidQuantityError struct {
	MaxSellable int
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("invalid quantity: at most %d sellable", e.MaxSellable)
}

// CheckDecrement validates taking quantity units from current stock for a new
// sale. The repository still guards the write itself with a conditional
// UPDATE; this check produces the caller-facing error from the locked read.
func CheckDecrement(current, quantity int) error {
	if current < quantity {
		return &InsufficientStockError{Available: current}
	}
	return nil
}

// AdjustedLevel computes the stock level after changing a sale's quantity
// from oldQuantity to newQuantity against a holder currently at current.
// The net delta is oldQuantity - newQuantity: positive returns stock,
// negative takes more.
func AdjustedLevel(current, oldQuantity, newQuantity int) (int, error) {
	level := current + oldQuantity - newQuantity
	if level < 0 {
		return 0, &InvalidQuantityError{MaxSellable: current + oldQuantity}
	}
	return level, nil
}

// RestoredLevel computes the stock level after a sale deletion returns
// quantity units. Restores have no ceiling; stock only grows.
func RestoredLevel(current, quantity int) int {
	return current + quantity
}

// CostBasis picks the per-unit cost for reversing a sale: the snapshot when
// one was recorded, otherwise the holder's current purchase price. Rows
// predating the snapshot column carry NULL and fall back.
func CostBasis(snapshot, currentPrice *float64) float64 {
	if snapshot != nil {
		return *snapshot
	}
	if currentPrice != nil {
		return *currentPrice
	}
	return 0
}
