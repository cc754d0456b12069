package ledger

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContributionFor(t *testing.T) {
	c := ContributionFor(60, 5, 3)

	assert.Equal(t, 60.0, c.Gross)
	assert.Equal(t, 15.0, c.Spent)
	assert.Equal(t, 45.0, c.Net)
}

func TestContributionForZeroCost(t *testing.T) {
	c := ContributionFor(25, 0, 2)

	assert.Equal(t, 25.0, c.Gross)
	assert.Equal(t, 0.0, c.Spent)
	assert.Equal(t, 25.0, c.Net)
}

func TestTotalsAddRemoveRoundTrip(t *testing.T) {
	totals := Totals{Gross: 100, Net: 40, Spent: 60}
	c := ContributionFor(30, 4, 2)

	totals.Add(c)
	totals.Remove(c)

	assert.Equal(t, Totals{Gross: 100, Net: 40, Spent: 60}, totals)
}

func TestTotalsUpdateIsRemoveThenAdd(t *testing.T) {
	totals := Totals{}
	old := ContributionFor(60, 5, 3)
	totals.Add(old)

	totals.Remove(old)
	totals.Add(ContributionFor(80, 5, 4))

	assert.Equal(t, 80.0, totals.Gross)
	assert.Equal(t, 20.0, totals.Spent)
	assert.Equal(t, 60.0, totals.Net)
}

func TestCheckDecrement(t *testing.T) {
	require.NoError(t, CheckDecrement(10, 3))
	require.NoError(t, CheckDecrement(3, 3))

	err := CheckDecrement(2, 3)
	require.Error(t, err)

	var insufficient *InsufficientStockError
	require.True(t, errors.As(err, &insufficient))
	assert.Equal(t, 2, insufficient.Available)
}

func TestAdjustedLevel(t *testing.T) {
	level, err := AdjustedLevel(7, 3, 5)
	require.NoError(t, err)
	assert.Equal(t, 5, level)

	level, err = AdjustedLevel(7, 3, 1)
	require.NoError(t, err)
	assert.Equal(t, 9, level)

	level, err = AdjustedLevel(7, 3, 10)
	require.NoError(t, err)
	assert.Equal(t, 0, level)
}

func TestAdjustedLevelMaxSellable(t *testing.T) {
	_, err := AdjustedLevel(7, 3, 11)
	require.Error(t, err)

	var invalid *InvalidQuantityError
	require.True(t, errors.As(err, &invalid))
	assert.Equal(t, 10, invalid.MaxSellable)
}

func TestRestoredLevel(t *testing.T) {
	assert.Equal(t, 5, RestoredLevel(2, 3))
	assert.Equal(t, 3, RestoredLevel(0, 3))
}

func TestSoldOut(t *testing.T) {
	assert.True(t, SoldOut(0))
	assert.True(t, SoldOut(-1))
	assert.False(t, SoldOut(1))
}

func TestCostBasisPrefersSnapshot(t *testing.T) {
	snapshot := 4.5
	current := 9.0

	assert.Equal(t, 4.5, CostBasis(&snapshot, &current))
	assert.Equal(t, 9.0, CostBasis(nil, &current))
	assert.Equal(t, 0.0, CostBasis(nil, nil))
}

func TestCostBasisZeroSnapshotWins(t *testing.T) {
	// A recorded snapshot of zero is still a snapshot; it must not fall back
	// to the holder's current price.
	snapshot := 0.0
	current := 9.0

	assert.Equal(t, 0.0, CostBasis(&snapshot, &current))
}
