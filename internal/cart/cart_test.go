package cart

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flowork/terminal/internal/domain"
)

func shoe(id int64, original, sale int64) Line {
	return Line{
		VariantID:     id,
		ProductName:   "Runner",
		ProductNumber: "PN-1",
		Color:         "BLK",
		Size:          "260",
		OriginalPrice: original,
		SalePrice:     sale,
	}
}

func TestTotalsMatchLineSums(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	for round := 0; round < 200; round++ {
		var c Cart
		wantQty := 0
		var wantAmount int64
		n := rng.IntN(6)
		for i := 0; i < n; i++ {
			sale := int64(rng.IntN(100)) * 1000
			c.AddLine(shoe(int64(i+1), sale+int64(rng.IntN(5))*1000, sale), 1)
			qty := 1 + rng.IntN(4)
			disc := int64(rng.IntN(3)) * 500
			require.True(t, c.SetQuantity(i, qty))
			require.True(t, c.SetDiscount(i, disc))
			wantQty += qty
			wantAmount += (sale - disc) * int64(qty)
		}

		totals := c.Totals()
		assert.Equal(t, wantQty, totals.TotalQty)
		assert.Equal(t, wantAmount, totals.TotalAmount)
		assert.Len(t, totals.Lines, n)
	}
}

func TestAddLineMergesSameVariant(t *testing.T) {
	var c Cart
	c.AddLine(shoe(1, 10000, 8000), 1)
	c.AddLine(shoe(1, 10000, 8000), 1)

	lines := c.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, 2, lines[0].Quantity)
	assert.Zero(t, lines[0].DiscountAmount)
}

func TestAddLineResetsIncomingDiscount(t *testing.T) {
	var c Cart
	line := shoe(9, 10000, 8000)
	line.DiscountAmount = 700
	c.AddLine(line, 0)

	lines := c.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, 1, lines[0].Quantity)
	assert.Zero(t, lines[0].DiscountAmount)
}

func TestSetQuantityRejectsNonPositive(t *testing.T) {
	var c Cart
	c.AddLine(shoe(1, 10000, 8000), 3)

	assert.False(t, c.SetQuantity(0, 0))
	assert.False(t, c.SetQuantity(0, -2))
	assert.False(t, c.SetQuantity(5, 2))
	assert.Equal(t, 3, c.Lines()[0].Quantity)
}

func TestSetDiscountRejectsNegative(t *testing.T) {
	var c Cart
	c.AddLine(shoe(1, 10000, 8000), 1)
	require.True(t, c.SetDiscount(0, 1500))

	assert.False(t, c.SetDiscount(0, -1))
	assert.Equal(t, int64(1500), c.Lines()[0].DiscountAmount)
	assert.True(t, c.SetDiscount(0, 0))
	assert.Zero(t, c.Lines()[0].DiscountAmount)
}

func TestRemoveLine(t *testing.T) {
	var c Cart
	c.AddLine(shoe(1, 0, 1000), 1)
	c.AddLine(shoe(2, 0, 2000), 1)
	c.AddLine(shoe(3, 0, 3000), 1)

	require.True(t, c.RemoveLine(1))
	assert.False(t, c.RemoveLine(7))

	lines := c.Lines()
	require.Len(t, lines, 2)
	assert.Equal(t, int64(1), lines[0].VariantID)
	assert.Equal(t, int64(3), lines[1].VariantID)
}

func TestApplyAutoDiscountPicksHighestSatisfiedThreshold(t *testing.T) {
	rules := []domain.DiscountRule{
		{Limit: 50000, Discount: 2000},
		{Limit: 100000, Discount: 5000},
	}

	var c Cart
	c.AddLine(shoe(1, 70000, 60000), 2)

	rule, ok := c.ApplyAutoDiscount(rules)
	require.True(t, ok)
	assert.Equal(t, domain.DiscountRule{Limit: 100000, Discount: 5000}, rule)
	assert.Equal(t, int64(5000), c.Lines()[0].DiscountAmount)
}

func TestApplyAutoDiscountLandsOnFirstLineOnly(t *testing.T) {
	var c Cart
	c.AddLine(shoe(1, 0, 20000), 1)
	c.AddLine(shoe(2, 0, 40000), 1)
	require.True(t, c.SetDiscount(0, 1000))

	_, ok := c.ApplyAutoDiscount([]domain.DiscountRule{{Limit: 50000, Discount: 2000}})
	require.True(t, ok)

	lines := c.Lines()
	assert.Equal(t, int64(3000), lines[0].DiscountAmount)
	assert.Zero(t, lines[1].DiscountAmount)
}

func TestApplyAutoDiscountNoRule(t *testing.T) {
	rules := []domain.DiscountRule{{Limit: 100000, Discount: 5000}, {Limit: 50000, Discount: 2000}}

	var c Cart
	c.AddLine(shoe(1, 0, 30000), 1)
	before := c.Lines()

	_, ok := c.ApplyAutoDiscount(rules)
	assert.False(t, ok)
	assert.Equal(t, before, c.Lines())

	var empty Cart
	_, ok = empty.ApplyAutoDiscount(rules)
	assert.False(t, ok)
}

func TestApplyAutoDiscountUsesPreDiscountSubtotal(t *testing.T) {
	var c Cart
	c.AddLine(shoe(1, 0, 50000), 1)
	require.True(t, c.SetDiscount(0, 10000))

	_, ok := c.ApplyAutoDiscount([]domain.DiscountRule{{Limit: 50000, Discount: 2000}})
	assert.True(t, ok)
}

func TestDiscountRate(t *testing.T) {
	assert.Equal(t, int64(20), DiscountRate(10000, 8000))
	assert.Equal(t, int64(0), DiscountRate(0, 8000))
	assert.Equal(t, int64(0), DiscountRate(8000, 9000))
	assert.Equal(t, int64(33), DiscountRate(30000, 20000))
	assert.Equal(t, int64(67), DiscountRate(30000, 10000))
	assert.Equal(t, int64(3), DiscountRate(40000, 38999))
}

func TestTotalsExposeRateAndListPrice(t *testing.T) {
	var c Cart
	c.AddLine(shoe(1, 10000, 8000), 2)
	c.AddLine(shoe(2, 0, 5000), 1)
	require.True(t, c.SetDiscount(0, 500))

	totals := c.Totals()
	assert.Equal(t, LineTotals{UnitNet: 7500, Subtotal: 15000, DiscountRate: 20, ListPrice: 10000}, totals.Lines[0])
	assert.Equal(t, LineTotals{UnitNet: 5000, Subtotal: 5000, DiscountRate: 0, ListPrice: 5000}, totals.Lines[1])
	assert.Equal(t, int64(20000), totals.TotalAmount)
}

func TestLinesReturnsCopy(t *testing.T) {
	var c Cart
	c.AddLine(shoe(1, 0, 1000), 1)
	lines := c.Lines()
	lines[0].Quantity = 99
	assert.Equal(t, 1, c.Lines()[0].Quantity)
}
