// Package cart holds the line items of a single sales or refund transaction
// and the arithmetic over them.
package cart

import (
	"sort"

	"github.com/shopspring/decimal"

	"flowork/terminal/internal/domain"
)

type Line struct {
	VariantID      int64  `json:"variant_id"`
	ProductName    string `json:"product_name"`
	ProductNumber  string `json:"product_number"`
	Color          string `json:"color"`
	Size           string `json:"size"`
	OriginalPrice  int64  `json:"original_price"`
	SalePrice      int64  `json:"sale_price"`
	DiscountAmount int64  `json:"discount_amount"`
	Quantity       int    `json:"quantity"`
	Stock          *int64 `json:"stock,omitempty"`
	HQStock        *int64 `json:"hq_stock,omitempty"`
}

func LineFromVariant(v domain.Variant) Line {
	return Line{
		VariantID:     v.VariantID,
		ProductName:   v.ProductName,
		ProductNumber: v.ProductNumber,
		Color:         v.Color,
		Size:          v.Size,
		OriginalPrice: v.OriginalPrice,
		SalePrice:     v.SalePrice,
		Stock:         v.Stock,
		HQStock:       v.HQStock,
	}
}

// LineFromSaleDetail maps a completed sale's item into a refund line. A zero
// original price falls back to the price actually charged.
func LineFromSaleDetail(item domain.SaleDetailItem) Line {
	original := item.OriginalPrice
	if original == 0 {
		original = item.Price
	}
	return Line{
		VariantID:      item.VariantID,
		ProductName:    item.Name,
		ProductNumber:  item.PN,
		Color:          item.Color,
		Size:           item.Size,
		OriginalPrice:  original,
		SalePrice:      item.Price,
		DiscountAmount: item.DiscountAmount,
		Quantity:       item.Quantity,
	}
}

type LineTotals struct {
	UnitNet      int64 `json:"unit_net"`
	Subtotal     int64 `json:"subtotal"`
	DiscountRate int64 `json:"discount_rate"`
	ListPrice    int64 `json:"list_price"`
}

type Totals struct {
	Lines       []LineTotals `json:"lines"`
	TotalQty    int          `json:"total_qty"`
	TotalAmount int64        `json:"total_amount"`
}

type Cart struct {
	lines []Line
}

func (c *Cart) Len() int { return len(c.lines) }

func (c *Cart) Empty() bool { return len(c.lines) == 0 }

// Lines returns a copy of the current lines.
func (c *Cart) Lines() []Line {
	return cloneLines(c.lines)
}

// AddLine merges by variant: an existing line has its quantity raised,
// otherwise a new line is appended with no manual discount.
func (c *Cart) AddLine(line Line, qty int) {
	if qty < 1 {
		qty = 1
	}
	for i := range c.lines {
		if c.lines[i].VariantID == line.VariantID {
			c.lines[i].Quantity += qty
			return
		}
	}
	line.Quantity = qty
	line.DiscountAmount = 0
	c.lines = append(c.lines, line)
}

// SetQuantity ignores quantities below 1 and unknown indexes.
func (c *Cart) SetQuantity(index int, qty int) bool {
	if qty < 1 || !c.valid(index) {
		return false
	}
	c.lines[index].Quantity = qty
	return true
}

// SetDiscount ignores negative amounts and unknown indexes.
func (c *Cart) SetDiscount(index int, amount int64) bool {
	if amount < 0 || !c.valid(index) {
		return false
	}
	c.lines[index].DiscountAmount = amount
	return true
}

func (c *Cart) RemoveLine(index int) bool {
	if !c.valid(index) {
		return false
	}
	c.lines = append(c.lines[:index], c.lines[index+1:]...)
	return true
}

func (c *Cart) Clear() {
	c.lines = nil
}

func (c *Cart) Replace(lines []Line) {
	c.lines = cloneLines(lines)
}

func (c *Cart) Totals() Totals {
	totals := Totals{Lines: make([]LineTotals, 0, len(c.lines))}
	for _, line := range c.lines {
		unit := line.SalePrice - line.DiscountAmount
		sub := unit * int64(line.Quantity)
		list := line.OriginalPrice
		if list == 0 {
			list = line.SalePrice
		}
		totals.Lines = append(totals.Lines, LineTotals{
			UnitNet:      unit,
			Subtotal:     sub,
			DiscountRate: DiscountRate(line.OriginalPrice, line.SalePrice),
			ListPrice:    list,
		})
		totals.TotalQty += line.Quantity
		totals.TotalAmount += sub
	}
	return totals
}

// Subtotal is the pre-manual-discount amount used to pick automatic rules.
func (c *Cart) Subtotal() int64 {
	var total int64
	for _, line := range c.lines {
		total += line.SalePrice * int64(line.Quantity)
	}
	return total
}

// ApplyAutoDiscount picks the highest threshold the subtotal satisfies and
// adds its discount to the first line. It reports false when no rule applies
// or the cart is empty.
func (c *Cart) ApplyAutoDiscount(rules []domain.DiscountRule) (domain.DiscountRule, bool) {
	if len(c.lines) == 0 {
		return domain.DiscountRule{}, false
	}
	rule, ok := SelectRule(rules, c.Subtotal())
	if !ok {
		return domain.DiscountRule{}, false
	}
	c.lines[0].DiscountAmount += rule.Discount
	return rule, true
}

// SelectRule returns the rule with the largest limit not above subtotal.
func SelectRule(rules []domain.DiscountRule, subtotal int64) (domain.DiscountRule, bool) {
	sorted := make([]domain.DiscountRule, len(rules))
	copy(sorted, rules)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Limit > sorted[j].Limit })
	for _, rule := range sorted {
		if subtotal >= rule.Limit {
			return rule, true
		}
	}
	return domain.DiscountRule{}, false
}

func (c *Cart) SaleItems() []domain.SaleItem {
	items := make([]domain.SaleItem, 0, len(c.lines))
	for _, line := range c.lines {
		items = append(items, domain.SaleItem{
			VariantID:      line.VariantID,
			Quantity:       line.Quantity,
			Price:          line.SalePrice,
			DiscountAmount: line.DiscountAmount,
		})
	}
	return items
}

// DiscountRate is the whole-percent markdown of sale against original price,
// rounded half up. It is 0 when there is no markdown to show.
func DiscountRate(original, sale int64) int64 {
	org := original
	if org == 0 {
		org = sale
	}
	if org <= 0 || org <= sale {
		return 0
	}
	ratio := decimal.NewFromInt(sale).Div(decimal.NewFromInt(org))
	return decimal.NewFromInt(1).Sub(ratio).Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

func (c *Cart) valid(index int) bool {
	return index >= 0 && index < len(c.lines)
}

func cloneLines(lines []Line) []Line {
	if lines == nil {
		return nil
	}
	out := make([]Line, len(lines))
	copy(out, lines)
	return out
}
