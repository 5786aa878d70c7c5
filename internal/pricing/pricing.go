// Package pricing holds the pure computation behind order assembly:
// discount percentages, line totals and loyalty points. Nothing here
// touches storage or carries state.
package pricing

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// DiscountPercent returns the integer discount percentage implied by an
// original price and the current price: floor((op-p)/op*100). It is 0
// whenever no original price is set or the original price does not
// exceed the current price, and is never negative.
func DiscountPercent(originalPrice decimal.NullDecimal, price decimal.Decimal) int {
	if !originalPrice.Valid {
		return 0
	}
	op := originalPrice.Decimal
	if op.LessThanOrEqual(price) || op.IsZero() {
		return 0
	}
	pct := op.Sub(price).Div(op).Mul(hundred).Floor()
	return int(pct.IntPart())
}

// LineTotals is the money breakdown of a single order line.
type LineTotals struct {
	Original   decimal.Decimal
	Discounted decimal.Decimal
	Discount   decimal.Decimal
}

// ComputeLineTotals multiplies unit prices out to line totals. When no
// original price is set, the original total falls back to the current
// price. The discount is clamped to zero: catalog data is expected to
// keep price <= original price, but the engine does not rely on it.
func ComputeLineTotals(price decimal.Decimal, originalPrice decimal.NullDecimal, quantity int) LineTotals {
	qty := decimal.NewFromInt(int64(quantity))

	unitOriginal := price
	if originalPrice.Valid {
		unitOriginal = originalPrice.Decimal
	}

	original := unitOriginal.Mul(qty)
	discounted := price.Mul(qty)

	discount := original.Sub(discounted)
	if discount.IsNegative() {
		discount = decimal.Zero
	}

	return LineTotals{
		Original:   original,
		Discounted: discounted,
		Discount:   discount,
	}
}

// PointsForSize converts a size label of the form "<integer>L" into
// loyalty points: liters times quantity ("4L" x3 = 12). Any label that
// does not parse yields 0 points rather than an error.
func PointsForSize(size string, quantity int) int {
	label := strings.TrimSpace(size)
	if !strings.HasSuffix(label, "L") {
		return 0
	}
	digits := strings.TrimSpace(strings.TrimSuffix(label, "L"))
	liters, err := strconv.Atoi(digits)
	if err != nil || liters < 0 {
		return 0
	}
	return liters * quantity
}
