package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func dec(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}

func nullDec(v int64) decimal.NullDecimal {
	return decimal.NullDecimal{Decimal: decimal.NewFromInt(v), Valid: true}
}

func noDec() decimal.NullDecimal {
	return decimal.NullDecimal{}
}

func TestDiscountPercent(t *testing.T) {
	tests := []struct {
		name     string
		original decimal.NullDecimal
		price    decimal.Decimal
		want     int
	}{
		{"no original price", noDec(), dec(90), 0},
		{"original above price", nullDec(100), dec(90), 10},
		{"original equals price", nullDec(90), dec(90), 0},
		{"original below price", nullDec(80), dec(90), 0},
		{"floors fractional percent", nullDec(300), dec(200), 33},
		{"full discount", nullDec(100), dec(0), 100},
		{"zero original price", nullDec(0), dec(0), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DiscountPercent(tt.original, tt.price))
		})
	}
}

func TestDiscountPercentNeverNegative(t *testing.T) {
	for op := int64(0); op <= 200; op += 25 {
		got := DiscountPercent(nullDec(op), dec(100))
		assert.GreaterOrEqual(t, got, 0, "original=%d", op)
	}
}

func TestComputeLineTotals(t *testing.T) {
	lt := ComputeLineTotals(dec(90), nullDec(100), 2)
	assert.True(t, lt.Original.Equal(dec(200)))
	assert.True(t, lt.Discounted.Equal(dec(180)))
	assert.True(t, lt.Discount.Equal(dec(20)))
}

func TestComputeLineTotalsNoOriginalPrice(t *testing.T) {
	// Original total falls back to the unit price.
	lt := ComputeLineTotals(dec(50), noDec(), 3)
	assert.True(t, lt.Original.Equal(dec(150)))
	assert.True(t, lt.Discounted.Equal(dec(150)))
	assert.True(t, lt.Discount.IsZero())
}

func TestComputeLineTotalsClampsDiscount(t *testing.T) {
	// Original price below current price must not produce a negative
	// discount.
	lt := ComputeLineTotals(dec(100), nullDec(80), 1)
	assert.True(t, lt.Discount.IsZero())
}

func TestPointsForSize(t *testing.T) {
	tests := []struct {
		size string
		qty  int
		want int
	}{
		{"4L", 3, 12},
		{"1L", 1, 1},
		{"20L", 2, 40},
		{"10L", 5, 50},
		{"bad", 5, 0},
		{"", 1, 0},
		{"4l", 2, 0},  // lowercase liter suffix does not count
		{"4", 2, 0},   // missing suffix
		{"L", 1, 0},   // no number
		{"x4L", 1, 0}, // non-numeric prefix
		{" 4L ", 2, 8},
		{"-4L", 3, 0}, // negative liters never deduct points
	}

	for _, tt := range tests {
		t.Run(tt.size, func(t *testing.T) {
			assert.Equal(t, tt.want, PointsForSize(tt.size, tt.qty))
		})
	}
}
