package billing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestMinorToMajor(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{in: 150000, want: "1500.00"},
		{in: 2999, want: "29.99"},
		{in: 1, want: "0.01"},
		{in: 0, want: "0.00"},
	}

	for _, tt := range tests {
		got := MinorToMajor(tt.in)
		assert.Equal(t, tt.want, got.StringFixed(2), "MinorToMajor(%d)", tt.in)
	}
	assert.True(t, MinorToMajor(150000).Equal(decimal.NewFromInt(1500)))
}

func TestMajorToMinor(t *testing.T) {
	assert.Equal(t, int64(2900), MajorToMinor(decimal.NewFromInt(29)))
	assert.Equal(t, int64(29000), MajorToMinor(decimal.RequireFromString("290.00")))
	assert.Equal(t, int64(1999), MajorToMinor(decimal.RequireFromString("19.985")))
	assert.Equal(t, int64(150000), MajorToMinor(MinorToMajor(150000)))
}
