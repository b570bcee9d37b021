package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPercentRoundsHalfUp(t *testing.T) {
	assert.Equal(t, "500.00", Format(Percent(decimal.RequireFromString("1000.00"), decimal.NewFromInt(50))))
	assert.Equal(t, "0.01", Format(Percent(decimal.RequireFromString("0.05"), decimal.NewFromInt(10))))
	assert.Equal(t, "33.33", Format(Percent(decimal.RequireFromString("100"), decimal.RequireFromString("33.333"))))
}

func TestParse(t *testing.T) {
	d, err := Parse("12.345")
	require.NoError(t, err)
	assert.Equal(t, "12.35", Format(d))

	_, err = Parse("twelve")
	assert.Error(t, err)
}

func TestRatio(t *testing.T) {
	assert.Equal(t, "25.00", Format(Ratio(decimal.NewFromInt(250), decimal.NewFromInt(1000))))
	assert.True(t, Ratio(decimal.NewFromInt(1), decimal.Zero).IsZero())
}

func TestSum(t *testing.T) {
	total := Sum(decimal.RequireFromString("0.10"), decimal.RequireFromString("0.20"))
	assert.Equal(t, "0.30", Format(total))
}
