package twap

import (
	"math/big"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToBaseUnit(t *testing.T) {
	tests := []struct {
		name     string
		amount   string
		decimals uint8
		want     string
	}{
		{"whole", "100", 6, "100000000"},
		{"fraction", "1.5", 6, "1500000"},
		{"rounds down", "0.1234567", 6, "123456"},
		{"below one unit", "0.0000001", 6, "0"},
		{"empty", "", 18, "0"},
		{"spaces", " 2 ", 0, "2"},
		{"eighteen decimals", "0.000000000000000001", 18, "1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ToBaseUnit(tt.amount, tt.decimals)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestToBaseUnitRejectsInvalidInput(t *testing.T) {
	for _, amount := range []string{"-1", "abc", "1.2.3"} {
		_, err := ToBaseUnit(amount, 6)
		assert.ErrorIs(t, err, ErrInvalidParam, amount)
	}

	_, err := ToBaseUnit("1", MaxDecimals+1)
	assert.ErrorIs(t, err, ErrInvalidParam)

	huge := new(big.Int).Lsh(big.NewInt(1), 300).String()
	_, err = ToBaseUnit(huge, 0)
	assert.ErrorIs(t, err, ErrInvalidParam)
}

func TestToBaseUnitNeverExceedsInput(t *testing.T) {
	for _, amount := range []string{"0.1", "1.999999999", "123.456789", "0.33333333333"} {
		for _, decimals := range []uint8{0, 2, 6, 18} {
			base, err := ToBaseUnit(amount, decimals)
			require.NoError(t, err)

			typed := decimal.RequireFromString(amount)
			back := FromBaseUnit(base, decimals)
			assert.True(t, back.LessThanOrEqual(typed), "%s at %d decimals", amount, decimals)
		}
	}
}

func TestFromBaseUnit(t *testing.T) {
	assert.Equal(t, "1.5", FromBaseUnit(big.NewInt(1_500_000), 6).String())
	assert.Equal(t, "0", FromBaseUnit(nil, 6).String())
	assert.Equal(t, "0.000001", AmountUI(big.NewInt(1), 6))
}

func TestConvertDecimals(t *testing.T) {
	assert.Equal(t, "123", ConvertDecimals(big.NewInt(1_234_567), 6, 2).String())
	assert.Equal(t, "1230000", ConvertDecimals(big.NewInt(123), 2, 6).String())
	assert.Equal(t, "42", ConvertDecimals(big.NewInt(42), 6, 6).String())
	assert.Equal(t, "0", ConvertDecimals(nil, 6, 18).String())
}

func TestIsNativeAddress(t *testing.T) {
	assert.True(t, IsNativeAddress(ZeroAddress))
	assert.True(t, IsNativeAddress("0xeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeee"))
	assert.False(t, IsNativeAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"))
	assert.False(t, IsNativeAddress(""))
}

func TestNewTokenChecksumsAddress(t *testing.T) {
	token := NewToken("0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48", 6, "USDC")
	assert.Equal(t, "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48", token.Address)
	assert.True(t, token.Equal(Token{Address: "0xA0B86991C6218B36C1D19D4A2E9EB0CE3606EB48"}))
	assert.False(t, token.IsNative())
}

func TestTimeDuration(t *testing.T) {
	assert.Equal(t, int64(90_000), TimeDuration{Value: 1.5, Unit: Minutes}.Millis())
	assert.Equal(t, int64(86_400), TimeDuration{Value: 1, Unit: Days}.Seconds())
	assert.True(t, TimeDuration{}.IsZero())
	assert.True(t, TimeDuration{Value: -1, Unit: Hours}.IsZero())
}
