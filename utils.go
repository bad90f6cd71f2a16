package twap

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	MaxDecimals = 36
)

var maxUint256 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

// ToBaseUnit converts a human-readable amount to base units, rounding down so
// the result never exceeds what the user typed. An empty amount is zero.
func ToBaseUnit(amount string, decimals uint8) (*big.Int, error) {
	amount = strings.TrimSpace(amount)
	if amount == "" {
		return new(big.Int), nil
	}
	if decimals > MaxDecimals {
		return nil, &InvalidParamError{Message: fmt.Sprintf("token decimals %[2]d outside 0..%[1]d", MaxDecimals, decimals)}
	}

	value, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, &InvalidParamError{Message: fmt.Sprintf("invalid amount format: %q", amount)}
	}

	return DecimalToBaseUnit(value, decimals)
}

// DecimalToBaseUnit is ToBaseUnit for an already parsed amount
func DecimalToBaseUnit(value decimal.Decimal, decimals uint8) (*big.Int, error) {
	if value.IsNegative() {
		return nil, &InvalidParamError{Message: fmt.Sprintf("amount must not be negative, got: %s", value)}
	}

	result := value.Shift(int32(decimals)).Floor().BigInt()

	// Amounts travel as uint256 on chain.
	if result.Cmp(maxUint256) > 0 {
		return nil, &InvalidParamError{Message: fmt.Sprintf("amount %s overflows uint256", result.String())}
	}

	return result, nil
}

// FromBaseUnit converts a base-unit amount to its exact UI value
func FromBaseUnit(amount *big.Int, decimals uint8) decimal.Decimal {
	if amount == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(amount, -int32(decimals))
}

// AmountUI formats a base-unit amount as a plain decimal string
func AmountUI(amount *big.Int, decimals uint8) string {
	return FromBaseUnit(amount, decimals).String()
}

// ConvertDecimals rescales a base-unit amount between two decimal precisions, rounding down
func ConvertDecimals(amount *big.Int, fromDecimals, toDecimals uint8) *big.Int {
	if amount == nil {
		return new(big.Int)
	}
	if fromDecimals == toDecimals {
		return new(big.Int).Set(amount)
	}
	if toDecimals > fromDecimals {
		scale := pow10(int(toDecimals - fromDecimals))
		return new(big.Int).Mul(amount, scale)
	}
	scale := pow10(int(fromDecimals - toDecimals))
	return new(big.Int).Quo(amount, scale)
}

// IsNativeAddress reports whether address denotes the chain's native currency
func IsNativeAddress(address string) bool {
	return EqIgnoreCase(address, ZeroAddress) || EqIgnoreCase(address, NativeSentinelAddress)
}

// EqIgnoreCase compares two addresses or hashes case-insensitively
func EqIgnoreCase(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

func pow10(n int) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n)), nil)
}

func isZeroOrNil(x *big.Int) bool {
	return x == nil || x.Sign() == 0
}
