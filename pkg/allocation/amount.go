package allocation

import (
	"encoding/json"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common/math"
)

// InvalidAmountError is returned for negative, non-numeric or out of range amounts.
type InvalidAmountError struct {
	Value  string
	Reason string
}

func (e *InvalidAmountError) Error() string {
	return fmt.Sprintf("invalid amount %q: %s", e.Value, e.Reason)
}

// ParseAmount converts any accepted amount representation into a scaled,
// non-negative integer. It is the only place amounts are coerced.
func ParseAmount(v any, decimals int) (*big.Int, error) {
	switch value := v.(type) {
	case string:
		return ParseUnits(value, decimals)
	case json.Number:
		return ParseUnits(value.String(), decimals)
	case *big.Int:
		if value == nil {
			return nil, &InvalidAmountError{Value: "<nil>", Reason: "missing amount"}
		}
		return scale(new(big.Int).Set(value), decimals, value.String())
	case int:
		return scale(big.NewInt(int64(value)), decimals, fmt.Sprint(value))
	case int64:
		return scale(big.NewInt(value), decimals, fmt.Sprint(value))
	case uint64:
		return scale(new(big.Int).SetUint64(value), decimals, fmt.Sprint(value))
	default:
		return nil, &InvalidAmountError{Value: fmt.Sprint(v), Reason: fmt.Sprintf("unsupported type %T", v)}
	}
}

// ParseUnits parses a decimal string with an optional fractional part and
// scales it by 10^decimals. "1.5" with 18 decimals is 1500000000000000000.
func ParseUnits(value string, decimals int) (*big.Int, error) {
	if decimals < 0 {
		return nil, &InvalidAmountError{Value: value, Reason: "negative decimals"}
	}
	s := strings.TrimSpace(value)
	if s == "" {
		return nil, &InvalidAmountError{Value: value, Reason: "empty"}
	}

	whole, fraction, hasPoint := strings.Cut(s, ".")
	if whole == "" {
		whole = "0"
	}
	if hasPoint && fraction == "" {
		return nil, &InvalidAmountError{Value: value, Reason: "missing fractional digits"}
	}
	if !isDigits(whole) || !isDigits(fraction) {
		return nil, &InvalidAmountError{Value: value, Reason: "not a non-negative decimal number"}
	}

	fraction = strings.TrimRight(fraction, "0")
	if len(fraction) > decimals {
		return nil, &InvalidAmountError{Value: value, Reason: fmt.Sprintf("more than %d fractional digits", decimals)}
	}
	fraction += strings.Repeat("0", decimals-len(fraction))

	amount, ok := new(big.Int).SetString(whole+fraction, 10)
	if !ok {
		return nil, &InvalidAmountError{Value: value, Reason: "not a number"}
	}
	return checkRange(amount, value)
}

func scale(amount *big.Int, decimals int, original string) (*big.Int, error) {
	if decimals < 0 {
		return nil, &InvalidAmountError{Value: original, Reason: "negative decimals"}
	}
	if amount.Sign() < 0 {
		return nil, &InvalidAmountError{Value: original, Reason: "negative"}
	}
	multiplier := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	return checkRange(amount.Mul(amount, multiplier), original)
}

func checkRange(amount *big.Int, original string) (*big.Int, error) {
	if amount.Cmp(math.MaxBig256) > 0 {
		return nil, &InvalidAmountError{Value: original, Reason: "exceeds uint256"}
	}
	return amount, nil
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
