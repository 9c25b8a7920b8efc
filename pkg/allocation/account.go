package allocation

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// InvalidAccountError is returned for account strings that are not 20-byte hex
// addresses or that carry a wrong mixed-case checksum.
type InvalidAccountError struct {
	Account string
	Reason  string
}

func (e *InvalidAccountError) Error() string {
	return fmt.Sprintf("invalid account %q: %s", e.Account, e.Reason)
}

// ParseAccount canonicalises an account string. All-lowercase and all-uppercase
// forms are accepted as-is; mixed case must match the EIP-55 checksum.
func ParseAccount(s string) (common.Address, error) {
	raw := strings.TrimSpace(s)
	if !common.IsHexAddress(raw) {
		return common.Address{}, &InvalidAccountError{Account: s, Reason: "not a 20 byte hex address"}
	}

	addr := common.HexToAddress(raw)
	body := strings.TrimPrefix(strings.TrimPrefix(raw, "0x"), "0X")
	if body == strings.ToLower(body) || body == strings.ToUpper(body) {
		return addr, nil
	}
	if addr.Hex()[2:] != body {
		return common.Address{}, &InvalidAccountError{Account: s, Reason: "bad address checksum"}
	}
	return addr, nil
}
