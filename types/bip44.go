package types

import (
	"fmt"
	"regexp"
	"strconv"
)

// BIP44Path is the account/change/index tail of m/44'/coin'/account'/change/index.
type BIP44Path struct {
	Account      int `json:"account"`
	Change       int `json:"change"`
	AddressIndex int `json:"addressIndex"`
}

// DefaultBIP44Path is {0,0,0}.
var DefaultBIP44Path = BIP44Path{}

// Validate checks account >= 0, change in {0,1}, addressIndex >= 0.
func (p BIP44Path) Validate() error {
	if p.Account < 0 {
		return fmt.Errorf("invalid account in hd path: %w", ErrValidation)
	}
	if p.Change != 0 && p.Change != 1 {
		return fmt.Errorf("invalid change in hd path: %w", ErrValidation)
	}
	if p.AddressIndex < 0 {
		return fmt.Errorf("invalid address index in hd path: %w", ErrValidation)
	}
	return nil
}

// Plain returns the path as stored in vault insensitive data.
func (p BIP44Path) Plain() PlainObject {
	return PlainObject{
		"account":      p.Account,
		"change":       p.Change,
		"addressIndex": p.AddressIndex,
	}
}

// String renders the full derivation path for a coin type.
func (p BIP44Path) String(coinType int) string {
	return fmt.Sprintf("m/44'/%d'/%d'/%d/%d", coinType, p.Account, p.Change, p.AddressIndex)
}

// BIP44PathFrom reads a path out of a decoded insensitive value.
func BIP44PathFrom(raw any) (BIP44Path, bool) {
	m, ok := raw.(map[string]any)
	if !ok {
		return BIP44Path{}, false
	}
	account, ok1 := IntValue(m["account"])
	change, ok2 := IntValue(m["change"])
	index, ok3 := IntValue(m["addressIndex"])
	if !ok1 || !ok2 || !ok3 {
		return BIP44Path{}, false
	}
	return BIP44Path{Account: account, Change: change, AddressIndex: index}, true
}

var bip44PathRegexp = regexp.MustCompile(`(?i)^m/44'/(\d+)'/(\d+)'/(\d+)/(\d+)$`)

// ParseBIP44Path parses "m/44'/118'/0'/0/0" into its coin type and path.
func ParseBIP44Path(s string) (int, BIP44Path, error) {
	m := bip44PathRegexp.FindStringSubmatch(s)
	if m == nil {
		return 0, BIP44Path{}, fmt.Errorf("invalid bip44 hd path %q: %w", s, ErrValidation)
	}
	nums := make([]int, 4)
	for i := range nums {
		n, err := strconv.Atoi(m[i+1])
		if err != nil {
			return 0, BIP44Path{}, fmt.Errorf("invalid bip44 hd path %q: %w", s, ErrValidation)
		}
		nums[i] = n
	}
	return nums[0], BIP44Path{Account: nums[1], Change: nums[2], AddressIndex: nums[3]}, nil
}
