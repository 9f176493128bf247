// Package validate provides input validation for lplocker.
package validate

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/lockboxlabs/lplocker/internal/errors"
)

// Address parses a 0x-prefixed hex address.
func Address(s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("%w: %q", errors.ErrInvalidAddress, s)
	}
	return common.HexToAddress(s), nil
}

// NonZeroAddress parses an address and rejects the zero address.
func NonZeroAddress(s string) (common.Address, error) {
	addr, err := Address(s)
	if err != nil {
		return common.Address{}, err
	}
	if addr == (common.Address{}) {
		return common.Address{}, errors.ErrZeroAddress
	}
	return addr, nil
}

// TokenID parses a position token id as a non-negative decimal integer.
func TokenID(s string) (*big.Int, error) {
	id, ok := new(big.Int).SetString(strings.TrimSpace(s), 10)
	if !ok || id.Sign() < 0 {
		return nil, fmt.Errorf("%w: %q", errors.ErrInvalidTokenID, s)
	}
	return id, nil
}

// Amount parses a wei amount as a non-negative decimal integer.
func Amount(s string) (*big.Int, error) {
	amount, ok := new(big.Int).SetString(strings.TrimSpace(s), 10)
	if !ok || amount.Sign() < 0 {
		return nil, fmt.Errorf("%w: %q", errors.ErrInvalidAmount, s)
	}
	return amount, nil
}

// Duration parses a lock duration: either a plain number of seconds
// ("86400") or a Go duration string ("24h"). Zero and negative durations are
// rejected.
func Duration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if secs, err := strconv.ParseInt(s, 10, 64); err == nil {
		if secs <= 0 {
			return 0, fmt.Errorf("%w: %q", errors.ErrInvalidDuration, s)
		}
		return time.Duration(secs) * time.Second, nil
	}

	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("%w: %q", errors.ErrInvalidDuration, s)
	}
	return d, nil
}
